// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkoivun/antdb-go/internal/errors"
	"gorm.io/gorm"
)

// isNotFoundErr matches GORM's record-not-found sentinel
func isNotFoundErr(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func errNewf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error for rejected write parameters
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// conflictError creates a conflict error for constraint violations
func conflictError(err error, operation, conflictType string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryConstraint).
		Priority(errors.PriorityMedium).
		Context("operation", operation).
		Context("conflict_type", conflictType)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError creates a not found error (low priority, expected condition)
func notFoundError(resource, identifier string) error {
	return errors.Newf("%s not found", resource).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

// isConstraintViolation reports whether err is a uniqueness or foreign key
// violation from either supported driver. The merge path in occurrence.go
// treats these as a lost race and retries as a lookup-then-merge.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unique constraint") ||
		strings.Contains(errStr, "constraint failed") ||
		strings.Contains(errStr, "duplicate entry") ||
		strings.Contains(errStr, "foreign key constraint")
}

// IsNotFound reports whether err means a lookup missed rather than failed.
func IsNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	return errors.CategoryOf(err) == errors.CategoryNotFound
}

// IsConstraint reports whether err carries the constraint category.
func IsConstraint(err error) bool {
	return errors.CategoryOf(err) == errors.CategoryConstraint || isConstraintViolation(err)
}
