// Package errors provides centralized error handling with category and
// component metadata used across the importer and datastore.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation        ErrorCategory = "validation"
	CategorySpeciesResolution ErrorCategory = "species-resolution"
	CategoryConstraint        ErrorCategory = "constraint"
	CategoryDatabase          ErrorCategory = "database"
	CategoryFileIO            ErrorCategory = "file-io"
	CategoryFileParsing       ErrorCategory = "file-parsing"
	CategoryConfiguration     ErrorCategory = "configuration"
	CategoryImport            ErrorCategory = "import"
	CategoryNotFound          ErrorCategory = "not-found"
	CategoryConflict          ErrorCategory = "conflict"
	CategoryCancellation      ErrorCategory = "cancellation"
	CategoryGeneric           ErrorCategory = "generic"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component has not been set.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where error occurred
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	mu        sync.RWMutex   // Protects Context
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches two enhanced errors by category, otherwise defers to the
// wrapped error chain.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() ErrorCategory {
	return ee.Category
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error builder wrapping err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new builder around a formatted error
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error. Invalid
// values fall back to medium rather than failing the build.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// CategoryOf returns the category of err if it is an EnhancedError anywhere
// in its chain, CategoryGeneric otherwise.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

// Standard library passthroughs so callers need a single errors import.

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join returns an error wrapping the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// NewStd creates a standard error without enhancement
func NewStd(text string) error {
	return stderrors.New(text)
}
