// lookup.go: controlled vocabulary tables (environment, method, season, unit).
package datastore

import (
	"github.com/mkoivun/antdb-go/internal/normalize"
)

// LookupKind selects one of the controlled vocabulary tables
type LookupKind string

const (
	LookupEnvironment LookupKind = "environment_types"
	LookupMethod      LookupKind = "methods"
	LookupSeason      LookupKind = "seasons"
	LookupUnit        LookupKind = "units"
)

// lookupModel returns a pointer to an empty model for kind so GORM resolves
// the right table.
func lookupModel(kind LookupKind) any {
	switch kind {
	case LookupEnvironment:
		return &EnvironmentType{}
	case LookupMethod:
		return &Method{}
	case LookupSeason:
		return &Season{}
	case LookupUnit:
		return &Unit{}
	default:
		return nil
	}
}

// GetLookup resolves a normalized label against one vocabulary, read-only.
// This is the import path: an unknown label is a row rejection, never an
// implicit creation.
func (ds *DataStore) GetLookup(kind LookupKind, normalized string) (uint, error) {
	model := lookupModel(kind)
	if model == nil {
		return 0, validationError("unknown lookup kind", "kind", string(kind))
	}
	if normalized == "" {
		return 0, validationError("lookup name must not be empty", "kind", string(kind))
	}

	var row struct{ ID uint }
	err := ds.DB.Model(model).Select("id").Where("name = ?", normalized).First(&row).Error
	if err != nil {
		if isNotFoundErr(err) {
			return 0, notFoundError(string(kind), normalized)
		}
		return 0, dbError(err, "get_lookup", "", "kind", string(kind), "name", normalized)
	}
	return row.ID, nil
}

// GetOrCreateLookup resolves a label, creating it when absent. This is the
// setup path used by init seeding and the species/research feeds, not by
// record import.
func (ds *DataStore) GetOrCreateLookup(kind LookupKind, name string) (uint, error) {
	normalized := normalize.Text(name)
	if normalized == "" {
		return 0, validationError("lookup name must not be empty", "kind", string(kind))
	}

	id, err := ds.GetLookup(kind, normalized)
	if err == nil {
		return id, nil
	}
	if !IsNotFound(err) {
		return 0, err
	}

	model := lookupModel(kind)
	if err := ds.DB.Model(model).Create(map[string]any{"name": normalized}).Error; err != nil {
		if isConstraintViolation(err) {
			// concurrent create, re-read
			return ds.GetLookup(kind, normalized)
		}
		return 0, dbError(err, "create_lookup", "", "kind", string(kind), "name", normalized)
	}
	return ds.GetLookup(kind, normalized)
}
