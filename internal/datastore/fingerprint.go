// fingerprint.go: content fingerprints of merged record rows.
//
// Merge-by-addition is not idempotent, so re-running an unchanged input file
// would double every abundance. Each merged row leaves a content hash behind;
// a record row whose hash is already present is skipped as an exact
// resubmission instead of being counted again.
package datastore

import (
	"time"
)

// SeenFingerprint reports whether a row content hash was already merged.
func (ds *DataStore) SeenFingerprint(rowHash string) (bool, error) {
	var count int64
	if err := ds.DB.Model(&ImportFingerprint{}).Where("row_hash = ?", rowHash).Count(&count).Error; err != nil {
		return false, dbError(err, "seen_fingerprint", "", "row_hash", rowHash)
	}
	return count > 0, nil
}

// RecordFingerprint stores the content hash of a merged row. Runs inside the
// row transaction, so the fingerprint and the merge commit together.
func (ds *DataStore) RecordFingerprint(rowHash, runID string) error {
	fp := ImportFingerprint{
		RowHash:   rowHash,
		RunID:     runID,
		CreatedAt: time.Now(),
	}
	if err := ds.DB.Create(&fp).Error; err != nil {
		if isConstraintViolation(err) {
			return conflictError(err, "record_fingerprint", "unique", "row_hash", rowHash)
		}
		return dbError(err, "record_fingerprint", "", "row_hash", rowHash)
	}
	return nil
}
