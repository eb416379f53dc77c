package repository

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "grana/internal/errors"
	"grana/internal/models"
)

// ExportFilename returns the download name for a backup taken at t,
// e.g. "Backup_data_05-03-2024.json".
func ExportFilename(t time.Time) string {
	return "Backup_data_" + t.Format("02-01-2006") + ".json"
}

// Bundle returns the current content bundle, the unit of export and remote
// sync.
func (r *Repository) Bundle() models.Bundle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bundleLocked()
}

// Export serializes the full state bundle for file download and returns the
// payload together with its suggested filename.
func (r *Repository) Export() ([]byte, string, error) {
	r.mu.Lock()
	b := r.bundleLocked()
	hash, err := r.fingerprintLocked()
	r.mu.Unlock()

	if err != nil {
		r.reportError("export", err)
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	b.Stamp(hash, now)

	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		r.reportError("export", err)
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return raw, ExportFilename(now), nil
}

// Import validates raw as a state bundle and, on success, overwrites every
// collection with its contents. Invalid input is rejected without partial
// writes; the rejection reason is surfaced to the caller.
func (r *Repository) Import(raw []byte) error {
	b, err := models.ParseBundle(raw)
	if err != nil {
		return err
	}

	if err := r.Replace(*b); err != nil {
		return err
	}

	r.log.Infow("state imported",
		"expenses", len(b.Expenses), "incomes", len(b.Incomes), "cards", len(b.Cards))
	return nil
}

// Replace overwrites every collection with the bundle's contents, upgrading
// old-version payloads first. Used by import and by the remote sync pull.
func (r *Repository) Replace(b models.Bundle) error {
	migrateBundle(&b)

	hash, err := contentHash(b)
	if err != nil {
		r.reportError("replace", err)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	r.mu.Lock()
	r.writeBundleLocked(b, hash)
	r.mu.Unlock()

	r.notifyChange("all")
	return nil
}

// contentHash fingerprints the content fields of a bundle, ignoring any
// metadata carried in an import or sync payload.
func contentHash(b models.Bundle) (string, error) {
	b.Timestamp = ""
	b.Hash = ""
	b.Version = models.BundleVersion
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("serializing bundle: %w", err)
	}
	return fingerprint(raw), nil
}
