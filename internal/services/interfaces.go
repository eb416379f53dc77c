package services

import "grana/internal/models"

// SyncServicer handles server-side storage of pushed state bundles.
type SyncServicer interface {
	// GetState returns the stored bundle for the user, or an empty bundle
	// when the user has never pushed.
	GetState(userID string) (*models.Bundle, error)
	// SaveState validates and stores the bundle, replacing any previous
	// row for the user entirely.
	SaveState(userID string, b *models.Bundle) error
}
