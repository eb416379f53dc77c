package services

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	apperrors "grana/internal/errors"
	"grana/internal/models"
)

// syncService stores each user's full state bundle as a single JSON row,
// replaced wholesale on every push (last-writer-wins, no merge).
type syncService struct {
	db *gorm.DB
}

// NewSyncService creates a new SyncServicer.
func NewSyncService(db *gorm.DB) SyncServicer {
	return &syncService{db: db}
}

// GetState retrieves the stored bundle for the user. A user who never
// pushed gets an empty bundle rather than an error, so a fresh device can
// pull without special-casing.
func (s *syncService) GetState(userID string) (*models.Bundle, error) {
	var row models.SyncState
	if err := s.db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyBundle(), nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var b models.Bundle
	if err := json.Unmarshal([]byte(row.Data), &b); err != nil {
		// A corrupt row should not lock the user out of syncing.
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &b, nil
}

// SaveState validates the bundle and upserts the user's row, replacing the
// previous contents entirely.
func (s *syncService) SaveState(userID string, b *models.Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var row models.SyncState
	err = s.db.Where("user_id = ?", userID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.SyncState{UserID: userID, Data: string(raw)}
		if err := s.db.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	case err != nil:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	default:
		if err := s.db.Model(&row).Update("data", string(raw)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

func emptyBundle() *models.Bundle {
	return &models.Bundle{
		Expenses:     []models.Record{},
		Incomes:      []models.Record{},
		Cards:        []models.Card{},
		Categories:   models.CategorySet{Expense: []string{}, Income: []string{}},
		Achievements: []models.Achievement{},
		Version:      models.BundleVersion,
	}
}
