package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	apperrors "grana/internal/errors"
)

// BundleVersion is the current on-disk bundle schema version. Migration is
// forward-only; stored bundles with an older version are upgraded once at
// startup and never downgraded.
const BundleVersion = 3

// CategorySet holds the category names for each record collection.
// Ordering is irrelevant.
type CategorySet struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

// Bundle is the full aggregate of all domain collections plus metadata.
// It is the unit of snapshot, export, import, and remote sync.
type Bundle struct {
	Expenses     []Record        `json:"expensesData"`
	Incomes      []Record        `json:"incomeData"`
	Cards        []Card          `json:"cards"`
	Categories   CategorySet     `json:"categories"`
	Achievements []Achievement   `json:"achievements"`
	MonthlyGoal  decimal.Decimal `json:"monthlyGoal"`
	Timestamp    string          `json:"timestamp,omitempty"` // RFC3339, metadata only
	Hash         string          `json:"hash,omitempty"`
	Version      int             `json:"version"`
}

// Snapshot is a retained historical copy of a Bundle, identified by its
// creation timestamp in milliseconds.
type Snapshot struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"` // RFC3339
	Data      Bundle `json:"data"`
	Hash      string `json:"hash"`
}

// ParseBundle decodes raw JSON into a Bundle and validates its structure.
// Malformed JSON and missing required collections are both rejected with
// ErrInvalidBundle; no distinction is useful to the caller.
func ParseBundle(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidBundle, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks the structural requirements of an imported bundle: the
// three primary collections must be present as lists.
func (b *Bundle) Validate() error {
	if b.Expenses == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidBundle, "expensesData must be a list")
	}
	if b.Incomes == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidBundle, "incomeData must be a list")
	}
	if b.Cards == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidBundle, "cards must be a list")
	}
	return nil
}

// Stamp sets the bundle's metadata fields for persisting.
func (b *Bundle) Stamp(hash string, now time.Time) {
	b.Hash = hash
	b.Timestamp = now.UTC().Format(time.RFC3339)
	b.Version = BundleVersion
}
