package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind distinguishes fixed from variable records.
type RecordKind string

const (
	RecordKindFixed    RecordKind = "fixa"
	RecordKindVariable RecordKind = "variavel"
)

// PaymentMethod represents how an expense was paid.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "dinheiro"
	PaymentMethodDebit  PaymentMethod = "debito"
	PaymentMethodCredit PaymentMethod = "credito"
	PaymentMethodPix    PaymentMethod = "pix"
)

// Record represents a single expense or income entry. A record belongs to
// exactly one collection; the same shape serves both.
type Record struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"` // ISO-8601 date (YYYY-MM-DD)
	Category     string          `json:"category"`
	Kind         RecordKind      `json:"kind,omitempty" binding:"omitempty,record_kind"`
	Payment      PaymentMethod   `json:"paymentMethod,omitempty" binding:"omitempty,payment_method"`
	SelectedCard string          `json:"selectedCard,omitempty"` // card name, may dangle
	Installments int             `json:"installments,omitempty" binding:"omitempty,min=1"`
	CreatedAt    time.Time       `json:"createdAt"`
	Synced       bool            `json:"synced,omitempty"`
	Origin       string          `json:"origin,omitempty"`
}

// Achievement marks an unlocked milestone.
type Achievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}
