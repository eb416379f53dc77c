package models

import "github.com/shopspring/decimal"

// CardType represents the kind of card.
type CardType string

const (
	CardTypeCredit   CardType = "credito"
	CardTypeDebit    CardType = "debito"
	CardTypeMultiple CardType = "multiplo"
)

// Card represents a payment card. The name acts as the reference key used
// by Record.SelectedCard.
type Card struct {
	Name       string          `json:"name" binding:"required"`
	Type       CardType        `json:"type" binding:"omitempty,card_type"`
	Limit      decimal.Decimal `json:"limit"`
	ClosingDay int             `json:"closingDay" binding:"omitempty,min=1,max=31"` // 1..31
	DueDay     int             `json:"dueDay" binding:"omitempty,min=1,max=31"`     // 1..31
}
