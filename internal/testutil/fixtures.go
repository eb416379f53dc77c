package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewExpense creates an expense record with a unique description.
func NewExpense(amount int64, category string) models.Record {
	n := nextID()
	return models.Record{
		ID:           fmt.Sprintf("expense-%d", n),
		Description:  fmt.Sprintf("Test Expense %d", n),
		Amount:       decimal.NewFromInt(amount),
		Date:         "2024-03-01",
		Category:     category,
		Kind:         models.RecordKindVariable,
		Payment:      models.PaymentMethodDebit,
		Installments: 1,
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// NewIncome creates an income record with a unique description.
func NewIncome(amount int64, category string) models.Record {
	n := nextID()
	return models.Record{
		ID:           fmt.Sprintf("income-%d", n),
		Description:  fmt.Sprintf("Test Income %d", n),
		Amount:       decimal.NewFromInt(amount),
		Date:         "2024-03-05",
		Category:     category,
		Kind:         models.RecordKindFixed,
		Installments: 1,
		CreatedAt:    time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
}

// NewCard creates a credit card with a unique name.
func NewCard() models.Card {
	return models.Card{
		Name:       fmt.Sprintf("Test Card %d", nextID()),
		Type:       models.CardTypeCredit,
		Limit:      decimal.NewFromInt(5000),
		ClosingDay: 25,
		DueDay:     5,
	}
}

// NewBundle creates a valid bundle with one expense, one income, and one card.
func NewBundle() models.Bundle {
	return models.Bundle{
		Expenses:     []models.Record{NewExpense(50, "alimentacao")},
		Incomes:      []models.Record{NewIncome(3000, "salario")},
		Cards:        []models.Card{NewCard()},
		Categories:   models.CategorySet{Expense: []string{"alimentacao"}, Income: []string{"salario"}},
		Achievements: []models.Achievement{},
		MonthlyGoal:  decimal.NewFromInt(2000),
		Version:      models.BundleVersion,
	}
}
