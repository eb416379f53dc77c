package repository

import (
	"strconv"

	"grana/internal/models"
)

// Default category names seeded for bundles predating version 3.
var (
	defaultExpenseCategories = []string{"alimentacao", "transporte", "moradia", "lazer", "saude", "outros"}
	defaultIncomeCategories  = []string{"salario", "extra", "investimentos"}
)

// migrateStored upgrades persisted data written by an older bundle version.
// Runs once at startup; migration is forward-only and never downgrades.
func (r *Repository) migrateStored() {
	stored, err := strconv.Atoi(r.store.Get(keyDataVersion, "1"))
	if err != nil || stored < 1 {
		stored = 1
	}
	if stored >= models.BundleVersion {
		return
	}

	r.mu.Lock()
	b := r.bundleLocked()
	b.Version = stored
	migrateBundle(&b)

	r.store.SetJSON(keyExpenses, b.Expenses)
	r.store.SetJSON(keyIncomes, b.Incomes)
	r.store.SetJSON(keyCards, b.Cards)
	r.store.SetJSON(keyExpenseCategories, b.Categories.Expense)
	r.store.SetJSON(keyIncomeCategories, b.Categories.Income)
	r.store.SetJSON(keyAchievements, b.Achievements)
	r.store.Set(keyDataVersion, strconv.Itoa(models.BundleVersion))
	r.mu.Unlock()

	r.log.Infow("stored data migrated", "from", stored, "to", models.BundleVersion)
}

// migrateBundle applies forward-only per-field defaulting keyed by the
// bundle's version, then normalizes optional collections so nil and empty
// serialize identically.
func migrateBundle(b *models.Bundle) {
	if b.Version < 2 {
		// v1 records predate installments and the fixed/variable split.
		defaultRecords(b.Expenses)
		defaultRecords(b.Incomes)
	}
	if b.Version < 3 {
		// v2 bundles carried no category lists.
		if len(b.Categories.Expense) == 0 {
			b.Categories.Expense = append([]string{}, defaultExpenseCategories...)
		}
		if len(b.Categories.Income) == 0 {
			b.Categories.Income = append([]string{}, defaultIncomeCategories...)
		}
	}

	if b.Expenses == nil {
		b.Expenses = []models.Record{}
	}
	if b.Incomes == nil {
		b.Incomes = []models.Record{}
	}
	if b.Cards == nil {
		b.Cards = []models.Card{}
	}
	if b.Categories.Expense == nil {
		b.Categories.Expense = []string{}
	}
	if b.Categories.Income == nil {
		b.Categories.Income = []string{}
	}
	if b.Achievements == nil {
		b.Achievements = []models.Achievement{}
	}

	b.Version = models.BundleVersion
}

func defaultRecords(list []models.Record) {
	for i := range list {
		if list[i].Installments < 1 {
			list[i].Installments = 1
		}
		if list[i].Kind == "" {
			list[i].Kind = models.RecordKindVariable
		}
	}
}
