package repository

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grana/internal/bus"
	"grana/internal/kvstore"
	"grana/internal/logger"
	"grana/internal/models"
	"grana/internal/testutil"
)

// newTestRepo builds a repository over a memory store. The deferred snapshot
// delay is pushed far out so tests control snapshot timing explicitly.
func newTestRepo(t *testing.T, opts ...Option) (*Repository, *bus.Bus) {
	t.Helper()
	events := bus.New()
	opts = append([]Option{WithSnapshotDelay(time.Hour)}, opts...)
	repo := New(kvstore.NewMemory(), events, logger.Named("repository-test"), opts...)
	t.Cleanup(repo.Close)
	return repo, events
}

func TestAddExpense(t *testing.T) {
	t.Run("mints_id_when_absent", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		stored := repo.AddExpense(models.Record{
			Description: "Lunch",
			Amount:      decimal.NewFromInt(50),
			Category:    "food",
			Date:        "2024-03-01",
		})

		if stored.ID == "" {
			t.Fatal("expected a minted non-empty id")
		}
		if stored.CreatedAt.IsZero() {
			t.Error("expected a creation timestamp")
		}
		if stored.Installments != 1 {
			t.Errorf("expected installments defaulted to 1, got %d", stored.Installments)
		}

		list := repo.Expenses()
		if len(list) != 1 {
			t.Fatalf("expected exactly one expense, got %d", len(list))
		}
		if list[0].ID != stored.ID || list[0].Description != "Lunch" {
			t.Errorf("stored record does not match: %+v", list[0])
		}
		if !list[0].Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("expected amount 50, got %s", list[0].Amount)
		}
	})

	t.Run("keeps_provided_id", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		stored := repo.AddExpense(testutil.NewExpense(10, "transporte"))
		if stored.ID == "" || stored.ID != repo.Expenses()[0].ID {
			t.Errorf("expected provided id preserved, got %q", stored.ID)
		}
	})

	t.Run("emits_data_updated", func(t *testing.T) {
		repo, events := newTestRepo(t)

		var changes []string
		events.Subscribe(bus.TopicDataUpdated, func(payload interface{}) bus.Result {
			changes = append(changes, payload.(bus.DataChange).Collection)
			return bus.Continue
		})

		repo.AddExpense(testutil.NewExpense(10, "lazer"))

		if len(changes) != 1 || changes[0] != "expenses" {
			t.Errorf("expected one data:updated event for expenses, got %v", changes)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	repo, _ := newTestRepo(t)
	a := repo.AddExpense(testutil.NewExpense(10, "a"))
	b := repo.AddExpense(testutil.NewExpense(20, "b"))

	if !repo.DeleteExpense(a.ID) {
		t.Fatal("expected delete to succeed")
	}
	if repo.DeleteExpense("missing-id") {
		t.Error("expected delete of unknown id to fail")
	}

	list := repo.Expenses()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("expected only the second expense to remain, got %+v", list)
	}
}

func TestLastWriteWins(t *testing.T) {
	repo, _ := newTestRepo(t)

	repo.SaveExpenses([]models.Record{testutil.NewExpense(1, "x"), testutil.NewExpense(2, "x")})
	final := []models.Record{testutil.NewExpense(3, "y")}
	repo.SaveExpenses(final)

	repo.SaveIncomes([]models.Record{testutil.NewIncome(100, "salario")})
	repo.SaveCards([]models.Card{testutil.NewCard()})

	all := repo.AllData()
	if len(all.Expenses) != 1 || all.Expenses[0].ID != final[0].ID {
		t.Errorf("expected latest expense write to win, got %+v", all.Expenses)
	}
	if len(all.Incomes) != 1 {
		t.Errorf("expected one income, got %d", len(all.Incomes))
	}
	if len(all.Cards) != 1 {
		t.Errorf("expected one card, got %d", len(all.Cards))
	}
}

func TestAllDataDegradesToEmpty(t *testing.T) {
	repo, _ := newTestRepo(t)

	all := repo.AllData()
	if all.Expenses == nil || all.Incomes == nil || all.Cards == nil {
		t.Error("expected empty lists, not nil")
	}
	if len(all.Expenses) != 0 || len(all.Incomes) != 0 || len(all.Cards) != 0 {
		t.Error("expected no data in a fresh repository")
	}
}

func TestMonthlyGoal(t *testing.T) {
	repo, _ := newTestRepo(t)

	if !repo.MonthlyGoal().IsZero() {
		t.Error("expected zero goal by default")
	}

	repo.SetMonthlyGoal(decimal.NewFromFloat(1500.50))
	if !repo.MonthlyGoal().Equal(decimal.NewFromFloat(1500.50)) {
		t.Errorf("expected goal 1500.50, got %s", repo.MonthlyGoal())
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("deterministic_for_identical_content", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		repo.AddExpense(testutil.NewExpense(42, "alimentacao"))

		first := repo.Fingerprint()
		second := repo.Fingerprint()
		if first == "" {
			t.Fatal("expected a non-empty fingerprint")
		}
		if first != second {
			t.Errorf("fingerprint not stable: %q vs %q", first, second)
		}
	})

	t.Run("changes_on_mutation", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		before := repo.Fingerprint()
		repo.AddExpense(testutil.NewExpense(42, "alimentacao"))
		after := repo.Fingerprint()

		if before == after {
			t.Error("expected fingerprint to change after a mutation")
		}
	})
}

func TestHasChanges(t *testing.T) {
	repo, _ := newTestRepo(t)
	repo.AddExpense(testutil.NewExpense(10, "a"))

	if !repo.HasChanges() {
		t.Fatal("expected changes before first snapshot")
	}
	testutil.AssertNoError(t, repo.Snapshot())
	if repo.HasChanges() {
		t.Error("expected no changes right after a snapshot")
	}

	repo.AddExpense(testutil.NewExpense(20, "b"))
	if !repo.HasChanges() {
		t.Error("expected changes after another mutation")
	}
}

func TestMigration(t *testing.T) {
	t.Run("v1_records_gain_defaults", func(t *testing.T) {
		store := kvstore.NewMemory()
		store.SetJSON("expensesData", []map[string]interface{}{
			{"id": "old-1", "description": "Aluguel", "amount": "800", "category": "moradia"},
		})
		store.Set("dataVersion", "1")

		repo := New(store, bus.New(), logger.Named("repository-test"), WithSnapshotDelay(time.Hour))
		t.Cleanup(repo.Close)

		list := repo.Expenses()
		if len(list) != 1 {
			t.Fatalf("expected migrated expense to survive, got %d records", len(list))
		}
		if list[0].Installments != 1 {
			t.Errorf("expected installments defaulted to 1, got %d", list[0].Installments)
		}
		if list[0].Kind != models.RecordKindVariable {
			t.Errorf("expected kind defaulted to variavel, got %q", list[0].Kind)
		}
		if got := store.Get("dataVersion", ""); got != strconv.Itoa(models.BundleVersion) {
			t.Errorf("expected version bumped to %d, got %s", models.BundleVersion, got)
		}
	})

	t.Run("seeds_default_categories", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		set := repo.Categories()
		if len(set.Expense) == 0 || len(set.Income) == 0 {
			t.Error("expected default categories on a fresh repository")
		}
	})

	t.Run("current_version_untouched", func(t *testing.T) {
		store := kvstore.NewMemory()
		store.Set("dataVersion", strconv.Itoa(models.BundleVersion))

		repo := New(store, bus.New(), logger.Named("repository-test"), WithSnapshotDelay(time.Hour))
		t.Cleanup(repo.Close)

		// No migration ran, so no default categories were seeded.
		set := repo.Categories()
		if len(set.Expense) != 0 {
			t.Errorf("expected no seeded categories, got %v", set.Expense)
		}
	})
}
