package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"grana/internal/models"
	"grana/internal/testutil"
)

func TestGetState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewSyncService(db)

	t.Run("unknown_user_gets_empty_bundle", func(t *testing.T) {
		bundle, err := service.GetState(uuid.NewString())
		testutil.AssertNoError(t, err)

		if bundle == nil {
			t.Fatal("expected an empty bundle, got nil")
		}
		if bundle.Expenses == nil || bundle.Incomes == nil || bundle.Cards == nil {
			t.Error("expected empty lists, not nil")
		}
		if len(bundle.Expenses) != 0 {
			t.Errorf("expected no expenses, got %d", len(bundle.Expenses))
		}
		if bundle.Version != models.BundleVersion {
			t.Errorf("expected current bundle version, got %d", bundle.Version)
		}
	})

	t.Run("returns_saved_bundle", func(t *testing.T) {
		userID := uuid.NewString()
		saved := testutil.NewBundle()
		testutil.AssertNoError(t, service.SaveState(userID, &saved))

		got, err := service.GetState(userID)
		testutil.AssertNoError(t, err)

		if len(got.Expenses) != 1 || got.Expenses[0].ID != saved.Expenses[0].ID {
			t.Errorf("expected the saved expense back, got %+v", got.Expenses)
		}
		if !got.MonthlyGoal.Equal(saved.MonthlyGoal) {
			t.Errorf("expected goal %s, got %s", saved.MonthlyGoal, got.MonthlyGoal)
		}
	})
}

func TestSaveState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewSyncService(db)

	t.Run("upsert_replaces_previous_row", func(t *testing.T) {
		userID := uuid.NewString()

		first := testutil.NewBundle()
		testutil.AssertNoError(t, service.SaveState(userID, &first))

		second := testutil.NewBundle()
		second.MonthlyGoal = decimal.NewFromInt(9999)
		testutil.AssertNoError(t, service.SaveState(userID, &second))

		got, err := service.GetState(userID)
		testutil.AssertNoError(t, err)

		if len(got.Expenses) != 1 || got.Expenses[0].ID != second.Expenses[0].ID {
			t.Errorf("expected only the second bundle's expense, got %+v", got.Expenses)
		}
		if !got.MonthlyGoal.Equal(decimal.NewFromInt(9999)) {
			t.Errorf("expected replaced goal, got %s", got.MonthlyGoal)
		}

		var count int64
		db.Model(&models.SyncState{}).Where("user_id = ?", userID).Count(&count)
		if count != 1 {
			t.Errorf("expected one row per user, got %d", count)
		}
	})

	t.Run("users_are_isolated", func(t *testing.T) {
		alice := uuid.NewString()
		bob := uuid.NewString()

		aliceBundle := testutil.NewBundle()
		bobBundle := testutil.NewBundle()
		testutil.AssertNoError(t, service.SaveState(alice, &aliceBundle))
		testutil.AssertNoError(t, service.SaveState(bob, &bobBundle))

		got, err := service.GetState(alice)
		testutil.AssertNoError(t, err)
		if got.Expenses[0].ID != aliceBundle.Expenses[0].ID {
			t.Error("expected alice's bundle, got another user's data")
		}
	})

	t.Run("rejects_invalid_bundle", func(t *testing.T) {
		bad := models.Bundle{Expenses: []models.Record{}} // incomes and cards missing
		err := service.SaveState(uuid.NewString(), &bad)
		testutil.AssertAppError(t, err, "INVALID_BUNDLE")
	})
}
