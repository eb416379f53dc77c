package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseBundle(t *testing.T) {
	t.Run("valid_payload", func(t *testing.T) {
		raw := []byte(`{
			"expensesData": [{"id": "e1", "description": "Mercado", "amount": "120.50"}],
			"incomeData": [],
			"cards": [],
			"monthlyGoal": "2000",
			"version": 3
		}`)

		b, err := ParseBundle(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(b.Expenses) != 1 || b.Expenses[0].ID != "e1" {
			t.Errorf("unexpected expenses: %+v", b.Expenses)
		}
		if b.MonthlyGoal.String() != "2000" {
			t.Errorf("unexpected goal: %s", b.MonthlyGoal)
		}
	})

	t.Run("rejects_malformed_json", func(t *testing.T) {
		if _, err := ParseBundle([]byte(`{"expensesData": [`)); err == nil {
			t.Error("expected malformed JSON to be rejected")
		}
	})

	t.Run("rejects_missing_collections", func(t *testing.T) {
		cases := map[string]string{
			"expenses": `{"incomeData":[],"cards":[]}`,
			"incomes":  `{"expensesData":[],"cards":[]}`,
			"cards":    `{"expensesData":[],"incomeData":[]}`,
		}
		for name, raw := range cases {
			t.Run(name, func(t *testing.T) {
				if _, err := ParseBundle([]byte(raw)); err == nil {
					t.Error("expected bundle without the collection to be rejected")
				}
			})
		}
	})

	t.Run("rejects_wrong_collection_type", func(t *testing.T) {
		raw := []byte(`{"expensesData":"not-a-list","incomeData":[],"cards":[]}`)
		if _, err := ParseBundle(raw); err == nil {
			t.Error("expected non-list collection to be rejected")
		}
	})
}

func TestStamp(t *testing.T) {
	b := Bundle{Expenses: []Record{}, Incomes: []Record{}, Cards: []Card{}}
	at := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	b.Stamp("12345", at)

	if b.Hash != "12345" {
		t.Errorf("unexpected hash %q", b.Hash)
	}
	if b.Timestamp != "2024-03-05T10:30:00Z" {
		t.Errorf("unexpected timestamp %q", b.Timestamp)
	}
	if b.Version != BundleVersion {
		t.Errorf("unexpected version %d", b.Version)
	}
}

func TestBundleMetadataOmittedWhenEmpty(t *testing.T) {
	// Content hashing relies on unstamped bundles serializing without
	// timestamp or hash fields.
	raw, err := json.Marshal(Bundle{Expenses: []Record{}, Incomes: []Record{}, Cards: []Card{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"timestamp", "hash"} {
		if strings.Contains(string(raw), `"`+field+`"`) {
			t.Errorf("expected %s omitted from unstamped bundle: %s", field, raw)
		}
	}
}
