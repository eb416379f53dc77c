// Package repository is the authoritative facade over the key-value store
// for every domain collection. It owns change fingerprints, bounded-history
// snapshots, restore, and import/export.
package repository

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"grana/internal/bus"
	"grana/internal/kvstore"
	"grana/internal/models"
)

// Persisted key names. Values under them are opaque JSON.
const (
	keyExpenses          = "expensesData"
	keyIncomes           = "incomeData"
	keyCards             = "cards"
	keyExpenseCategories = "expense-categories"
	keyIncomeCategories  = "income-categories"
	keyAchievements      = "achievements"
	keyBundle            = "appData"
	keyHistory           = "autoSaveHistory"
	keyGoal              = "monthlyGoal"
	keyLastAutoSave      = "lastAutoSave"
	keyDataVersion       = "dataVersion"
)

const (
	defaultMaxSnapshots  = 15
	defaultSnapshotDelay = 2 * time.Second
)

// Repository mediates between the UI, the key-value store, the auto-save
// history, and the sync client. Construct one per process and pass it
// explicitly to dependents.
type Repository struct {
	store *kvstore.Store
	bus   *bus.Bus
	log   *zap.SugaredLogger

	maxSnapshots  int
	snapshotDelay time.Duration

	// mu serializes read-modify-write cycles against the store so a
	// snapshot never interleaves with a mutation (fingerprint and data
	// are read under the same critical section).
	mu       sync.Mutex
	lastHash string

	timerMu sync.Mutex
	pending *time.Timer
}

// Option configures a Repository.
type Option func(*Repository)

// WithMaxSnapshots overrides the bounded snapshot history length.
func WithMaxSnapshots(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.maxSnapshots = n
		}
	}
}

// WithSnapshotDelay overrides the deferred-snapshot delay used to collapse
// bursts of mutations into one snapshot attempt.
func WithSnapshotDelay(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.snapshotDelay = d
		}
	}
}

// New creates a Repository over the given store and bus, upgrading any
// stored data written by an older bundle version.
func New(store *kvstore.Store, b *bus.Bus, log *zap.SugaredLogger, opts ...Option) *Repository {
	r := &Repository{
		store:         store,
		bus:           b,
		log:           log,
		maxSnapshots:  defaultMaxSnapshots,
		snapshotDelay: defaultSnapshotDelay,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.migrateStored()

	// Seed the last-seen fingerprint from the persisted bundle so a
	// restart does not immediately re-snapshot unchanged data.
	var stored models.Bundle
	if store.GetJSON(keyBundle, &stored) {
		r.lastHash = stored.Hash
	}

	return r
}

// Close cancels any pending deferred snapshot.
func (r *Repository) Close() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

// --- Expenses ---

// Expenses returns the expense collection; storage failures degrade to an
// empty list.
func (r *Repository) Expenses() []models.Record {
	list := []models.Record{}
	r.store.GetJSON(keyExpenses, &list)
	return list
}

// SaveExpenses overwrites the expense collection.
func (r *Repository) SaveExpenses(list []models.Record) {
	r.saveCollection(keyExpenses, "expenses", list)
}

// AddExpense appends a record to the expense collection, minting an ID and
// creation timestamp when absent, and returns the stored record.
func (r *Repository) AddExpense(rec models.Record) models.Record {
	return r.addRecord(keyExpenses, "expenses", rec)
}

// DeleteExpense removes the expense with the given ID and reports whether
// it existed.
func (r *Repository) DeleteExpense(id string) bool {
	return r.deleteRecord(keyExpenses, "expenses", id)
}

// --- Incomes ---

// Incomes returns the income collection.
func (r *Repository) Incomes() []models.Record {
	list := []models.Record{}
	r.store.GetJSON(keyIncomes, &list)
	return list
}

// SaveIncomes overwrites the income collection.
func (r *Repository) SaveIncomes(list []models.Record) {
	r.saveCollection(keyIncomes, "incomes", list)
}

// AddIncome appends a record to the income collection.
func (r *Repository) AddIncome(rec models.Record) models.Record {
	return r.addRecord(keyIncomes, "incomes", rec)
}

// DeleteIncome removes the income with the given ID.
func (r *Repository) DeleteIncome(id string) bool {
	return r.deleteRecord(keyIncomes, "incomes", id)
}

// --- Cards ---

// Cards returns the card collection.
func (r *Repository) Cards() []models.Card {
	list := []models.Card{}
	r.store.GetJSON(keyCards, &list)
	return list
}

// SaveCards overwrites the card collection.
func (r *Repository) SaveCards(list []models.Card) {
	r.saveCollection(keyCards, "cards", list)
}

// AddCard appends a card.
func (r *Repository) AddCard(card models.Card) {
	r.mu.Lock()
	list := []models.Card{}
	r.store.GetJSON(keyCards, &list)
	list = append(list, card)
	r.store.SetJSON(keyCards, list)
	r.mu.Unlock()

	r.notifyChange("cards")
}

// --- Categories ---

// Categories returns the stored category names for both collections.
func (r *Repository) Categories() models.CategorySet {
	set := models.CategorySet{Expense: []string{}, Income: []string{}}
	r.store.GetJSON(keyExpenseCategories, &set.Expense)
	r.store.GetJSON(keyIncomeCategories, &set.Income)
	return set
}

// SaveCategories overwrites both category lists.
func (r *Repository) SaveCategories(set models.CategorySet) {
	r.mu.Lock()
	r.store.SetJSON(keyExpenseCategories, set.Expense)
	r.store.SetJSON(keyIncomeCategories, set.Income)
	r.mu.Unlock()

	r.notifyChange("categories")
}

// --- Achievements ---

// Achievements returns the unlocked achievements.
func (r *Repository) Achievements() []models.Achievement {
	list := []models.Achievement{}
	r.store.GetJSON(keyAchievements, &list)
	return list
}

// SaveAchievements overwrites the achievement list.
func (r *Repository) SaveAchievements(list []models.Achievement) {
	r.saveCollection(keyAchievements, "achievements", list)
}

// --- Monthly goal ---

// MonthlyGoal returns the configured monthly spending goal, zero when unset.
func (r *Repository) MonthlyGoal() decimal.Decimal {
	raw := r.store.Get(keyGoal, "0")
	goal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return goal
}

// SetMonthlyGoal stores the monthly spending goal.
func (r *Repository) SetMonthlyGoal(goal decimal.Decimal) {
	r.mu.Lock()
	r.store.Set(keyGoal, goal.String())
	r.mu.Unlock()

	r.notifyChange("monthlyGoal")
}

// DashboardData is the minimal live view used by dashboards.
type DashboardData struct {
	Expenses []models.Record `json:"expensesData"`
	Incomes  []models.Record `json:"incomeData"`
	Cards    []models.Card   `json:"cards"`
}

// AllData returns the dashboard view. Storage errors degrade to empty lists.
func (r *Repository) AllData() DashboardData {
	return DashboardData{
		Expenses: r.Expenses(),
		Incomes:  r.Incomes(),
		Cards:    r.Cards(),
	}
}

// --- internals ---

func (r *Repository) addRecord(key, collection string, rec models.Record) models.Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Installments < 1 {
		rec.Installments = 1
	}

	r.mu.Lock()
	list := []models.Record{}
	r.store.GetJSON(key, &list)
	list = append(list, rec)
	r.store.SetJSON(key, list)
	r.mu.Unlock()

	r.notifyChange(collection)
	return rec
}

func (r *Repository) deleteRecord(key, collection, id string) bool {
	r.mu.Lock()
	list := []models.Record{}
	r.store.GetJSON(key, &list)
	found := false
	kept := list[:0]
	for _, rec := range list {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if found {
		r.store.SetJSON(key, kept)
	}
	r.mu.Unlock()

	if found {
		r.notifyChange(collection)
	}
	return found
}

func (r *Repository) saveCollection(key, collection string, v interface{}) {
	r.mu.Lock()
	r.store.SetJSON(key, v)
	r.mu.Unlock()

	r.notifyChange(collection)
}

// notifyChange publishes the change and arms the deferred snapshot timer.
// Resetting the timer on every mutation collapses bursts into one snapshot.
func (r *Repository) notifyChange(collection string) {
	change := bus.DataChange{Collection: collection}
	r.bus.Emit(bus.TopicDataUpdated, change)
	r.bus.Emit(bus.TopicDashboardUpdate, change)

	r.timerMu.Lock()
	if r.pending != nil {
		r.pending.Stop()
	}
	r.pending = time.AfterFunc(r.snapshotDelay, func() {
		if err := r.Snapshot(); err != nil {
			r.log.Warnw("deferred snapshot failed", "error", err)
		}
	})
	r.timerMu.Unlock()
}

func (r *Repository) reportError(op string, err error) {
	r.log.Errorw("repository operation failed", "op", op, "error", err)
	r.bus.Emit(bus.TopicSystemError, bus.SystemError{Op: op, Err: err})
}

// fingerprint reduces the serialized payload to a 32-bit rolling hash
// (h = h*31 + byte, wrapped to signed 32-bit). Not cryptographic; collisions
// are acceptable for change detection.
func fingerprint(data []byte) string {
	var h int32
	for _, c := range data {
		h = h*31 + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}
