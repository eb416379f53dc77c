package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"grana/internal/bus"
	"grana/internal/models"
)

// bundleLocked assembles the current content bundle. Callers hold r.mu.
// Timestamp and Hash stay empty so the serialized form is deterministic for
// identical content; wall-clock time is deliberately excluded from the
// fingerprint payload.
func (r *Repository) bundleLocked() models.Bundle {
	return models.Bundle{
		Expenses:     r.Expenses(),
		Incomes:      r.Incomes(),
		Cards:        r.Cards(),
		Categories:   r.Categories(),
		Achievements: r.Achievements(),
		MonthlyGoal:  r.MonthlyGoal(),
		Version:      models.BundleVersion,
	}
}

// Fingerprint returns the change-detection fingerprint of the current state.
func (r *Repository) Fingerprint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash, err := r.fingerprintLocked()
	if err != nil {
		return ""
	}
	return hash
}

func (r *Repository) fingerprintLocked() (string, error) {
	raw, err := json.Marshal(r.bundleLocked())
	if err != nil {
		return "", fmt.Errorf("serializing bundle: %w", err)
	}
	return fingerprint(raw), nil
}

// HasChanges reports whether the current state differs from the last
// snapshotted state.
func (r *Repository) HasChanges() bool {
	return r.Fingerprint() != r.lastFingerprint()
}

func (r *Repository) lastFingerprint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// Snapshot writes a new snapshot if anything changed since the last one.
// Unchanged state is a silent no-op. Fingerprint computation and the data
// read happen inside one critical section so a concurrent mutation cannot
// slip between them.
func (r *Repository) Snapshot() error {
	r.mu.Lock()
	err := r.snapshotLocked()
	r.mu.Unlock()

	if err != nil {
		r.reportError("snapshot", err)
	}
	return err
}

func (r *Repository) snapshotLocked() error {
	b := r.bundleLocked()
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("serializing bundle: %w", err)
	}
	hash := fingerprint(raw)
	if hash == r.lastHash && r.lastHash != "" {
		return nil
	}

	now := time.Now()
	snap := models.Snapshot{
		ID:        now.UnixMilli(),
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      b,
		Hash:      hash,
	}

	history := r.snapshotsLocked()
	history = append([]models.Snapshot{snap}, history...)
	if len(history) > r.maxSnapshots {
		history = history[:r.maxSnapshots]
	}
	r.store.SetJSON(keyHistory, history)

	b.Stamp(hash, now)
	r.store.SetJSON(keyBundle, b)
	r.store.Set(keyLastAutoSave, now.UTC().Format(time.RFC3339))
	r.lastHash = hash

	r.log.Debugw("snapshot written", "id", snap.ID, "history", len(history))
	return nil
}

// Snapshots returns the retained snapshot history, newest first.
func (r *Repository) Snapshots() []models.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotsLocked()
}

func (r *Repository) snapshotsLocked() []models.Snapshot {
	history := []models.Snapshot{}
	r.store.GetJSON(keyHistory, &history)
	sort.Slice(history, func(i, j int) bool { return history[i].ID > history[j].ID })
	return history
}

// RestoreSnapshot overwrites every collection with the contents of the
// snapshot identified by id. A miss reports failure without mutating state.
func (r *Repository) RestoreSnapshot(id int64) bool {
	r.mu.Lock()
	var target *models.Snapshot
	for _, snap := range r.snapshotsLocked() {
		if snap.ID == id {
			s := snap
			target = &s
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return false
	}

	r.writeBundleLocked(target.Data, target.Hash)
	r.mu.Unlock()

	r.notifyChange("all")
	return true
}

// writeBundleLocked overwrites every collection key from the bundle and
// records its hash as the last-seen fingerprint. Callers hold r.mu.
func (r *Repository) writeBundleLocked(b models.Bundle, hash string) {
	r.store.SetJSON(keyExpenses, b.Expenses)
	r.store.SetJSON(keyIncomes, b.Incomes)
	r.store.SetJSON(keyCards, b.Cards)
	r.store.SetJSON(keyExpenseCategories, b.Categories.Expense)
	r.store.SetJSON(keyIncomeCategories, b.Categories.Income)
	r.store.SetJSON(keyAchievements, b.Achievements)
	r.store.Set(keyGoal, b.MonthlyGoal.String())

	b.Stamp(hash, time.Now())
	r.store.SetJSON(keyBundle, b)
	r.lastHash = hash
}

// ClearSnapshotHistory drops the retained snapshot list.
func (r *Repository) ClearSnapshotHistory() {
	r.mu.Lock()
	r.store.Remove(keyHistory)
	r.mu.Unlock()

	r.bus.Emit(bus.TopicDataUpdated, bus.DataChange{Collection: "snapshots"})
}
