// Package syncclient reconciles local state with the remote sync endpoint
// using a last-writer-wins policy. Sync is best-effort: failures flip the
// status indicator and are logged, but never break the local-only experience.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"grana/internal/bus"
	apperrors "grana/internal/errors"
	"grana/internal/models"
)

// Status is the visible sync indicator state.
type Status string

const (
	StatusOffline Status = "offline" // default, gray
	StatusSyncing Status = "syncing" // orange
	StatusOnline  Status = "online"  // green
	StatusError   Status = "error"   // red
)

// StatusChange is the payload published on bus.TopicSyncStatus.
type StatusChange struct {
	Status    Status
	Direction string // "pull" or "push"
}

// LocalStore is the repository capability the client needs.
type LocalStore interface {
	Bundle() models.Bundle
	Replace(b models.Bundle) error
}

// Client pulls and pushes the full state bundle against the remote endpoint,
// scoped by the caller's bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	local      LocalStore
	bus        *bus.Bus
	log        *zap.SugaredLogger

	status  atomic.Value // Status
	pulling atomic.Bool
	pushing atomic.Bool
}

// New creates a sync client. A nil httpClient falls back to a client with a
// sane timeout.
func New(baseURL, token string, httpClient *http.Client, local LocalStore, b *bus.Bus, log *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		local:      local,
		bus:        b,
		log:        log,
	}
	c.status.Store(StatusOffline)
	return c
}

// Status returns the current indicator state.
func (c *Client) Status() Status {
	return c.status.Load().(Status)
}

// Pull fetches the remote bundle. When the remote expense collection is
// non-empty, it overwrites local state unconditionally; the cloud is the
// source of truth and no merge is attempted. Local edits made since the
// last push are lost. An empty remote leaves local state untouched.
func (c *Client) Pull(ctx context.Context) error {
	if !c.pulling.CompareAndSwap(false, true) {
		return apperrors.ErrSyncInFlight
	}
	defer c.pulling.Store(false)

	c.setStatus(StatusSyncing, "pull")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/sync", nil)
	if err != nil {
		return c.fail("pull", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail("pull", apperrors.Wrap(apperrors.ErrSyncUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail("pull", apperrors.WithMessage(apperrors.ErrSyncRejected,
			fmt.Sprintf("fetching remote state: unexpected status %d", resp.StatusCode)))
	}

	var remote models.Bundle
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return c.fail("pull", fmt.Errorf("decoding remote state: %w", err))
	}

	if len(remote.Expenses) == 0 {
		c.log.Info("remote state empty, keeping local data")
		c.setStatus(StatusOnline, "pull")
		return nil
	}

	if err := c.local.Replace(remote); err != nil {
		return c.fail("pull", err)
	}

	c.log.Infow("remote state applied",
		"expenses", len(remote.Expenses), "incomes", len(remote.Incomes), "cards", len(remote.Cards))
	c.setStatus(StatusOnline, "pull")
	return nil
}

// Push serializes the full local state and replaces the remote row. A push
// while another push is in flight is a no-op.
func (c *Client) Push(ctx context.Context) error {
	if !c.pushing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.pushing.Store(false)

	c.setStatus(StatusSyncing, "push")

	b := c.local.Bundle()
	b.Stamp("", time.Now())
	body, err := json.Marshal(b)
	if err != nil {
		return c.fail("push", fmt.Errorf("serializing local state: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sync", bytes.NewReader(body))
	if err != nil {
		return c.fail("push", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail("push", apperrors.Wrap(apperrors.ErrSyncUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail("push", apperrors.WithMessage(apperrors.ErrSyncRejected,
			fmt.Sprintf("pushing local state: unexpected status %d", resp.StatusCode)))
	}

	c.log.Infow("local state pushed", "expenses", len(b.Expenses))
	c.setStatus(StatusOnline, "push")
	return nil
}

// fail logs the error, flips the indicator, and returns the error. Local
// state is left untouched; the next scheduled sync retries.
func (c *Client) fail(direction string, err error) error {
	c.log.Warnw("sync failed", "direction", direction, "error", err)
	c.setStatus(StatusError, direction)
	return err
}

func (c *Client) setStatus(s Status, direction string) {
	c.status.Store(s)
	c.bus.Emit(bus.TopicSyncStatus, StatusChange{Status: s, Direction: direction})
}
