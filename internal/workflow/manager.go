// Package workflow drives sync, merge and cleanup over the configured
// accounts.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/calsync/davclient"
	"github.com/cyp0633/calsync/internal/config"
	"github.com/cyp0633/calsync/internal/merge"
	"github.com/cyp0633/calsync/internal/storage"
	"github.com/google/uuid"
)

var (
	// ErrNoAccounts is returned when the configuration holds no complete
	// account.
	ErrNoAccounts = errors.New("no accounts configured")
	// ErrAccountNotFound is returned by the kind and name selectors.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNothingSynced aborts a workflow run when every account failed.
	ErrNothingSynced = errors.New("no account synced successfully")
)

// Manager wires configuration, storage, drivers and the merger together.
type Manager struct {
	cfg         *config.Config
	paths       storage.Paths
	persister   *storage.Persister
	diagnostics *storage.Diagnostics
	merger      *merge.Merger
	logger      *slog.Logger

	httpClient    *http.Client
	eventsBaseURL string
	now           func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithHTTPClient sets the base HTTP client handed to every driver.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithEventsBaseURL overrides where DingTalk events are fetched from.
func WithEventsBaseURL(u string) Option {
	return func(m *Manager) { m.eventsBaseURL = u }
}

// WithClock sets the clock used for sync windows and file names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the storage layout under paths and returns a Manager
// for cfg.
func NewManager(cfg *config.Config, paths storage.Paths, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{cfg: cfg, paths: paths, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	m.persister = storage.NewPersister(paths, m.now, logger)
	m.diagnostics = storage.NewDiagnostics(paths, logger)
	m.merger = merge.NewMerger(paths, davclient.Kinds(), logger)
	m.merger.SetClock(m.now)
	return m, nil
}

// ListAccounts prints the configured accounts. Passwords are never shown.
func (m *Manager) ListAccounts(w io.Writer) error {
	if len(m.cfg.Accounts) == 0 {
		_, err := fmt.Fprintln(w, "No accounts configured")
		return err
	}
	for i, acc := range m.cfg.Accounts {
		window := m.cfg.Window(acc.Kind)
		_, err := fmt.Fprintf(w, "%d. %s\n   kind: %s\n   username: %s\n   url: %s\n   window: -%dd/+%dd\n\n",
			i+1, acc.Name, strings.ToUpper(string(acc.Kind)), acc.Username, acc.URL(),
			window.PastDays, window.FutureDays)
		if err != nil {
			return err
		}
	}
	return nil
}

// SyncAccount runs one account through discovery and retrieval and writes
// its events to storage.
func (m *Manager) SyncAccount(ctx context.Context, acc davclient.Account) (int, error) {
	logger := m.logger.With("run_id", uuid.NewString())
	logger.Info("syncing account", "account", acc.Name, "kind", string(acc.Kind))

	d, err := davclient.NewDriver(acc, davclient.Options{
		Window:        m.cfg.Window(acc.Kind),
		HTTPClient:    m.httpClient,
		Logger:        logger,
		Diagnostics:   m.diagnostics,
		Now:           m.now,
		EventsBaseURL: m.eventsBaseURL,
	})
	if err != nil {
		logger.Error("failed to create driver", "account", acc.Name, "error", err)
		return 0, err
	}

	n, err := davclient.Sync(ctx, d, m.persister, logger)
	if err != nil {
		logger.Warn("account sync failed", "account", acc.Name, "error", err)
		return 0, fmt.Errorf("%s: %w", acc.Name, err)
	}
	return n, nil
}

// SyncAll syncs every configured account in order and returns how many
// succeeded.
func (m *Manager) SyncAll(ctx context.Context) (int, error) {
	if len(m.cfg.Accounts) == 0 {
		return 0, ErrNoAccounts
	}
	succeeded := 0
	for _, acc := range m.cfg.Accounts {
		if err := ctx.Err(); err != nil {
			return succeeded, err
		}
		if _, err := m.SyncAccount(ctx, acc); err == nil {
			succeeded++
		}
	}
	m.logger.Info("sync finished", "accounts", len(m.cfg.Accounts), "succeeded", succeeded)
	return succeeded, nil
}

// SyncByKind syncs the account configured for kind.
func (m *Manager) SyncByKind(ctx context.Context, kind davclient.Kind) (int, error) {
	acc, ok := m.cfg.AccountByKind(kind)
	if !ok {
		return 0, fmt.Errorf("%w: kind %q", ErrAccountNotFound, kind)
	}
	return m.SyncAccount(ctx, acc)
}

// SyncByName syncs the account with the given name.
func (m *Manager) SyncByName(ctx context.Context, name string) (int, error) {
	acc, ok := m.cfg.AccountByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: name %q", ErrAccountNotFound, name)
	}
	return m.SyncAccount(ctx, acc)
}

func (m *Manager) MergeByKind(kind davclient.Kind) (string, error) {
	return m.merger.MergeByKind(davclient.Kind(strings.ToLower(string(kind))))
}

// MergeAll writes the public calendar, named after ICS_FILE_NAME when set.
func (m *Manager) MergeAll() (string, error) {
	return m.merger.MergeAll(m.cfg.ICSFileName)
}

func (m *Manager) Cleanup(days int) (merge.CleanupReport, error) {
	return m.merger.CleanupStale(days)
}

// Run is the full workflow: sync every account, merge per configured kind,
// merge everything into the public calendar and sweep stale files. It stops
// after the sync step when no account succeeded.
func (m *Manager) Run(ctx context.Context, cleanupDays int) error {
	m.logger.Info("starting workflow")

	synced, err := m.SyncAll(ctx)
	if err != nil {
		return err
	}
	if synced == 0 {
		return ErrNothingSynced
	}

	for _, kind := range m.cfg.Kinds() {
		if _, err := m.MergeByKind(kind); err != nil {
			m.logger.Warn("per-kind merge failed", "kind", kind, "error", err)
		}
	}

	public, err := m.MergeAll()
	if err != nil {
		return fmt.Errorf("failed to merge all accounts: %w", err)
	}

	if _, err := m.Cleanup(cleanupDays); err != nil {
		m.logger.Warn("cleanup failed", "error", err)
	}

	m.logger.Info("workflow complete", "synced", synced, "public", public)
	return nil
}
