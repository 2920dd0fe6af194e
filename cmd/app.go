package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"fintrack/internal/api"
	"fintrack/internal/config"
	"fintrack/internal/kv"
	"fintrack/internal/session"
	"fintrack/internal/store"
	"fintrack/pkg/models"
)

// app wires the objects one command invocation works with.
type app struct {
	cfg     *config.Config
	slots   kv.Store
	session *session.Manager
	client  *api.Client
	store   *store.Store
	log     zerolog.Logger

	closeSlots func() error
}

// newApp opens the session database and builds an API client that authenticates
// with the stored token.
func newApp(log zerolog.Logger) (*app, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	db, err := kv.Open(cfg.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	return assemble(cfg, db, db.Close, log), nil
}

func assemble(cfg *config.Config, slots kv.Store, closeSlots func() error, log zerolog.Logger) *app {
	sess := session.NewManager(slots, nil)
	client := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithTokenSource(sess),
	)
	sess.SetUsers(client)

	return &app{
		cfg:        cfg,
		slots:      slots,
		session:    sess,
		client:     client,
		store:      store.New(client),
		log:        log,
		closeSlots: closeSlots,
	}
}

// Close releases the session database.
func (a *app) Close() {
	if a.closeSlots == nil {
		return
	}
	if err := a.closeSlots(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close session database")
	}
}

// requireSession restores the stored session and fails when there is none.
func (a *app) requireSession(ctx context.Context) (*models.User, error) {
	user, err := a.session.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: run 'fintrack login' first", session.ErrNotLoggedIn)
	}
	return user, nil
}

// cachedFilters returns the filters of the last listing, or the defaults.
func (a *app) cachedFilters(ctx context.Context) store.Filters {
	f := store.Filters{Size: store.DefaultPageSize}
	raw, ok, err := a.slots.Get(ctx, kv.KeyFilters)
	if err != nil || !ok {
		return f
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		a.log.Debug().Err(err).Msg("Ignoring unreadable cached filters")
		return store.Filters{Size: store.DefaultPageSize}
	}
	return f
}

// loadCache fills the store from the cached collection without a remote call.
func (a *app) loadCache(ctx context.Context) bool {
	raw, ok, err := a.slots.Get(ctx, kv.KeyTransactions)
	if err != nil || !ok {
		return false
	}
	var ts []models.Transaction
	if err := json.Unmarshal([]byte(raw), &ts); err != nil {
		a.log.Debug().Err(err).Msg("Ignoring unreadable cached transactions")
		return false
	}
	a.store.Load(ts, a.cachedFilters(ctx))
	return true
}

// saveCache persists the store's collection and filters.
func (a *app) saveCache(ctx context.Context) {
	if data, err := json.Marshal(a.store.Transactions()); err == nil {
		if err := a.slots.Set(ctx, kv.KeyTransactions, string(data)); err != nil {
			a.log.Warn().Err(err).Msg("Failed to cache transactions")
		}
	}
	if data, err := json.Marshal(a.store.Filters()); err == nil {
		if err := a.slots.Set(ctx, kv.KeyFilters, string(data)); err != nil {
			a.log.Warn().Err(err).Msg("Failed to cache filters")
		}
	}
}
