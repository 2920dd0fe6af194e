// Package store mirrors the remote income and expense collections as one list of
// transactions. Local state only changes after the matching remote call succeeded.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/api"
	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

// Remote is the part of the API client the store needs.
type Remote interface {
	ListIncomesPage(ctx context.Context, q api.PageQuery) (*models.Page[api.Income], error)
	ListExpensesPage(ctx context.Context, q api.PageQuery) (*models.Page[api.Expense], error)
	CreateIncome(ctx context.Context, in api.Income) (*api.Income, error)
	CreateExpense(ctx context.Context, in api.Expense) (*api.Expense, error)
	UpdateIncome(ctx context.Context, id string, in api.Income) (*api.Income, error)
	UpdateExpense(ctx context.Context, id string, in api.Expense) (*api.Expense, error)
	DeleteIncome(ctx context.Context, id string) error
	DeleteExpense(ctx context.Context, id string) error
}

// Filters select what FetchAll reads. Type and Category are applied locally after the merge.
type Filters struct {
	Page      int                    `json:"page"`
	Size      int                    `json:"size"`
	StartDate string                 `json:"startDate,omitempty"`
	EndDate   string                 `json:"endDate,omitempty"`
	Type      models.TransactionType `json:"type,omitempty"`
	Category  string                 `json:"category,omitempty"`
}

// DefaultPageSize is used when Filters.Size is not positive.
const DefaultPageSize = 10

func (f Filters) query() api.PageQuery {
	return api.PageQuery{Page: f.Page, Size: f.Size, StartDate: f.StartDate, EndDate: f.EndDate}
}

func (f Filters) match(t models.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	return true
}

// Store holds the merged collection. It is safe for concurrent use.
type Store struct {
	remote Remote
	log    zerolog.Logger

	mu           sync.RWMutex
	transactions []models.Transaction
	filters      Filters
	err          error
	loading      bool
	refreshKey   int
}

// New creates an empty store.
func New(remote Remote) *Store {
	return &Store{
		remote:       remote,
		log:          logger.WithComponent("store"),
		transactions: []models.Transaction{},
		filters:      Filters{Size: DefaultPageSize},
	}
}

// Transactions returns a copy of the current collection.
func (s *Store) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Err returns the error of the last failed operation, or nil after a success.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// RefreshKey counts Refresh calls.
func (s *Store) RefreshKey() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshKey
}

// Loading reports whether a fetch is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Filters returns the filters of the last fetch.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Load replaces the collection without a remote call, e.g. from a cached copy.
func (s *Store) Load(ts []models.Transaction, f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]models.Transaction{}, ts...)
	s.filters = f
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

// FetchAll reads one page of incomes and one page of expenses concurrently and replaces
// the collection with their merge, incomes first. If either read fails the collection is
// left as it was and the error is recorded.
func (s *Store) FetchAll(ctx context.Context, f Filters) error {
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Page < 0 {
		f.Page = 0
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var incomes *models.Page[api.Income]
	var expenses *models.Page[api.Expense]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = s.remote.ListIncomesPage(gctx, f.query())
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.remote.ListExpensesPage(gctx, f.query())
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to fetch transactions")
		return s.fail(fmt.Errorf("fetch transactions: %w", err))
	}

	merged := make([]models.Transaction, 0, len(incomes.Content)+len(expenses.Content))
	for _, in := range incomes.Content {
		if t := FromRemoteIncome(in); f.match(t) {
			merged = append(merged, t)
		}
	}
	for _, e := range expenses.Content {
		if t := FromRemoteExpense(e); f.match(t) {
			merged = append(merged, t)
		}
	}

	s.mu.Lock()
	s.transactions = merged
	s.filters = f
	s.err = nil
	s.mu.Unlock()

	s.log.Debug().Int("incomes", len(incomes.Content)).Int("expenses", len(expenses.Content)).Int("kept", len(merged)).Msg("Transactions fetched")
	return nil
}

// Add creates t remotely and prepends the stored record.
func (s *Store) Add(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if err := t.Validate(); err != nil {
		return models.Transaction{}, s.fail(err)
	}

	var created models.Transaction
	switch t.Type {
	case models.TypeIncome:
		in, err := s.remote.CreateIncome(ctx, ToRemoteIncome(t))
		if err != nil {
			return models.Transaction{}, s.fail(err)
		}
		created = FromRemoteIncome(*in)
	default:
		e, err := s.remote.CreateExpense(ctx, ToRemoteExpense(t))
		if err != nil {
			return models.Transaction{}, s.fail(err)
		}
		created = FromRemoteExpense(*e)
	}

	s.mu.Lock()
	s.transactions = append([]models.Transaction{created}, s.transactions...)
	s.err = nil
	s.mu.Unlock()
	return created, nil
}

// Edit replaces the transaction with id remotely and then locally.
func (s *Store) Edit(ctx context.Context, id string, t models.Transaction) (models.Transaction, error) {
	if id == "" {
		return models.Transaction{}, s.fail(models.NewValidationError("id", id, "is required"))
	}
	if err := t.Validate(); err != nil {
		return models.Transaction{}, s.fail(err)
	}
	t.ID = models.ID(id)

	var updated models.Transaction
	switch t.Type {
	case models.TypeIncome:
		in, err := s.remote.UpdateIncome(ctx, id, ToRemoteIncome(t))
		if err != nil {
			return models.Transaction{}, s.fail(err)
		}
		updated = FromRemoteIncome(*in)
	default:
		e, err := s.remote.UpdateExpense(ctx, id, ToRemoteExpense(t))
		if err != nil {
			return models.Transaction{}, s.fail(err)
		}
		updated = FromRemoteExpense(*e)
	}
	if updated.ID == "" {
		updated.ID = t.ID
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == updated.ID && s.transactions[i].Type == updated.Type {
			s.transactions[i] = updated
			break
		}
	}
	s.err = nil
	s.mu.Unlock()
	return updated, nil
}

// ErrUnknownType is returned by Remove for a type that is neither income nor expense.
var ErrUnknownType = errors.New("transaction type must be income or expense")

// Remove deletes the transaction remotely, then drops it locally.
func (s *Store) Remove(ctx context.Context, id string, typ models.TransactionType) error {
	var err error
	switch typ {
	case models.TypeIncome:
		err = s.remote.DeleteIncome(ctx, id)
	case models.TypeExpense:
		err = s.remote.DeleteExpense(ctx, id)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	kept := s.transactions[:0:0]
	for _, t := range s.transactions {
		if t.ID.String() == id && t.Type == typ {
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	s.err = nil
	s.mu.Unlock()
	return nil
}
