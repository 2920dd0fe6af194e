package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"fintrack/internal/api"
	"fintrack/pkg/models"
)

type fakeRemote struct {
	mu sync.Mutex

	incomes  []api.Income
	expenses []api.Expense

	incomesErr  error
	expensesErr error
	mutateErr   error

	gotQueries []api.PageQuery
	deleted    []string
	nextID     int
}

func (f *fakeRemote) ListIncomesPage(ctx context.Context, q api.PageQuery) (*models.Page[api.Income], error) {
	f.mu.Lock()
	f.gotQueries = append(f.gotQueries, q)
	f.mu.Unlock()
	if f.incomesErr != nil {
		return nil, f.incomesErr
	}
	return &models.Page[api.Income]{Content: f.incomes}, nil
}

func (f *fakeRemote) ListExpensesPage(ctx context.Context, q api.PageQuery) (*models.Page[api.Expense], error) {
	f.mu.Lock()
	f.gotQueries = append(f.gotQueries, q)
	f.mu.Unlock()
	if f.expensesErr != nil {
		return nil, f.expensesErr
	}
	return &models.Page[api.Expense]{Content: f.expenses}, nil
}

func (f *fakeRemote) id() models.ID {
	f.nextID++
	return models.ID(string(rune('0' + f.nextID)))
}

func (f *fakeRemote) CreateIncome(ctx context.Context, in api.Income) (*api.Income, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	in.ID = f.id()
	return &in, nil
}

func (f *fakeRemote) CreateExpense(ctx context.Context, e api.Expense) (*api.Expense, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	e.ID = f.id()
	return &e, nil
}

func (f *fakeRemote) UpdateIncome(ctx context.Context, id string, in api.Income) (*api.Income, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return &in, nil
}

func (f *fakeRemote) UpdateExpense(ctx context.Context, id string, e api.Expense) (*api.Expense, error) {
	if f.mutateErr != nil {
		return nil, f.mutateErr
	}
	return &e, nil
}

func (f *fakeRemote) DeleteIncome(ctx context.Context, id string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, "income:"+id)
	return nil
}

func (f *fakeRemote) DeleteExpense(ctx context.Context, id string) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.deleted = append(f.deleted, "expense:"+id)
	return nil
}

func seededRemote() *fakeRemote {
	return &fakeRemote{
		incomes: []api.Income{
			{ID: "1", Amount: 1000, Source: "Salary", Date: "2024-03-01"},
		},
		expenses: []api.Expense{
			{ID: "1", Amount: 20, Category: "Food", Date: "2024-03-02"},
			{ID: "2", Amount: 400, Category: "Rent", Date: "2024-03-03"},
		},
	}
}

type session bool

func (s session) Authenticated() bool { return bool(s) }

func TestFetchAll_Merges(t *testing.T) {
	remote := seededRemote()
	s := New(remote)

	if err := s.FetchAll(context.Background(), Filters{StartDate: "2024-03-01"}); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	got := s.Transactions()
	if len(got) != 3 {
		t.Fatalf("got %d transactions", len(got))
	}
	if got[0].Type != models.TypeIncome || got[0].Category != "Salary" {
		t.Errorf("income not mapped: %+v", got[0])
	}
	if got[1].Type != models.TypeExpense || got[2].Category != "Rent" {
		t.Errorf("expenses not mapped: %+v", got[1:])
	}
	for _, q := range remote.gotQueries {
		if q.Page != 0 || q.Size != DefaultPageSize || q.StartDate != "2024-03-01" {
			t.Errorf("query = %+v", q)
		}
	}
	if s.Err() != nil || s.Loading() {
		t.Errorf("Err = %v, Loading = %v", s.Err(), s.Loading())
	}
}

func TestFetchAll_PostFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    int
	}{
		{name: "type", filters: Filters{Type: models.TypeExpense}, want: 2},
		{name: "category", filters: Filters{Category: "Food"}, want: 1},
		{name: "category is case sensitive", filters: Filters{Category: "food"}, want: 0},
		{name: "type and category", filters: Filters{Type: models.TypeIncome, Category: "Food"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(seededRemote())
			if err := s.FetchAll(context.Background(), tt.filters); err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}
			if got := len(s.Transactions()); got != tt.want {
				t.Errorf("got %d transactions, want %d", got, tt.want)
			}
		})
	}
}

func TestFetchAll_AllOrNothing(t *testing.T) {
	remote := seededRemote()
	s := New(remote)
	if err := s.FetchAll(context.Background(), Filters{}); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	before := s.Transactions()

	remote.expensesErr = &api.Error{Op: "ListExpensesPage", Kind: api.KindRemote, Status: 500}
	remote.incomes = append(remote.incomes, api.Income{ID: "9", Amount: 1, Source: "New"})

	err := s.FetchAll(context.Background(), Filters{})
	if !errors.Is(err, api.ErrServer) {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if !errors.Is(s.Err(), api.ErrServer) {
		t.Errorf("Err() = %v", s.Err())
	}
	if !reflect.DeepEqual(s.Transactions(), before) {
		t.Errorf("store changed after failed fetch: %+v", s.Transactions())
	}
}

func TestAdd_RoutesAndPrepends(t *testing.T) {
	s := New(seededRemote())
	ctx := context.Background()
	_ = s.FetchAll(ctx, Filters{})

	created, err := s.Add(ctx, models.Transaction{Type: models.TypeIncome, Amount: 50, Category: "Gift", Date: "2024-03-05"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if created.ID == "" || created.Category != "Gift" || created.Type != models.TypeIncome {
		t.Errorf("created = %+v", created)
	}
	if first := s.Transactions()[0]; first.ID != created.ID || first.Category != "Gift" {
		t.Errorf("first = %+v", first)
	}
	if len(s.Transactions()) != 4 {
		t.Errorf("len = %d", len(s.Transactions()))
	}
}

func TestMutations_FailureLeavesStateUntouched(t *testing.T) {
	remote := seededRemote()
	s := New(remote)
	ctx := context.Background()
	_ = s.FetchAll(ctx, Filters{})
	before := s.Transactions()

	remote.mutateErr = &api.Error{Op: "x", Kind: api.KindTransport, Err: errors.New("connection reset")}

	if _, err := s.Add(ctx, models.Transaction{Type: models.TypeExpense, Amount: 1, Category: "Food", Date: "2024-03-01"}); err == nil {
		t.Error("Add() should fail")
	}
	if _, err := s.Edit(ctx, "1", models.Transaction{Type: models.TypeExpense, Amount: 2, Category: "Food", Date: "2024-03-01"}); err == nil {
		t.Error("Edit() should fail")
	}
	if err := s.Remove(ctx, "1", models.TypeExpense); err == nil {
		t.Error("Remove() should fail")
	}
	if !api.IsTransport(s.Err()) {
		t.Errorf("Err() = %v", s.Err())
	}
	if !reflect.DeepEqual(s.Transactions(), before) {
		t.Errorf("state changed: %+v", s.Transactions())
	}
}

func TestAdd_Validation(t *testing.T) {
	s := New(seededRemote())
	_, err := s.Add(context.Background(), models.Transaction{Type: models.TypeExpense, Amount: 0, Category: "Food", Date: "2024-03-01"})
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "amount" {
		t.Fatalf("Add() error = %v", err)
	}
}

func TestEdit_ReplacesByID(t *testing.T) {
	s := New(seededRemote())
	ctx := context.Background()
	_ = s.FetchAll(ctx, Filters{})

	updated, err := s.Edit(ctx, "2", models.Transaction{Type: models.TypeExpense, Amount: 450, Category: "Rent", Date: "2024-03-03"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if updated.ID != "2" {
		t.Errorf("updated.ID = %q", updated.ID)
	}
	for _, tx := range s.Transactions() {
		if tx.Type == models.TypeExpense && tx.ID == "2" && tx.Amount != 450 {
			t.Errorf("expense 2 not replaced: %+v", tx)
		}
		if tx.Type == models.TypeIncome && tx.Amount != 1000 {
			t.Errorf("income with same id was touched: %+v", tx)
		}
	}
}

func TestRemove(t *testing.T) {
	remote := seededRemote()
	s := New(remote)
	ctx := context.Background()
	_ = s.FetchAll(ctx, Filters{})

	if err := s.Remove(ctx, "1", models.TypeExpense); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !reflect.DeepEqual(remote.deleted, []string{"expense:1"}) {
		t.Errorf("deleted = %v", remote.deleted)
	}
	got := s.Transactions()
	if len(got) != 2 || got[0].Type != models.TypeIncome || got[1].ID != "2" {
		t.Errorf("after Remove: %+v", got)
	}

	if err := s.Remove(ctx, "1", "transfer"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Remove(transfer) = %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	remote := seededRemote()
	s := New(remote)
	ctx := context.Background()

	if err := s.Init(ctx, session(false)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(remote.gotQueries) != 0 {
		t.Error("Init fetched without a session")
	}

	if err := s.Init(ctx, session(true)); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(s.Transactions()) != 3 {
		t.Errorf("Init loaded %d transactions", len(s.Transactions()))
	}

	_ = s.FetchAll(ctx, Filters{Page: 2, Size: 5})
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if s.RefreshKey() != 1 {
		t.Errorf("RefreshKey() = %d", s.RefreshKey())
	}
	last := remote.gotQueries[len(remote.gotQueries)-1]
	if last.Page != 2 || last.Size != 5 {
		t.Errorf("Refresh used %+v", last)
	}

	s.Teardown()
	if len(s.Transactions()) != 0 || s.Filters().Size != DefaultPageSize {
		t.Errorf("Teardown left %+v", s.Transactions())
	}
}

func TestConversions(t *testing.T) {
	tx := models.Transaction{ID: "4", Type: models.TypeIncome, Amount: 10, Category: "Bonus", Description: "Q1", Date: "2024-04-01"}
	in := ToRemoteIncome(tx)
	if in.Source != "Bonus" {
		t.Errorf("Source = %q", in.Source)
	}
	if back := FromRemoteIncome(in); !reflect.DeepEqual(back, tx) {
		t.Errorf("round trip = %+v", back)
	}

	ex := models.Transaction{ID: "5", Type: models.TypeExpense, Amount: 3, Category: "Food", Date: "2024-04-02"}
	if back := FromRemoteExpense(ToRemoteExpense(ex)); !reflect.DeepEqual(back, ex) {
		t.Errorf("expense round trip = %+v", back)
	}
}
