package store

import (
	"context"

	"fintrack/pkg/models"
)

// Authenticator reports whether a session exists.
type Authenticator interface {
	Authenticated() bool
}

// Init performs the first fetch with the current filters when auth has a session.
// Without one the store stays empty and Init returns nil.
func (s *Store) Init(ctx context.Context, auth Authenticator) error {
	if auth == nil || !auth.Authenticated() {
		s.log.Debug().Msg("No session, skipping initial fetch")
		return nil
	}
	return s.FetchAll(ctx, s.Filters())
}

// Teardown discards local state, as on logout.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = []models.Transaction{}
	s.filters = Filters{Size: DefaultPageSize}
	s.err = nil
}

// Refresh bumps the refresh key and refetches with the last filters.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshKey++
	f := s.filters
	s.mu.Unlock()
	return s.FetchAll(ctx, f)
}
