// Package session keeps the bearer token across CLI invocations and decides whether a
// stored session is still usable.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"fintrack/internal/api"
	"fintrack/internal/kv"
	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

var (
	// ErrNoToken is returned by Login when the server accepted the credentials but sent no token.
	ErrNoToken = errors.New("login response carried no token")

	// ErrNotLoggedIn is returned by operations that need a session when there is none.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Users is the part of the API client the session needs.
type Users interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	Register(ctx context.Context, r models.Registration) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Claims are the token claims fintrack reads. The signature is never verified here;
// the server does that on every request.
type Claims struct {
	jwt.RegisteredClaims
	UserID   any    `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// SubjectID returns the user id from sub, falling back to userId.
func (c Claims) SubjectID() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	switch v := c.UserID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// ParseClaims decodes a token without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Manager owns the current token. It implements api.TokenSource.
type Manager struct {
	store kv.Store
	users Users
	now   func() time.Time
	log   zerolog.Logger

	mu    sync.RWMutex
	token string
	user  *models.User
}

// NewManager creates a manager backed by store. users may be set later with SetUsers
// when the API client itself needs the manager as its token source.
func NewManager(store kv.Store, users Users) *Manager {
	return &Manager{
		store: store,
		users: users,
		now:   time.Now,
		log:   logger.WithComponent("session"),
	}
}

// SetUsers replaces the API used for login and session checks.
func (m *Manager) SetUsers(users Users) {
	m.users = users
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns the user confirmed by the last Bootstrap or Login, if any.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Authenticated reports whether a token is loaded.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Register validates r locally and creates the account. It does not log in.
func (m *Manager) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return m.users.Register(ctx, r)
}

// Login exchanges credentials for a token and persists it.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	const op = "Login"

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	resp, err := m.users.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	token := resp.BearerToken()
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoToken)
	}
	if err := m.store.Set(ctx, kv.KeyToken, token); err != nil {
		return nil, fmt.Errorf("%s: failed to persist token: %w", op, err)
	}

	m.mu.Lock()
	m.token = token
	m.user = &models.User{ID: resp.UserID, Username: resp.Username}
	m.mu.Unlock()

	m.log.Info().Str("username", resp.Username).Msg("Logged in")
	return resp, nil
}

// Bootstrap restores a stored session. It returns (nil, nil) when there is no usable
// session: a missing, malformed or expired token, or one the server no longer accepts.
// Unusable tokens are cleared without reporting an error. A transport failure keeps the
// token and is returned.
func (m *Manager) Bootstrap(ctx context.Context) (*models.User, error) {
	token, ok, err := m.store.Get(ctx, kv.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("Bootstrap: failed to read token: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		return nil, nil
	}

	claims, err := ParseClaims(token)
	if err != nil {
		m.log.Debug().Err(err).Msg("Stored token is not a JWT, clearing session")
		return nil, m.clear(ctx)
	}
	if exp := claims.ExpiresAt; exp != nil && !exp.After(m.now()) {
		m.log.Debug().Time("expired_at", exp.Time).Msg("Stored token expired, clearing session")
		return nil, m.clear(ctx)
	}
	subject := claims.SubjectID()
	if subject == "" {
		m.log.Debug().Msg("Stored token has no subject, clearing session")
		return nil, m.clear(ctx)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	user, err := m.users.GetUser(ctx, subject)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNotFound) {
			m.log.Debug().Err(err).Msg("Stored token rejected, clearing session")
			return nil, m.clear(ctx)
		}
		return nil, err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return user, nil
}

// Logout forgets the token and every slot cached for the session.
func (m *Manager) Logout(ctx context.Context) error {
	return m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx, kv.KeyToken, kv.KeyTransactions, kv.KeyFilters); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
