// Package store defines storage interfaces for persisting and retrieving
// domain objects: cached OHLCV history and user accounts.
package store

import (
	"context"
	"errors"
	"time"

	"stockpulse/internal/domain"
)

// ErrUserExists is returned when registering a username already in use.
var ErrUserExists = errors.New("username already taken")

// ErrInvalidCredentials is returned when a login does not match a stored
// account. Unknown username and wrong password are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, market domain.Market, symbol string, start, end time.Time) ([]domain.Bar, error)

	// LastTimestamp returns the newest stored bar timestamp for the symbol,
	// or the zero time when nothing is stored.
	LastTimestamp(ctx context.Context, market domain.Market, symbol string) (time.Time, error)

	// ListSymbols returns all distinct symbols stored in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// UserStore persists and authenticates user accounts.
type UserStore interface {
	// CreateUser registers a new account. Returns ErrUserExists when the
	// username is taken.
	CreateUser(ctx context.Context, username, password string) (*domain.User, error)

	// Authenticate verifies a username/password pair. Returns
	// ErrInvalidCredentials on mismatch.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// GetUser looks up an account by username. Returns (nil, nil) when the
	// account does not exist.
	GetUser(ctx context.Context, username string) (*domain.User, error)
}
