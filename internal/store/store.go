// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ndemidov/presenced/internal/domain"
)

// ErrNotFound is returned when a requested invite does not exist.
var ErrNotFound = errors.New("invite not found")

// ErrAlreadyResolved is returned when a status transition targets an
// invite that is no longer pending.
var ErrAlreadyResolved = errors.New("invite already resolved")

// Repository defines the interface for persisting friend invites.
type Repository interface {
	// CreateInvite stores a new invite.
	CreateInvite(ctx context.Context, invite *domain.Invite) error

	// GetInvite retrieves an invite by ID. Returns ErrNotFound if absent.
	GetInvite(ctx context.Context, id string) (*domain.Invite, error)

	// ListInvitesForUser returns every invite where the user is either
	// sender or recipient, newest first.
	ListInvitesForUser(ctx context.Context, userID string) ([]*domain.Invite, error)

	// UpdateInviteStatus transitions a pending invite to a new status
	// and returns the updated record. Returns ErrNotFound if absent
	// and ErrAlreadyResolved if the invite is no longer pending; the
	// pending check and the write are a single atomic statement.
	UpdateInviteStatus(ctx context.Context, id string, status domain.InviteStatus) (*domain.Invite, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
