package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByExternalID(ctx context.Context, externalID string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// Create inserts the user or, when a user with the same external id
	// already exists, returns the stored row with created set to false.
	Create(ctx context.Context, user User) (saved User, created bool, err error)
	// UpdateLogin stores the display profile and the last login timestamp.
	UpdateLogin(ctx context.Context, user User) (User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// User represents one authenticated human.
type User struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name"`
	Picture     *string   `json:"picture,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
	IsActive    bool      `json:"is_active"`
}

// IdentityAssertion is the login input: an external identity key plus
// display metadata. It is never persisted.
type IdentityAssertion struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
}
