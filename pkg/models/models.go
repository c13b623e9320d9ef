package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateAccountParams is what a store needs to insert a new account.
// Email must already be normalized and PasswordHash already derived.
type CreateAccountParams struct {
	Email        string
	PasswordHash string
}

// Account is a registered identity on the booking site.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials is the decoded body of a signup or login submission.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm,omitempty"`
}
