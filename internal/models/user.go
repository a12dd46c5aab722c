package models

import "time"

// User is a verified dashboard account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingRegistration is a registration waiting for email verification.
// Pending entries live in memory only and expire with their token.
type PendingRegistration struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
