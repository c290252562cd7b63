package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusClosed    UserStatus = "closed"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
}

// Actor identifies who is performing an operation and the request it
// arrived on. Request fields are empty for non-HTTP callers.
type Actor struct {
	UserID    uuid.UUID
	Email     string
	RequestID string
	IPAddress string
	UserAgent string
	Endpoint  string
	Method    string
}
