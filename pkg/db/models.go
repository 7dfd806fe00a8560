package db

import "time"

// User represents an application user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialRecord stores one pair of encrypted exchange keys per
// (user, exchange). Plaintext keys never touch this struct.
type CredentialRecord struct {
	ID           string
	UserID       string
	Exchange     string
	APIKeyEnc    string
	APISecretEnc string
	KeyVersion   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLog is one append-only audit row per order submission attempt.
type OrderLog struct {
	ID        int64
	UserID    string
	Exchange  string
	Symbol    string
	Side      string
	Type      string
	Qty       float64
	Price     float64
	Status    string // "ok" or "error"
	RespJSON  string // serialized result envelope
	CreatedAt time.Time
}
