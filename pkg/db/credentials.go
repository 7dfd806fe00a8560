package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUserIDRequired guards the user-scoped queries.
var ErrUserIDRequired = errors.New("user_id is required")

// GetCredentials returns the encrypted credential record for a
// (user, exchange) pair, or nil when none is configured. Absence is a
// normal state, not an error: callers redirect the user to credential
// setup rather than failing.
func (d *Database) GetCredentials(ctx context.Context, userID, exchange string) (*CredentialRecord, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	var rec CredentialRecord
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, user_id, exchange, api_key_enc, api_secret_enc,
		       COALESCE(key_version, 1), created_at, updated_at
		FROM user_credentials
		WHERE user_id = ? AND exchange = ?
	`, userID, exchange).Scan(&rec.ID, &rec.UserID, &rec.Exchange,
		&rec.APIKeyEnc, &rec.APISecretEnc, &rec.KeyVersion,
		&rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	return &rec, nil
}

// UpsertCredentials stores encrypted keys for a (user, exchange) pair.
// A second call replaces the prior encrypted values entirely; there is no
// partial-field update.
func (d *Database) UpsertCredentials(ctx context.Context, rec CredentialRecord) error {
	if rec.UserID == "" {
		return ErrUserIDRequired
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO user_credentials (id, user_id, exchange, api_key_enc, api_secret_enc, key_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, exchange) DO UPDATE SET
			api_key_enc = excluded.api_key_enc,
			api_secret_enc = excluded.api_secret_enc,
			key_version = excluded.key_version,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.UserID, rec.Exchange, rec.APIKeyEnc, rec.APISecretEnc, rec.KeyVersion)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}
