package db

import (
	"context"
	"fmt"
)

// AppendOrderLog inserts one audit row. Rows are append-only; nothing in
// the core mutates or deletes them.
func (d *Database) AppendOrderLog(ctx context.Context, entry OrderLog) error {
	if entry.UserID == "" {
		return ErrUserIDRequired
	}

	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO order_logs (user_id, exchange, symbol, side, type, qty, price, status, resp_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.UserID, entry.Exchange, entry.Symbol, entry.Side, entry.Type,
		entry.Qty, entry.Price, entry.Status, entry.RespJSON)
	if err != nil {
		return fmt.Errorf("append order log: %w", err)
	}
	return nil
}

// ListOrderLogs returns a user's audit entries, most recent first.
func (d *Database) ListOrderLogs(ctx context.Context, userID string, limit int) ([]OrderLog, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, user_id, exchange, symbol, side, type, qty, price, status, resp_json, created_at
		FROM order_logs
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query order logs: %w", err)
	}
	defer rows.Close()

	var logs []OrderLog
	for rows.Next() {
		var e OrderLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Exchange, &e.Symbol, &e.Side,
			&e.Type, &e.Qty, &e.Price, &e.Status, &e.RespJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order log: %w", err)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// CountOrderLogs returns the number of audit entries for a user.
func (d *Database) CountOrderLogs(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}
	var n int
	err := d.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_logs WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count order logs: %w", err)
	}
	return n, nil
}
