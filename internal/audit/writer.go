// Package audit provides the best-effort order audit trail. Persistence
// problems are logged and swallowed so they can never change the outcome
// the caller already has.
package audit

import (
	"context"

	"github.com/sirupsen/logrus"

	"trade-assistant/pkg/db"
)

// Store is the persistence surface the writer needs.
type Store interface {
	AppendOrderLog(ctx context.Context, entry db.OrderLog) error
}

// Writer appends order logs and absorbs storage failures.
type Writer struct {
	store Store
	log   *logrus.Logger
}

// NewWriter builds an audit writer over the given store.
func NewWriter(store Store, log *logrus.Logger) *Writer {
	if log == nil {
		log = logrus.New()
	}
	return &Writer{store: store, log: log}
}

// Record appends one audit entry. It never fails: a storage error is
// logged with enough context to investigate, and nothing more. The order
// result travelling back to the user is already sealed by the time this
// runs.
func (w *Writer) Record(ctx context.Context, entry db.OrderLog) {
	if err := w.store.AppendOrderLog(ctx, entry); err != nil {
		w.log.WithFields(logrus.Fields{
			"user_id": entry.UserID,
			"symbol":  entry.Symbol,
			"status":  entry.Status,
		}).WithError(err).Error("audit write failed")
	}
}
