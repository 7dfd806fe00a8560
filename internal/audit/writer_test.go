package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"trade-assistant/pkg/db"
)

type failingStore struct {
	err   error
	calls int
}

func (s *failingStore) AppendOrderLog(ctx context.Context, entry db.OrderLog) error {
	s.calls++
	return s.err
}

func TestRecordAppendsEntry(t *testing.T) {
	store := &failingStore{}
	log := logrus.New()
	log.SetOutput(io.Discard)

	w := NewWriter(store, log)
	w.Record(context.Background(), db.OrderLog{UserID: "user-1", Symbol: "BTCUSDT", Status: "ok"})

	require.Equal(t, 1, store.calls)
}

func TestRecordSwallowsStorageFailure(t *testing.T) {
	store := &failingStore{err: errors.New("database is locked")}
	log := logrus.New()
	log.SetOutput(io.Discard)

	w := NewWriter(store, log)

	// Must not panic or surface the error in any way.
	w.Record(context.Background(), db.OrderLog{UserID: "user-1", Symbol: "BTCUSDT", Status: "error"})
	require.Equal(t, 1, store.calls)
}
