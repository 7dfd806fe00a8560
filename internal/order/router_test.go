package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"trade-assistant/internal/events"
	"trade-assistant/internal/gateway"
	"trade-assistant/pkg/config"
	"trade-assistant/pkg/db"
	"trade-assistant/pkg/exchanges/common"
)

type stubCreds struct {
	rec   *db.CredentialRecord
	err   error
	calls int
}

func (s *stubCreds) GetCredentials(ctx context.Context, userID, exchange string) (*db.CredentialRecord, error) {
	s.calls++
	return s.rec, s.err
}

// stubVault "decrypts" by stripping an enc: prefix, so tests can assert
// the decrypted values reach the session builder.
type stubVault struct {
	fail bool
}

func (s stubVault) Decrypt(ciphertext string) (string, error) {
	if s.fail {
		return "", errors.New("cipher: message authentication failed")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

type spySessions struct {
	factory *gateway.Factory
	calls   int
	lastKey string
}

func (s *spySessions) Build(apiKey, apiSecret string) *gateway.Session {
	s.calls++
	s.lastKey = apiKey
	return s.factory.Build(apiKey, apiSecret)
}

type stubPrices struct {
	price float64
}

func (s stubPrices) Price(ctx context.Context, live common.Gateway, symbol string) (float64, bool) {
	return s.price, true
}

type recordingAudit struct {
	entries []db.OrderLog
}

func (a *recordingAudit) Record(ctx context.Context, entry db.OrderLog) {
	a.entries = append(a.entries, entry)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testCredentials() *db.CredentialRecord {
	return &db.CredentialRecord{
		ID:           "cred-1",
		UserID:       "user-1",
		Exchange:     "binance",
		APIKeyEnc:    "enc:live-key",
		APISecretEnc: "enc:live-secret",
	}
}

type routerFixture struct {
	router   *Router
	creds    *stubCreds
	sessions *spySessions
	audit    *recordingAudit
	bus      *events.Bus
}

func newFixture(t *testing.T, cfg *config.Config) *routerFixture {
	t.Helper()

	creds := &stubCreds{rec: testCredentials()}
	sessions := &spySessions{factory: gateway.NewFactory(cfg)}
	audit := &recordingAudit{}
	bus := events.NewBus()

	r := NewRouter(creds, stubVault{}, sessions, stubPrices{price: 50000}, audit, bus, testLogger())
	return &routerFixture{router: r, creds: creds, sessions: sessions, audit: audit, bus: bus}
}

func paperFixture(t *testing.T) *routerFixture {
	return newFixture(t, &config.Config{Mode: config.ModePaper})
}

func TestSubmitValidationRejectsBeforeAnyInteraction(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "missing symbol",
			req:   Request{Side: common.SideBuy, Type: common.OrderTypeMarket, Qty: 1},
			field: "symbol",
		},
		{
			name:  "bad side",
			req:   Request{Symbol: "BTCUSDT", Side: "HOLD", Type: common.OrderTypeMarket, Qty: 1},
			field: "side",
		},
		{
			name:  "unsupported type",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideBuy, Type: "TRAILING_STOP", Qty: 1},
			field: "type",
		},
		{
			name:  "zero qty",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideBuy, Type: common.OrderTypeMarket},
			field: "qty",
		},
		{
			name:  "limit without price",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideBuy, Type: common.OrderTypeLimit, Qty: 0.5},
			field: "price",
		},
		{
			name:  "stop loss limit without stop price",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideSell, Type: common.OrderTypeStopLossLimit, Qty: 0.5, Price: 59000},
			field: "stopPrice",
		},
		{
			name:  "take profit limit without limit price",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideSell, Type: common.OrderTypeTakeProfitLimit, Qty: 0.5, StopPrice: 61000},
			field: "price",
		},
		{
			name:  "oco without stop limit price",
			req:   Request{Symbol: "BTCUSDT", Side: common.SideSell, Type: common.OrderTypeOCO, Qty: 0.5, Price: 62000, StopPrice: 58000},
			field: "stopLimitPrice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := paperFixture(t)

			_, err := f.router.Submit(context.Background(), "user-1", tt.req)

			require.True(t, IsValidationError(err), "want validation error, got %v", err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)

			// Validation fires before anything else is touched.
			require.Zero(t, f.creds.calls)
			require.Zero(t, f.sessions.calls)
			require.Empty(t, f.audit.entries)
		})
	}
}

func TestSubmitPaperMarketOrder(t *testing.T) {
	f := paperFixture(t)
	results, unsub := f.bus.Subscribe(events.EventOrderResult, 1)
	defer unsub()

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "BTCUSDT",
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    0.01,
	})
	require.NoError(t, err)

	require.True(t, env.OK)
	require.Empty(t, env.Error)
	require.NotNil(t, env.Order)
	require.Equal(t, "BTCUSDT", env.Order.Symbol)
	require.Equal(t, "BUY", env.Order.Side)
	require.Equal(t, 0.01, env.Order.OrigQty)
	require.Equal(t, 50000.0, env.Order.Price)
	require.Equal(t, string(common.StatusFilled), env.Order.Status)
	require.Equal(t, "paper-1", env.Order.OrderID)

	// Exactly one audit entry, mirroring the envelope.
	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	require.Equal(t, "user-1", entry.UserID)
	require.Equal(t, "binance", entry.Exchange)
	require.Equal(t, "ok", entry.Status)
	require.Equal(t, 50000.0, entry.Price)

	var logged Envelope
	require.NoError(t, json.Unmarshal([]byte(entry.RespJSON), &logged))
	require.True(t, logged.OK)
	require.Equal(t, env.Order.OrderID, logged.Order.OrderID)

	// The result also reaches bus subscribers.
	select {
	case payload := <-results:
		got, ok := payload.(Envelope)
		require.True(t, ok)
		require.True(t, got.OK)
	default:
		t.Fatal("no order result published")
	}
}

func TestSubmitPaperLimitOrderRestsAtOwnPrice(t *testing.T) {
	f := paperFixture(t)

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "ETHUSDT",
		Side:   common.SideSell,
		Type:   common.OrderTypeLimit,
		Qty:    2,
		Price:  3200,
	})
	require.NoError(t, err)

	require.True(t, env.OK)
	require.Equal(t, 3200.0, env.Order.Price)
	require.Equal(t, string(common.StatusNew), env.Order.Status)
}

func TestSubmitPaperIDsStrictlyIncrease(t *testing.T) {
	f := paperFixture(t)
	req := Request{Symbol: "BTCUSDT", Side: common.SideBuy, Type: common.OrderTypeMarket, Qty: 0.01}

	first, err := f.router.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)
	second, err := f.router.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)

	require.Equal(t, "paper-1", first.Order.OrderID)
	require.Equal(t, "paper-2", second.Order.OrderID)
	require.Len(t, f.audit.entries, 2)
}

func TestSubmitMissingCredentials(t *testing.T) {
	f := paperFixture(t)
	f.creds.rec = nil

	_, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "BTCUSDT",
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    0.01,
	})

	require.ErrorIs(t, err, ErrNoCredentials)
	require.Zero(t, f.sessions.calls)
	require.Empty(t, f.audit.entries)
}

func TestSubmitUnreadableCredentials(t *testing.T) {
	f := paperFixture(t)
	f.router.vault = stubVault{fail: true}

	_, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "BTCUSDT",
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    0.01,
	})

	require.ErrorIs(t, err, ErrCredentialsUnreadable)
	require.Zero(t, f.sessions.calls)
	require.Empty(t, f.audit.entries)
}

func TestSubmitNormalizesRequestFields(t *testing.T) {
	f := paperFixture(t)

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: " btcusdt ",
		Side:   "buy",
		Type:   "market",
		Qty:    0.01,
	})
	require.NoError(t, err)

	require.True(t, env.OK)
	require.Equal(t, "BTCUSDT", env.Order.Symbol)
	require.Equal(t, "BUY", env.Order.Side)
	require.Equal(t, "MARKET", env.Order.Type)
	require.Equal(t, "live-key", f.sessions.lastKey)
}

func TestSubmitLiveOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/order", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"symbol": "BTCUSDT",
			"orderId": 4567,
			"status": "FILLED",
			"price": "0.00000000",
			"executedQty": "0.01000000",
			"transactTime": 1714000000000
		}`)
	}))
	defer srv.Close()

	f := newFixture(t, &config.Config{Mode: config.ModeLive, BinanceAPIBase: srv.URL})

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "BTCUSDT",
		Side:   common.SideBuy,
		Type:   common.OrderTypeMarket,
		Qty:    0.01,
	})
	require.NoError(t, err)

	require.True(t, env.OK)
	require.Equal(t, "4567", env.Order.OrderID)
	require.Equal(t, string(common.StatusFilled), env.Order.Status)

	require.Len(t, f.audit.entries, 1)
	require.Equal(t, "ok", f.audit.entries[0].Status)
}

func TestSubmitLiveExchangeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":-1013,"msg":"Filter failure: LOT_SIZE"}`)
	}))
	defer srv.Close()

	f := newFixture(t, &config.Config{Mode: config.ModeLive, BinanceAPIBase: srv.URL})

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol: "BTCUSDT",
		Side:   common.SideBuy,
		Type:   common.OrderTypeLimit,
		Qty:    0.00001,
		Price:  60000,
	})

	// A dispatched failure is a result, not a fault.
	require.NoError(t, err)
	require.False(t, env.OK)
	require.Nil(t, env.Order)
	require.Contains(t, env.Error, "-1013")
	require.Contains(t, env.Error, "LOT_SIZE")

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	require.Equal(t, "error", entry.Status)

	var logged Envelope
	require.NoError(t, json.Unmarshal([]byte(entry.RespJSON), &logged))
	require.False(t, logged.OK)
	require.Equal(t, env.Error, logged.Error)
}

func TestCancelValidatesBeforeAnyInteraction(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		orderID string
		field   string
	}{
		{name: "missing symbol", orderID: "42", field: "symbol"},
		{name: "missing order id", symbol: "BTCUSDT", field: "orderId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := paperFixture(t)

			err := f.router.Cancel(context.Background(), "user-1", "", tt.symbol, tt.orderID)

			require.True(t, IsValidationError(err), "want validation error, got %v", err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
			require.Zero(t, f.creds.calls)
			require.Zero(t, f.sessions.calls)
		})
	}
}

func TestCancelPaperSessionIsNoOp(t *testing.T) {
	f := paperFixture(t)

	err := f.router.Cancel(context.Background(), "user-1", "", "BTCUSDT", "paper-1")

	require.NoError(t, err)
	// Cancellations are not part of the submission audit trail.
	require.Empty(t, f.audit.entries)
}

func TestCancelWithoutCredentials(t *testing.T) {
	f := paperFixture(t)
	f.creds.rec = nil

	err := f.router.Cancel(context.Background(), "user-1", "", "BTCUSDT", "42")

	require.ErrorIs(t, err, ErrNoCredentials)
	require.Zero(t, f.sessions.calls)
}

func TestCancelLiveSendsDelete(t *testing.T) {
	var gotMethod, gotPath, gotOrderID, gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotOrderID = r.URL.Query().Get("orderId")
		gotSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"symbol":"BTCUSDT","orderId":4567,"status":"CANCELED"}`)
	}))
	defer srv.Close()

	f := newFixture(t, &config.Config{Mode: config.ModeLive, BinanceAPIBase: srv.URL})

	err := f.router.Cancel(context.Background(), "user-1", "", "btcusdt", "4567")

	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/api/v3/order", gotPath)
	require.Equal(t, "4567", gotOrderID)
	require.Equal(t, "BTCUSDT", gotSymbol)
}

func TestCancelLiveExchangeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":-2011,"msg":"Unknown order sent."}`)
	}))
	defer srv.Close()

	f := newFixture(t, &config.Config{Mode: config.ModeLive, BinanceAPIBase: srv.URL})

	err := f.router.Cancel(context.Background(), "user-1", "", "BTCUSDT", "999")

	require.Error(t, err)
	apiErr, ok := common.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, -2011, apiErr.Code)
}

func TestSubmitLiveOCOUsesOCOEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"orderListId": 991,
			"listOrderStatus": "EXECUTING",
			"transactionTime": 1714000000000
		}`)
	}))
	defer srv.Close()

	f := newFixture(t, &config.Config{Mode: config.ModeLive, BinanceAPIBase: srv.URL})

	env, err := f.router.Submit(context.Background(), "user-1", Request{
		Symbol:         "BTCUSDT",
		Side:           common.SideSell,
		Type:           common.OrderTypeOCO,
		Qty:            0.01,
		Price:          62000,
		StopPrice:      58000,
		StopLimitPrice: 57900,
	})
	require.NoError(t, err)

	require.Equal(t, "/api/v3/order/oco", gotPath)
	require.True(t, env.OK)
	require.Equal(t, "991", env.Order.OrderID)
}
