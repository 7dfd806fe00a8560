package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"trade-assistant/pkg/exchanges/common"
)

type stubGateway struct {
	price float64
	err   error
}

func (g *stubGateway) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	return common.OrderResult{}, errors.New("not implemented")
}

func (g *stubGateway) SubmitOCO(ctx context.Context, req common.OCORequest) (common.OrderResult, error) {
	return common.OrderResult{}, errors.New("not implemented")
}

func (g *stubGateway) CancelOrder(ctx context.Context, symbol, id string) error {
	return errors.New("not implemented")
}

func (g *stubGateway) SymbolPrice(ctx context.Context, symbol string) (float64, error) {
	return g.price, g.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestPaperModeReturnsSimulatedPrice(t *testing.T) {
	svc := NewService(Options{Paper: true}, quietLogger())

	price, ok := svc.Price(context.Background(), nil, "BTCUSDT")
	if !ok {
		t.Fatal("paper price should always resolve")
	}
	if price != SimulatedPrice {
		t.Fatalf("price = %v, want %v", price, SimulatedPrice)
	}
}

func TestPaperModeLivePriceLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"61000.50"}`))
	}))
	defer srv.Close()

	svc := NewService(Options{Paper: true, UseLivePriceInPaper: true, PublicBase: srv.URL}, quietLogger())

	price, ok := svc.Price(context.Background(), nil, "BTCUSDT")
	if !ok || price != 61000.50 {
		t.Fatalf("price = %v ok = %v, want 61000.50 true", price, ok)
	}
}

func TestPaperModeLiveLookupFailureFallsBack(t *testing.T) {
	// A hanging endpoint simulates a transport timeout; the chain must land
	// on the simulated price, not return nothing and not raise.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(lookupTimeout + time.Second)
	}))
	defer srv.Close()

	svc := NewService(Options{Paper: true, UseLivePriceInPaper: true, PublicBase: srv.URL}, quietLogger())

	price, ok := svc.Price(context.Background(), nil, "BTCUSDT")
	if !ok {
		t.Fatal("fallback must still resolve a price")
	}
	if price != SimulatedPrice {
		t.Fatalf("price = %v, want simulated fallback %v", price, SimulatedPrice)
	}
}

func TestPaperModeLiveLookupBadStatusFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	svc := NewService(Options{Paper: true, UseLivePriceInPaper: true, PublicBase: srv.URL}, quietLogger())

	price, _ := svc.Price(context.Background(), nil, "BTCUSDT")
	if price != SimulatedPrice {
		t.Fatalf("price = %v, want simulated fallback", price)
	}
}

func TestLiveModeUsesSession(t *testing.T) {
	svc := NewService(Options{}, quietLogger())

	price, ok := svc.Price(context.Background(), &stubGateway{price: 68000}, "BTCUSDT")
	if !ok || price != 68000 {
		t.Fatalf("price = %v ok = %v, want 68000 true", price, ok)
	}
}

func TestLiveModeFailureReturnsUnavailable(t *testing.T) {
	svc := NewService(Options{}, quietLogger())

	price, ok := svc.Price(context.Background(), &stubGateway{err: errors.New("timeout")}, "BTCUSDT")
	if ok {
		t.Fatal("expected ok=false on live failure")
	}
	if price != 0 {
		t.Fatalf("price = %v, want 0 with ok=false", price)
	}
}

func TestLiveModeWithoutGatewayReturnsUnavailable(t *testing.T) {
	svc := NewService(Options{}, quietLogger())

	// No gateway in live mode (no stored credentials, failed decrypt):
	// the simulated constant must not leak out of paper mode.
	price, ok := svc.Price(context.Background(), nil, "BTCUSDT")
	if ok {
		t.Fatal("expected ok=false in live mode without a gateway")
	}
	if price != 0 {
		t.Fatalf("price = %v, want 0 with ok=false", price)
	}
}
