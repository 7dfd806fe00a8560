// Package market resolves current prices with a fallback chain, so price
// display and paper fills keep working when the exchange is unreachable.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"trade-assistant/pkg/exchanges/common"
)

// SimulatedPrice is the fixed paper-mode fallback used when no live quote
// is available.
const SimulatedPrice = 50000.0

const (
	defaultPublicBase = "https://api.binance.com"
	lookupTimeout     = 3 * time.Second
)

// Service resolves prices. It never propagates transport failures: callers
// get either a price or ok=false ("price unavailable", which is not zero).
type Service struct {
	paper        bool
	liveInPaper  bool
	publicBase   string
	httpClient   *http.Client
	log          *logrus.Logger
}

// Options configure a Service.
type Options struct {
	Paper               bool
	UseLivePriceInPaper bool
	PublicBase          string // alternate public API base; defaults to production
}

// NewService builds a price service.
func NewService(opts Options, log *logrus.Logger) *Service {
	base := opts.PublicBase
	if base == "" {
		base = defaultPublicBase
	}
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		paper:       opts.Paper,
		liveInPaper: opts.UseLivePriceInPaper,
		publicBase:  base,
		httpClient:  &http.Client{Timeout: lookupTimeout},
		log:         log,
	}
}

// Price resolves a current price for symbol. live is the authenticated
// gateway of the current session, nil in paper mode.
//
// Resolution order: an optional public lookup (when configured to use live
// prices during paper trading), then the fixed simulated price in paper
// mode, then the authenticated session in live mode. The simulated
// constant is a paper-mode fallback only; live mode without a gateway
// reports the price as unavailable rather than inventing one.
func (s *Service) Price(ctx context.Context, live common.Gateway, symbol string) (float64, bool) {
	if s.paper {
		if s.liveInPaper {
			if price, err := s.publicPrice(ctx, symbol); err == nil {
				return price, true
			} else {
				s.log.WithError(err).WithField("symbol", symbol).
					Debug("public price lookup failed, using simulated price")
			}
		}
		return SimulatedPrice, true
	}

	if live == nil {
		s.log.WithField("symbol", symbol).Warn("live price requested without a gateway")
		return 0, false
	}

	price, err := live.SymbolPrice(ctx, symbol)
	if err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Warn("live price lookup failed")
		return 0, false
	}
	return price, true
}

// publicPrice performs one unauthenticated ticker lookup with a short
// timeout.
func (s *Service) publicPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", s.publicBase, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	res, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ticker status %d", res.StatusCode)
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", payload.Price, err)
	}
	return price, nil
}
