package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trade-assistant/pkg/exchanges/common"
)

// balanceProber is implemented by live gateways that can report free
// balances. Paper sessions have none.
type balanceProber interface {
	FreeBalance(ctx context.Context, asset string) (float64, error)
}

// liveGateway builds the caller's authenticated gateway, or nil when the
// process runs in paper mode or the user has no stored credentials.
func (s *Server) liveGateway(c *gin.Context) common.Gateway {
	if s.cfg.Paper() {
		return nil
	}

	rec, err := s.db.GetCredentials(c.Request.Context(), currentUserID(c), "binance")
	if err != nil || rec == nil {
		return nil
	}
	apiKey, err := s.vault.Decrypt(rec.APIKeyEnc)
	if err != nil {
		return nil
	}
	apiSecret, err := s.vault.Decrypt(rec.APISecretEnc)
	if err != nil {
		return nil
	}
	return s.gateways.Build(apiKey, apiSecret).Live()
}

// getPrice resolves a current price through the fallback chain. It never
// errors in paper mode; in live mode an unreachable exchange yields 503.
func (s *Server) getPrice(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_SYMBOL",
			"error": "symbol is required",
		})
		return
	}

	price, ok := s.prices.Price(c.Request.Context(), s.liveGateway(c), symbol)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "PRICE_UNAVAILABLE",
			"error": "price currently unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

// suggestQuantity asks the advisor for a position size. The free balance
// comes from the request, or from the live account when omitted.
func (s *Server) suggestQuantity(c *gin.Context) {
	if s.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "ADVISOR_DISABLED",
			"error": "advisor is not configured",
		})
		return
	}

	var req struct {
		Symbol     string  `json:"symbol"`
		Balance    float64 `json:"balance"`
		QuoteAsset string  `json:"quote_asset"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_SYMBOL",
			"error": "symbol is required",
		})
		return
	}

	live := s.liveGateway(c)

	balance := req.Balance
	if balance <= 0 {
		if prober, ok := live.(balanceProber); ok {
			asset := strings.ToUpper(req.QuoteAsset)
			if asset == "" {
				asset = "USDT"
			}
			if free, err := prober.FreeBalance(c.Request.Context(), asset); err == nil {
				balance = free
			}
		}
	}
	if balance <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_BALANCE",
			"error": "balance is required when no live account is available",
		})
		return
	}

	price, ok := s.prices.Price(c.Request.Context(), live, symbol)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":  "PRICE_UNAVAILABLE",
			"error": "price currently unavailable",
		})
		return
	}

	suggestion, err := s.advisor.SuggestQuantity(c.Request.Context(), symbol, price, balance)
	if err != nil {
		s.log.WithError(err).Warn("advisor request failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"code":  "ADVISOR_FAILED",
			"error": "could not obtain a suggestion",
		})
		return
	}

	c.JSON(http.StatusOK, suggestion)
}
