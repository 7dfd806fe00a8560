// Package gateway builds exchange sessions from decrypted credentials,
// honoring the process-wide trading mode.
package gateway

import (
	"trade-assistant/pkg/config"
	"trade-assistant/pkg/exchanges/binance"
	"trade-assistant/pkg/exchanges/common"
)

// Session is what the order router submits through. In paper mode the live
// gateway is nil and the router must take the simulated path; Live() gates
// every external call on that.
type Session struct {
	mode config.TradingMode
	live common.Gateway
}

// Paper reports whether this session must never touch the exchange.
func (s *Session) Paper() bool {
	return s.mode == config.ModePaper
}

// Live returns the authenticated gateway, or nil in paper mode.
func (s *Session) Live() common.Gateway {
	return s.live
}

// Factory produces sessions bound to one process-wide configuration.
// The trading mode is fixed at startup, never per-request.
type Factory struct {
	mode    config.TradingMode
	apiBase string
	testnet bool
}

// NewFactory captures the routing options a session needs.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		mode:    cfg.Mode,
		apiBase: cfg.BinanceAPIBase,
		testnet: cfg.BinanceTestnet,
	}
}

// Build constructs a session for the given decrypted credentials.
// Construction performs no network I/O; in live mode network errors
// surface later, at submission time.
func (f *Factory) Build(apiKey, apiSecret string) *Session {
	if f.mode == config.ModePaper {
		return &Session{mode: config.ModePaper}
	}
	return &Session{
		mode: config.ModeLive,
		live: binance.New(binance.Config{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   f.apiBase,
			Testnet:   f.testnet,
		}),
	}
}
