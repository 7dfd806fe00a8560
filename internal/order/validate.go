package order

import "trade-assistant/pkg/exchanges/common"

// Validate checks the type-specific field requirements. Missing required
// fields fail here, before any network or persistence call; absence is
// never silently defaulted.
func (r *Request) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if !r.Side.Valid() {
		return &ValidationError{Field: "side", Reason: "must be BUY or SELL"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "is not a supported order type"}
	}
	if r.Qty <= 0 {
		return &ValidationError{Field: "qty", Reason: "must be positive"}
	}

	switch r.Type {
	case common.OrderTypeMarket:
		// no price fields

	case common.OrderTypeLimit:
		if r.Price <= 0 {
			return &ValidationError{Field: "price", Reason: "is required for LIMIT orders"}
		}

	case common.OrderTypeStopLossLimit:
		if r.StopPrice <= 0 {
			return &ValidationError{Field: "stopPrice", Reason: "is required for STOP_LOSS_LIMIT orders"}
		}
		if r.Price <= 0 {
			return &ValidationError{Field: "price", Reason: "is required for STOP_LOSS_LIMIT orders"}
		}

	case common.OrderTypeTakeProfitLimit:
		if r.StopPrice <= 0 {
			return &ValidationError{Field: "stopPrice", Reason: "is required for TAKE_PROFIT_LIMIT orders"}
		}
		if r.Price <= 0 {
			return &ValidationError{Field: "price", Reason: "is required for TAKE_PROFIT_LIMIT orders"}
		}

	case common.OrderTypeOCO:
		// OCO side is conventionally SELL against an existing long; that
		// convention stays advisory, not enforced.
		if r.Price <= 0 {
			return &ValidationError{Field: "price", Reason: "is required for OCO orders"}
		}
		if r.StopPrice <= 0 {
			return &ValidationError{Field: "stopPrice", Reason: "is required for OCO orders"}
		}
		if r.StopLimitPrice <= 0 {
			return &ValidationError{Field: "stopLimitPrice", Reason: "is required for OCO orders"}
		}
	}

	return nil
}
