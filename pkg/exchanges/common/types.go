// Package common holds venue-neutral trading types shared by the live
// exchange client and the paper engine.
package common

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two legal values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType is the closed set of order types the router dispatches on.
type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderTypeOCO             OrderType = "OCO"
)

// Valid reports whether the order type belongs to the supported set.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLossLimit,
		OrderTypeTakeProfitLimit, OrderTypeOCO:
		return true
	}
	return false
}

// TimeInForce captures TIF semantics for resting orders.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// OrderStatus normalizes exchange status into a small set.
type OrderStatus string

const (
	StatusNew      OrderStatus = "NEW"
	StatusPartial  OrderStatus = "PARTIALLY_FILLED"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusRejected OrderStatus = "REJECTED"
	StatusExpired  OrderStatus = "EXPIRED"
	StatusUnknown  OrderStatus = "UNKNOWN"
)

// OrderRequest captures a single-leg order intent to be sent to a venue.
// OCO pairs use OCORequest instead.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Qty         float64
	Price       float64 // limit price, required for non-MARKET types
	StopPrice   float64 // trigger price for stop-loss / take-profit limits
	TimeInForce TimeInForce
	ClientID    string // optional client order id
}

// OCORequest captures a one-cancels-the-other pair: a resting limit leg
// plus a stop-limit leg.
type OCORequest struct {
	Symbol         string
	Side           Side
	Qty            float64
	Price          float64 // limit leg price
	StopPrice      float64 // stop trigger
	StopLimitPrice float64 // limit price once the stop triggers
	ClientID       string
}

// OrderResult is the venue acknowledgement in normalized form.
type OrderResult struct {
	ExchangeOrderID string
	Status          OrderStatus
	ClientID        string
	Price           float64
	ExecutedQty     float64
	TransactTime    time.Time
}
