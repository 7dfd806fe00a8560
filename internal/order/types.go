package order

import (
	"time"

	"trade-assistant/pkg/exchanges/common"
)

// Request is a normalized order intent, constructed once per call.
type Request struct {
	Exchange       string           `json:"exchange"`
	Symbol         string           `json:"symbol"`
	Side           common.Side      `json:"side"`
	Type           common.OrderType `json:"type"`
	Qty            float64          `json:"qty"`
	Price          float64          `json:"price,omitempty"`
	StopPrice      float64          `json:"stopPrice,omitempty"`
	StopLimitPrice float64          `json:"stopLimitPrice,omitempty"` // OCO only
}

// Placed is the normalized success payload of a submission.
type Placed struct {
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Type         string    `json:"type"`
	OrigQty      float64   `json:"origQty"`
	Price        float64   `json:"price"`
	OrderID      string    `json:"orderId"`
	Status       string    `json:"status"`
	TransactTime time.Time `json:"transactTime"`
}

// Envelope is the result wrapper every submission path returns.
// Exactly one of Order and Error is populated.
type Envelope struct {
	OK    bool    `json:"ok"`
	Order *Placed `json:"order,omitempty"`
	Error string  `json:"error,omitempty"`
}

func successEnvelope(p Placed) Envelope {
	return Envelope{OK: true, Order: &p}
}

func errorEnvelope(msg string) Envelope {
	return Envelope{OK: false, Error: msg}
}
