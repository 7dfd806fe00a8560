package common

import "context"

// Gateway abstracts the authenticated surface of a trading venue that the
// order router depends on.
type Gateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	SubmitOCO(ctx context.Context, req OCORequest) (OrderResult, error)
	CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error
	SymbolPrice(ctx context.Context, symbol string) (float64, error)
}
