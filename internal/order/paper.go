package order

import (
	"fmt"
	"sync/atomic"
	"time"

	"trade-assistant/pkg/exchanges/common"
)

// paperEngine produces deterministic, synthetically filled results for
// paper-trading mode. No external call is ever made; transaction ids are
// strictly increasing so repeated submissions are distinguishable.
type paperEngine struct {
	seq atomic.Int64
	now func() time.Time
}

func newPaperEngine() *paperEngine {
	return &paperEngine{now: time.Now}
}

// submit simulates a fill. marketPrice is the price context resolved by
// the market gateway; limit-style orders rest at their own price instead.
func (p *paperEngine) submit(req Request, marketPrice float64) Placed {
	id := p.seq.Add(1)

	price := req.Price
	status := common.StatusNew
	if req.Type == common.OrderTypeMarket {
		price = marketPrice
		status = common.StatusFilled
	}

	return Placed{
		Symbol:       req.Symbol,
		Side:         string(req.Side),
		Type:         string(req.Type),
		OrigQty:      req.Qty,
		Price:        price,
		OrderID:      fmt.Sprintf("paper-%d", id),
		Status:       string(status),
		TransactTime: p.now(),
	}
}
