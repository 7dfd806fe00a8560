package autotrade

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"trade-assistant/internal/order"
	"trade-assistant/pkg/exchanges/common"
)

// Submitter is the order pipeline the scheduler drives.
type Submitter interface {
	Submit(ctx context.Context, userID string, req order.Request) (order.Envelope, error)
}

// Scheduler runs one ticker goroutine per enabled rule.
type Scheduler struct {
	rules     []Rule
	submitter Submitter
	log       *logrus.Logger
}

// NewScheduler builds a scheduler over already-validated rules.
func NewScheduler(rules []Rule, submitter Submitter, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{rules: rules, submitter: submitter, log: log}
}

// Run starts every enabled rule and blocks until ctx is cancelled. The
// first run of each rule happens after one full interval, not at start.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, rule := range s.rules {
		if !rule.Enabled {
			continue
		}
		every, err := rule.Every()
		if err != nil {
			// validated at load time; skip rather than crash if it slips through
			s.log.WithField("rule", rule.ID).WithError(err).Error("bad interval")
			continue
		}

		wg.Add(1)
		go func(rule Rule, every time.Duration) {
			defer wg.Done()
			s.runRule(ctx, rule, every)
		}(rule, every)
	}
	wg.Wait()
}

func (s *Scheduler) runRule(ctx context.Context, rule Rule, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, rule)
		}
	}
}

// fire submits one run of the rule. Failures are logged and the schedule
// keeps going; one bad run must not kill the rule.
func (s *Scheduler) fire(ctx context.Context, rule Rule) {
	env, err := s.submitter.Submit(ctx, rule.UserID, order.Request{
		Exchange: rule.Exchange,
		Symbol:   rule.Symbol,
		Side:     common.Side(rule.Side),
		Type:     common.OrderType(rule.Type),
		Qty:      rule.Qty,
		Price:    rule.Price,
	})

	entry := s.log.WithFields(logrus.Fields{
		"rule":    rule.ID,
		"user_id": rule.UserID,
		"symbol":  rule.Symbol,
	})
	switch {
	case err != nil:
		entry.WithError(err).Warn("auto-trade run failed before dispatch")
	case !env.OK:
		entry.WithField("reason", env.Error).Warn("auto-trade order rejected")
	default:
		entry.WithField("order_id", env.Order.OrderID).Info("auto-trade order placed")
	}
}
