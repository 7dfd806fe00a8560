// Package order implements the order router: type-specific validation,
// dispatch to the live exchange or the paper engine, result
// normalization, and the unconditional audit write.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"trade-assistant/internal/events"
	"trade-assistant/internal/gateway"
	"trade-assistant/pkg/db"
	"trade-assistant/pkg/exchanges/common"
)

// DefaultExchange is assumed when a request leaves the exchange blank.
const DefaultExchange = "binance"

// CredentialSource looks up encrypted credential records.
type CredentialSource interface {
	GetCredentials(ctx context.Context, userID, exchange string) (*db.CredentialRecord, error)
}

// Decrypter opens vault ciphertexts.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// SessionBuilder produces exchange sessions from decrypted credentials.
type SessionBuilder interface {
	Build(apiKey, apiSecret string) *gateway.Session
}

// PriceSource resolves a price for paper fills and display.
type PriceSource interface {
	Price(ctx context.Context, live common.Gateway, symbol string) (float64, bool)
}

// AuditSink records one entry per dispatched submission. Implementations
// must never fail from the router's point of view.
type AuditSink interface {
	Record(ctx context.Context, entry db.OrderLog)
}

// Router is the core submission pipeline. One Submit call runs strictly
// sequentially: validate, resolve credentials, build session, dispatch,
// audit.
type Router struct {
	creds    CredentialSource
	vault    Decrypter
	sessions SessionBuilder
	prices   PriceSource
	audit    AuditSink
	bus      *events.Bus
	log      *logrus.Logger
	paper    *paperEngine
}

// NewRouter wires the submission pipeline.
func NewRouter(creds CredentialSource, vault Decrypter, sessions SessionBuilder, prices PriceSource, audit AuditSink, bus *events.Bus, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.New()
	}
	return &Router{
		creds:    creds,
		vault:    vault,
		sessions: sessions,
		prices:   prices,
		audit:    audit,
		bus:      bus,
		log:      log,
		paper:    newPaperEngine(),
	}
}

// Submit processes one order attempt for a user.
//
// A non-nil error means the attempt failed before dispatch (validation,
// missing credentials, unreadable credentials); no audit entry exists for
// those. Once dispatch happens the returned error is nil and the envelope
// carries success or the normalized exchange failure, with exactly one
// audit entry written either way.
func (r *Router) Submit(ctx context.Context, userID string, req Request) (Envelope, error) {
	req.normalize()

	if err := req.Validate(); err != nil {
		return Envelope{}, err
	}

	rec, err := r.creds.GetCredentials(ctx, userID, req.Exchange)
	if err != nil {
		return Envelope{}, fmt.Errorf("credential lookup: %w", err)
	}
	if rec == nil {
		return Envelope{}, ErrNoCredentials
	}

	apiKey, err := r.vault.Decrypt(rec.APIKeyEnc)
	if err != nil {
		r.log.WithField("user_id", userID).WithError(err).Warn("api key decryption failed")
		return Envelope{}, errors.Join(ErrCredentialsUnreadable, err)
	}
	apiSecret, err := r.vault.Decrypt(rec.APISecretEnc)
	if err != nil {
		r.log.WithField("user_id", userID).WithError(err).Warn("api secret decryption failed")
		return Envelope{}, errors.Join(ErrCredentialsUnreadable, err)
	}

	sess := r.sessions.Build(apiKey, apiSecret)
	env := r.dispatch(ctx, sess, req)

	r.writeAudit(ctx, userID, req, env)

	if r.bus != nil {
		r.bus.Publish(events.EventOrderResult, env)
	}

	return env, nil
}

// Cancel revokes a resting order by exchange id. Pre-dispatch failures
// mirror Submit: validation, missing credentials and unreadable
// credentials come back as errors. Paper sessions hold no resting orders
// on any venue, so cancellation succeeds trivially there.
func (r *Router) Cancel(ctx context.Context, userID, exchange, symbol, orderID string) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	exchange = strings.ToLower(exchange)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if orderID == "" {
		return &ValidationError{Field: "orderId", Reason: "is required"}
	}

	rec, err := r.creds.GetCredentials(ctx, userID, exchange)
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}
	if rec == nil {
		return ErrNoCredentials
	}

	apiKey, err := r.vault.Decrypt(rec.APIKeyEnc)
	if err != nil {
		r.log.WithField("user_id", userID).WithError(err).Warn("api key decryption failed")
		return errors.Join(ErrCredentialsUnreadable, err)
	}
	apiSecret, err := r.vault.Decrypt(rec.APISecretEnc)
	if err != nil {
		r.log.WithField("user_id", userID).WithError(err).Warn("api secret decryption failed")
		return errors.Join(ErrCredentialsUnreadable, err)
	}

	sess := r.sessions.Build(apiKey, apiSecret)
	if sess.Paper() {
		return nil
	}

	if err := sess.Live().CancelOrder(ctx, symbol, orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}

// dispatch routes by order type. Exchange-level failures are converted
// into error envelopes here; nothing below this propagates as a fault.
func (r *Router) dispatch(ctx context.Context, sess *gateway.Session, req Request) Envelope {
	if sess.Paper() {
		marketPrice, _ := r.prices.Price(ctx, nil, req.Symbol)
		return successEnvelope(r.paper.submit(req, marketPrice))
	}

	var (
		res common.OrderResult
		err error
	)
	if req.Type == common.OrderTypeOCO {
		res, err = sess.Live().SubmitOCO(ctx, common.OCORequest{
			Symbol:         req.Symbol,
			Side:           req.Side,
			Qty:            req.Qty,
			Price:          req.Price,
			StopPrice:      req.StopPrice,
			StopLimitPrice: req.StopLimitPrice,
		})
	} else {
		res, err = sess.Live().SubmitOrder(ctx, common.OrderRequest{
			Symbol:    req.Symbol,
			Side:      req.Side,
			Type:      req.Type,
			Qty:       req.Qty,
			Price:     req.Price,
			StopPrice: req.StopPrice,
		})
	}
	if err != nil {
		return errorEnvelope(normalizeExchangeError(err))
	}

	price := res.Price
	if price == 0 {
		price = req.Price
	}
	return successEnvelope(Placed{
		Symbol:       req.Symbol,
		Side:         string(req.Side),
		Type:         string(req.Type),
		OrigQty:      req.Qty,
		Price:        price,
		OrderID:      res.ExchangeOrderID,
		Status:       string(res.Status),
		TransactTime: res.TransactTime,
	})
}

// writeAudit records the attempt. The audit sink swallows its own
// failures; the envelope already returned to the caller is never masked.
func (r *Router) writeAudit(ctx context.Context, userID string, req Request, env Envelope) {
	status := "error"
	if env.OK {
		status = "ok"
	}

	price := req.Price
	if env.OK && env.Order != nil {
		price = env.Order.Price
	}

	respJSON, err := json.Marshal(env)
	if err != nil {
		respJSON = []byte(`{}`)
	}

	r.audit.Record(ctx, db.OrderLog{
		UserID:   userID,
		Exchange: req.Exchange,
		Symbol:   req.Symbol,
		Side:     string(req.Side),
		Type:     string(req.Type),
		Qty:      req.Qty,
		Price:    price,
		Status:   status,
		RespJSON: string(respJSON),
	})
}

func (req *Request) normalize() {
	if req.Exchange == "" {
		req.Exchange = DefaultExchange
	}
	req.Exchange = strings.ToLower(req.Exchange)
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = common.Side(strings.ToUpper(string(req.Side)))
	req.Type = common.OrderType(strings.ToUpper(string(req.Type)))
}

// normalizeExchangeError flattens any exchange failure into one
// human-readable string; raw SDK structures never reach the caller.
func normalizeExchangeError(err error) string {
	if apiErr, ok := common.AsAPIError(err); ok {
		if apiErr.Code != 0 {
			return fmt.Sprintf("exchange rejected order (code %d): %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Sprintf("exchange rejected order: %s", apiErr.Message)
	}
	return fmt.Sprintf("order submission failed: %s", err.Error())
}
