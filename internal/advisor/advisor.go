// Package advisor asks a language model for position-sizing suggestions.
// Suggestions are advisory text plus a parsed quantity; nothing here ever
// places an order.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"
)

const defaultModel = "claude-3-5-haiku-latest"

// ErrNoQuantity means the model reply contained no usable number.
var ErrNoQuantity = errors.New("no quantity found in model reply")

// Suggestion is one sizing recommendation.
type Suggestion struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	Rationale string  `json:"rationale"`
}

// Service wraps the Anthropic client. The API key comes from the
// ANTHROPIC_API_KEY environment variable, read by the SDK itself.
type Service struct {
	client anthropic.Client
	model  string
	log    *logrus.Logger
}

// New builds an advisor bound to one model.
func New(model string, log *logrus.Logger) *Service {
	if model == "" {
		model = defaultModel
	}
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		client: anthropic.NewClient(),
		model:  model,
		log:    log,
	}
}

// SuggestQuantity asks the model for an order quantity given the symbol,
// its current price and the user's free quote balance.
func (s *Service) SuggestQuantity(ctx context.Context, symbol string, price, freeBalance float64) (Suggestion, error) {
	prompt := fmt.Sprintf(
		"Symbol %s trades at %.8f. The account has %.2f of the quote asset free. "+
			"Suggest a conservative order quantity in base units, risking at most 2%% of the free balance. "+
			"Reply with the quantity as a decimal number on the first line, then one short sentence of reasoning.",
		symbol, price, freeBalance,
	)

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: "You are a cautious crypto position-sizing assistant. Never suggest risking more than asked."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("advisor request: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	qty, err := parseQuantity(reply.String())
	if err != nil {
		s.log.WithField("symbol", symbol).Warn("model reply had no parseable quantity")
		return Suggestion{}, err
	}

	return Suggestion{
		Symbol:    symbol,
		Quantity:  qty,
		Rationale: strings.TrimSpace(reply.String()),
	}, nil
}

var quantityRe = regexp.MustCompile(`\d+\.?\d*`)

// parseQuantity extracts the first positive decimal from free-form model
// text. Replies lead with the number, but markdown or prose around it is
// tolerated.
func parseQuantity(text string) (float64, error) {
	match := quantityRe.FindString(text)
	if match == "" {
		return 0, ErrNoQuantity
	}
	qty, err := strconv.ParseFloat(match, 64)
	if err != nil || qty <= 0 {
		return 0, ErrNoQuantity
	}
	return qty, nil
}
