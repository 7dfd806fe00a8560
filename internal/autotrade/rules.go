// Package autotrade runs recurring order submissions defined in a YAML
// rules file. Rules flow through the exact same submission pipeline as
// manual orders, so every run is validated and audited.
package autotrade

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trade-assistant/pkg/exchanges/common"
)

const minInterval = 10 * time.Second

// Rule is one recurring order definition.
type Rule struct {
	ID       string  `yaml:"id"`
	UserID   string  `yaml:"user_id"`
	Exchange string  `yaml:"exchange"`
	Symbol   string  `yaml:"symbol"`
	Side     string  `yaml:"side"`
	Type     string  `yaml:"type"`
	Qty      float64 `yaml:"qty"`
	Price    float64 `yaml:"price"`
	Interval string  `yaml:"interval"` // Go duration, e.g. "1h", "15m"
	Enabled  bool    `yaml:"enabled"`
}

// rulesFile is the top-level YAML structure.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads and validates the rules file. A malformed rule fails
// the whole load; a half-applied schedule is worse than none.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for i := range file.Rules {
		if err := file.Rules[i].validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, file.Rules[i].ID, err)
		}
	}
	return file.Rules, nil
}

func (r *Rule) validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !common.Side(r.Side).Valid() {
		return fmt.Errorf("side %q must be BUY or SELL", r.Side)
	}
	if !common.OrderType(r.Type).Valid() {
		return fmt.Errorf("type %q is not supported", r.Type)
	}
	if r.Qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}

	d, err := r.Every()
	if err != nil {
		return fmt.Errorf("interval %q: %w", r.Interval, err)
	}
	if d < minInterval {
		return fmt.Errorf("interval %s is below the %s minimum", d, minInterval)
	}
	return nil
}

// Every returns the rule's run interval.
func (r *Rule) Every() (time.Duration, error) {
	return time.ParseDuration(r.Interval)
}
