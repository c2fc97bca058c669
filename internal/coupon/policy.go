package coupon

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/mall-cart/internal/money"
)

// Rule kinds understood by the policy.
const (
	KindPercent = "percent"
	KindFixed   = "fixed"
)

// ErrInvalidRule is returned when a rule in the table cannot be applied.
var ErrInvalidRule = errors.New("coupon: invalid rule")

// Rule describes the discount granted by a single coupon code.
type Rule struct {
	Code       string `yaml:"code"`
	Kind       string `yaml:"kind"`
	PercentBps int64  `yaml:"percent_bps"`
	Value      int64  `yaml:"value"`
	MinSpend   int64  `yaml:"min_spend"`
}

// Validate ensures the rule can be evaluated.
func (r Rule) Validate() error {
	if Normalize(r.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidRule)
	}
	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case KindPercent:
		if r.PercentBps <= 0 || r.PercentBps > 10000 {
			return fmt.Errorf("%w: %s percent_bps must be within 1..10000", ErrInvalidRule, r.Code)
		}
	case KindFixed:
		if r.Value <= 0 {
			return fmt.Errorf("%w: %s value must be positive", ErrInvalidRule, r.Code)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidRule, r.Code, r.Kind)
	}
	if r.MinSpend < 0 {
		return fmt.Errorf("%w: %s min_spend must not be negative", ErrInvalidRule, r.Code)
	}
	return nil
}

// Compute determines the discount for the subtotal. The result never exceeds
// the subtotal and is never negative.
func (r Rule) Compute(subtotal money.Money) money.Money {
	zero := money.Zero(subtotal.Currency)
	if subtotal.Amount <= 0 || subtotal.Amount < r.MinSpend {
		return zero
	}
	var discount money.Money
	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case KindPercent:
		discount = money.PercentageOf(subtotal, r.PercentBps)
	case KindFixed:
		discount = money.New(r.Value, subtotal.Currency)
	default:
		return zero
	}
	if discount.Amount < 0 {
		return zero
	}
	return money.Min(discount, subtotal)
}

// DefaultRules is the built-in coupon table.
func DefaultRules() []Rule {
	return []Rule{
		{Code: "SAVE10", Kind: KindPercent, PercentBps: 1000},
	}
}

// Policy maps coupon codes to discounts. The zero value grants no discounts.
type Policy struct {
	rules map[string]Rule
}

// NewPolicy builds a policy from the provided rules. Later rules override
// earlier ones with the same normalized code.
func NewPolicy(rules ...Rule) (Policy, error) {
	table := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return Policy{}, err
		}
		r.Code = Normalize(r.Code)
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		table[r.Code] = r
	}
	return Policy{rules: table}, nil
}

// Default returns the policy backed by DefaultRules.
func Default() Policy {
	p, err := NewPolicy(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return p
}

// Normalize trims and upper-cases a user-entered code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DiscountFor returns the discount for code applied to subtotal. Unknown and
// empty codes yield zero.
func (p Policy) DiscountFor(code string, subtotal money.Money) money.Money {
	rule, ok := p.Lookup(code)
	if !ok {
		return money.Zero(subtotal.Currency)
	}
	return rule.Compute(subtotal)
}

// Lookup returns the rule registered for code.
func (p Policy) Lookup(code string) (Rule, bool) {
	normalized := Normalize(code)
	if normalized == "" || p.rules == nil {
		return Rule{}, false
	}
	rule, ok := p.rules[normalized]
	return rule, ok
}

// Codes lists the registered codes.
func (p Policy) Codes() []string {
	out := make([]string, 0, len(p.rules))
	for code := range p.rules {
		out = append(out, code)
	}
	return out
}

type ruleFile struct {
	Coupons []Rule `yaml:"coupons"`
}

// LoadRules reads a YAML rule table of the form:
//
//	coupons:
//	  - code: SAVE10
//	    kind: percent
//	    percent_bps: 1000
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coupon: read rules: %w", err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("coupon: parse rules: %w", err)
	}
	return file.Coupons, nil
}

// PolicyFromFile merges the built-in table with the rules found at path. An
// empty path yields the default policy.
func PolicyFromFile(path string) (Policy, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) != "" {
		extra, err := LoadRules(path)
		if err != nil {
			return Policy{}, err
		}
		rules = append(rules, extra...)
	}
	return NewPolicy(rules...)
}
