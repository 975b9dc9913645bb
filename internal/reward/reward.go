// Package reward models mission reward terms as a tagged union of a
// percentage of the net-of-tax sale amount or a fixed amount in cents.
package reward

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	Percentage Kind = "PERCENTAGE"
	Fixed      Kind = "FIXED"
)

var (
	ErrInvalidExpression = errors.New("invalid reward expression")
	ErrOutOfRange        = errors.New("reward percentage must be between 0 and 100")
	ErrUnknownStructure  = errors.New("unknown reward structure")
)

var (
	fixedPattern         = regexp.MustCompile(`^\d+(\.\d+)?\s*[€$]?$`)
	percentPrefixPattern = regexp.MustCompile(`^\+?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d{1,3})?`)
	strictPercentPattern = regexp.MustCompile(`^\d+(\.\d+)?\s*%$`)

	hundred = decimal.NewFromInt(100)
)

// Reward is either a Percentage (Percent set) or a Fixed amount (Cents set).
type Reward struct {
	Kind    Kind
	Percent decimal.Decimal
	Cents   int64
}

func NewPercentage(percent decimal.Decimal) Reward {
	return Reward{Kind: Percentage, Percent: percent}
}

func NewFixed(cents int64) Reward {
	return Reward{Kind: Fixed, Cents: cents}
}

// Parse turns a free-text reward expression into a Reward. It never fails:
// anything it cannot read becomes Fixed(0), so a misconfigured mission pays
// nothing instead of blocking the webhook that triggered it.
func Parse(expr string) Reward {
	s := strings.TrimSpace(expr)

	if strings.HasSuffix(s, "%") {
		prefix := strings.TrimSpace(strings.TrimSuffix(s, "%"))
		if m := percentPrefixPattern.FindString(prefix); m != "" {
			if p, err := decimal.NewFromString(strings.TrimPrefix(m, "+")); err == nil {
				return NewPercentage(p)
			}
		}
	}

	if fixedPattern.MatchString(s) {
		if cents, ok := parseCents(s); ok {
			return NewFixed(cents)
		}
	}

	return NewFixed(0)
}

// ParseStrict is used when mission terms are created or edited. Unlike Parse
// it rejects anything that is not exactly a percentage or a fixed amount.
func ParseStrict(expr string) (Reward, error) {
	s := strings.TrimSpace(expr)
	switch {
	case strictPercentPattern.MatchString(s):
		p, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err != nil {
			return Reward{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
		}
		if p.GreaterThan(hundred) {
			return Reward{}, fmt.Errorf("%w: %q", ErrOutOfRange, expr)
		}
		return NewPercentage(p), nil
	case fixedPattern.MatchString(s):
		cents, ok := parseCents(s)
		if !ok {
			return Reward{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
		}
		return NewFixed(cents), nil
	default:
		return Reward{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
}

// FromAmount builds a reward from the split amount/structure form used by the
// dashboard ("10" + PERCENTAGE, "5" + FIXED).
func FromAmount(amount string, structure Kind) (Reward, error) {
	amount = strings.TrimSpace(amount)
	switch Kind(strings.ToUpper(string(structure))) {
	case Percentage:
		return ParseStrict(amount + "%")
	case Fixed, "FLAT":
		return ParseStrict(amount)
	default:
		return Reward{}, fmt.Errorf("%w: %q", ErrUnknownStructure, structure)
	}
}

func parseCents(s string) (int64, bool) {
	num := strings.TrimSpace(strings.TrimRight(s, "€$"))
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, false
	}
	return d.Mul(hundred).Round(0).IntPart(), true
}

// Amount returns the commission owed on the given net-of-tax base. Fixed
// rewards ignore the base entirely.
func (r Reward) Amount(base int64) int64 {
	switch r.Kind {
	case Percentage:
		if base <= 0 {
			return 0
		}
		return decimal.NewFromInt(base).Mul(r.Percent).Div(hundred).Floor().IntPart()
	case Fixed:
		return r.Cents
	default:
		return 0
	}
}

// String returns the canonical expression, which Parse reads back unchanged.
func (r Reward) String() string {
	switch r.Kind {
	case Percentage:
		return r.Percent.String() + "%"
	case Fixed:
		return decimal.New(r.Cents, -2).StringFixed(2) + "€"
	default:
		return ""
	}
}

func (r Reward) Value() (driver.Value, error) {
	return r.String(), nil
}

// Scan reads a stored expression. An empty column means no terms were
// configured and scans to the zero Reward.
func (r *Reward) Scan(src interface{}) error {
	var expr string
	switch v := src.(type) {
	case nil:
	case string:
		expr = v
	case []byte:
		expr = string(v)
	default:
		return fmt.Errorf("reward: cannot scan %T", src)
	}
	if strings.TrimSpace(expr) == "" {
		*r = Reward{}
		return nil
	}
	*r = Parse(expr)
	return nil
}

func (r Reward) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reward) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*r = Reward{}
		return nil
	}
	parsed, err := ParseStrict(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
