// Package money holds the decimal amount type used for booking prices.
//
// Amounts carry at most two fractional digits and are never rounded: a value
// that cannot be represented exactly is rejected instead of truncated.
package money

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const FractionDigits = 2

// DefaultMax is the largest amount a NUMERIC(14,2) column can hold.
const DefaultMax = "999999999999.99"

// Inputs are bounded before any arithmetic: rescaling a decimal costs time
// proportional to its exponent.
const (
	maxInputLength = 64
	maxExponent    = 32
)

var (
	ErrInvalid   = errors.New("amount is not a decimal number")
	ErrNegative  = errors.New("amount must not be negative")
	ErrPrecision = errors.New("amount has more than 2 fractional digits")
	ErrOverflow  = errors.New("amount exceeds the maximum supported value")
)

var defaultMax = decimal.RequireFromString(DefaultMax)

type Amount struct {
	d decimal.Decimal
}

func Zero() Amount {
	return Amount{}
}

// Parse reads a decimal string. Only representation limits are enforced here;
// Check applies the sign, scale and maximum.
func Parse(s string) (Amount, error) {
	if len(s) > maxInputLength {
		return Amount{}, fmt.Errorf("%w: longer than %d characters", ErrInvalid, maxInputLength)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	d, err = normalize(d)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", err, s)
	}
	return Amount{d: d}, nil
}

// normalize strips trailing fractional zeros and rejects exponents outside
// +-maxExponent.
func normalize(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, nil
	}
	coef, exp := d.Coefficient(), d.Exponent()
	ten := big.NewInt(10)
	for exp < 0 {
		q, r := new(big.Int).QuoRem(coef, ten, new(big.Int))
		if r.Sign() != 0 {
			break
		}
		coef, exp = q, exp+1
	}
	switch {
	case exp < -maxExponent:
		return decimal.Decimal{}, ErrPrecision
	case exp > maxExponent:
		return decimal.Decimal{}, ErrOverflow
	}
	return decimal.NewFromBigInt(coef, exp), nil
}

func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// ParseMax parses a configured maximum. An empty string yields DefaultMax.
func ParseMax(s string) (decimal.Decimal, error) {
	if s == "" {
		return defaultMax, nil
	}
	a, err := Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d := a.d
	if d.GreaterThan(defaultMax) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s is above %s", ErrOverflow, s, DefaultMax)
	}
	return d, nil
}

// Check reports ErrNegative, ErrPrecision or ErrOverflow. A zero max means DefaultMax.
func (a Amount) Check(max decimal.Decimal) error {
	if max.IsZero() {
		max = defaultMax
	}
	if a.d.IsNegative() {
		return ErrNegative
	}
	if !a.d.Equal(a.d.Truncate(FractionDigits)) {
		return ErrPrecision
	}
	if a.d.GreaterThan(max) {
		return ErrOverflow
	}
	return nil
}

func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.d.StringFixed(FractionDigits)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	dec, err := primitive.ParseDecimal128(a.String())
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrOverflow, a.String())
	}
	return bson.MarshalValue(dec)
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		dec, ok := raw.Decimal128OK()
		if !ok {
			return ErrInvalid
		}
		parsed, err := Parse(dec.String())
		if err != nil {
			return err
		}
		*a = parsed
	case bsontype.String:
		parsed, err := Parse(raw.StringValue())
		if err != nil {
			return err
		}
		*a = parsed
	case bsontype.Null:
		*a = Amount{}
	default:
		return fmt.Errorf("%w: unexpected BSON type %s", ErrInvalid, t)
	}
	return nil
}
