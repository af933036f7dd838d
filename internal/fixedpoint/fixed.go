// Package fixedpoint provides deterministic scaled-integer arithmetic for
// values the simulation must reproduce bit-for-bit across runs (personality
// components, decay rates, durability wear). Go has no first-party decimal
// type in this module's dependency set, so quantities that original_source
// represented with rust_decimal::Decimal are represented here as a scaled
// int64 with checked operations.
package fixedpoint

import (
	"errors"
	"fmt"
	"math"
)

// Scale is the number of fractional decimal digits retained.
const Scale = 1_000_000

// ErrOverflow is returned by checked operations that would overflow int64.
var ErrOverflow = errors.New("fixedpoint: overflow")

// Fixed is a fixed-point number with Scale fractional digits.
type Fixed int64

// FromFloat converts a float64 into a Fixed, rounding to the nearest unit.
func FromFloat(f float64) Fixed {
	return Fixed(math.Round(f * Scale))
}

// Float returns the floating-point value of f.
func (f Fixed) Float() float64 {
	return float64(f) / Scale
}

// Zero is the additive identity.
const Zero Fixed = 0

// One represents 1.0.
const One Fixed = Scale

// Add returns f+g, or ErrOverflow if the result cannot be represented.
func (f Fixed) Add(g Fixed) (Fixed, error) {
	sum := int64(f) + int64(g)
	if (g > 0 && sum < int64(f)) || (g < 0 && sum > int64(f)) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, f, g)
	}
	return Fixed(sum), nil
}

// Sub returns f-g, or ErrOverflow on overflow.
func (f Fixed) Sub(g Fixed) (Fixed, error) {
	return f.Add(-g)
}

// Mul returns f*g, or ErrOverflow on overflow. Intermediate product is
// computed in float64 and rounded, which is sufficient precision for the
// magnitudes this simulation deals in (all state is clamped to small ranges).
func (f Fixed) Mul(g Fixed) (Fixed, error) {
	product := f.Float() * g.Float()
	if math.Abs(product) > math.MaxInt64/Scale {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, f, g)
	}
	return FromFloat(product), nil
}

// Div returns f/g, or ErrOverflow if g is zero or the result cannot be
// represented.
func (f Fixed) Div(g Fixed) (Fixed, error) {
	if g == 0 {
		return 0, fmt.Errorf("%w: division by zero (%d / 0)", ErrOverflow, f)
	}
	quotient := f.Float() / g.Float()
	if math.Abs(quotient) > math.MaxInt64/Scale {
		return 0, fmt.Errorf("%w: %d / %d", ErrOverflow, f, g)
	}
	return FromFloat(quotient), nil
}

// Clamp restricts f to [lo, hi].
func (f Fixed) Clamp(lo, hi Fixed) Fixed {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// String renders the value with up to 6 decimal places, trimmed.
func (f Fixed) String() string {
	return fmt.Sprintf("%g", f.Float())
}
