// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint implements the integer-backed numeric types the
// execution engine uses in place of floating point: Q32.32 fixed point,
// basis points, parts-per-million, microsecond durations, and throughput.
// All arithmetic saturates at the representable boundary instead of
// overflowing or panicking; callers that need to know a result was
// clamped consult a StickyFlags accumulator rather than an error return.
package fixedpoint

import (
	"fmt"
	"math"
	"strings"

	safemath "github.com/luxfi/rechain/utils/math"
)

// Scale is the Q32.32 fractional scale, 2^32.
const Scale = 1 << 32

// Q32 is a signed Q32.32 fixed-point number, used for monetary and other
// unitless fractional values. The underlying int64 holds value*Scale.
type Q32 int64

// BasisPoints is an unsigned basis-point value; 10000 represents 100%.
type BasisPoints uint16

// PPM is a parts-per-million value; 1_000_000 represents 100%.
type PPM uint32

// DurationUS is a duration in microseconds.
type DurationUS uint64

// Throughput is a rate in micro-operations per second.
type Throughput uint64

const (
	maxQ32 = Q32(math.MaxInt64)
	minQ32 = Q32(math.MinInt64)

	maxBasisPoints = BasisPoints(math.MaxUint16)
	maxPPM         = PPM(math.MaxUint32)
	maxDurationUS  = DurationUS(math.MaxUint64)
	maxThroughput  = Throughput(math.MaxUint64)
)

// StickyFlags records which saturating operations clamped a result.
// It is attached to the containing ExecutionMetrics struct, never to an
// individual value, matching the engine's "sticky flag on the containing
// metrics struct" contract.
type StickyFlags struct {
	Overflow  bool
	Underflow bool
}

// mark sets the appropriate sticky bit. Overflow covers saturation at the
// upper boundary; underflow covers saturation at the lower boundary (for
// unsigned types, "underflow" means "would have gone negative").
func (f *StickyFlags) mark(overflow bool) {
	if f == nil {
		return
	}
	if overflow {
		f.Overflow = true
	} else {
		f.Underflow = true
	}
}

// NewQ32FromInt builds a Q32.32 value from an integer unit count.
func NewQ32FromInt(units int64) Q32 {
	return Q32(units) << 32
}

// Int returns the integer part, rounded toward negative infinity.
func (q Q32) Int() int64 {
	return int64(q) >> 32
}

// Add returns q+other, saturating on overflow and recording it in flags.
func (q Q32) Add(other Q32, flags *StickyFlags) Q32 {
	sum := int64(q) + int64(other)
	// Overflow iff operands share a sign and the result's sign differs.
	if (int64(q) > 0 && int64(other) > 0 && sum < 0) {
		flags.mark(true)
		return maxQ32
	}
	if int64(q) < 0 && int64(other) < 0 && sum > 0 {
		flags.mark(false)
		return minQ32
	}
	return Q32(sum)
}

// Sub returns q-other, saturating on overflow and recording it in flags.
func (q Q32) Sub(other Q32, flags *StickyFlags) Q32 {
	// -minQ32 overflows int64 back to minQ32 itself (two's complement has
	// no positive counterpart for MinInt64), so q.Add(-other, ...) would
	// silently compute q+minQ32 instead of q-minQ32. Special-case it
	// rather than trust unary negation.
	if other == minQ32 {
		if q >= 0 {
			flags.mark(true)
			return maxQ32
		}
		// For negative q the exact difference q+2^63 fits in int64.
		return q - other
	}
	return q.Add(-other, flags)
}

// Mul returns q*other (as a dimensionless Q32.32 product), saturating on
// overflow. Uses 128-bit-equivalent arithmetic via big division by Scale.
func (q Q32) Mul(other Q32, flags *StickyFlags) Q32 {
	hi, lo := bits64Mul(int64(q), int64(other))
	result, overflowed, negSaturate := shiftDown32(hi, lo)
	if overflowed {
		if negSaturate {
			flags.mark(false)
			return minQ32
		}
		flags.mark(true)
		return maxQ32
	}
	return Q32(result)
}

// Cmp compares q to other: -1, 0, or 1.
func (q Q32) Cmp(other Q32) int {
	switch {
	case q < other:
		return -1
	case q > other:
		return 1
	default:
		return 0
	}
}

// String renders the value with up to 9 decimal digits, trimming zeros.
func (q Q32) String() string {
	sign := ""
	if q < 0 {
		sign = "-"
	}
	mag := absU64(int64(q))
	whole, frac := mag>>32, mag&(Scale-1)
	// frac/Scale rendered to 9 decimal digits, trailing zeros trimmed.
	digits := strings.TrimRight(fmt.Sprintf("%09d", frac*1_000_000_000/Scale), "0")
	if digits == "" {
		if whole == 0 {
			sign = ""
		}
		return fmt.Sprintf("%s%d", sign, whole)
	}
	return fmt.Sprintf("%s%d.%s", sign, whole, digits)
}

// Q32FromFloat converts a float64 to Q32.32, rejecting NaN and Infinity.
// This is the only place floating point is permitted to enter the
// system: ingress conversion, never engine-internal arithmetic.
func Q32FromFloat(f float64) (Q32, error) {
	if math.IsNaN(f) {
		return 0, fmt.Errorf("fixedpoint: NaN is not convertible")
	}
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("fixedpoint: Infinity is not convertible")
	}
	scaled := f * Scale
	if scaled > math.MaxInt64 {
		return maxQ32, nil
	}
	if scaled < math.MinInt64 {
		return minQ32, nil
	}
	return Q32(int64(scaled)), nil
}

// AddBP returns a+b saturating at BasisPoints' upper bound.
func AddBP(a, b BasisPoints, flags *StickyFlags) BasisPoints {
	sum := uint32(a) + uint32(b)
	if sum > uint32(maxBasisPoints) {
		flags.mark(true)
		return maxBasisPoints
	}
	return BasisPoints(sum)
}

// AddPPM returns a+b saturating at PPM's upper bound.
func AddPPM(a, b PPM, flags *StickyFlags) PPM {
	sum := uint64(a) + uint64(b)
	if sum > uint64(maxPPM) {
		flags.mark(true)
		return maxPPM
	}
	return PPM(sum)
}

// AddDurationUS returns a+b saturating at DurationUS's upper bound.
// DurationUS and uint64 share the same range, so overflow detection
// delegates to utils/math.Add64 rather than re-deriving the same
// boundary check.
func AddDurationUS(a, b DurationUS, flags *StickyFlags) DurationUS {
	sum, err := safemath.Add64(uint64(a), uint64(b))
	if err != nil {
		flags.mark(true)
		return maxDurationUS
	}
	return DurationUS(sum)
}

// SubDurationUS returns a-b saturating at zero (DurationUS is unsigned).
func SubDurationUS(a, b DurationUS, flags *StickyFlags) DurationUS {
	diff, err := safemath.Sub64(uint64(a), uint64(b))
	if err != nil {
		flags.mark(false)
		return 0
	}
	return DurationUS(diff)
}

// AddThroughput returns a+b saturating at Throughput's upper bound.
func AddThroughput(a, b Throughput, flags *StickyFlags) Throughput {
	sum, err := safemath.Add64(uint64(a), uint64(b))
	if err != nil {
		flags.mark(true)
		return maxThroughput
	}
	return Throughput(sum)
}

// bits64Mul returns the 128-bit signed product of a*b as (hi, lo), where
// lo is interpreted as unsigned and hi carries the sign-extended high
// word, i.e. the pair is two's-complement 128-bit.
func bits64Mul(a, b int64) (hi, lo int64) {
	negative := (a < 0) != (b < 0)
	ua, ub := absU64(a), absU64(b)
	hiU, loU := mulU64(ua, ub)
	if negative {
		// two's complement negate the 128-bit (hiU,loU) pair
		loU = ^loU + 1
		hiU = ^hiU
		if loU == 0 {
			hiU++
		}
	}
	return int64(hiU), int64(loU)
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func mulU64(a, b uint64) (hi, lo uint64) {
	const mask = 0xFFFFFFFF
	aLo, aHi := a&mask, a>>32
	bLo, bHi := b&mask, b>>32

	t := aLo * bLo
	w0 := t & mask
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}

// shiftDown32 shifts the signed 128-bit value (hi,lo) right by 32 bits
// (i.e. divides the Q32.32*Q32.32 -> Q64.64 product back to Q32.32) and
// reports whether the result overflows a signed 64-bit value.
func shiftDown32(hi, lo int64) (result int64, overflow bool, negSaturate bool) {
	negative := hi < 0
	uHi, uLo := uint64(hi), uint64(lo)
	if negative {
		uLo = ^uLo + 1
		uHi = ^uHi
		if uLo == 0 {
			uHi++
		}
	}
	if uHi>>32 != 0 {
		return 0, true, negative
	}
	shifted := (uHi << 32) | (uLo >> 32)
	if shifted > math.MaxInt64 {
		return 0, true, negative
	}
	r := int64(shifted)
	if negative {
		r = -r
	}
	return r, false, false
}
