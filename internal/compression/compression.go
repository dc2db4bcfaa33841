// Package compression decodes the one-byte quasi-logarithmic integer
// compression used for telemetered counts and triggers.
//
// A scheme sKkMm reserves s sign bits, k exponent bits and m mantissa bits.
// Values below 2^(m+1) are transmitted literally; larger values keep only
// the m bits following the leading one, so each byte stands for an interval
// [low, high] of original integers.
package compression

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"stixdc/domain/core"
	apperrors "stixdc/internal/errors"
)

// MaxStoredInteger is the largest value representable as an exact integer
// by the on-board storage.
const MaxStoredInteger = 1e8

// Scheme describes the bit layout of a compressed byte.
type Scheme struct {
	S int // sign bits, 0 or 1
	K int // exponent bits
	M int // mantissa bits
}

// Schemes used by the instrument, keyed the way the control data names them.
var Schemes = map[string]Scheme{
	"counts":   {S: 0, K: 5, M: 3},
	"triggers": {S: 0, K: 5, M: 3},
	"035":      {S: 0, K: 3, M: 5},
	"044":      {S: 0, K: 4, M: 4},
	"053":      {S: 0, K: 5, M: 3},
}

// NewScheme validates the bit budget and returns the scheme.
func NewScheme(s, k, m int) (Scheme, error) {
	sc := Scheme{S: s, K: k, M: m}
	if err := sc.Validate(); err != nil {
		return Scheme{}, err
	}
	return sc, nil
}

// Validate checks s in {0,1}, k and m in [1,7] and s+k+m <= 8.
func (sc Scheme) Validate() error {
	if sc.S != 0 && sc.S != 1 || sc.K < 1 || sc.K > 7 || sc.M < 1 || sc.M > 7 || sc.S+sc.K+sc.M > 8 {
		return apperrors.ConfigInvalidCause(fmt.Errorf("%w: %s", core.ErrInvalidScheme, sc))
	}
	return nil
}

// String renders the scheme as sSkKmM, e.g. s0k5m3.
func (sc Scheme) String() string {
	return fmt.Sprintf("s%dk%dm%d", sc.S, sc.K, sc.M)
}

var schemePattern = regexp.MustCompile(`^s(\d)k(\d)m(\d)$`)

// ParseScheme accepts either a named scheme from Schemes or the sSkKmM form.
func ParseScheme(s string) (Scheme, error) {
	if sc, ok := Schemes[s]; ok {
		return sc, nil
	}
	m := schemePattern.FindStringSubmatch(s)
	if m == nil {
		return Scheme{}, apperrors.ConfigInvalidCause(fmt.Errorf("%w: cannot parse %q", core.ErrInvalidScheme, s))
	}
	var sc Scheme
	sc.S, _ = strconv.Atoi(m[1])
	sc.K, _ = strconv.Atoi(m[2])
	sc.M, _ = strconv.Atoi(m[3])
	return sc, sc.Validate()
}

// Decoded is the reconstruction of one compressed byte. Values are integral;
// they are held as float64 because wide exponents exceed int64.
type Decoded struct {
	Value float64
	// Low and High bound the magnitude of the original integer.
	Low, High float64
	// Error is the quantization error sqrt((high-low)^2/12); 0 for literals.
	Error   float64
	Literal bool
}

// Decode reconstructs x under the scheme. ok is false when the scheme
// violates the bit budget or x is not a byte; no value is representable then.
func Decode(x int, sc Scheme) (d Decoded, ok bool) {
	if sc.Validate() != nil || x < 0 || x > 0xff {
		return Decoded{}, false
	}

	sign := 1.0
	if sc.S == 1 {
		if x&(1<<7) != 0 {
			sign = -1
		}
		x &= (1 << 7) - 1
	}

	if x < 1<<(sc.M+1) {
		v := float64(x)
		return Decoded{Value: sign * v, Low: v, High: v, Literal: true}, true
	}

	mantissa := int64(x&((1<<sc.M)-1)) | 1<<sc.M
	exponent := (x >> sc.M) - 1

	var low, high, mean float64
	if exponent+sc.M+1 < 63 {
		l := mantissa << uint(exponent)
		h := l | (1<<uint(exponent) - 1)
		low, high, mean = float64(l), float64(h), float64((l+h)>>1)
	} else {
		// beyond int64; the on-board counters never reach this range
		low = math.Ldexp(float64(mantissa), exponent)
		high = low + math.Ldexp(1, exponent) - 1
		mean = low + math.Ldexp(1, exponent-1) - 1
	}
	diff := high - low

	return Decoded{
		Value: sign * mean,
		Low:   low,
		High:  high,
		Error: math.Sqrt(diff * diff / 12),
	}, true
}

// Decompress returns the reconstructed value and its quantization error.
func Decompress(x int, sc Scheme) (value float64, qerr float64, ok bool) {
	d, ok := Decode(x, sc)
	return d.Value, d.Error, ok
}

// Bounds returns the reconstruction interval of x, the range of magnitudes
// that compress to it. ok is false for an invalid scheme.
func Bounds(x int, sc Scheme) (low, high float64, ok bool) {
	d, ok := Decode(x, sc)
	return d.Low, d.High, ok
}

// Compress returns the byte whose reconstruction interval contains value,
// preferring the literal encoding. It fails when the magnitude exceeds the
// largest representable interval.
func Compress(value int64, sc Scheme) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	mag, signBit := float64(value), 0
	if value < 0 {
		if sc.S == 0 {
			return 0, fmt.Errorf("negative value %d under unsigned scheme %s", value, sc)
		}
		mag, signBit = -float64(value), 1<<7
	}
	// magnitude codes occupy the low K+M bits, below the sign bit
	limit := min(1<<(sc.K+sc.M), 1<<7)
	for x := 0; x < limit; x++ {
		d, _ := Decode(x, Scheme{S: 0, K: sc.K, M: sc.M})
		if mag >= d.Low && mag <= d.High {
			return x | signBit, nil
		}
	}
	return 0, fmt.Errorf("value %d not representable under %s", value, sc)
}
