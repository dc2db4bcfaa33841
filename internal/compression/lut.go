package compression

import (
	"math"
	"slices"

	"stixdc/domain/core"
	apperrors "stixdc/internal/errors"
)

// ErrorLUT maps every decompressed value of a scheme to its error. It is
// built once per scheme and never modified, so it can be shared freely.
type ErrorLUT struct {
	scheme   Scheme
	withStat bool
	table    map[float64]float64
}

// NewErrorLUT decompresses all 256 byte values. With withStatError the
// entry for v is sqrt(q^2 + |v|), combining quantization and counting
// statistics; otherwise it is the quantization error q alone.
func NewErrorLUT(sc Scheme, withStatError bool) (*ErrorLUT, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	lut := &ErrorLUT{scheme: sc, withStat: withStatError, table: make(map[float64]float64, 256)}
	for x := 0; x < 256; x++ {
		d, ok := Decode(x, sc)
		if !ok {
			continue
		}
		e := d.Error
		if withStatError {
			e = math.Sqrt(d.Error*d.Error + math.Abs(d.Value))
		}
		lut.table[d.Value] = e
	}
	return lut, nil
}

// Scheme returns the scheme the table was built for.
func (l *ErrorLUT) Scheme() Scheme {
	return l.scheme
}

// Len returns the number of distinct decompressed values.
func (l *ErrorLUT) Len() int {
	return len(l.table)
}

// Error returns the error of a decompressed value. A value absent from the
// table means the data was not produced by this scheme.
func (l *ErrorLUT) Error(value float64) (float64, error) {
	e, ok := l.table[value]
	if !ok {
		return 0, apperrors.NumericDegeneracy(core.NewLUTMissError(l.scheme.String(), value))
	}
	return e, nil
}

// Errors maps Error over values, failing on the first miss.
func (l *ErrorLUT) Errors(values []float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		e, err := l.Error(v)
		if err != nil {
			return nil, apperrors.Wrapf(err, "element %d", i)
		}
		out[i] = e
	}
	return out, nil
}

// Values returns the decompressed values present in the table, ascending.
func (l *ErrorLUT) Values() []float64 {
	out := make([]float64, 0, len(l.table))
	for v := range l.table {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
