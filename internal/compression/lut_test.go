package compression

import (
	"errors"
	"math"
	"strings"
	"testing"

	"stixdc/domain/core"
	apperrors "stixdc/internal/errors"
)

func TestErrorLUTCombinesStatistics(t *testing.T) {
	sc := Scheme{S: 0, K: 5, M: 3}
	lut, err := NewErrorLUT(sc, true)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 256; x++ {
		d, _ := Decode(x, sc)
		got, err := lut.Error(d.Value)
		if err != nil {
			t.Fatalf("value %g missing: %v", d.Value, err)
		}
		want := math.Sqrt(d.Error*d.Error + math.Abs(d.Value))
		if got != want {
			t.Errorf("value %g: error %g, want %g", d.Value, got, want)
		}
	}
}

func TestErrorLUTQuantizationOnly(t *testing.T) {
	lut, err := NewErrorLUT(Scheme{S: 0, K: 4, M: 4}, false)
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := lut.Error(20); e != 0 {
		t.Errorf("literal 20 should have zero quantization error, got %g", e)
	}
	values := lut.Values()
	if len(values) != lut.Len() {
		t.Fatalf("Values() has %d entries, Len() %d", len(values), lut.Len())
	}
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			t.Fatalf("values not ascending at %d", i)
		}
	}
}

func TestErrorLUTMiss(t *testing.T) {
	lut, err := NewErrorLUT(Scheme{S: 0, K: 5, M: 3}, true)
	if err != nil {
		t.Fatal(err)
	}
	// 34 falls inside [32,35] whose representative is 33
	_, err = lut.Error(34)
	if !errors.Is(err, core.ErrLUTMiss) {
		t.Fatalf("expected ErrLUTMiss, got %v", err)
	}
	if apperrors.GetCode(err) != apperrors.CodeNumericDegeneracy {
		t.Errorf("code = %s", apperrors.GetCode(err))
	}
	if want := "s0k5m3"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name scheme %s", err, want)
	}

	if _, err := lut.Errors([]float64{0, 16, 34}); !errors.Is(err, core.ErrLUTMiss) {
		t.Errorf("Errors should fail on the miss, got %v", err)
	}
	errs, err := lut.Errors([]float64{0, 16, 33})
	if err != nil || len(errs) != 3 {
		t.Fatalf("Errors = %v, %v", errs, err)
	}
}

func TestNewErrorLUTInvalidScheme(t *testing.T) {
	if _, err := NewErrorLUT(Scheme{S: 0, K: 6, M: 3}, true); !errors.Is(err, core.ErrInvalidScheme) {
		t.Errorf("expected ErrInvalidScheme, got %v", err)
	}
}
