package compression

import (
	"errors"
	"math"
	"testing"

	"stixdc/domain/core"
	apperrors "stixdc/internal/errors"
)

func validSchemes() []Scheme {
	var out []Scheme
	for s := 0; s <= 1; s++ {
		for k := 1; k <= 7; k++ {
			for m := 1; m <= 7; m++ {
				if s+k+m <= 8 {
					out = append(out, Scheme{S: s, K: k, M: m})
				}
			}
		}
	}
	return out
}

func TestDecodeBoundsAndError(t *testing.T) {
	for _, sc := range validSchemes() {
		for x := 0; x < 256; x++ {
			d, ok := Decode(x, sc)
			if !ok {
				t.Fatalf("%s: byte %d not representable", sc, x)
			}
			mag := math.Abs(d.Value)
			if mag < d.Low || mag > d.High {
				t.Errorf("%s byte %d: value %g outside [%g, %g]", sc, x, d.Value, d.Low, d.High)
			}
			if d.Literal {
				if d.Error != 0 {
					t.Errorf("%s byte %d: literal with error %g", sc, x, d.Error)
				}
				continue
			}
			want := math.Sqrt((d.High - d.Low) * (d.High - d.Low) / 12)
			if d.Error != want {
				t.Errorf("%s byte %d: error %g, want %g", sc, x, d.Error, want)
			}
		}
	}
}

func TestDecodeKnownValues(t *testing.T) {
	sc := Scheme{S: 0, K: 5, M: 3}
	tests := []struct {
		x     int
		value float64
		err   float64
	}{
		{x: 0, value: 0, err: 0},
		{x: 15, value: 15, err: 0},
		// exponent 1, mantissa 0b1000: low 16, high 17
		{x: 16, value: 16, err: math.Sqrt(1.0 / 12)},
		// exponent 2, mantissa 0b1000: low 32, high 35
		{x: 24, value: 33, err: math.Sqrt(9.0 / 12)},
		// exponent 2, mantissa 0b1111: low 60, high 63
		{x: 31, value: 61, err: math.Sqrt(9.0 / 12)},
	}
	for _, tt := range tests {
		v, e, ok := Decompress(tt.x, sc)
		if !ok {
			t.Fatalf("byte %d not representable", tt.x)
		}
		if v != tt.value || math.Abs(e-tt.err) > 1e-12 {
			t.Errorf("Decompress(%d) = (%g, %g), want (%g, %g)", tt.x, v, e, tt.value, tt.err)
		}
	}
}

func TestDecodeSigned(t *testing.T) {
	sc := Scheme{S: 1, K: 4, M: 3}
	for x := 0; x < 128; x++ {
		pos, okPos := Decode(x, sc)
		neg, okNeg := Decode(x|0x80, sc)
		if !okPos || !okNeg {
			t.Fatalf("byte %d not representable", x)
		}
		if neg.Value != -pos.Value {
			t.Errorf("byte %d: negative %g, positive %g", x, neg.Value, pos.Value)
		}
		if neg.Error != pos.Error {
			t.Errorf("byte %d: error depends on sign (%g vs %g)", x, neg.Error, pos.Error)
		}
	}
}

func TestDecodeInvalidScheme(t *testing.T) {
	invalid := []Scheme{
		{S: 0, K: 5, M: 4},
		{S: 2, K: 3, M: 3},
		{S: 0, K: 0, M: 3},
		{S: 0, K: 3, M: 0},
		{S: 1, K: 4, M: 4},
	}
	for _, sc := range invalid {
		if _, _, ok := Decompress(200, sc); ok {
			t.Errorf("%s should not be representable", sc)
		}
		if _, err := NewScheme(sc.S, sc.K, sc.M); !errors.Is(err, core.ErrInvalidScheme) {
			t.Errorf("NewScheme(%s): expected ErrInvalidScheme, got %v", sc, err)
		} else if apperrors.GetCode(err) != apperrors.CodeConfigInvalid {
			t.Errorf("NewScheme(%s): code %s", sc, apperrors.GetCode(err))
		}
	}
}

func TestDecodeWideExponent(t *testing.T) {
	sc := Scheme{S: 0, K: 7, M: 1}
	d, ok := Decode(255, sc)
	if !ok {
		t.Fatal("byte 255 not representable")
	}
	if math.IsInf(d.Value, 0) || math.IsNaN(d.Value) || d.Value <= MaxStoredInteger {
		t.Errorf("unexpected value %g for widest exponent", d.Value)
	}
}

func TestParseScheme(t *testing.T) {
	sc, err := ParseScheme("s0k4m4")
	if err != nil {
		t.Fatal(err)
	}
	if sc != (Scheme{S: 0, K: 4, M: 4}) {
		t.Errorf("got %+v", sc)
	}
	if sc, _ := ParseScheme("triggers"); sc.String() != "s0k5m3" {
		t.Errorf("triggers scheme = %s", sc)
	}
	if _, err := ParseScheme("k5m3"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ParseScheme("s0k6m3"); err == nil {
		t.Error("expected bit budget error")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	sc := Scheme{S: 0, K: 5, M: 3}
	for _, v := range []int64{0, 7, 15, 16, 17, 33, 100, 1000, 123456} {
		x, err := Compress(v, sc)
		if err != nil {
			t.Fatalf("Compress(%d): %v", v, err)
		}
		d, _ := Decode(x, sc)
		if float64(v) < d.Low || float64(v) > d.High {
			t.Errorf("Compress(%d) = %d decoding to [%g, %g]", v, x, d.Low, d.High)
		}
	}
	if _, err := Compress(-4, sc); err == nil {
		t.Error("negative value under unsigned scheme should fail")
	}
	signed := Scheme{S: 1, K: 4, M: 3}
	x, err := Compress(-40, signed)
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := Decode(x, signed); d.Value >= 0 {
		t.Errorf("signed compress lost sign: byte %d -> %g", x, d.Value)
	}
}

func TestBounds(t *testing.T) {
	sc := Scheme{S: 0, K: 5, M: 3}
	low, high, ok := Bounds(16, sc)
	if !ok || low != 16 || high != 17 {
		t.Errorf("Bounds(16) = (%g, %g, %v), want (16, 17, true)", low, high, ok)
	}
	low, high, ok = Bounds(9, sc)
	if !ok || low != 9 || high != 9 {
		t.Errorf("Bounds(9) = (%g, %g, %v), want (9, 9, true)", low, high, ok)
	}
	if _, _, ok := Bounds(16, Scheme{S: 1, K: 5, M: 3}); ok {
		t.Error("Bounds with an over-budget scheme should not be ok")
	}
}

func TestDecodeRejectsNonBytes(t *testing.T) {
	sc := Scheme{S: 0, K: 5, M: 3}
	for _, x := range []int{-1, 256, 1000} {
		if d, ok := Decode(x, sc); ok || d != (Decoded{}) {
			t.Errorf("Decode(%d) = %+v, %v; want not representable", x, d, ok)
		}
		if _, _, ok := Bounds(x, sc); ok {
			t.Errorf("Bounds(%d) should not be ok", x)
		}
	}
	if _, ok := Decode(255, sc); !ok {
		t.Error("byte 255 should decode")
	}
}

func TestCompressNarrowSignedScheme(t *testing.T) {
	sc := Scheme{S: 1, K: 2, M: 2}
	if x, err := Compress(1000, sc); err == nil {
		t.Errorf("Compress(1000, %s) = %d, want error", sc, x)
	}
	for _, v := range []int64{5, -5, 20, -31} {
		x, err := Compress(v, sc)
		if err != nil {
			t.Fatalf("Compress(%d): %v", v, err)
		}
		if x&0x7f >= 1<<(sc.K+sc.M) {
			t.Errorf("Compress(%d) = %d uses bits outside the magnitude field", v, x)
		}
		d, _ := Decode(x, sc)
		if mag := math.Abs(float64(v)); mag < d.Low || mag > d.High {
			t.Errorf("Compress(%d) = %d decoding to [%g, %g]", v, x, d.Low, d.High)
		}
	}
}

func TestParseSchemeRejectsTrailingInput(t *testing.T) {
	for _, s := range []string{"s0k5m3junk", "s0k5m3 ", " s0k5m3", "s0k5m3m3", "s00k5m3"} {
		if sc, err := ParseScheme(s); err == nil {
			t.Errorf("ParseScheme(%q) = %s, want error", s, sc)
		}
	}
	if _, err := ParseScheme("s1k4m3"); err != nil {
		t.Errorf("ParseScheme(s1k4m3): %v", err)
	}
}
