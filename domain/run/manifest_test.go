package run

import (
	"testing"

	"stixdc/domain/core"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	input := core.Hash("abc")
	params := Parameters{FPGATau: 10.04e-6, ASICTau: 2.58e-6, Beta: 0.94, SolarBlack: "solarblack_carbon", MatList: "mean"}

	fp1 := NewRunFingerprint(input, params, "1.0.0")
	fp2 := NewRunFingerprint(input, params, "1.0.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.InputHash != input {
		t.Errorf("InputHash mismatch: %s vs %s", fp1.InputHash, input)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	params := Parameters{FPGATau: 10.04e-6, ASICTau: 2.58e-6, Beta: 0.94}
	base := NewRunFingerprint(core.Hash("abc"), params, "1.0.0")

	changed := params
	changed.FPGATau = 10.1e-6
	variants := []RunFingerprint{
		NewRunFingerprint(core.Hash("abd"), params, "1.0.0"),
		NewRunFingerprint(core.Hash("abc"), changed, "1.0.0"),
		NewRunFingerprint(core.Hash("abc"), params, "1.0.1"),
	}
	for i, v := range variants {
		if v.Fingerprint == base.Fingerprint {
			t.Errorf("variant %d has the base fingerprint", i)
		}
	}
}

func TestReport_Validate(t *testing.T) {
	fp := NewRunFingerprint(core.Hash("abc"), Parameters{}, "1.0.0")
	r := NewReport(core.NewRunID(), KindLiveTime, fp)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	r.Kind = "plot"
	if err := r.Validate(); err == nil {
		t.Error("expected error for unknown kind")
	}

	empty := NewReport(core.RunID(""), KindSubtract, fp)
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty run id")
	}
}
