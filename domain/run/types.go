package run

import (
	"crypto/sha256"
	"fmt"

	"stixdc/domain/core"
)

// Kind names the operation a run performed
type Kind string

const (
	KindLiveTime     Kind = "livetime"
	KindSubtract     Kind = "subtract"
	KindTransmission Kind = "transmission"
)

// Parameters records the constants a run was configured with
type Parameters struct {
	FPGATau    float64 `json:"fpga_tau"`
	ASICTau    float64 `json:"asic_tau"`
	Beta       float64 `json:"beta"`
	SolarBlack string  `json:"solarblack"`
	MatList    string  `json:"matlist"`
	Attenuator bool    `json:"attenuator"`
}

// RunFingerprint ties a run to its exact inputs and parameters
type RunFingerprint struct {
	InputHash   core.Hash  `json:"input_hash"`
	Parameters  Parameters `json:"parameters"`
	CodeVersion string     `json:"code_version"`
	Fingerprint core.Hash  `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from the input hash and parameters
func NewRunFingerprint(inputHash core.Hash, params Parameters, codeVersion string) RunFingerprint {
	return RunFingerprint{
		InputHash:   inputHash,
		Parameters:  params,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(inputHash, params, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(inputHash core.Hash, p Parameters, codeVersion string) core.Hash {
	data := fmt.Sprintf("input:%s|fpga:%g|asic:%g|beta:%g|solarblack:%s|matlist:%s|att:%t|code:%s",
		inputHash, p.FPGATau, p.ASICTau, p.Beta, p.SolarBlack, p.MatList, p.Attenuator, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
