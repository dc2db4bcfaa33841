// Package instrument holds the static detector geometry of the spectrometer:
// trigger accumulator groups, electrically coupled detector pairs and the
// nominal science energy binning. All tables are read-only after init.
package instrument

import (
	"fmt"
	"math"

	"stixdc/domain/core"
)

const (
	NumDetectors     = 32
	NumPixels        = 12
	NumEnergies      = 32
	NumTriggerGroups = 16
)

// triggerGroupDetectors lists the two detectors (0-based) read out by each
// trigger accumulator.
var triggerGroupDetectors = [NumTriggerGroups][2]int{
	{0, 1}, {5, 6}, {4, 10}, {11, 12}, {13, 14}, {9, 15}, {7, 8}, {2, 3},
	{30, 31}, {25, 26}, {21, 27}, {19, 20}, {17, 18}, {16, 22}, {23, 24}, {28, 29},
}

// detectorTriggerGroup is the inverse of triggerGroupDetectors.
var detectorTriggerGroup = [NumDetectors]int{
	0, 0, 7, 7, 2, 1, 1, 6, 6, 5, 2, 3, 3, 4, 4, 5,
	13, 12, 12, 11, 11, 10, 13, 14, 14, 9, 9, 10, 15, 15, 8, 8,
}

// siblings maps each detector to its coupled partner; -1 means unpaired.
var siblings [NumDetectors]int

// fineGridDetectors carry the additional grid cover in the X-ray path.
var fineGridDetectors = [6]int{10, 12, 17, 11, 18, 16}

// nominalEnergyEdges are the 33 science energy bin edges in keV.
var nominalEnergyEdges = [NumEnergies + 1]float64{
	0, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 18, 20, 22, 25, 28, 32,
	36, 40, 45, 50, 56, 63, 70, 76, 84, 100, 120, 150, math.Inf(1),
}

// quickLookBands are the channel ranges [lo, hi) summed into the five
// quick-look light curves (4-10, 10-15, 15-25, 25-50, 50-84 keV).
var quickLookBands = [5][2]int{{1, 7}, {7, 12}, {12, 17}, {17, 23}, {23, 28}}

func init() {
	for i := range siblings {
		siblings[i] = -1
	}
	// coupled detectors are the two members of a trigger accumulator
	for _, pair := range triggerGroupDetectors {
		siblings[pair[0]] = pair[1]
		siblings[pair[1]] = pair[0]
	}
}

func checkDetector(det int) error {
	if det < 0 || det >= NumDetectors {
		return core.NewDetectorRangeError(det)
	}
	return nil
}

// DetectorToTriggerGroup returns the trigger accumulator index of a detector.
func DetectorToTriggerGroup(det int) (int, error) {
	if err := checkDetector(det); err != nil {
		return 0, err
	}
	return detectorTriggerGroup[det], nil
}

// TriggerGroupMap returns the detector→trigger-group table.
func TriggerGroupMap() [NumDetectors]int {
	return detectorTriggerGroup
}

// TriggerGroupDetectors returns the two detectors sharing trigger group g.
func TriggerGroupDetectors(g int) ([2]int, error) {
	if g < 0 || g >= NumTriggerGroups {
		return [2]int{}, fmt.Errorf("%w: trigger group %d not in [0,15]", core.ErrDetectorRange, g)
	}
	return triggerGroupDetectors[g], nil
}

// SiblingDetector returns the electrically coupled partner of det, or false
// when det has none or is out of range.
func SiblingDetector(det int) (int, bool) {
	if checkDetector(det) != nil || siblings[det] < 0 {
		return 0, false
	}
	return siblings[det], true
}

// IsFineGrid reports whether det sits behind the grid cover.
func IsFineGrid(det int) bool {
	for _, d := range fineGridDetectors {
		if d == det {
			return true
		}
	}
	return false
}

// FineGridDetectors returns the detectors carrying the grid cover.
func FineGridDetectors() [6]int {
	return fineGridDetectors
}

// NominalEnergyEdges returns the 33 nominal energy edges in keV; the last
// edge is +Inf.
func NominalEnergyEdges() [NumEnergies + 1]float64 {
	return nominalEnergyEdges
}

// NominalEnergyBins returns the 32 [low, high] keV pairs.
func NominalEnergyBins() [NumEnergies][2]float64 {
	var bins [NumEnergies][2]float64
	for i := 0; i < NumEnergies; i++ {
		bins[i] = [2]float64{nominalEnergyEdges[i], nominalEnergyEdges[i+1]}
	}
	return bins
}

// ScienceEnergyBinRange converts a keV range whose bounds are nominal edges
// into the inclusive channel range [low, up].
func ScienceEnergyBinRange(lowKeV, highKeV float64) (int, int, error) {
	lo, hi := -1, -1
	for i, e := range nominalEnergyEdges {
		if e == lowKeV {
			lo = i
		}
		if e == highKeV {
			hi = i
		}
	}
	if lo < 0 || hi < 0 || hi <= lo {
		return 0, 0, fmt.Errorf("%g-%g keV is not a range of nominal energy edges", lowKeV, highKeV)
	}
	return lo, hi - 1, nil
}

// SpectrogramEnergyBins returns the keV bands of a spectrogram built from
// channels elow..ehigh grouped by eunit+1 channels, as configured on board.
func SpectrogramEnergyBins(elow, ehigh, eunit int) ([][2]float64, error) {
	if elow < 0 || ehigh >= NumEnergies || ehigh < elow || eunit < 0 {
		return nil, fmt.Errorf("invalid spectrogram energy configuration elow=%d ehigh=%d eunit=%d", elow, ehigh, eunit)
	}
	width := eunit + 1
	n := (ehigh - elow + 1) / width
	bands := make([][2]float64, n)
	for i := 0; i < n; i++ {
		bands[i] = [2]float64{
			nominalEnergyEdges[elow+i*width],
			nominalEnergyEdges[elow+(i+1)*width],
		}
	}
	return bands, nil
}

// QuickLookBands returns the channel ranges [lo, hi) of the quick-look
// light curves.
func QuickLookBands() [5][2]int {
	return quickLookBands
}
