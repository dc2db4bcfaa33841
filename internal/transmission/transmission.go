// Package transmission models the X-ray transmission of the instrument's
// material stack: windows, shields, grid covers, attenuator and detector
// dead layer.
package transmission

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	apperrors "stixdc/internal/errors"
)

const (
	SolarBlackCarbon = "solarblack_carbon"
	SolarBlackOxygen = "solarblack_oxygen"

	MatListOld  = "old"
	MatListMin  = "min"
	MatListMax  = "max"
	MatListMean = "mean"
)

// MaxEnergy replaces an unbounded upper channel edge, in keV.
const MaxEnergy = 300.0

// baseStack is traversed by every detector.
var baseStack = []string{"front_window", "rear_window", "dem", "mli", "calibration_foil", "dead_layer"}

// Options selects the material variants used by a Model.
type Options struct {
	SolarBlack string
	MatList    string
}

// DefaultOptions returns carbon solar black with mean alloy fractions.
func DefaultOptions() Options {
	return Options{SolarBlack: SolarBlackCarbon, MatList: MatListMean}
}

func (o Options) validate() error {
	switch o.SolarBlack {
	case SolarBlackCarbon, SolarBlackOxygen:
	default:
		return core.NewValidationError("solarblack", fmt.Sprintf("%q is neither %s nor %s", o.SolarBlack, SolarBlackOxygen, SolarBlackCarbon))
	}
	switch o.MatList {
	case MatListOld, MatListMin, MatListMax, MatListMean:
	default:
		return core.NewValidationError("matlist", fmt.Sprintf("%q must be old, min, max or mean", o.MatList))
	}
	return nil
}

var (
	curvesOnce sync.Once
	curves     map[string]*elementCurve
	curvesErr  error
)

func elementCurves() (map[string]*elementCurve, error) {
	curvesOnce.Do(func() {
		curves, curvesErr = loadAttenuation(attenuationYAML)
	})
	return curves, curvesErr
}

type layer struct {
	material  string
	mat       Material
	thickness float64 // mm
}

// Model evaluates transmissions for one choice of Options. It is immutable
// after New and safe for concurrent use.
type Model struct {
	opts       Options
	curves     map[string]*elementCurve
	components map[string][]layer
	order      []string
}

// New resolves every component of DefaultComponents against opts.
func New(opts Options) (*Model, error) {
	if err := opts.validate(); err != nil {
		return nil, apperrors.ConfigInvalidCause(err)
	}
	cv, err := elementCurves()
	if err != nil {
		return nil, apperrors.Wrap(err, "load attenuation data")
	}
	m := &Model{
		opts:       opts,
		curves:     cv,
		components: make(map[string][]layer, len(DefaultComponents)),
	}
	for _, c := range DefaultComponents {
		layers := make([]layer, 0, len(c.Layers))
		for _, l := range c.Layers {
			name := resolveMaterial(l.Material, opts)
			mat, err := lookupMaterial(name)
			if err != nil {
				return nil, apperrors.ConfigInvalidCause(fmt.Errorf("component %s: %w", c.Name, err))
			}
			for el := range mat.Composition {
				if _, ok := cv[el]; !ok {
					return nil, apperrors.ConfigInvalidCause(fmt.Errorf("material %s: no attenuation data for element %s: %w", name, el, core.ErrUnknownMaterial))
				}
			}
			layers = append(layers, layer{material: name, mat: mat, thickness: l.Thickness})
		}
		m.components[c.Name] = layers
		m.order = append(m.order, c.Name)
	}
	return m, nil
}

// Options returns the options the model was built with.
func (m *Model) Options() Options {
	return m.opts
}

// Components returns the component names in stack order.
func (m *Model) Components() []string {
	return append([]string(nil), m.order...)
}

// massAttenuation returns mu/rho of a material in cm^2/g.
func (m *Model) massAttenuation(mat Material, e float64) float64 {
	var mu float64
	for el, frac := range mat.Composition {
		if frac == 0 {
			continue
		}
		mu += frac * m.curves[el].At(e)
	}
	return mu
}

func (m *Model) layerTransmission(l layer, e float64) float64 {
	// thickness is stored in mm, attenuation lengths are in cm
	return math.Exp(-m.massAttenuation(l.mat, e) * l.mat.Density * l.thickness / 10)
}

// stackTransmission multiplies the transmissions of every layer of the named
// components at energy e.
func (m *Model) stackTransmission(names []string, e float64) float64 {
	var parts []float64
	for _, n := range names {
		for _, l := range m.components[n] {
			parts = append(parts, m.layerTransmission(l, e))
		}
	}
	return floats.Prod(parts)
}

func (m *Model) detectorStack(det int, attenuator bool) []string {
	stack := append([]string(nil), baseStack...)
	if attenuator {
		stack = append(stack, "attenuator")
	}
	if instrument.IsFineGrid(det) {
		stack = append(stack, "grid_covers")
	}
	return stack
}

// DetectorTransmission returns the mean transmission over each energy bin of
// a detector, evaluated at both bin edges. Channels 0 and 31 are always 0.
func (m *Model) DetectorTransmission(det int, bins [instrument.NumEnergies][2]float64, attenuator bool) ([instrument.NumEnergies]float64, error) {
	var out [instrument.NumEnergies]float64
	if det < 0 || det >= instrument.NumDetectors {
		return out, apperrors.InvalidInput(core.NewDetectorRangeError(det).Error())
	}
	stack := m.detectorStack(det, attenuator)
	for i := 1; i < instrument.NumEnergies-1; i++ {
		lo, hi := clampEdge(bins[i][0]), clampEdge(bins[i][1])
		out[i] = (m.stackTransmission(stack, lo) + m.stackTransmission(stack, hi)) / 2
	}
	return out, nil
}

func clampEdge(e float64) float64 {
	switch {
	case math.IsInf(e, 1) || e > MaxEnergy:
		return MaxEnergy
	case e < math.SmallestNonzeroFloat64 || math.IsNaN(e):
		return epsilon
	}
	return e
}

// epsilon is the float64 machine epsilon, used as the lowest channel edge.
const epsilon = 2.220446049250313e-16

// Table holds per-detector transmissions at a set of energies.
type Table struct {
	Energies   []float64
	Attenuator bool
	Detectors  [instrument.NumDetectors][]float64
}

// Transmission evaluates every detector at the given energies.
func (m *Model) Transmission(energies []float64, attenuator bool) (*Table, error) {
	if len(energies) == 0 {
		return nil, apperrors.InvalidInput("no energies given")
	}
	t := &Table{Energies: append([]float64(nil), energies...), Attenuator: attenuator}
	var coarse, fine []float64
	for _, e := range energies {
		if !(e > 0) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("energy %g keV is not positive", e))
		}
		coarse = append(coarse, m.stackTransmission(m.detectorStack(0, attenuator), e))
		fine = append(fine, m.stackTransmission(m.detectorStack(instrument.FineGridDetectors()[0], attenuator), e))
	}
	for d := range t.Detectors {
		if instrument.IsFineGrid(d) {
			t.Detectors[d] = append([]float64(nil), fine...)
		} else {
			t.Detectors[d] = append([]float64(nil), coarse...)
		}
	}
	return t, nil
}

// ComponentTransmission returns the transmission of a single component.
func (m *Model) ComponentTransmission(name string, energies []float64) ([]float64, error) {
	if _, ok := m.components[name]; !ok {
		return nil, apperrors.WithCode(apperrors.CodeNotFound, fmt.Errorf("%w: %q", core.ErrUnknownComponent, name))
	}
	out := make([]float64, len(energies))
	for i, e := range energies {
		if !(e > 0) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("energy %g keV is not positive", e))
		}
		out[i] = m.stackTransmission([]string{name}, e)
	}
	return out, nil
}

// MaterialThickness is the summed thickness of one material over all
// components.
type MaterialThickness struct {
	Material  string
	Thickness float64 // mm
}

// MaterialThickness sums the thickness of each material across components,
// sorted by material name.
func (m *Model) MaterialThickness() []MaterialThickness {
	totals := make(map[string]float64)
	for _, layers := range m.components {
		for _, l := range layers {
			totals[l.material] += l.thickness
		}
	}
	out := make([]MaterialThickness, 0, len(totals))
	for name, t := range totals {
		out = append(out, MaterialThickness{Material: name, Thickness: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Material < out[j].Material })
	return out
}

// PixelTransmission computes the transmission of every pixel from its
// calibrated channel edges. trueEdges is indexed [edge][pixel] where pixel
// is detector*12+pixel.
func (m *Model) PixelTransmission(trueEdges *[instrument.NumEnergies + 1][instrument.NumDetectors * instrument.NumPixels]float64, attenuator bool) (*[instrument.NumDetectors][instrument.NumPixels][instrument.NumEnergies]float64, error) {
	if trueEdges == nil {
		return nil, apperrors.InvalidInput("missing energy lookup table")
	}
	out := new([instrument.NumDetectors][instrument.NumPixels][instrument.NumEnergies]float64)
	for d := 0; d < instrument.NumDetectors; d++ {
		for p := 0; p < instrument.NumPixels; p++ {
			col := d*instrument.NumPixels + p
			var bins [instrument.NumEnergies][2]float64
			for c := 0; c < instrument.NumEnergies; c++ {
				bins[c] = [2]float64{trueEdges[c][col], trueEdges[c+1][col]}
			}
			bins[0][0] = epsilon
			bins[instrument.NumEnergies-1][1] = MaxEnergy
			tr, err := m.DetectorTransmission(d, bins, attenuator)
			if err != nil {
				return nil, err
			}
			out[d][p] = tr
		}
	}
	return out, nil
}

// CdTe as used for the detector absorption efficiency.
var detectorCdTe = Material{Composition: map[string]float64{"Te": 0.531644, "Cd": 0.4683554}, Density: 6.2}

const detectorThickness = 1.0 // mm

// DetectorAbsorption returns the fraction of photons absorbed in the 1 mm
// CdTe detector at each energy.
func DetectorAbsorption(energies []float64) ([]float64, error) {
	cv, err := elementCurves()
	if err != nil {
		return nil, apperrors.Wrap(err, "load attenuation data")
	}
	m := &Model{curves: cv}
	l := layer{material: "cdte", mat: detectorCdTe, thickness: detectorThickness}
	out := make([]float64, len(energies))
	for i, e := range energies {
		if !(e > 0) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("energy %g keV is not positive", e))
		}
		out[i] = 1 - m.layerTransmission(l, e)
	}
	return out, nil
}
