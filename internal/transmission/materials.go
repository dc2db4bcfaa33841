package transmission

import (
	"fmt"

	"stixdc/domain/core"
)

// Units of layer thickness, in mm.
const (
	mil      = 0.0254
	angstrom = 1e-7
	nm       = 1e-6
)

// Material is an element mass-fraction mapping with a density in g/cm^3.
type Material struct {
	Composition map[string]float64
	Density     float64
}

// Layer is one slab of a named material, thickness in mm.
type Layer struct {
	Material  string
	Thickness float64
}

// Component is a named, ordered stack of layers.
type Component struct {
	Name   string
	Layers []Layer
}

// Placeholders resolved against Options when a model is built.
const (
	placeholderSolarBlack = "solarblack"
	placeholderBeryllium  = "be-s200fh"
	placeholderAlum7075   = "alum7075"
)

// Materials lists every known material.
var Materials = map[string]Material{
	"al":       {map[string]float64{"Al": 1.0}, 2.7},
	"cdte":     {map[string]float64{"Te": 0.53164, "Cd": 0.46836}, 5.85},
	"tungsten": {map[string]float64{"W": 1.0}, 19.28},
	"alum7075-max": {map[string]float64{
		"Si": 0.004, "Fe": 0.005, "Cu": 0.02, "Mn": 0.003, "Mg": 0.029,
		"Cr": 0.0028, "Ni": 0.0005, "Zn": 0.061, "Ti": 0.002, "Al": 0.8727,
	}, 2.8},
	"alum7075-mean": {map[string]float64{
		"Si": 0.002, "Fe": 0.0025, "Cu": 0.016, "Mn": 0.0015, "Mg": 0.025,
		"Cr": 0.0023, "Ni": 0.00025, "Zn": 0.056, "Ti": 0.001, "Al": 0.89345,
	}, 2.8},
	"alum7075-min": {map[string]float64{
		"Si": 0.0, "Fe": 0.0, "Cu": 0.012, "Mn": 0.0, "Mg": 0.021,
		"Cr": 0.0018, "Ni": 0.0, "Zn": 0.051, "Ti": 0.0, "Al": 0.9142,
	}, 2.8},
	"be-s200fh-max": {map[string]float64{
		"Al": 0.001, "Be": 0.98676, "O": 0.00954, "Fe": 0.0013, "Mg": 0.0008, "Si": 0.0006,
	}, 1.84},
	"be-s200fh-min": {map[string]float64{"Be": 1}, 1.85},
	"be-s200fh-mean": {map[string]float64{
		"Al": 0.0005, "Be": 0.99338, "O": 0.00477, "Fe": 0.00065, "Mg": 0.0004, "Si": 0.0003,
	}, 1.84},
	"be":                {map[string]float64{"Be": 1.0}, 1.85},
	"kapton":            {map[string]float64{"H": 0.026362, "C": 0.691133, "N": 0.073270, "O": 0.209235}, 1.43},
	"mylar":             {map[string]float64{"H": 0.041959, "C": 0.625017, "O": 0.333025}, 1.38},
	"pet":               {map[string]float64{"H": 0.041960, "C": 0.625016, "O": 0.333024}, 1.370},
	"solarblack_oxygen": {map[string]float64{"H": 0.002, "O": 0.415, "Ca": 0.396, "P": 0.187}, 3.2},
	"solarblack_carbon": {map[string]float64{"C": 0.301, "Ca": 0.503, "P": 0.195}, 3.2},
	"te_o2":             {map[string]float64{"Te": 0.7995088158691722, "O": 0.20049124678825841}, 5.670},
}

// DefaultComponents is the instrument material stack.
var DefaultComponents = []Component{
	{"front_window", []Layer{{placeholderSolarBlack, 0.005}, {placeholderBeryllium, 2}}},
	{"rear_window", []Layer{{placeholderBeryllium, 1}}},
	{"grid_covers", []Layer{{"kapton", 4 * 2 * mil}}},
	{"dem", []Layer{{"kapton", 2 * 3 * mil}, {"al", 2 * 1000 * angstrom}}},
	{"attenuator", []Layer{{placeholderAlum7075, 0.6}}},
	{"mli", []Layer{
		{"al", 1000 * angstrom},
		{"kapton", 3 * mil},
		{"al", 40 * 1000 * angstrom},
		{"mylar", 20 * 0.25 * mil},
		{"pet", 21 * 0.005},
		{"kapton", 3 * mil},
		{"al", 1000 * angstrom},
	}},
	{"calibration_foil", []Layer{{"al", 4 * 1000 * angstrom}, {"kapton", 4 * 2 * mil}}},
	{"dead_layer", []Layer{{"te_o2", 392 * nm}}},
	{"single_grid", []Layer{{"tungsten", 0.4}}},
	{"double_grid", []Layer{{"tungsten", 0.8}}},
	{"caliste", []Layer{{"cdte", 1}}},
}

// resolveMaterial maps a layer's material name to a concrete material
// according to the model options.
func resolveMaterial(name string, opts Options) string {
	switch name {
	case placeholderSolarBlack:
		return opts.SolarBlack
	case placeholderBeryllium:
		if opts.MatList == MatListOld {
			return "be"
		}
		return name + "-" + opts.MatList
	case placeholderAlum7075:
		if opts.MatList == MatListOld {
			return "al"
		}
		return name + "-" + opts.MatList
	}
	return name
}

func lookupMaterial(name string) (Material, error) {
	m, ok := Materials[name]
	if !ok {
		return Material{}, fmt.Errorf("%w: %q", core.ErrUnknownMaterial, name)
	}
	return m, nil
}
