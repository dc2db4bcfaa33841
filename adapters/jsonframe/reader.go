// Package jsonframe reads science frames from the JSON documents served by
// the data center and writes run reports as JSON.
package jsonframe

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/science"
	"stixdc/internal/errors"
)

// Field paths inside a frame document
const (
	FieldRequestID = "request_id"
	FieldT0        = "t0"
	FieldTime      = "time"
	FieldTimeDel   = "timedel"
	FieldCounts    = "counts"
	FieldTriggers  = "triggers"
	FieldRCR       = "rcr"
	FieldMask      = "energy_bin_mask"
	FieldEnergies  = "energy_bins"
)

// t0Aliases are accepted in place of FieldT0
var t0Aliases = []string{FieldT0, "T0_utc", "start_utc"}

// FrameReader implements FrameReaderPort for JSON frame documents
type FrameReader struct {
	source func() ([]byte, error)
	// DataPath selects the frame object inside the document; empty means
	// "data" when present, else the root
	DataPath string
}

// NewFileReader reads the document at path
func NewFileReader(path string) *FrameReader {
	return &FrameReader{source: func() ([]byte, error) { return os.ReadFile(path) }}
}

// NewReader reads the document from r on first use
func NewReader(r io.Reader) *FrameReader {
	return &FrameReader{source: func() ([]byte, error) { return io.ReadAll(r) }}
}

// ReadFrame parses the document into a frame
func (r *FrameReader) ReadFrame(ctx context.Context) (*science.Frame, error) {
	body, err := r.source()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, err := ParseFrame(body, r.DataPath)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// ParseFrame extracts a frame from a JSON document
func ParseFrame(body []byte, dataPath string) (*science.Frame, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.InvalidInput("frame document is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	if dataPath == "" {
		if d := doc.Get("data"); d.IsObject() {
			doc = d
		}
	} else {
		doc = doc.Get(dataPath)
		if !doc.Exists() {
			return nil, errors.InvalidInput(fmt.Sprintf("data path '%s' not found in document", dataPath))
		}
	}
	if !doc.IsObject() {
		return nil, errors.InvalidInput("frame document is not an object")
	}

	frame, err := parseFields(doc)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if err := frame.Validate(); err != nil {
		return nil, errors.DataInconsistent(err)
	}
	return frame, nil
}

func parseFields(doc gjson.Result) (*science.Frame, error) {
	frame := &science.Frame{EnergyBins: instrument.NominalEnergyBins()}

	var t0 gjson.Result
	for _, key := range t0Aliases {
		if t0 = doc.Get(key); t0.Exists() {
			break
		}
	}
	if !t0.Exists() {
		return nil, fmt.Errorf("missing field %s", FieldT0)
	}
	parsed, err := core.ParseUTC(t0.String())
	if err != nil {
		return nil, err
	}
	frame.T0 = parsed

	if id := doc.Get(FieldRequestID); id.Exists() {
		frame.RequestID = core.RequestID(id.String())
	}

	if frame.Time, err = floats(doc.Get(FieldTime), FieldTime); err != nil {
		return nil, err
	}
	if frame.TimeDel, err = floats(doc.Get(FieldTimeDel), FieldTimeDel); err != nil {
		return nil, err
	}

	if rcr := doc.Get(FieldRCR); rcr.Exists() {
		for _, v := range rcr.Array() {
			frame.RCR = append(frame.RCR, int(v.Int()))
		}
	}

	if frame.Triggers, err = parseTriggers(doc.Get(FieldTriggers)); err != nil {
		return nil, err
	}
	if frame.Counts, err = parseCounts(doc.Get(FieldCounts)); err != nil {
		return nil, err
	}

	if frame.EnergyBinMask, err = parseMask(doc.Get(FieldMask)); err != nil {
		return nil, err
	}

	if eb := doc.Get(FieldEnergies); eb.Exists() {
		rows := eb.Array()
		if len(rows) != instrument.NumEnergies {
			return nil, core.NewShapeError(FieldEnergies, len(rows), instrument.NumEnergies)
		}
		for c, row := range rows {
			pair := row.Array()
			if len(pair) != 2 {
				return nil, core.NewShapeError(fmt.Sprintf("%s[%d]", FieldEnergies, c), len(pair), 2)
			}
			frame.EnergyBins[c] = [2]float64{number(pair[0]), number(pair[1])}
		}
	}
	return frame, nil
}

func floats(v gjson.Result, field string) ([]float64, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("field %s must be an array", field)
	}
	arr := v.Array()
	out := make([]float64, len(arr))
	for i, x := range arr {
		out[i] = number(x)
	}
	return out, nil
}

// number reads a JSON number; the strings "inf" and "nan" written by some
// exporters are accepted too
func number(v gjson.Result) float64 {
	if v.Type == gjson.String {
		switch strings.ToLower(v.String()) {
		case "inf", "+inf", "infinity":
			return math.Inf(1)
		case "-inf":
			return math.Inf(-1)
		case "nan":
			return math.NaN()
		}
	}
	return v.Float()
}

func parseTriggers(v gjson.Result) ([]science.TriggerCounts, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("field %s must be an array", FieldTriggers)
	}
	rows := v.Array()
	out := make([]science.TriggerCounts, len(rows))
	for t, row := range rows {
		vals := row.Array()
		if len(vals) != instrument.NumTriggerGroups {
			return nil, core.NewShapeError(fmt.Sprintf("%s[%d]", FieldTriggers, t), len(vals), instrument.NumTriggerGroups)
		}
		for g, x := range vals {
			out[t][g] = number(x)
		}
	}
	return out, nil
}

func parseCounts(v gjson.Result) ([]science.PixelCounts, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("field %s must be an array", FieldCounts)
	}
	bins := v.Array()
	out := make([]science.PixelCounts, len(bins))
	for t, bin := range bins {
		dets := bin.Array()
		if len(dets) != instrument.NumDetectors {
			return nil, core.NewShapeError(fmt.Sprintf("%s[%d]", FieldCounts, t), len(dets), instrument.NumDetectors)
		}
		for d, det := range dets {
			pixels := det.Array()
			if len(pixels) != instrument.NumPixels {
				return nil, core.NewShapeError(fmt.Sprintf("%s[%d][%d]", FieldCounts, t, d), len(pixels), instrument.NumPixels)
			}
			for p, pix := range pixels {
				energies := pix.Array()
				if len(energies) != instrument.NumEnergies {
					return nil, core.NewShapeError(fmt.Sprintf("%s[%d][%d][%d]", FieldCounts, t, d, p), len(energies), instrument.NumEnergies)
				}
				for e, x := range energies {
					out[t][d][p][e] = number(x)
				}
			}
		}
	}
	return out, nil
}

// parseMask accepts a 0/1 array, a boolean array or a 0/1 string; an absent
// mask enables every channel
func parseMask(v gjson.Result) (science.Mask, error) {
	if !v.Exists() {
		return science.FullMask(), nil
	}
	var bits []int
	if v.Type == gjson.String {
		for _, c := range v.String() {
			bits = append(bits, int(c-'0'))
		}
	} else {
		for _, x := range v.Array() {
			if x.Bool() || x.Int() != 0 {
				bits = append(bits, 1)
			} else {
				bits = append(bits, 0)
			}
		}
	}
	return science.MaskFromInts(bits)
}
