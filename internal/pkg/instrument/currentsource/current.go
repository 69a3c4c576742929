package currentsource

import (
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/param"
)

// DefaultCurrentName is the output name used when none is given.
const DefaultCurrentName = "curr"

// Ranger is the source of the scale factors applied to a voltage reading.
type Ranger interface {
	RangeDC() float64
	RangeAC() float64
}

// Reading is one voltage sample and the current it drives through the source.
type Reading struct {
	Voltage float64 `json:"Voltage"`
	Current float64 `json:"Current"`
}

// Values returns the reading in channel order.
func (r Reading) Values() []float64 {
	return []float64{r.Voltage, r.Current}
}

// CurrentParameter converts the voltage sourced by another instrument (a
// lock-in output, say) into the current delivered by the current source.
type CurrentParameter struct {
	name     string
	measured param.Readable
	ranges   Ranger
	names    [2]string
	labels   [2]*string
	units    [2]*string
}

// NewCurrentParameter binds a measured voltage to the scale factors of
// ranges. An empty name selects DefaultCurrentName. The output channels are
// named "<measured>_raw" and name.
func NewCurrentParameter(measured param.Readable, ranges Ranger, name string) *CurrentParameter {
	if name == "" {
		name = DefaultCurrentName
	}
	return &CurrentParameter{
		name:     name,
		measured: measured,
		ranges:   ranges,
		names:    [2]string{measured.Name() + "_raw", name},
		labels:   [2]*string{measured.Label(), param.Str("Current")},
		units:    [2]*string{measured.Unit(), param.Str("A")},
	}
}

// Name returns the name of the parameter as a whole.
func (p *CurrentParameter) Name() string {
	return p.name
}

// Names returns a copy of the output channel names.
func (p *CurrentParameter) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names[:])
	return names
}

// Labels returns the output channel labels; the first is nil when the
// measured parameter has no label.
func (p *CurrentParameter) Labels() []*string {
	return copyStrings(p.labels)
}

// Units returns the output channel units; the first is nil when the
// measured parameter has no unit.
func (p *CurrentParameter) Units() []*string {
	return copyStrings(p.units)
}

// copyStrings copies the pointed-to values too, so callers cannot edit the
// metadata through the returned pointers.
func copyStrings(in [2]*string) []*string {
	out := make([]*string, len(in))
	for i, s := range in {
		if s != nil {
			out[i] = param.Str(*s)
		}
	}
	return out
}

// ReadDC reads the measured voltage and scales it by the DC range.
func (p *CurrentParameter) ReadDC() (Reading, error) {
	volt, err := p.measured.Get()
	if err != nil {
		return Reading{}, err
	}
	return Reading{Voltage: volt, Current: p.ranges.RangeDC() * volt}, nil
}

// ReadAC reads the measured voltage and scales it by the AC range.
func (p *CurrentParameter) ReadAC() (Reading, error) {
	volt, err := p.measured.Get()
	if err != nil {
		return Reading{}, err
	}
	return Reading{Voltage: volt, Current: p.ranges.RangeAC() * volt}, nil
}

// Read dispatches to ReadDC or ReadAC.
func (p *CurrentParameter) Read(mode instrument.Mode) (Reading, error) {
	switch mode {
	case instrument.DC:
		return p.ReadDC()
	case instrument.AC:
		return p.ReadAC()
	}
	return Reading{}, instrument.ErrUnknownMode
}

// Sample is Read flattened to channel order, for the hosting layer.
func (p *CurrentParameter) Sample(mode instrument.Mode) ([]float64, error) {
	r, err := p.Read(mode)
	if err != nil {
		return nil, err
	}
	return r.Values(), nil
}
