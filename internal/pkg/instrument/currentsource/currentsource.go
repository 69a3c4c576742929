// Package currentsource is the driver for the Manchester Group precision
// current source. The instrument has no remote interface: its parameters mirror
// the dials on the front panel and must be kept in step with them by hand.
package currentsource

import (
	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/param"
)

// Parameter names
const (
	Selector = "selector"
	RangeDC  = "range_dc"
	RangeAC  = "range_ac"
)

var (
	selectorValues = param.NewEnum(1, 2, 3)
	rangeDCValues  = param.NewEnum(100e-6, 10e-6, 1e-6)
	rangeACValues  = param.NewEnum(100e-9, 10e-9, 1e-9)
)

// Front panel positions on power up.
const (
	DefaultSelector = 2
	DefaultRangeDC  = 10e-6
	DefaultRangeAC  = 10e-9
)

// CurrentSource holds the manually maintained settings of the current source.
// It is not safe for concurrent use.
type CurrentSource struct {
	pid      uuid.UUID
	name     string
	selector int
	rangeDC  float64
	rangeAC  float64
}

// New returns a CurrentSource at its power up settings.
func New(name string) (*CurrentSource, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	return &CurrentSource{
		pid:      pid,
		name:     name,
		selector: DefaultSelector,
		rangeDC:  DefaultRangeDC,
		rangeAC:  DefaultRangeAC,
	}, nil
}

// PID is an accessor for the process id
func (c *CurrentSource) PID() uuid.UUID {
	return c.pid
}

// Name is an accessor for the instrument name
func (c *CurrentSource) Name() string {
	return c.name
}

// IDN returns the fixed identity of the virtual instrument.
func (c *CurrentSource) IDN() instrument.Identity {
	return instrument.Identity{
		Vendor: "Manchester Group",
		Model:  "Precision Current Source",
	}
}

// Selector returns the range selector position.
func (c *CurrentSource) Selector() int {
	return c.selector
}

// SetSelector records the range selector position, one of 1, 2 or 3.
// The selector is informational; it does not change which scale factor a
// reading uses.
func (c *CurrentSource) SetSelector(v int) error {
	if err := selectorValues.Validate(Selector, float64(v)); err != nil {
		return err
	}
	c.selector = v
	return nil
}

// RangeDC returns the DC scale factor in A/V.
func (c *CurrentSource) RangeDC() float64 {
	return c.rangeDC
}

// SetRangeDC records the DC scale factor, one of 100e-6, 10e-6 or 1e-6 A/V.
func (c *CurrentSource) SetRangeDC(v float64) error {
	if err := rangeDCValues.Validate(RangeDC, v); err != nil {
		return err
	}
	c.rangeDC = v
	return nil
}

// RangeAC returns the AC scale factor in A/V.
func (c *CurrentSource) RangeAC() float64 {
	return c.rangeAC
}

// SetRangeAC records the AC scale factor, one of 100e-9, 10e-9 or 1e-9 A/V.
func (c *CurrentSource) SetRangeAC(v float64) error {
	if err := rangeACValues.Validate(RangeAC, v); err != nil {
		return err
	}
	c.rangeAC = v
	return nil
}

// Parameters lists the settable parameters with their legal values.
func (c *CurrentSource) Parameters() []param.Spec {
	return []param.Spec{
		{Name: Selector, Label: param.Str("select"), Allowed: selectorValues.Values()},
		{Name: RangeDC, Label: param.Str("DC range"), Unit: param.Str("A/V"), Allowed: rangeDCValues.Values()},
		{Name: RangeAC, Label: param.Str("AC range"), Unit: param.Str("A/V"), Allowed: rangeACValues.Values()},
	}
}

// Get returns a parameter value by name.
func (c *CurrentSource) Get(name string) (float64, error) {
	switch name {
	case Selector:
		return float64(c.selector), nil
	case RangeDC:
		return c.rangeDC, nil
	case RangeAC:
		return c.rangeAC, nil
	}
	return 0, instrument.ErrUnknownParameter
}

// Set assigns a parameter value by name. A selector value must be a whole
// member of its set; 2.5 is rejected rather than truncated.
func (c *CurrentSource) Set(name string, v float64) error {
	switch name {
	case Selector:
		if err := selectorValues.Validate(Selector, v); err != nil {
			return err
		}
		c.selector = int(v)
		return nil
	case RangeDC:
		return c.SetRangeDC(v)
	case RangeAC:
		return c.SetRangeAC(v)
	}
	return instrument.ErrUnknownParameter
}
