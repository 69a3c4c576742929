package currentsource

import (
	"errors"
	"testing"

	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/param"
	"gotest.tools/v3/assert"
)

type DummyVoltage struct {
	name  string
	label *string
	unit  *string
	value float64
	err   error
	reads int
}

func (d *DummyVoltage) Name() string   { return d.name }
func (d *DummyVoltage) Label() *string { return d.label }
func (d *DummyVoltage) Unit() *string  { return d.unit }

func (d *DummyVoltage) Get() (float64, error) {
	d.reads++
	if d.err != nil {
		return 0, d.err
	}
	return d.value, nil
}

func newLockin(value float64) *DummyVoltage {
	return &DummyVoltage{
		name:  "lockin",
		label: param.Str("Lock-in voltage"),
		unit:  param.Str("V"),
		value: value,
	}
}

func TestCurrentParameterMetadata(t *testing.T) {
	p := NewCurrentParameter(newLockin(0), newSource(t), "")

	assert.Equal(t, p.Name(), "curr")
	assert.DeepEqual(t, p.Names(), []string{"lockin_raw", "curr"})
	assert.Equal(t, *p.Labels()[0], "Lock-in voltage")
	assert.Equal(t, *p.Labels()[1], "Current")
	assert.Equal(t, *p.Units()[0], "V")
	assert.Equal(t, *p.Units()[1], "A")
}

func TestCurrentParameterCustomName(t *testing.T) {
	p := NewCurrentParameter(newLockin(0), newSource(t), "i_bias")
	assert.Equal(t, p.Name(), "i_bias")
	assert.DeepEqual(t, p.Names(), []string{"lockin_raw", "i_bias"})
}

func TestCurrentParameterMissingMetadata(t *testing.T) {
	volt := &DummyVoltage{name: "adc"}
	p := NewCurrentParameter(volt, newSource(t), "")

	assert.Equal(t, p.Names()[0], "adc_raw")
	assert.Assert(t, p.Labels()[0] == nil)
	assert.Assert(t, p.Units()[0] == nil)
	assert.Equal(t, *p.Labels()[1], "Current")
	assert.Equal(t, *p.Units()[1], "A")
}

func TestCurrentParameterMetadataIsCopied(t *testing.T) {
	p := NewCurrentParameter(newLockin(0), newSource(t), "")

	p.Names()[0] = "hijacked"
	*p.Labels()[1] = "Voltage"
	p.Units()[0] = nil

	assert.DeepEqual(t, p.Names(), []string{"lockin_raw", "curr"})
	assert.Equal(t, *p.Labels()[1], "Current")
	assert.Equal(t, *p.Units()[0], "V")
}

func TestReadDC(t *testing.T) {
	c := newSource(t)
	assert.NilError(t, c.SetRangeDC(1e-5))
	p := NewCurrentParameter(newLockin(2.0), c, "")

	r, err := p.ReadDC()
	assert.NilError(t, err)
	assert.Equal(t, r, Reading{Voltage: 2.0, Current: 2.0e-5})
}

func TestReadAC(t *testing.T) {
	c := newSource(t)
	assert.NilError(t, c.SetRangeAC(1e-8))
	p := NewCurrentParameter(newLockin(2.0), c, "")

	r, err := p.ReadAC()
	assert.NilError(t, err)
	assert.Equal(t, r, Reading{Voltage: 2.0, Current: 2.0e-8})
}

func TestReadFollowsRange(t *testing.T) {
	c := newSource(t)
	p := NewCurrentParameter(newLockin(-0.5), c, "")

	assert.NilError(t, c.SetRangeDC(1e-4))
	r, err := p.ReadDC()
	assert.NilError(t, err)
	assert.Equal(t, r.Current, -0.5*1e-4)

	// the selector is not consulted
	assert.NilError(t, c.SetSelector(1))
	again, err := p.ReadDC()
	assert.NilError(t, err)
	assert.Equal(t, again, r)
}

func TestReadUpstreamError(t *testing.T) {
	c := newSource(t)
	upstreamErr := errors.New("lock-in timeout")
	volt := newLockin(1)
	volt.err = upstreamErr
	p := NewCurrentParameter(volt, c, "")

	_, err := p.ReadDC()
	assert.Assert(t, err == upstreamErr)

	_, err = p.ReadAC()
	assert.Assert(t, err == upstreamErr)

	assert.Equal(t, c.Selector(), DefaultSelector)
	assert.Equal(t, c.RangeDC(), DefaultRangeDC)
	assert.Equal(t, c.RangeAC(), DefaultRangeAC)
}

func TestReadIdempotent(t *testing.T) {
	volt := newLockin(3.25)
	p := NewCurrentParameter(volt, newSource(t), "")

	first, err := p.ReadDC()
	assert.NilError(t, err)
	second, err := p.ReadDC()
	assert.NilError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, volt.reads, 2)
}

func TestReadMode(t *testing.T) {
	p := NewCurrentParameter(newLockin(2.0), newSource(t), "")

	v, err := p.Sample(instrument.DC)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{2.0, 2.0e-5})

	v, err = p.Sample(instrument.AC)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{2.0, 2.0e-8})

	_, err = p.Read(instrument.Mode("rms"))
	assert.Equal(t, err, instrument.ErrUnknownMode)
}
