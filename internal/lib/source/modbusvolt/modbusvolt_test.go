package modbusvolt

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/ohowland/qinst/internal/pkg/config"
	"gotest.tools/v3/assert"
)

type DummyDevice struct {
	holding  []byte
	input    []byte
	err      error
	lastAddr uint16
	lastQty  uint16
	closed   int
}

func (d *DummyDevice) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	d.lastAddr, d.lastQty = address, quantity
	return d.holding, d.err
}

func (d *DummyDevice) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	d.lastAddr, d.lastQty = address, quantity
	return d.input, d.err
}

func testConfig() config.ModbusConfig {
	return config.ModbusConfig{
		Name:         "adc",
		Label:        "ADC voltage",
		Unit:         "V",
		IPAddr:       "127.0.0.1",
		Port:         "502",
		Timeout:      100,
		Address:      10,
		DataType:     "f32",
		FunctionCode: 4,
		Endianness:   "big",
		Gain:         1,
	}
}

func newLinkedSource(t *testing.T, cfg config.ModbusConfig, device *DummyDevice) *Source {
	s, err := New(cfg, nil)
	assert.NilError(t, err)
	s.dial = func() (registerReader, func() error, error) {
		return device, func() error { device.closed++; return nil }, nil
	}
	return s
}

func f32Bytes(v float32, order binary.ByteOrder) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, math.Float32bits(v))
	return b
}

func TestNew(t *testing.T) {
	s, err := New(testConfig(), nil)
	assert.NilError(t, err)
	assert.Equal(t, s.Name(), "adc")
	assert.Equal(t, *s.Label(), "ADC voltage")
	assert.Equal(t, *s.Unit(), "V")
}

func TestNewRejectsBadRegister(t *testing.T) {
	cfg := testConfig()
	cfg.DataType = "u128"
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "unsupported data type")

	cfg = testConfig()
	cfg.FunctionCode = 6
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "unsupported function code")
}

func TestGetInputRegister(t *testing.T) {
	device := &DummyDevice{input: f32Bytes(2.0, binary.BigEndian)}
	s := newLinkedSource(t, testConfig(), device)

	v, err := s.Get()
	assert.NilError(t, err)
	assert.Equal(t, v, 2.0)
	assert.Equal(t, device.lastAddr, uint16(10))
	assert.Equal(t, device.lastQty, uint16(2))
	assert.Equal(t, device.closed, 1)
}

func TestGetHoldingRegisterScaled(t *testing.T) {
	cfg := testConfig()
	cfg.FunctionCode = 3
	cfg.DataType = "i16"
	cfg.Gain = 0.001
	cfg.Offset = -0.5
	device := &DummyDevice{holding: []byte{0x03, 0xE8}} // 1000
	s := newLinkedSource(t, cfg, device)

	v, err := s.Get()
	assert.NilError(t, err)
	assert.Assert(t, math.Abs(v-0.5) < 1e-12)
	assert.Equal(t, device.lastQty, uint16(1))
}

func TestGetReadError(t *testing.T) {
	readErr := errors.New("exception 2")
	device := &DummyDevice{err: readErr}
	s := newLinkedSource(t, testConfig(), device)

	_, err := s.Get()
	assert.ErrorContains(t, err, "modbus read adc@10")
	assert.Assert(t, errors.Is(err, readErr))
	assert.Equal(t, device.closed, 1)
}

func TestGetShortResponse(t *testing.T) {
	device := &DummyDevice{input: []byte{0x00}}
	s := newLinkedSource(t, testConfig(), device)

	_, err := s.Get()
	assert.ErrorContains(t, err, "short response")
}

func TestGetConnectError(t *testing.T) {
	s, err := New(testConfig(), nil)
	assert.NilError(t, err)
	s.dial = func() (registerReader, func() error, error) {
		return nil, nil, errors.New("connection refused")
	}
	_, err = s.Get()
	assert.ErrorContains(t, err, "modbus connect: connection refused")
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name     string
		bytes    []byte
		register Register
		want     float64
	}{
		{"u16", []byte{0x04, 0xD2}, Register{DataType: u16, Endianness: bigEndian}, 1234},
		{"i16", []byte{0xFF, 0xFE}, Register{DataType: i16, Endianness: bigEndian}, -2},
		{"u32 little", []byte{0xD2, 0x04, 0, 0}, Register{DataType: u32, Endianness: littleEndian}, 1234},
		{"i32", []byte{0xFF, 0xFF, 0xFF, 0xFF}, Register{DataType: i32, Endianness: bigEndian}, -1},
		{"f32 little", f32Bytes(-0.25, binary.LittleEndian), Register{DataType: f32, Endianness: littleEndian}, -0.25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, decode(c.bytes, c.register), c.want)
		})
	}

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(1e-3))
	assert.Equal(t, decode(b, Register{DataType: f64}), 1e-3)
}
