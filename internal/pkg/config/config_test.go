package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("./testdata/config.json")
	assert.NilError(t, err)

	assert.Equal(t, cfg.Instrument.Name, "pcs_test")
	assert.Equal(t, cfg.Instrument.CurrentName, "i_bias")
	assert.Equal(t, cfg.Source.Kind, "modbus")
	assert.Equal(t, cfg.Source.Modbus.IPAddr, "192.168.1.20")
	assert.Equal(t, cfg.Source.Modbus.Address, uint16(30))
	assert.Equal(t, cfg.Source.Modbus.FunctionCode, 3)
	assert.Equal(t, cfg.Poll.IntervalMs, 250)
	assert.Equal(t, cfg.Poll.Mode, "ac")
	assert.Equal(t, cfg.Mongo.Enabled, true)

	// defaults
	assert.Equal(t, cfg.Source.Modbus.Port, "502")
	assert.Equal(t, cfg.Source.Modbus.Endianness, "big")
	assert.Equal(t, cfg.Source.Modbus.Gain, 1.0)
	assert.Equal(t, cfg.Mongo.Database, "qinst")
	assert.Equal(t, cfg.HTTP.Addr, ":8080")
	assert.Equal(t, cfg.NATS.Enabled, false)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("./testdata/missing.json")
	assert.ErrorContains(t, err, "read config")
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Instrument.Name, "pcs")
	assert.Equal(t, cfg.Instrument.CurrentName, "")
	assert.Equal(t, cfg.Source.Kind, "virtual")
	assert.Equal(t, cfg.Source.Virtual.Name, "lockin")
	assert.Equal(t, cfg.Poll.Mode, "dc")
	assert.Equal(t, cfg.MQTT.Port, uint16(1883))
	assert.Equal(t, cfg.SQL.Port, 3306)
	assert.Equal(t, cfg.SQL.Server, "localhost")
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"Instrument":`))
	assert.ErrorContains(t, err, "parse config")
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "debug", Format: "json"})
	assert.NilError(t, err)
	assert.Equal(t, log.GetLevel(), logrus.DebugLevel)
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.Assert(t, ok)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "log level")

	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}
