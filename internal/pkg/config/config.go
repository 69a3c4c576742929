package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config is the station configuration file
type Config struct {
	Instrument InstrumentConfig `json:"Instrument"`
	Source     SourceConfig     `json:"Source"`
	Poll       PollConfig       `json:"Poll"`
	Log        LogConfig        `json:"Log"`
	HTTP       HTTPConfig       `json:"HTTP"`
	Mongo      MongoConfig      `json:"Mongo"`
	NATS       NATSConfig       `json:"NATS"`
	MQTT       MQTTConfig       `json:"MQTT"`
	SQL        SQLConfig        `json:"SQL"`
}

// InstrumentConfig names the current source and its derived current output.
type InstrumentConfig struct {
	Name        string `json:"Name"`
	CurrentName string `json:"CurrentName"`
}

// SourceConfig selects the voltage input feeding the current source.
type SourceConfig struct {
	Kind    string        `json:"Kind"`
	Virtual VirtualConfig `json:"Virtual"`
	Modbus  ModbusConfig  `json:"Modbus"`
}

// VirtualConfig configures a manually set voltage.
type VirtualConfig struct {
	Name  string  `json:"Name"`
	Label string  `json:"Label"`
	Unit  string  `json:"Unit"`
	Volt  float64 `json:"Volt"`
	Noise float64 `json:"Noise"`
}

// ModbusConfig configures a voltage read from a Modbus TCP register.
type ModbusConfig struct {
	Name         string  `json:"Name"`
	Label        string  `json:"Label"`
	Unit         string  `json:"Unit"`
	IPAddr       string  `json:"IPAddr"`
	Port         string  `json:"Port"`
	SlaveID      byte    `json:"SlaveID"`
	Timeout      int     `json:"Timeout"`
	Address      uint16  `json:"Address"`
	DataType     string  `json:"DataType"`
	FunctionCode int     `json:"FunctionCode"`
	Endianness   string  `json:"Endianness"`
	Gain         float64 `json:"Gain"`
	Offset       float64 `json:"Offset"`
	EnableLogger bool    `json:"EnableLogger"`
}

// PollConfig drives the periodic measurement loop. A zero interval disables it.
type PollConfig struct {
	IntervalMs int    `json:"IntervalMs"`
	Mode       string `json:"Mode"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"Level"`
	Format string `json:"Format"`
}

// HTTPConfig configures the operator panel.
type HTTPConfig struct {
	Addr string `json:"Addr"`
}

// MongoConfig configures the snapshot recorder.
type MongoConfig struct {
	Enabled  bool   `json:"Enabled"`
	URI      string `json:"URI"`
	Port     string `json:"Port"`
	Database string `json:"Database"`
}

// NATSConfig configures the NATS reading stream.
type NATSConfig struct {
	Enabled bool   `json:"Enabled"`
	URL     string `json:"URL"`
	Subject string `json:"Subject"`
}

// MQTTConfig configures the MQTT reading stream.
type MQTTConfig struct {
	Enabled  bool   `json:"Enabled"`
	Host     string `json:"Host"`
	Port     uint16 `json:"Port"`
	User     string `json:"User"`
	Pass     string `json:"Pass"`
	Prefix   string `json:"Prefix"`
	ClientID string `json:"ClientID"`
}

// SQLConfig configures the MySQL reading log.
type SQLConfig struct {
	Enabled  bool   `json:"Enabled"`
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
}

// Load reads the JSON configuration at path and fills in defaults.
func Load(path string) (Config, error) {
	jsonConfig, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return Parse(jsonConfig)
}

// Parse decodes a JSON configuration and fills in defaults.
func Parse(jsonConfig []byte) (Config, error) {
	cfg := Config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Instrument.Name == "" {
		c.Instrument.Name = "pcs"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "virtual"
	}
	if c.Source.Virtual.Name == "" {
		c.Source.Virtual.Name = "lockin"
	}
	if c.Source.Modbus.Name == "" {
		c.Source.Modbus.Name = "adc"
	}
	if c.Source.Modbus.Port == "" {
		c.Source.Modbus.Port = "502"
	}
	if c.Source.Modbus.DataType == "" {
		c.Source.Modbus.DataType = "f32"
	}
	if c.Source.Modbus.FunctionCode == 0 {
		c.Source.Modbus.FunctionCode = 4
	}
	if c.Source.Modbus.Endianness == "" {
		c.Source.Modbus.Endianness = "big"
	}
	if c.Source.Modbus.Gain == 0 {
		c.Source.Modbus.Gain = 1
	}
	if c.Source.Modbus.Timeout == 0 {
		c.Source.Modbus.Timeout = 1000
	}
	if c.Poll.Mode == "" {
		c.Poll.Mode = "dc"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "qinst"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "qinst"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "qinst"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "qinst"
	}
	if c.SQL.Server == "" {
		c.SQL.Server = "localhost"
	}
	if c.SQL.Port == 0 {
		c.SQL.Port = 3306
	}
	if c.SQL.Database == "" {
		c.SQL.Database = "qinst"
	}
}

// NewLogger builds the process logger.
func NewLogger(cfg LogConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}
	return log, nil
}
