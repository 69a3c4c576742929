package modbusvolt

import (
	stdlog "log"
	"time"

	"github.com/goburrow/modbus"
	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/param"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// dialer opens a connection for one read and returns the reader and a close func.
type dialer func() (registerReader, func() error, error)

// Source is a voltage read from a register of a Modbus TCP device, for
// example an ADC digitizing a lock-in output.
type Source struct {
	pid      uuid.UUID
	name     string
	label    *string
	unit     *string
	register Register
	gain     float64
	offset   float64
	dial     dialer
}

// New returns a Source from its configuration. It does not connect.
func New(cfg config.ModbusConfig, log *logrus.Logger) (*Source, error) {
	register := Register{
		Address:      cfg.Address,
		DataType:     DataType(cfg.DataType),
		FunctionCode: cfg.FunctionCode,
		Endianness:   Endian(cfg.Endianness),
	}
	if sizeOf(register.DataType) == 0 {
		return nil, errors.Errorf("modbus: unsupported data type %q", cfg.DataType)
	}
	if register.FunctionCode != readHoldingRegisters && register.FunctionCode != readInputRegisters {
		return nil, errors.Errorf("modbus: unsupported function code %d", cfg.FunctionCode)
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID
	if cfg.EnableLogger && log != nil {
		handler.Logger = stdlog.New(log.WriterLevel(logrus.DebugLevel), "modbus: ", 0)
	}

	s := &Source{
		pid:      pid,
		name:     cfg.Name,
		register: register,
		gain:     cfg.Gain,
		offset:   cfg.Offset,
		dial: func() (registerReader, func() error, error) {
			if err := handler.Connect(); err != nil {
				return nil, nil, err
			}
			return modbus.NewClient(handler), handler.Close, nil
		},
	}
	if cfg.Label != "" {
		s.label = param.Str(cfg.Label)
	}
	if cfg.Unit != "" {
		s.unit = param.Str(cfg.Unit)
	}
	return s, nil
}

// PID is an accessor for the process id
func (s *Source) PID() uuid.UUID {
	return s.pid
}

// Name is an accessor for the parameter name
func (s *Source) Name() string {
	return s.name
}

// Label is an accessor for the parameter label
func (s *Source) Label() *string {
	return s.label
}

// Unit is an accessor for the parameter unit
func (s *Source) Unit() *string {
	return s.unit
}

// Get connects, reads the register once and returns gain*value + offset.
func (s *Source) Get() (float64, error) {
	client, closeFn, err := s.dial()
	if err != nil {
		return 0, errors.Wrap(err, "modbus connect")
	}
	defer closeFn()

	quantity := sizeOf(s.register.DataType)
	var resp []byte
	if s.register.FunctionCode == readInputRegisters {
		resp, err = client.ReadInputRegisters(s.register.Address, quantity)
	} else {
		resp, err = client.ReadHoldingRegisters(s.register.Address, quantity)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "modbus read %s@%d", s.name, s.register.Address)
	}
	if len(resp) < int(2*quantity) {
		return 0, errors.Errorf("modbus read %s@%d: short response of %d bytes", s.name, s.register.Address, len(resp))
	}
	return s.gain*decode(resp, s.register) + s.offset, nil
}
