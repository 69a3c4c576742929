package instrument

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/param"
)

// ErrUnknownParameter is returned for a by-name access to a parameter the
// instrument does not declare.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrUnknownMode is returned when a read mode cannot be parsed.
var ErrUnknownMode = errors.New("unknown read mode")

// Identifier is the interface for objects with a process id and a name.
type Identifier interface {
	PID() uuid.UUID
	Name() string
}

// Instrument is the interface the hosting layer registers and snapshots.
type Instrument interface {
	Identifier
	IDN() Identity
	Parameters() []param.Spec
	Get(name string) (float64, error)
	Set(name string, v float64) error
}

// Identity is the *IDN? record of an instrument. Serial and Firmware are nil
// when the instrument has no way of reporting them.
type Identity struct {
	Vendor   string  `json:"vendor"`
	Model    string  `json:"model"`
	Serial   *string `json:"serial"`
	Firmware *string `json:"firmware"`
}

// Mode selects which operating range a derived measurement uses.
type Mode string

// Read modes
const (
	DC Mode = "dc"
	AC Mode = "ac"
)

// ParseMode maps "dc"/"ac" (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case DC:
		return DC, nil
	case AC:
		return AC, nil
	}
	return "", ErrUnknownMode
}
