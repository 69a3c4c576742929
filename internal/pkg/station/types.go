package station

import (
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/param"
)

// Reading is one completed measurement read, channels in declared order.
type Reading struct {
	Station     uuid.UUID       `json:"Station"`
	Measurement string          `json:"Measurement"`
	Mode        instrument.Mode `json:"Mode"`
	Names       []string        `json:"Names"`
	Units       []*string       `json:"Units"`
	Values      []float64       `json:"Values"`
	Time        time.Time       `json:"Time"`
}

// Change records an accepted parameter assignment.
type Change struct {
	Parameter string    `json:"Parameter"`
	Value     float64   `json:"Value"`
	Time      time.Time `json:"Time"`
}

// Snapshot is the state of the whole station at one instant.
type Snapshot struct {
	Station     uuid.UUID            `json:"Station"`
	Time        time.Time            `json:"Time"`
	Instruments []InstrumentSnapshot `json:"Instruments"`
}

// InstrumentSnapshot is the state of one instrument.
type InstrumentSnapshot struct {
	Name         string                `json:"Name"`
	PID          uuid.UUID             `json:"PID"`
	IDN          instrument.Identity   `json:"IDN"`
	Parameters   []ParameterSnapshot   `json:"Parameters"`
	Measurements []MeasurementSnapshot `json:"Measurements"`
}

// ParameterSnapshot is a parameter description with its value.
type ParameterSnapshot struct {
	param.Spec
	Value float64 `json:"Value"`
}

// MeasurementSnapshot describes a measurement and its last successful read
// with finite values.
type MeasurementSnapshot struct {
	Name   string    `json:"Name"`
	Names  []string  `json:"Names"`
	Labels []*string `json:"Labels"`
	Units  []*string `json:"Units"`
	Latest *Reading  `json:"Latest"`
}
