package virtualvolt

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/param"
)

// VirtualVolt is a voltage output set by hand, standing in for a lock-in or
// DAC when no hardware is attached.
type VirtualVolt struct {
	pid   uuid.UUID
	name  string
	label *string
	unit  *string
	volt  float64
	noise float64
	rand  *rand.Rand
	err   error
}

// New returns a VirtualVolt from its configuration. Empty label and unit
// strings are treated as absent.
func New(cfg config.VirtualConfig) (*VirtualVolt, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	v := &VirtualVolt{
		pid:   pid,
		name:  cfg.Name,
		volt:  cfg.Volt,
		noise: cfg.Noise,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.Label != "" {
		v.label = param.Str(cfg.Label)
	}
	if cfg.Unit != "" {
		v.unit = param.Str(cfg.Unit)
	}
	return v, nil
}

// PID is an accessor for the process id
func (v *VirtualVolt) PID() uuid.UUID {
	return v.pid
}

// Name is an accessor for the parameter name
func (v *VirtualVolt) Name() string {
	return v.name
}

// Label is an accessor for the parameter label
func (v *VirtualVolt) Label() *string {
	return v.label
}

// Unit is an accessor for the parameter unit
func (v *VirtualVolt) Unit() *string {
	return v.unit
}

// Set changes the output voltage.
func (v *VirtualVolt) Set(volt float64) {
	v.volt = volt
}

// Fail makes every following Get return err, until Fail(nil).
func (v *VirtualVolt) Fail(err error) {
	v.err = err
}

// Get returns the output voltage, with gaussian noise of the configured
// standard deviation added.
func (v *VirtualVolt) Get() (float64, error) {
	if v.err != nil {
		return 0, v.err
	}
	if v.noise == 0 {
		return v.volt, nil
	}
	return v.volt + v.rand.NormFloat64()*v.noise, nil
}
