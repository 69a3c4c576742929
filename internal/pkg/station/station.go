package station

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/monitor"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/ohowland/qinst/internal/pkg/param"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Lookup errors
var (
	ErrUnknownInstrument  = errors.New("unknown instrument")
	ErrUnknownMeasurement = errors.New("unknown measurement")
	ErrDuplicateName      = errors.New("name already registered")
)

// Measurement is a derived, multi-channel read owned by an instrument.
type Measurement interface {
	Name() string
	Names() []string
	Labels() []*string
	Units() []*string
	Sample(instrument.Mode) ([]float64, error)
}

type parameterBinding struct {
	inst instrument.Instrument
	spec param.Spec
}

type measurementBinding struct {
	owner  string
	m      Measurement
	latest *Reading
}

// Station composes instruments into one measurement setup. Every operation
// is serialized on the station mutex; instruments themselves are not locked.
type Station struct {
	mux          *sync.Mutex
	pid          uuid.UUID
	log          *logrus.Logger
	metrics      *monitor.Metrics
	publisher    *msg.PubSub
	now          func() time.Time
	instruments  map[string]instrument.Instrument
	order        []string
	parameters   map[string]parameterBinding
	paramOrder   []string
	measurements map[string]*measurementBinding
	measOrder    []string
}

// New returns an empty Station
func New(log *logrus.Logger, metrics *monitor.Metrics) (*Station, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = monitor.New()
	}
	return &Station{
		mux:          &sync.Mutex{},
		pid:          pid,
		log:          log,
		metrics:      metrics,
		publisher:    msg.NewPublisher(pid),
		now:          time.Now,
		instruments:  make(map[string]instrument.Instrument),
		parameters:   make(map[string]parameterBinding),
		measurements: make(map[string]*measurementBinding),
	}, nil
}

// PID is an accessor for the process id
func (s *Station) PID() uuid.UUID {
	return s.pid
}

// Subscribe returns a channel of station events on topic.
func (s *Station) Subscribe(pid uuid.UUID, topic msg.Topic) (<-chan msg.Msg, error) {
	return s.publisher.Subscribe(pid, topic)
}

// Unsubscribe closes the channels held by pid.
func (s *Station) Unsubscribe(pid uuid.UUID) {
	s.publisher.Unsubscribe(pid)
}

func qualify(owner, name string) string {
	return owner + "." + name
}

// AddInstrument registers inst and its parameters as "<instrument>.<parameter>".
func (s *Station) AddInstrument(inst instrument.Instrument) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	name := inst.Name()
	if _, ok := s.instruments[name]; ok {
		return errors.Wrap(ErrDuplicateName, name)
	}
	s.instruments[name] = inst
	s.order = append(s.order, name)

	for _, spec := range inst.Parameters() {
		key := qualify(name, spec.Name)
		s.parameters[key] = parameterBinding{inst, spec}
		s.paramOrder = append(s.paramOrder, key)
		if v, err := inst.Get(spec.Name); err == nil {
			s.metrics.ParameterValue.WithLabelValues(key).Set(v)
		}
	}
	s.log.WithFields(logrus.Fields{
		"instrument": name,
		"pid":        inst.PID(),
	}).Info("[Station] Added instrument")
	return nil
}

// AddMeasurement registers m as "<owner>.<measurement>". The owner must be a
// registered instrument.
func (s *Station) AddMeasurement(owner string, m Measurement) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.instruments[owner]; !ok {
		return errors.Wrap(ErrUnknownInstrument, owner)
	}
	key := qualify(owner, m.Name())
	if _, ok := s.measurements[key]; ok {
		return errors.Wrap(ErrDuplicateName, key)
	}
	if _, ok := s.parameters[key]; ok {
		return errors.Wrap(ErrDuplicateName, key)
	}
	s.measurements[key] = &measurementBinding{owner: owner, m: m}
	s.measOrder = append(s.measOrder, key)
	s.log.WithFields(logrus.Fields{
		"measurement": key,
		"channels":    m.Names(),
	}).Info("[Station] Added measurement")
	return nil
}

// IDN returns the identity of a registered instrument.
func (s *Station) IDN(name string) (instrument.Identity, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	inst, ok := s.instruments[name]
	if !ok {
		return instrument.Identity{}, errors.Wrap(ErrUnknownInstrument, name)
	}
	return inst.IDN(), nil
}

// Parameters lists the registered parameter names in registration order.
func (s *Station) Parameters() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	names := make([]string, len(s.paramOrder))
	copy(names, s.paramOrder)
	return names
}

// Measurements lists the registered measurement names in registration order.
func (s *Station) Measurements() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	names := make([]string, len(s.measOrder))
	copy(names, s.measOrder)
	return names
}

// Get returns the value of a registered parameter.
func (s *Station) Get(name string) (float64, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	b, ok := s.parameters[name]
	if !ok {
		return 0, errors.Wrap(instrument.ErrUnknownParameter, name)
	}
	return b.inst.Get(b.spec.Name)
}

// Set assigns a registered parameter. A *param.ValidationError from the
// instrument is returned as is, with the parameter unchanged.
func (s *Station) Set(name string, v float64) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	b, ok := s.parameters[name]
	if !ok {
		return errors.Wrap(instrument.ErrUnknownParameter, name)
	}

	if err := b.inst.Set(b.spec.Name, v); err != nil {
		var verr *param.ValidationError
		if errors.As(err, &verr) {
			s.metrics.ValidationErrors.WithLabelValues(name).Inc()
		}
		s.log.WithFields(logrus.Fields{
			"parameter": name,
			"value":     v,
		}).Warnf("[Station] Set rejected: %v", err)
		return err
	}

	s.metrics.ParameterValue.WithLabelValues(name).Set(v)
	s.log.WithFields(logrus.Fields{
		"parameter": name,
		"value":     v,
	}).Info("[Station] Set")
	s.publisher.Publish(msg.Config, Change{Parameter: name, Value: v, Time: s.now()})
	return nil
}

// Read performs one read of a registered measurement. Upstream errors are
// returned unchanged.
func (s *Station) Read(name string, mode instrument.Mode) (Reading, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	b, ok := s.measurements[name]
	if !ok {
		return Reading{}, errors.Wrap(ErrUnknownMeasurement, name)
	}

	start := s.now()
	values, err := b.m.Sample(mode)
	s.metrics.ObserveRead(name, string(mode), start, err)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"measurement": name,
			"mode":        mode,
		}).Warnf("[Station] Read failed: %v", err)
		return Reading{}, err
	}

	r := Reading{
		Station:     s.pid,
		Measurement: name,
		Mode:        mode,
		Names:       b.m.Names(),
		Units:       b.m.Units(),
		Values:      values,
		Time:        start,
	}
	if finite(values) {
		b.latest = &r
	} else {
		s.log.WithFields(logrus.Fields{
			"measurement": name,
			"values":      fmt.Sprint(values),
		}).Warn("[Station] Non-finite reading not kept as latest")
	}
	s.log.WithFields(logrus.Fields{
		"measurement": name,
		"mode":        mode,
		"values":      fmt.Sprint(values),
	}).Debug("[Station] Read")
	s.publisher.Publish(msg.Reading, r)
	return r, nil
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Snapshot captures the identity, parameter values and measurement metadata
// of every registered instrument.
func (s *Station) Snapshot() Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()

	snap := Snapshot{Station: s.pid, Time: s.now()}
	for _, name := range s.order {
		inst := s.instruments[name]
		is := InstrumentSnapshot{
			Name: name,
			PID:  inst.PID(),
			IDN:  inst.IDN(),
		}
		for _, spec := range inst.Parameters() {
			v, err := inst.Get(spec.Name)
			if err != nil {
				s.log.WithField("parameter", qualify(name, spec.Name)).
					Warnf("[Station] Snapshot get failed: %v", err)
				continue
			}
			is.Parameters = append(is.Parameters, ParameterSnapshot{Spec: spec, Value: v})
		}
		for _, key := range s.measOrder {
			b := s.measurements[key]
			if b.owner != name {
				continue
			}
			is.Measurements = append(is.Measurements, MeasurementSnapshot{
				Name:   b.m.Name(),
				Names:  b.m.Names(),
				Labels: b.m.Labels(),
				Units:  b.m.Units(),
				Latest: b.latest,
			})
		}
		snap.Instruments = append(snap.Instruments, is)
	}
	return snap
}

// PublishSnapshot takes a Snapshot and sends it to Snapshot subscribers.
func (s *Station) PublishSnapshot() Snapshot {
	snap := s.Snapshot()
	s.publisher.Publish(msg.Snapshot, snap)
	return snap
}

// Poll reads measurement name every interval until ctx is done. Failed reads
// are logged and the loop carries on.
func (s *Station) Poll(ctx context.Context, name string, mode instrument.Mode, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.WithFields(logrus.Fields{
		"measurement": name,
		"mode":        mode,
		"interval":    interval.String(),
	}).Info("[Station] Poll started")
loop:
	for {
		select {
		case <-ticker.C:
			if _, err := s.Read(name, mode); errors.Cause(err) == ErrUnknownMeasurement {
				s.log.WithField("measurement", name).Error("[Station] Poll stopping")
				break loop
			}
		case <-ctx.Done():
			break loop
		}
	}
	s.log.WithField("measurement", name).Info("[Station] Poll shutdown")
}
