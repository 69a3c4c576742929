package natshandler

import (
	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/datastreams"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	nats "github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Handler publishes station events as JSON on NATS subjects:
// <subject>.reading.<measurement>, <subject>.config and <subject>.snapshot.
type Handler struct {
	pid    uuid.UUID
	inbox  <-chan msg.Msg
	system msg.Publisher
	config config.NATSConfig
	log    *logrus.Logger
	stop   chan bool
}

// PID is an accessor for the process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New subscribes a Handler to system.
func New(cfg config.NATSConfig, system msg.Publisher, log *logrus.Logger) (*Handler, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	inbox, err := datastreams.Inbox(system, pid, msg.Reading, msg.Config, msg.Snapshot)
	if err != nil {
		return nil, err
	}

	return &Handler{
		pid:    pid,
		inbox:  inbox,
		system: system,
		config: cfg,
		log:    log,
		stop:   make(chan bool, 1),
	}, nil
}

func (h *Handler) subject(m msg.Msg) (string, bool) {
	switch m.Topic() {
	case msg.Reading:
		r, ok := m.Payload().(station.Reading)
		if !ok {
			return "", false
		}
		return h.config.Subject + ".reading." + r.Measurement, true
	case msg.Config, msg.Snapshot:
		return h.config.Subject + "." + m.Topic().String(), true
	}
	return "", false
}

func (h *Handler) handle(m msg.Msg, nc publisher) error {
	subject, ok := h.subject(m)
	if !ok {
		return nil
	}
	data, err := datastreams.Encode(m)
	if err != nil {
		return errors.Wrapf(err, "encode %v", m.Topic())
	}
	return errors.Wrapf(nc.Publish(subject, data), "publish %s", subject)
}

// Stop ends Process
func (h *Handler) Stop() {
	h.stop <- true
}

// Process connects to the NATS server and publishes events until Stop is
// called. The handler is unsubscribed from the system when Process returns.
func (h *Handler) Process() {
	defer h.system.Unsubscribe(h.pid)

	url := h.config.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("qinst"))
	if err != nil {
		h.log.Errorf("[NATS client] Connect: %v", err)
		return
	}
	defer nc.Close()

	h.log.Info("[NATS client] Process Started")
loop:
	for {
		select {
		case m := <-h.inbox:
			if err := h.handle(m, nc); err != nil {
				h.log.Warnf("[NATS client] %v", err)
			}
		case <-h.stop:
			break loop
		}
	}
	h.log.Info("[NATS client] Process Shutdown")
}
