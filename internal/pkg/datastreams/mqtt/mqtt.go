package mqtt

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/datastreams"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type publishFunc func(topic string, payload []byte) error

// Handler publishes station events as retained MQTT messages:
// <prefix>/<measurement>/latest, <prefix>/config/<parameter> and
// <prefix>/snapshot.
type Handler struct {
	pid    uuid.UUID
	inbox  <-chan msg.Msg
	system msg.Publisher
	config config.MQTTConfig
	log    *logrus.Logger
	stop   chan bool
}

// PID is an accessor for the process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New subscribes a Handler to system.
func New(cfg config.MQTTConfig, system msg.Publisher, log *logrus.Logger) (*Handler, error) {
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

func (h *Handler) topic(path ...string) string {
	parts := []string{strings.Trim(h.config.Prefix, "/")}
	for _, p := range path {
		parts = append(parts, strings.Trim(p, "/"))
	}
	return strings.Join(parts, "/")
}

func (h *Handler) route(m msg.Msg) (string, bool) {
	switch payload := m.Payload().(type) {
	case station.Reading:
		return h.topic(payload.Measurement, "latest"), true
	case station.Change:
		return h.topic("config", payload.Parameter), true
	case station.Snapshot:
		return h.topic("snapshot"), true
	}
	return "", false
}

func (h *Handler) handle(m msg.Msg, publish publishFunc) error {
	topic, ok := h.route(m)
	if !ok {
		return nil
	}
	data, err := datastreams.Encode(m)
	if err != nil {
		return errors.Wrapf(err, "encode %v", m.Topic())
	}
	return errors.Wrapf(publish(topic, data), "publish %s", topic)
}

// Stop ends Process
func (h *Handler) Stop() {
	h.stop <- true
}

// Process connects to the broker and publishes events until Stop is called.
// The handler is unsubscribed from the system when Process returns.
func (h *Handler) Process() {
	defer h.system.Unsubscribe(h.pid)

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", h.config.Host, h.config.Port)).
		SetUsername(h.config.User).
		SetPassword(h.config.Pass).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetClientID(h.config.ClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		h.log.Errorf("[MQTT] Connect: %v", token.Error())
		return
	}
	defer client.Disconnect(250)

	publish := func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, true, payload)
		if !token.WaitTimeout(5 * time.Second) {
			return errors.New("timeout")
		}
		return token.Error()
	}

	h.log.Info("[MQTT] Process Started")
loop:
	for {
		select {
		case m := <-h.inbox:
			if err := h.handle(m, publish); err != nil {
				h.log.Warnf("[MQTT] %v", err)
			}
		case <-h.stop:
			break loop
		}
	}
	h.log.Info("[MQTT] Process Shutdown")
}
