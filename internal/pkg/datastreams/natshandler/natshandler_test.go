package natshandler

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

type DummyConn struct {
	subjects []string
	data     [][]byte
	err      error
}

func (c *DummyConn) Publish(subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.data = append(c.data, data)
	return c.err
}

func newHandler(t *testing.T) *Handler {
	log := logrus.New()
	log.SetOutput(ioutil.Discard)
	h, err := New(config.NATSConfig{Subject: "lab1"}, msg.NewPublisher(uuid.New()), log)
	assert.NilError(t, err)
	return h
}

func TestHandleReading(t *testing.T) {
	h := newHandler(t)
	nc := &DummyConn{}

	r := station.Reading{Measurement: "pcs.curr", Mode: instrument.AC, Values: []float64{2, 2e-8}}
	assert.NilError(t, h.handle(msg.New(uuid.New(), msg.Reading, r), nc))
	assert.DeepEqual(t, nc.subjects, []string{"lab1.reading.pcs.curr"})

	got := station.Reading{}
	assert.NilError(t, json.Unmarshal(nc.data[0], &got))
	assert.DeepEqual(t, got.Values, []float64{2, 2e-8})
	assert.Equal(t, got.Mode, instrument.AC)
}

func TestHandleConfigAndSnapshot(t *testing.T) {
	h := newHandler(t)
	nc := &DummyConn{}

	assert.NilError(t, h.handle(msg.New(uuid.New(), msg.Config, station.Change{Parameter: "pcs.selector", Value: 3}), nc))
	assert.NilError(t, h.handle(msg.New(uuid.New(), msg.Snapshot, station.Snapshot{}), nc))
	assert.DeepEqual(t, nc.subjects, []string{"lab1.config", "lab1.snapshot"})
}

func TestHandleUnknownPayload(t *testing.T) {
	h := newHandler(t)
	nc := &DummyConn{}
	assert.NilError(t, h.handle(msg.New(uuid.New(), msg.Reading, 1.0), nc))
	assert.Equal(t, len(nc.subjects), 0)
}

func TestHandlePublishError(t *testing.T) {
	h := newHandler(t)
	nc := &DummyConn{err: errors.New("nats: connection closed")}
	err := h.handle(msg.New(uuid.New(), msg.Config, station.Change{}), nc)
	assert.ErrorContains(t, err, "publish lab1.config: nats: connection closed")
}

func TestProcessUnsubscribesOnConnectFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(ioutil.Discard)
	pub := msg.NewPublisher(uuid.New())
	h, err := New(config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "lab1"}, pub, log)
	assert.NilError(t, err)

	done := make(chan struct{})
	go func() {
		h.Process()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Process did not return on connect failure")
	}

	_, err = pub.Subscribe(h.PID(), msg.Reading)
	assert.NilError(t, err)
	h.Stop()
}
