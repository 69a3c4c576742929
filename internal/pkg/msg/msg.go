package msg

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Topic is the category of a message
type Topic int

// Topics
const (
	Reading Topic = iota
	Config
	Snapshot
)

func (t Topic) String() string {
	switch t {
	case Reading:
		return "reading"
	case Config:
		return "config"
	case Snapshot:
		return "snapshot"
	}
	return "unknown"
}

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is a payload tagged with its sender and topic
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the message topic
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// ErrDuplicateSubscriber is returned when a pid subscribes twice to one topic.
var ErrDuplicateSubscriber = errors.New("subscriber already registered for topic")

// PubSub fans published messages out to subscribers. A subscriber that is not
// ready to receive drops the message.
type PubSub struct {
	mux         *sync.Mutex
	pid         uuid.UUID
	subscribers map[Topic]map[uuid.UUID]chan Msg
	depth       int
}

// NewPublisher returns a PubSub sending as pid
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:         &sync.Mutex{},
		pid:         pid,
		subscribers: make(map[Topic]map[uuid.UUID]chan Msg),
		depth:       16,
	}
}

// Subscribe returns a read only channel for messages on topic.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	subs, ok := p.subscribers[topic]
	if !ok {
		subs = make(map[uuid.UUID]chan Msg)
		p.subscribers[topic] = subs
	}
	if _, ok := subs[pid]; ok {
		return nil, ErrDuplicateSubscriber
	}
	ch := make(chan Msg, p.depth)
	subs[pid] = ch
	return ch, nil
}

// Unsubscribe closes every channel held by pid.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, subs := range p.subscribers {
		if ch, ok := subs[pid]; ok {
			delete(subs, pid)
			close(ch)
		}
	}
}

// Publish sends payload to every subscriber of topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.mux.Lock()
	defer p.mux.Unlock()
	m := New(p.pid, topic, payload)
	for _, ch := range p.subscribers[topic] {
		select {
		case ch <- m:
		default:
		}
	}
}
