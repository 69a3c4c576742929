package mongodb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/datastreams"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	Readings  = "readings"
	Changes   = "changes"
	Snapshots = "snapshots"
)

type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Handler records station events: every reading and parameter change is
// appended, the latest snapshot is kept per station.
type Handler struct {
	pid    uuid.UUID
	inbox  <-chan msg.Msg
	system msg.Publisher
	config config.MongoConfig
	log    *logrus.Logger
	stop   chan bool
}

// New subscribes a Handler to system.
func New(cfg config.MongoConfig, system msg.Publisher, log *logrus.Logger) (*Handler, error) {
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

// PID is an accessor for the process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// toDocument converts a payload to a BSON document through its JSON form,
// so uuids and optional strings are stored the way the HTTP surface shows them.
func toDocument(payload interface{}) (bson.M, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (h *Handler) handle(ctx context.Context, m msg.Msg, db map[string]collection) error {
	doc, err := toDocument(m.Payload())
	if err != nil {
		return errors.Wrapf(err, "encode %v", m.Topic())
	}

	switch m.Topic() {
	case msg.Reading:
		_, err = db[Readings].InsertOne(ctx, doc)
	case msg.Config:
		doc["station"] = m.PID().String()
		_, err = db[Changes].InsertOne(ctx, doc)
	case msg.Snapshot:
		opts := options.Update().SetUpsert(true)
		_, err = db[Snapshots].UpdateOne(
			ctx,
			bson.M{"Station": m.PID().String()},
			bson.D{{Key: "$set", Value: doc}},
			opts,
		)
	default:
		return nil
	}
	return errors.Wrapf(err, "mongo %v", m.Topic())
}

// Stop ends Process
func (h *Handler) Stop() {
	h.stop <- true
}

// Process connects to MongoDB and writes events until Stop is called. The
// handler is unsubscribed from the system when Process returns.
func (h *Handler) Process() {
	defer h.system.Unsubscribe(h.pid)

	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI + ":" + h.config.Port))
	if err != nil {
		h.log.Errorf("[Mongo] Client: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	err = client.Connect(ctx)
	cancel()
	if err != nil {
		h.log.Errorf("[Mongo] Connect: %v", err)
		return
	}
	defer client.Disconnect(context.Background())

	database := client.Database(h.config.Database)
	db := map[string]collection{
		Readings:  database.Collection(Readings),
		Changes:   database.Collection(Changes),
		Snapshots: database.Collection(Snapshots),
	}

	h.log.Info("[Mongo] Process Started")
loop:
	for {
		select {
		case m := <-h.inbox:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := h.handle(ctx, m, db); err != nil {
				h.log.Warnf("[Mongo] %v", err)
			}
			cancel()
		case <-h.stop:
			break loop
		}
	}
	h.log.Info("[Mongo] Process Shutdown")
}
