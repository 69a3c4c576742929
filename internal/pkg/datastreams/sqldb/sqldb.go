package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/datastreams"
	"github.com/ohowland/qinst/internal/pkg/msg"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const createReadings = `CREATE TABLE IF NOT EXISTS readings(
	station CHAR(36) NOT NULL,
	measurement VARCHAR(128) NOT NULL,
	mode VARCHAR(8) NOT NULL,
	channel VARCHAR(128) NOT NULL,
	unit VARCHAR(16) NULL,
	value DOUBLE NOT NULL,
	taken DATETIME(6) NOT NULL,
	INDEX (measurement, taken))`

const createChanges = `CREATE TABLE IF NOT EXISTS changes(
	station CHAR(36) NOT NULL,
	parameter VARCHAR(128) NOT NULL,
	value DOUBLE NOT NULL,
	changed DATETIME(6) NOT NULL)`

const insertReading = `INSERT INTO readings (station, measurement, mode, channel, unit, value, taken) VALUES (?, ?, ?, ?, ?, ?, ?)`

const insertChange = `INSERT INTO changes (station, parameter, value, changed) VALUES (?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Handler logs readings, one row per channel, and parameter changes to MySQL.
type Handler struct {
	pid    uuid.UUID
	inbox  <-chan msg.Msg
	system msg.Publisher
	config config.SQLConfig
	log    *logrus.Logger
	stop   chan bool
}

// PID is an accessor for the process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New subscribes a Handler to system.
func New(cfg config.SQLConfig, system msg.Publisher, log *logrus.Logger) (*Handler, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	inbox, err := datastreams.Inbox(system, pid, msg.Reading, msg.Config)
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

// DSN returns the driver data source name for the configured server.
func (h *Handler) DSN() string {
	c := mysql.NewConfig()
	c.User = h.config.Username
	c.Passwd = h.config.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%v:%v", h.config.Server, h.config.Port)
	c.DBName = h.config.Database
	c.ParseTime = true
	return c.FormatDSN()
}

// DB opens the database handle. It does not connect.
func (h *Handler) DB() (*sql.DB, error) {
	return sql.Open("mysql", h.DSN())
}

func initDBTables(ctx context.Context, db execer) error {
	for _, stmt := range []string{createReadings, createChanges} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (h *Handler) handle(ctx context.Context, m msg.Msg, db execer) error {
	switch payload := m.Payload().(type) {
	case station.Reading:
		for i, v := range payload.Values {
			var channel string
			var unit *string
			if i < len(payload.Names) {
				channel = payload.Names[i]
			}
			if i < len(payload.Units) {
				unit = payload.Units[i]
			}
			_, err := db.ExecContext(ctx, insertReading,
				payload.Station.String(),
				payload.Measurement,
				string(payload.Mode),
				channel,
				nullString(unit),
				v,
				payload.Time.UTC(),
			)
			if err != nil {
				return errors.Wrapf(err, "insert reading %s", channel)
			}
		}
	case station.Change:
		_, err := db.ExecContext(ctx, insertChange,
			m.PID().String(),
			payload.Parameter,
			payload.Value,
			payload.Time.UTC(),
		)
		return errors.Wrapf(err, "insert change %s", payload.Parameter)
	}
	return nil
}

// Stop ends Process
func (h *Handler) Stop() {
	h.stop <- true
}

// Process opens the database, creates the tables and logs events until
// Stop is called. The handler is unsubscribed from the system when Process
// returns.
func (h *Handler) Process() {
	defer h.system.Unsubscribe(h.pid)

	db, err := h.DB()
	if err != nil {
		h.log.Errorf("[SQL] Open: %v", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = initDBTables(ctx, db)
	cancel()
	if err != nil {
		h.log.Errorf("[SQL] Init tables: %v", err)
		return
	}

	h.log.Info("[SQL] Process Started")
loop:
	for {
		select {
		case m := <-h.inbox:
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
			if err := h.handle(ctx, m, db); err != nil {
				h.log.Warnf("[SQL] %v", err)
			}
			cancel()
		case <-h.stop:
			break loop
		}
	}
	h.log.Info("[SQL] Process Shutdown")
}
