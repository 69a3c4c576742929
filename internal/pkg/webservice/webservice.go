package webservice

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/param"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// System is the station surface served over HTTP.
type System interface {
	IDN(string) (instrument.Identity, error)
	Parameters() []string
	Get(string) (float64, error)
	Set(string, float64) error
	Read(string, instrument.Mode) (station.Reading, error)
	Snapshot() station.Snapshot
}

// ParameterValue is the body of parameter requests and responses.
type ParameterValue struct {
	Name  string  `json:"Name"`
	Value float64 `json:"Value"`
}

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Error   string    `json:"Error"`
	Allowed []float64 `json:"Allowed,omitempty"`
}

// Webservice is the operator panel of a station.
type Webservice struct {
	system  System
	log     *logrus.Logger
	metrics http.Handler
	server  *http.Server
}

// New returns a Webservice for system. metrics may be nil.
func New(addr string, system System, metrics http.Handler, log *logrus.Logger) *Webservice {
	ws := &Webservice{
		system:  system,
		log:     log,
		metrics: metrics,
	}
	ws.server = &http.Server{
		Addr:         addr,
		Handler:      ws.makeRouter(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return ws
}

func (ws *Webservice) makeRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(ws.wrapHandler)
	router.HandleFunc("/", BaseHandler).Methods("GET")
	router.HandleFunc("/idn/{instrument}", ws.IDNHandler).Methods("GET")
	router.HandleFunc("/parameter", ws.ParameterListHandler).Methods("GET")
	router.HandleFunc("/parameter/{name}", ws.ParameterHandler).Methods("GET", "PUT")
	router.HandleFunc("/measurement/{name}/{mode}", ws.MeasurementHandler).Methods("GET")
	router.HandleFunc("/snapshot", ws.SnapshotHandler).Methods("GET")
	if ws.metrics != nil {
		router.Handle("/metrics", ws.metrics).Methods("GET")
	}
	return router
}

func (ws *Webservice) wrapHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ws.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("[Webservice] Request")
	})
}

// ListenAndServe serves until Shutdown.
func (ws *Webservice) ListenAndServe() error {
	ws.log.WithField("addr", ws.server.Addr).Info("[Webservice] Listening")
	err := ws.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for open requests until ctx is done.
func (ws *Webservice) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

func (ws *Webservice) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ws.log.Errorf("[Webservice] Encode response: %v", err)
		code = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	w.Write(body)
}

// writeError maps station errors onto HTTP status codes.
func (ws *Webservice) writeError(w http.ResponseWriter, err error) {
	var verr *param.ValidationError
	if errors.As(err, &verr) {
		ws.writeJSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: err.Error(), Allowed: verr.Allowed})
		return
	}

	code := http.StatusBadGateway
	switch errors.Cause(err) {
	case instrument.ErrUnknownParameter, station.ErrUnknownMeasurement, station.ErrUnknownInstrument:
		code = http.StatusNotFound
	case instrument.ErrUnknownMode:
		code = http.StatusBadRequest
	}
	ws.writeJSON(w, code, ErrorBody{Error: err.Error()})
}

// BaseHandler answers liveness probes.
func BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

// IDNHandler returns the identity of an instrument.
func (ws *Webservice) IDNHandler(w http.ResponseWriter, r *http.Request) {
	idn, err := ws.system.IDN(mux.Vars(r)["instrument"])
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, idn)
}

// ParameterListHandler returns every parameter with its value.
func (ws *Webservice) ParameterListHandler(w http.ResponseWriter, r *http.Request) {
	names := ws.system.Parameters()
	resp := make([]ParameterValue, 0, len(names))
	for _, name := range names {
		v, err := ws.system.Get(name)
		if err != nil {
			ws.writeError(w, err)
			return
		}
		resp = append(resp, ParameterValue{Name: name, Value: v})
	}
	ws.writeJSON(w, http.StatusOK, resp)
}

// ParameterHandler gets (GET) or assigns (PUT) one parameter.
func (ws *Webservice) ParameterHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	switch r.Method {
	case "GET":
		v, err := ws.system.Get(name)
		if err != nil {
			ws.writeError(w, err)
			return
		}
		ws.writeJSON(w, http.StatusOK, ParameterValue{Name: name, Value: v})

	case "PUT":
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			ws.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error()})
			return
		}
		req := ParameterValue{}
		if err := json.Unmarshal(body, &req); err != nil {
			ws.writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "malformed JSON: " + err.Error()})
			return
		}
		if err := ws.system.Set(name, req.Value); err != nil {
			ws.writeError(w, err)
			return
		}
		ws.writeJSON(w, http.StatusOK, ParameterValue{Name: name, Value: req.Value})
	}
}

// MeasurementHandler performs one read of a measurement in the given mode.
func (ws *Webservice) MeasurementHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mode, err := instrument.ParseMode(vars["mode"])
	if err != nil {
		ws.writeError(w, err)
		return
	}
	reading, err := ws.system.Read(vars["name"], mode)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, reading)
}

// SnapshotHandler returns the station snapshot.
func (ws *Webservice) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.system.Snapshot())
}
