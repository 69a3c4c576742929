package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ohowland/qinst/internal/lib/source/modbusvolt"
	"github.com/ohowland/qinst/internal/lib/source/virtualvolt"
	"github.com/ohowland/qinst/internal/pkg/config"
	"github.com/ohowland/qinst/internal/pkg/datastreams/mongodb"
	"github.com/ohowland/qinst/internal/pkg/datastreams/mqtt"
	"github.com/ohowland/qinst/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/qinst/internal/pkg/datastreams/sqldb"
	"github.com/ohowland/qinst/internal/pkg/instrument"
	"github.com/ohowland/qinst/internal/pkg/instrument/currentsource"
	"github.com/ohowland/qinst/internal/pkg/monitor"
	"github.com/ohowland/qinst/internal/pkg/param"
	"github.com/ohowland/qinst/internal/pkg/station"
	"github.com/ohowland/qinst/internal/pkg/webservice"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type process interface {
	Process()
	Stop()
}

func main() {
	configPath := flag.String("config", "./config/qinst.json", "station configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	log.Info("[Main] Starting qinst v0.0.1")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	metrics := monitor.New()

	log.Info("[Main] Building Station")
	system, err := station.New(log, metrics)
	if err != nil {
		log.Fatal(err)
	}

	log.Info("[Main] Building Voltage Source")
	volt, err := buildSource(cfg.Source, log)
	if err != nil {
		log.Fatal(err)
	}

	log.Info("[Main] Building Current Source")
	if err := buildCurrentSource(system, cfg.Instrument, volt); err != nil {
		log.Fatal(err)
	}

	log.Info("[Main] Linking Datastreams")
	handlers, err := linkDatastreams(cfg, system, log)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h process) {
			defer wg.Done()
			h.Process()
		}(h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.Poll.IntervalMs > 0 {
		mode, err := instrument.ParseMode(cfg.Poll.Mode)
		if err != nil {
			log.Fatal(errors.Wrap(err, cfg.Poll.Mode))
		}
		measurement := cfg.Instrument.Name + "." + currentName(cfg.Instrument)
		log.Info("[Main] Starting poll loop")
		wg.Add(1)
		go func() {
			defer wg.Done()
			system.Poll(ctx, measurement, mode, time.Duration(cfg.Poll.IntervalMs)*time.Millisecond)
		}()
	}

	system.PublishSnapshot()

	ws := webservice.New(cfg.HTTP.Addr, system, metrics.Handler(), log)
	go func() {
		if err := ws.ListenAndServe(); err != nil {
			log.Errorf("[Main] Webservice: %v", err)
		}
	}()

	<-sigs
	log.Info("[Main] Stopping system")
	system.PublishSnapshot()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := ws.Shutdown(shutdownCtx); err != nil {
		log.Warnf("[Main] Webservice shutdown: %v", err)
	}

	// give the handlers a moment to drain the final snapshot
	time.Sleep(500 * time.Millisecond)
	for _, h := range handlers {
		h.Stop()
	}
	wg.Wait()
	log.Info("[Main] Stopped")
}

func currentName(cfg config.InstrumentConfig) string {
	if cfg.CurrentName == "" {
		return currentsource.DefaultCurrentName
	}
	return cfg.CurrentName
}

func buildSource(cfg config.SourceConfig, log *logrus.Logger) (param.Readable, error) {
	switch cfg.Kind {
	case "virtual":
		v, err := virtualvolt.New(cfg.Virtual)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "modbus":
		s, err := modbusvolt.New(cfg.Modbus, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Errorf("unknown source kind %q", cfg.Kind)
}

func buildCurrentSource(system *station.Station, cfg config.InstrumentConfig, volt param.Readable) error {
	pcs, err := currentsource.New(cfg.Name)
	if err != nil {
		return err
	}
	if err := system.AddInstrument(pcs); err != nil {
		return err
	}
	curr := currentsource.NewCurrentParameter(volt, pcs, cfg.CurrentName)
	return system.AddMeasurement(pcs.Name(), curr)
}

func linkDatastreams(cfg config.Config, system *station.Station, log *logrus.Logger) ([]process, error) {
	handlers := make([]process, 0)
	if cfg.Mongo.Enabled {
		h, err := mongodb.New(cfg.Mongo, system, log)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	if cfg.NATS.Enabled {
		h, err := natshandler.New(cfg.NATS, system, log)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	if cfg.MQTT.Enabled {
		h, err := mqtt.New(cfg.MQTT, system, log)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	if cfg.SQL.Enabled {
		h, err := sqldb.New(cfg.SQL, system, log)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}
