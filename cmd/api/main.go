package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"netweave.openmodal.org/internal/app"
	"netweave.openmodal.org/internal/audit"
	"netweave.openmodal.org/internal/ingest"
	"netweave.openmodal.org/internal/logging"
	"netweave.openmodal.org/internal/metrics"
	"netweave.openmodal.org/internal/restapi"
	"netweave.openmodal.org/internal/vehicles"
	"netweave.openmodal.org/internal/webui"
)

func main() {
	var cfg app.Config
	var apiKeysFlag string

	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&cfg.Env, "env", "development", "Environment (development|staging|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", "test", "Comma Separated API Keys (test, etc)")
	flag.StringVar(&cfg.GTFSSource, "gtfs-source", "https://www.soundtransit.org/GTFS-rail/40_gtfs.zip", "URL or path of a static GTFS zip file")
	flag.StringVar(&cfg.VehicleDefsPath, "vehicle-defs", "", "Path to a vehicle type definitions YAML file")
	flag.StringVar(&cfg.AuditDBPath, "audit-db", "", "Path to the SQLite audit database (empty disables persistence)")
	flag.Parse()

	if apiKeysFlag != "" {
		cfg.ApiKeys = strings.Split(apiKeysFlag, ",")
		for i := range cfg.ApiKeys {
			cfg.ApiKeys[i] = strings.TrimSpace(cfg.ApiKeys[i])
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	schedule, err := ingest.FromSource(cfg.GTFSSource, logger)
	if err != nil {
		logger.Error("failed to load schedule", "error", err)
		os.Exit(1)
	}

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Schedule: schedule,
		Metrics:  metrics.NewCollector(),
	}

	if cfg.VehicleDefsPath != "" {
		defs, err := vehicles.LoadDefinitions(cfg.VehicleDefsPath)
		if err != nil {
			logger.Error("failed to load vehicle definitions", "error", err)
			os.Exit(1)
		}
		application.VehicleDefs = defs
		for _, report := range schedule.ValidateVehicleDefinitions(defs) {
			logger.Warn("vehicle missing a type definition", "vehicle", report)
		}
	}

	if cfg.AuditDBPath != "" {
		store, err := audit.Open(cfg.AuditDBPath)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer logging.SafeCloseWithLogging(store, logger, "close audit store")

		if err := store.AppendLog(context.Background(), schedule.ChangeLog()); err != nil {
			logger.Error("failed to persist change log", "error", err)
			os.Exit(1)
		}
	}

	application.Metrics.WatchChangeLog(schedule.ChangeLog())
	application.Metrics.Observe(schedule)

	stats := schedule.Stats()
	logger.Info("schedule loaded",
		"services", stats.NumServices,
		"routes", stats.NumRoutes,
		"stops", stats.NumStops,
		"vehicles", stats.NumVehicles)

	api := restapi.NewRestAPI(application)
	router := httprouter.New()
	api.SetRoutes(router)
	webui.NewWebUI(application).SetWebUIRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      restapi.NewRequestLoggingMiddleware(logger)(router),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
	err = srv.ListenAndServe()
	logger.Error(err.Error())
	os.Exit(1)
}
