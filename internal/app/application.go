package app

import (
	"log/slog"

	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/metrics"
	"netweave.openmodal.org/internal/vehicles"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware: the loaded schedule, the vehicle-type definitions it
// is validated against, and the shared logger and metrics collector.
type Application struct {
	Config      Config
	Logger      *slog.Logger
	Schedule    *elements.Schedule
	VehicleDefs *vehicles.Definitions
	Metrics     *metrics.Collector
}

// Config holds all the configuration settings for our Application: the
// network port the server listens on, the name of the current operating
// environment (development, staging, production, etc.), the schedule
// data sources, and the accepted API keys. These are read from
// command-line flags when the Application starts.
type Config struct {
	Port            int
	Env             string
	ApiKeys         []string
	GTFSSource      string
	VehicleDefsPath string
	AuditDBPath     string
}
