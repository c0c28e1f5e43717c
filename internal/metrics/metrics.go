// Package metrics exposes schedule graph size and mutation counters to
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"netweave.openmodal.org/internal/changelog"
	"netweave.openmodal.org/internal/elements"
)

type Collector struct {
	reg *prometheus.Registry

	Services prometheus.Gauge
	Routes   prometheus.Gauge
	Stops    prometheus.Gauge
	Edges    prometheus.Gauge
	Vehicles prometheus.Gauge

	ChangeLogEntries prometheus.Gauge
	InvalidRoutes    prometheus.Gauge

	Mutations *prometheus.CounterVec // operation label: add|modify|remove

	HTTPRequests *prometheus.CounterVec // handler label
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Services: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_services",
			Help: "Number of services in the schedule.",
		}),
		Routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_routes",
			Help: "Number of routes in the schedule.",
		}),
		Stops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_stops",
			Help: "Number of stop nodes in the shared graph.",
		}),
		Edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_edges",
			Help: "Number of directed stop-to-stop edges in the shared graph.",
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_vehicles",
			Help: "Number of vehicles in the registry.",
		}),
		ChangeLogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_change_log_entries",
			Help: "Number of recorded change log entries.",
		}),
		InvalidRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_invalid_routes",
			Help: "Number of routes failing validity checks.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_mutations_total",
			Help: "Total structural mutations applied to the schedule.",
		}, []string{"operation"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests served.",
		}, []string{"handler"}),
	}

	reg.MustRegister(
		c.Services, c.Routes, c.Stops, c.Edges, c.Vehicles,
		c.ChangeLogEntries, c.InvalidRoutes,
		c.Mutations, c.HTTPRequests,
	)
	return c
}

// Observe refreshes the gauges from a schedule snapshot.
func (c *Collector) Observe(sched *elements.Schedule) {
	stats := sched.Stats()
	c.Services.Set(float64(stats.NumServices))
	c.Routes.Set(float64(stats.NumRoutes))
	c.Stops.Set(float64(stats.NumStops))
	c.Edges.Set(float64(stats.NumEdges))
	c.Vehicles.Set(float64(stats.NumVehicles))
	c.ChangeLogEntries.Set(float64(sched.ChangeLog().Len()))
	c.InvalidRoutes.Set(float64(len(sched.InvalidRoutes())))
}

// WatchChangeLog counts every entry the log appends from now on in the
// mutation counter, labelled by event.
func (c *Collector) WatchChangeLog(log *changelog.ChangeLog) {
	log.SetOnAppend(func(entry changelog.Entry) {
		c.Mutations.WithLabelValues(string(entry.Event)).Inc()
	})
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
