// Package ingest builds schedules from parsed GTFS static feeds.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jamespfennell/gtfs"

	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/geo"
	"netweave.openmodal.org/internal/utils"
)

// LoadStatic reads and parses GTFS static data from either a URL or a
// local zip file.
func LoadStatic(source string) (*gtfs.Static, error) {
	isLocalFile := !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://")

	var b []byte
	var err error
	if isLocalFile {
		b, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
	} else {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("error downloading GTFS data: %w", err)
		}
		defer resp.Body.Close() // nolint
		b, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading GTFS data: %w", err)
		}
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return staticData, nil
}

// FromSource loads a GTFS feed from a URL or path and builds a schedule.
func FromSource(source string, logger *slog.Logger) (*elements.Schedule, error) {
	staticData, err := LoadStatic(source)
	if err != nil {
		return nil, err
	}
	return FromStatic(staticData, logger)
}

// FromStatic builds a schedule from parsed GTFS static data. Every GTFS
// route becomes one service; each distinct stop pattern of that route's
// trips becomes one route of the service. Stop coordinates come in as
// WGS84 and anchor directly. Transfers with a minimum transfer time feed
// the schedule's transfer-time table.
func FromStatic(staticData *gtfs.Static, logger *slog.Logger) (*elements.Schedule, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stops := map[string]*elements.Stop{}
	for _, gs := range staticData.Stops {
		if gs.Latitude == nil || gs.Longitude == nil {
			logger.Warn("skipping stop without coordinates", slog.String("stop_id", gs.Id))
			continue
		}
		stop := elements.NewStopWithAnchor(gs.Id, *gs.Longitude, *gs.Latitude, geo.WGS84, *gs.Latitude, *gs.Longitude, 0)
		stop.Name = gs.Name
		if gs.Code != "" {
			stop.Attributes["code"] = gs.Code
		}
		if gs.PlatformCode != "" {
			stop.Attributes["platform_code"] = gs.PlatformCode
		}
		stops[gs.Id] = stop
	}

	patterns := groupTripsByPattern(staticData.Trips)

	var services []*elements.Service
	for _, gr := range staticData.Routes {
		routePatterns := patterns[gr.Id]
		if len(routePatterns) == 0 {
			logger.Warn("skipping route without usable trips", slog.String("route_id", gr.Id))
			continue
		}
		mode := modeForRouteType(int(gr.Type))

		var routes []*elements.Route
		for i, pattern := range routePatterns {
			route, err := buildRoute(gr, pattern, i, len(routePatterns), mode, stops)
			if err != nil {
				logger.Warn("skipping unbuildable route pattern",
					slog.String("route_id", gr.Id), slog.String("error", err.Error()))
				continue
			}
			routes = append(routes, route)
		}
		if len(routes) == 0 {
			continue
		}

		name := gr.ShortName
		if name == "" {
			name = gr.LongName
		}
		service, err := elements.NewService(elements.ServiceConfig{
			ID:     gr.Id,
			Name:   name,
			Routes: routes,
			Attributes: map[string]any{
				"route_color": gr.Color,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("building service for GTFS route %s: %w", gr.Id, err)
		}
		services = append(services, service)
	}

	sched, err := elements.NewSchedule(geo.WGS84, services)
	if err != nil {
		return nil, err
	}
	sched.SetLogger(logger)

	for _, transfer := range staticData.Transfers {
		if transfer.From == nil || transfer.To == nil || transfer.MinTransferTime == nil {
			continue
		}
		if !sched.HasStop(transfer.From.Id) || !sched.HasStop(transfer.To.Id) {
			continue
		}
		sched.SetMinimalTransferTime(transfer.From.Id, transfer.To.Id, float64(*transfer.MinTransferTime))
	}
	return sched, nil
}

// tripPattern is one distinct ordered stop sequence of a GTFS route,
// together with every trip that follows it.
type tripPattern struct {
	stopIDs []string
	trips   []*gtfs.ScheduledTrip
}

// groupTripsByPattern buckets scheduled trips per route by their ordered
// stop sequence, preserving first-seen pattern order.
func groupTripsByPattern(trips []gtfs.ScheduledTrip) map[string][]*tripPattern {
	patterns := map[string][]*tripPattern{}
	index := map[string]map[string]*tripPattern{}
	for i := range trips {
		trip := &trips[i]
		if trip.Route == nil || len(trip.StopTimes) < 1 {
			continue
		}
		ids := make([]string, 0, len(trip.StopTimes))
		for _, st := range trip.StopTimes {
			if st.Stop == nil {
				ids = nil
				break
			}
			ids = append(ids, st.Stop.Id)
		}
		if ids == nil {
			continue
		}
		key := strings.Join(ids, "\x1f")
		routeID := trip.Route.Id
		if index[routeID] == nil {
			index[routeID] = map[string]*tripPattern{}
		}
		pattern, ok := index[routeID][key]
		if !ok {
			pattern = &tripPattern{stopIDs: ids}
			index[routeID][key] = pattern
			patterns[routeID] = append(patterns[routeID], pattern)
		}
		pattern.trips = append(pattern.trips, trip)
	}
	return patterns
}

// buildRoute turns one stop pattern into a route. Offsets come from the
// pattern's first trip, relative to its departure from the first stop;
// each trip's departure time is its own first-stop departure.
func buildRoute(gr gtfs.Route, pattern *tripPattern, index, total int, mode string, stops map[string]*elements.Stop) (*elements.Route, error) {
	routeStops := make([]*elements.Stop, 0, len(pattern.stopIDs))
	for _, id := range pattern.stopIDs {
		stop, ok := stops[id]
		if !ok {
			return nil, fmt.Errorf("pattern references stop %s with no coordinates", id)
		}
		routeStops = append(routeStops, stop)
	}

	id := gr.Id
	if total > 1 {
		id = fmt.Sprintf("%s_%d", gr.Id, index)
	}

	reference := pattern.trips[0]
	base := reference.StopTimes[0].DepartureTime
	arrivals := make([]string, 0, len(reference.StopTimes))
	departures := make([]string, 0, len(reference.StopTimes))
	for _, st := range reference.StopTimes {
		arrivals = append(arrivals, utils.FormatOffset(int((st.ArrivalTime-base).Seconds())))
		departures = append(departures, utils.FormatOffset(int((st.DepartureTime-base).Seconds())))
	}

	trips := elements.Trips{
		IDs:            make([]string, 0, len(pattern.trips)),
		DepartureTimes: make([]string, 0, len(pattern.trips)),
		VehicleIDs:     make([]string, 0, len(pattern.trips)),
	}
	for _, trip := range pattern.trips {
		departure := utils.FormatOffset(int(trip.StopTimes[0].DepartureTime.Seconds()))
		trips.IDs = append(trips.IDs, trip.ID)
		trips.DepartureTimes = append(trips.DepartureTimes, departure)
		trips.VehicleIDs = append(trips.VehicleIDs, fmt.Sprintf("veh_%s_%s", mode, trip.ID))
	}

	return elements.NewRoute(elements.RouteConfig{
		ID:               id,
		ShortName:        gr.ShortName,
		LongName:         gr.LongName,
		Mode:             mode,
		Stops:            routeStops,
		ArrivalOffsets:   arrivals,
		DepartureOffsets: departures,
		Trips:            &trips,
	})
}

// modeForRouteType maps GTFS route type codes onto vehicle modes.
func modeForRouteType(routeType int) string {
	switch routeType {
	case 0:
		return "tram"
	case 1:
		return "subway"
	case 2:
		return "rail"
	case 3:
		return "bus"
	case 4:
		return "ferry"
	case 5:
		return "cablecar"
	case 6:
		return "gondola"
	case 7:
		return "funicular"
	default:
		return "other"
	}
}
