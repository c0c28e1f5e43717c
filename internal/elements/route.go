package elements

import (
	"fmt"
	"sort"

	"netweave.openmodal.org/internal/utils"
)

// Trips holds a route's trips as parallel arrays: trip ID, departure time
// of the trip's first stop, and the vehicle running it.
type Trips struct {
	IDs            []string
	DepartureTimes []string
	VehicleIDs     []string
}

// Len returns the number of trips.
func (t Trips) Len() int {
	return len(t.IDs)
}

func (t Trips) consistent() bool {
	return len(t.IDs) == len(t.DepartureTimes) && len(t.IDs) == len(t.VehicleIDs)
}

// TimeWindow is a half-open-by-convention service window given as
// HH:MM:SS bounds; headway generation treats both bounds as inclusive.
type TimeWindow struct {
	Start string
	End   string
}

// HeadwaySpec maps service windows to headway minutes.
type HeadwaySpec map[TimeWindow]float64

// Route is an ordered sequence of stops with timing offsets, trips and an
// optional physical network path. A route either owns a small private
// graph (standalone construction) or shares the graph of the service or
// schedule it belongs to.
type Route struct {
	ID               string
	ShortName        string
	LongName         string
	Mode             string
	OrderedStops     []string
	ArrivalOffsets   []string
	DepartureOffsets []string
	Trips            Trips
	AwaitDeparture   []bool
	NetworkLinks     []string
	Attributes       map[string]any

	graph *ElementGraph
}

// RouteConfig carries the constructor arguments for a route. Exactly one
// of Stops, or OrderedStops together with Graph, must be given; Trips or
// Headways must be given.
type RouteConfig struct {
	ID        string
	ShortName string
	LongName  string
	Mode      string

	// Standalone path: the route builds its own private graph.
	Stops []*Stop

	// Rehydration path: the route is a view over an existing shared
	// graph. Both must be supplied together.
	OrderedStops []string
	Graph        *ElementGraph

	ArrivalOffsets   []string
	DepartureOffsets []string
	Trips            *Trips
	Headways         HeadwaySpec
	AwaitDeparture   []bool
	NetworkLinks     []string
	Attributes       map[string]any
}

// NewRoute constructs a route from either explicit stop objects or an
// ordered stop list over an existing graph.
func NewRoute(cfg RouteConfig) (*Route, error) {
	if (cfg.OrderedStops != nil) != (cfg.Graph != nil) {
		return nil, &RouteInitialisationError{Reason: "ordered stops and a graph must be supplied together, or not at all"}
	}
	if cfg.Stops != nil && cfg.Graph != nil {
		return nil, &RouteInitialisationError{Reason: "supply either stop objects or an ordered stop list over a graph, not both"}
	}
	if cfg.Stops == nil && cfg.Graph == nil {
		return nil, &RouteInitialisationError{Reason: "a route needs stop objects, or an ordered stop list together with a graph"}
	}

	r := &Route{
		ID:               cfg.ID,
		ShortName:        cfg.ShortName,
		LongName:         cfg.LongName,
		Mode:             cfg.Mode,
		ArrivalOffsets:   cfg.ArrivalOffsets,
		DepartureOffsets: cfg.DepartureOffsets,
		AwaitDeparture:   cfg.AwaitDeparture,
		NetworkLinks:     cfg.NetworkLinks,
		Attributes:       cfg.Attributes,
	}
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}

	if cfg.Graph != nil {
		if err := VerifyGraphSchema(cfg.Graph); err != nil {
			return nil, err
		}
		for _, stopID := range cfg.OrderedStops {
			if !cfg.Graph.HasStop(stopID) {
				return nil, &RouteInitialisationError{
					Reason: fmt.Sprintf("ordered stop %q is not a node of the given graph", stopID),
				}
			}
		}
		r.OrderedStops = append([]string(nil), cfg.OrderedStops...)
		r.graph = cfg.Graph
	} else {
		r.OrderedStops = make([]string, 0, len(cfg.Stops))
		crs := ""
		if len(cfg.Stops) > 0 {
			crs = cfg.Stops[0].EPSG
		}
		g := NewElementGraph(crs)
		for _, stop := range cfg.Stops {
			g.AddStop(stop)
			r.OrderedStops = append(r.OrderedStops, stop.ID)
		}
		g.registerRoute(r)
		g.tagRouteMembership(r)
	}

	switch {
	case cfg.Trips != nil:
		if !cfg.Trips.consistent() {
			return nil, &RouteInitialisationError{Reason: "trip ids, departure times and vehicle ids must have equal length"}
		}
		r.Trips = *cfg.Trips
	case cfg.Headways != nil:
		if err := r.GenerateTripsFromHeadway(cfg.Headways); err != nil {
			return nil, err
		}
	default:
		return nil, &RouteInitialisationError{Reason: "a route needs trips or a headway specification"}
	}

	return r, nil
}

// Graph returns the graph the route is a view over.
func (r *Route) Graph() *ElementGraph {
	return r.graph
}

// Routes yields the route itself, matching the polymorphic contract of
// services and schedules.
func (r *Route) Routes() []*Route {
	return []*Route{r}
}

// Stops resolves the route's ordered stop IDs against its graph. Stop IDs
// without a node are skipped.
func (r *Route) Stops() []*Stop {
	stops := make([]*Stop, 0, len(r.OrderedStops))
	for _, id := range r.OrderedStops {
		if node, ok := r.graph.StopNode(id); ok {
			stops = append(stops, node.Stop)
		}
	}
	return stops
}

// GenerateTripsFromHeadway replaces the route's trips with a strictly
// regular schedule: each window independently samples departures at its
// headway interval, inclusive of both bounds, and the windows' results
// are unioned and sorted.
func (r *Route) GenerateTripsFromHeadway(spec HeadwaySpec) error {
	departures := map[int]struct{}{}
	windows := make([]TimeWindow, 0, len(spec))
	for window := range spec {
		windows = append(windows, window)
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Start != windows[j].Start {
			return windows[i].Start < windows[j].Start
		}
		return windows[i].End < windows[j].End
	})

	for _, window := range windows {
		headwayMinutes := spec[window]
		if headwayMinutes <= 0 {
			return &RouteInitialisationError{Reason: fmt.Sprintf("headway for window %s-%s must be positive", window.Start, window.End)}
		}
		start, err := utils.ParseOffset(window.Start)
		if err != nil {
			return &RouteInitialisationError{Reason: err.Error()}
		}
		end, err := utils.ParseOffset(window.End)
		if err != nil {
			return &RouteInitialisationError{Reason: err.Error()}
		}
		if end < start {
			return &RouteInitialisationError{Reason: fmt.Sprintf("headway window %s-%s ends before it starts", window.Start, window.End)}
		}
		step := int(headwayMinutes * 60)
		for t := start; t <= end; t += step {
			departures[t] = struct{}{}
		}
	}

	times := make([]int, 0, len(departures))
	for t := range departures {
		times = append(times, t)
	}
	sort.Ints(times)

	trips := Trips{
		IDs:            make([]string, 0, len(times)),
		DepartureTimes: make([]string, 0, len(times)),
		VehicleIDs:     make([]string, 0, len(times)),
	}
	for _, t := range times {
		departure := utils.FormatOffset(t)
		trips.IDs = append(trips.IDs, fmt.Sprintf("%s_%s", r.ID, departure))
		trips.DepartureTimes = append(trips.DepartureTimes, departure)
		trips.VehicleIDs = append(trips.VehicleIDs, fmt.Sprintf("veh_%s_%s_%s", r.Mode, r.ID, departure))
	}
	r.Trips = trips
	return nil
}

// Reindex changes the route's ID, propagating the change to every
// membership set, the graph registry and the service maps. It fails when
// the target ID is already taken within the shared graph.
func (r *Route) Reindex(newID string) error {
	if newID == r.ID {
		return nil
	}
	if newID == "" {
		return &RouteIndexError{ID: newID, Reason: "new id must not be empty"}
	}
	if _, exists := r.graph.Route(newID); exists {
		return &RouteIndexError{ID: newID, Reason: "id already exists in the routes registry"}
	}

	oldID := r.ID
	oldAttrs := r.ToAttributes()
	r.graph.renameRouteMembership(oldID, newID)
	r.ID = newID
	r.graph.Log.Modify("route", oldID, oldAttrs, newID, r.ToAttributes())
	return nil
}

// IsValidRoute reports whether the route satisfies all domain invariants.
// Invalid routes are first-class citizens: they can be constructed,
// stored and queried, just not simulated.
func (r *Route) IsValidRoute() bool {
	return len(r.InvalidReasons()) == 0
}

// InvalidReasons lists the domain invariants the route violates, in
// check order.
func (r *Route) InvalidReasons() []string {
	var reasons []string
	if len(r.OrderedStops) <= 1 {
		reasons = append(reasons, "not_has_more_than_one_stop")
	}
	if !r.hasCorrectlyOrderedNetworkRoute() {
		reasons = append(reasons, "not_has_correctly_ordered_route")
	}
	if !r.hasValidOffsets() {
		reasons = append(reasons, "not_has_valid_offsets")
	}
	if r.hasSelfLoops() {
		reasons = append(reasons, "has_self_loops")
	}
	return reasons
}

// hasSelfLoops reports whether two consecutive ordered stops are
// identical. A loop elsewhere in the route, e.g. first == last, is fine.
func (r *Route) hasSelfLoops() bool {
	for i := 1; i < len(r.OrderedStops); i++ {
		if r.OrderedStops[i] == r.OrderedStops[i-1] {
			return true
		}
	}
	return false
}

// hasValidOffsets checks that offsets align with the stop sequence, each
// stop's arrival precedes its departure, and offsets never decrease.
func (r *Route) hasValidOffsets() bool {
	n := len(r.OrderedStops)
	if n == 0 || len(r.ArrivalOffsets) != n || len(r.DepartureOffsets) != n {
		return false
	}
	previousDeparture := 0
	for i := 0; i < n; i++ {
		arrival, err := utils.ParseOffset(r.ArrivalOffsets[i])
		if err != nil {
			return false
		}
		departure, err := utils.ParseOffset(r.DepartureOffsets[i])
		if err != nil {
			return false
		}
		if arrival > departure {
			return false
		}
		if arrival < previousDeparture {
			return false
		}
		previousDeparture = departure
	}
	return true
}

// hasCorrectlyOrderedNetworkRoute checks, when a physical path is given,
// that the link sequence's stop-link references reduce, after collapsing
// consecutive duplicates, to exactly the ordered stop sequence.
func (r *Route) hasCorrectlyOrderedNetworkRoute() bool {
	if len(r.NetworkLinks) == 0 {
		return true
	}
	linkToStop := map[string]string{}
	for _, stop := range r.Stops() {
		ref, ok := stop.LinkRef()
		if !ok {
			return false
		}
		linkToStop[ref] = stop.ID
	}
	if len(linkToStop) < len(r.OrderedStops) {
		// A stop is missing its link reference or two stops share one.
		return false
	}

	var visited []string
	for _, link := range r.NetworkLinks {
		stopID, ok := linkToStop[link]
		if !ok {
			continue
		}
		if len(visited) == 0 || visited[len(visited)-1] != stopID {
			visited = append(visited, stopID)
		}
	}
	if len(visited) != len(r.OrderedStops) {
		return false
	}
	for i, stopID := range r.OrderedStops {
		if visited[i] != stopID {
			return false
		}
	}
	return true
}

// TripRecord is one flattened trip/stop row, the shape exported to
// tabular consumers.
type TripRecord struct {
	TripID          string `json:"trip_id"`
	TripDeparture   string `json:"trip_departure_time"`
	VehicleID       string `json:"vehicle_id"`
	StopID          string `json:"stop_id"`
	ArrivalOffset   string `json:"arrival_offset"`
	DepartureOffset string `json:"departure_offset"`
}

// TripsWithOffsets flattens the route's trips against its per-stop
// offsets.
func (r *Route) TripsWithOffsets() []TripRecord {
	records := make([]TripRecord, 0, r.Trips.Len()*len(r.OrderedStops))
	for i := 0; i < r.Trips.Len(); i++ {
		for j, stopID := range r.OrderedStops {
			record := TripRecord{
				TripID:        r.Trips.IDs[i],
				TripDeparture: r.Trips.DepartureTimes[i],
				VehicleID:     r.Trips.VehicleIDs[i],
				StopID:        stopID,
			}
			if j < len(r.ArrivalOffsets) {
				record.ArrivalOffset = r.ArrivalOffsets[j]
			}
			if j < len(r.DepartureOffsets) {
				record.DepartureOffset = r.DepartureOffsets[j]
			}
			records = append(records, record)
		}
	}
	return records
}

// ToAttributes renders the route as a flat attribute dictionary.
func (r *Route) ToAttributes() map[string]any {
	attrs := map[string]any{
		"id":                r.ID,
		"route_short_name":  r.ShortName,
		"route_long_name":   r.LongName,
		"mode":              r.Mode,
		"ordered_stops":     append([]string(nil), r.OrderedStops...),
		"arrival_offsets":   append([]string(nil), r.ArrivalOffsets...),
		"departure_offsets": append([]string(nil), r.DepartureOffsets...),
		"trips": map[string]any{
			"trip_id":             append([]string(nil), r.Trips.IDs...),
			"trip_departure_time": append([]string(nil), r.Trips.DepartureTimes...),
			"vehicle_id":          append([]string(nil), r.Trips.VehicleIDs...),
		},
	}
	if len(r.AwaitDeparture) > 0 {
		attrs["await_departure"] = append([]bool(nil), r.AwaitDeparture...)
	}
	if len(r.NetworkLinks) > 0 {
		attrs["route"] = append([]string(nil), r.NetworkLinks...)
	}
	for k, v := range r.Attributes {
		if _, reserved := attrs[k]; !reserved {
			attrs[k] = v
		}
	}
	return attrs
}
