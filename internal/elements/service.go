package elements

import (
	"fmt"
	"log/slog"

	"netweave.openmodal.org/internal/geo"
)

// Service is a named bundle of routes sharing one directed multi-graph
// view, typically one line brand.
type Service struct {
	ID         string
	Name       string
	Attributes map[string]any

	graph *ElementGraph
}

// ServiceConfig carries the constructor arguments for a service: either
// a list of route objects to merge, or an existing shared graph the
// service is already resident in.
type ServiceConfig struct {
	ID         string
	Name       string
	Routes     []*Route
	Graph      *ElementGraph
	Attributes map[string]any
}

// NewService constructs a service. From routes, it merges each route's
// private graph into one shared graph, re-pointing every route at the
// merged graph; routes lacking an ID or clashing with a sibling are
// auto-suffixed with a logged warning. From an existing graph, it
// returns the graph-resident service of that ID.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.ID == "" {
		return nil, &ServiceInitialisationError{Reason: "a service needs an id"}
	}
	if cfg.Routes != nil && cfg.Graph != nil {
		return nil, &ServiceInitialisationError{Reason: "supply either routes or a graph, not both"}
	}

	if cfg.Graph != nil {
		if err := VerifyGraphSchema(cfg.Graph); err != nil {
			return nil, err
		}
		if existing, ok := cfg.Graph.Service(cfg.ID); ok {
			return existing, nil
		}
		return nil, &ServiceIndexError{ID: cfg.ID, Reason: "does not exist in the given graph"}
	}
	if len(cfg.Routes) == 0 {
		return nil, &ServiceInitialisationError{Reason: "a service needs at least one route"}
	}

	s := &Service{
		ID:         cfg.ID,
		Name:       cfg.Name,
		Attributes: cfg.Attributes,
	}
	if s.Attributes == nil {
		s.Attributes = map[string]any{}
	}
	if s.Name == "" {
		s.Name = cfg.Routes[0].ShortName
	}

	s.buildGraph(cfg.Routes)
	return s, nil
}

// buildGraph merges the constituent routes' graphs into one shared graph
// and registers the service and its route membership on it.
func (s *Service) buildGraph(routes []*Route) {
	crs := ""
	if g := routes[0].Graph(); g != nil {
		crs = g.CRS
	}
	merged := NewElementGraph(crs)

	used := NewIDSet()
	routeIDs := make([]string, 0, len(routes))
	for i, route := range routes {
		if route.ID == "" || used.Has(route.ID) {
			newID := s.uniqueRouteID(used, i)
			merged.Logger().Warn("auto-renamed clashing route id within service",
				slog.String("service_id", s.ID),
				slog.String("old_id", route.ID),
				slog.String("new_id", newID))
			if err := route.Reindex(newID); err != nil {
				route.graph.renameRouteMembership(route.ID, newID)
				route.ID = newID
			}
		}
		used.Add(route.ID)
		routeIDs = append(routeIDs, route.ID)
	}

	for _, route := range routes {
		merged.mergeFrom(route.Graph(), false)
	}
	merged.registerService(s, routeIDs)
	for _, route := range routes {
		merged.tagRouteMembership(route)
	}
	merged.refreshServiceTags()
}

func (s *Service) uniqueRouteID(used IDSet, index int) string {
	candidate := fmt.Sprintf("%s_%d", s.ID, index)
	for n := index; used.Has(candidate); n++ {
		candidate = fmt.Sprintf("%s_%d", s.ID, n+1)
	}
	return candidate
}

// Graph returns the graph the service is a view over.
func (s *Service) Graph() *ElementGraph {
	return s.graph
}

// RouteIDs returns the service's route IDs in order.
func (s *Service) RouteIDs() []string {
	return s.graph.RoutesForService(s.ID)
}

// Routes resolves the service's routes against the shared graph.
func (s *Service) Routes() []*Route {
	ids := s.RouteIDs()
	routes := make([]*Route, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.graph.Route(id); ok {
			routes = append(routes, r)
		}
	}
	return routes
}

// Route looks up one of the service's routes by ID.
func (s *Service) Route(id string) (*Route, error) {
	r, ok := s.graph.Route(id)
	if !ok {
		return nil, &RouteIndexError{ID: id, Reason: "does not exist"}
	}
	if serviceID, _ := s.graph.ServiceForRoute(id); serviceID != s.ID {
		return nil, &RouteIndexError{ID: id, Reason: fmt.Sprintf("does not belong to service %q", s.ID)}
	}
	return r, nil
}

// Reindex changes the service's ID, re-pointing every constituent
// route's service membership and the global route/service maps.
func (s *Service) Reindex(newID string) error {
	if newID == s.ID {
		return nil
	}
	if newID == "" {
		return &ServiceIndexError{ID: newID, Reason: "new id must not be empty"}
	}
	if _, exists := s.graph.Service(newID); exists {
		return &ServiceIndexError{ID: newID, Reason: "id already exists in the services registry"}
	}

	oldID := s.ID
	oldAttrs := s.ToAttributes()
	s.graph.renameServiceMembership(oldID, newID)
	s.ID = newID
	s.graph.Log.Modify("service", oldID, oldAttrs, newID, s.ToAttributes())
	return nil
}

// IsValidService reports whether every constituent route is valid.
func (s *Service) IsValidService() bool {
	routes := s.Routes()
	if len(routes) == 0 {
		return false
	}
	for _, r := range routes {
		if !r.IsValidRoute() {
			return false
		}
	}
	return true
}

// StopIDs returns the union of the service's routes' stops, sorted.
func (s *Service) StopIDs() []string {
	stops := NewIDSet()
	for _, r := range s.Routes() {
		stops.Add(r.OrderedStops...)
	}
	return stops.Sorted()
}

// SplitByDirection buckets the service's routes by the compass bearing
// between each route's first and last distinct stop. A route that loops
// back onto its first stop takes its direction from the second stop
// instead.
func (s *Service) SplitByDirection() map[string][]string {
	buckets := map[string][]string{}
	for _, route := range s.Routes() {
		stops := route.Stops()
		if len(stops) < 2 {
			continue
		}
		first := stops[0]
		var target *Stop
		for i := len(stops) - 1; i > 0; i-- {
			if !stops[i].Equal(first) {
				target = stops[i]
				break
			}
		}
		if target == nil {
			// Pure loop; take the bearing onto the second stop.
			target = stops[1]
		}
		direction := geo.CompassDirection(first.Lat, first.Lon, target.Lat, target.Lon)
		buckets[direction] = append(buckets[direction], route.ID)
	}
	return buckets
}

// RouteGroup is one connected bundle of routes produced by SplitGraph.
type RouteGroup struct {
	Routes IDSet
	Edges  map[StopPair]struct{}
}

// SplitGraph partitions the service's routes by graph connectivity:
// groups merge when their edge sets intersect, or when a dangling
// endpoint of one coincides with a dangling endpoint of the other. The
// result depends on the input order of routes; this order sensitivity is
// inherited behavior and deliberately not canonicalized.
func (s *Service) SplitGraph() []RouteGroup {
	var groups []RouteGroup
	for _, route := range s.Routes() {
		edges := map[StopPair]struct{}{}
		for i := 1; i < len(route.OrderedStops); i++ {
			edges[StopPair{From: route.OrderedStops[i-1], To: route.OrderedStops[i]}] = struct{}{}
		}

		var overlapping []int
		for i, group := range groups {
			if groupsOverlap(group.Edges, edges) {
				overlapping = append(overlapping, i)
			}
		}

		switch len(overlapping) {
		case 0:
			groups = append(groups, RouteGroup{
				Routes: NewIDSet(route.ID),
				Edges:  edges,
			})
		default:
			if len(overlapping) > 1 {
				s.graph.Logger().Warn("route overlaps multiple route groups, merging them",
					slog.String("service_id", s.ID),
					slog.String("route_id", route.ID),
					slog.Int("groups", len(overlapping)))
			}
			target := &groups[overlapping[0]]
			target.Routes.Add(route.ID)
			for pair := range edges {
				target.Edges[pair] = struct{}{}
			}
			// Fold the remaining overlapping groups into the first,
			// back to front so indices stay valid.
			for i := len(overlapping) - 1; i > 0; i-- {
				idx := overlapping[i]
				target.Routes.Merge(groups[idx].Routes)
				for pair := range groups[idx].Edges {
					target.Edges[pair] = struct{}{}
				}
				groups = append(groups[:idx], groups[idx+1:]...)
			}
		}
	}
	return groups
}

// groupsOverlap reports whether two edge sets intersect or their
// dangling endpoints coincide.
func groupsOverlap(a, b map[StopPair]struct{}) bool {
	for pair := range b {
		if _, ok := a[pair]; ok {
			return true
		}
	}
	aFrom, aTo := danglingEndpoints(a)
	bFrom, bTo := danglingEndpoints(b)
	return aTo.Intersects(bFrom) || bTo.Intersects(aFrom)
}

// danglingEndpoints returns the from-nodes with no matching to-node and
// the to-nodes with no matching from-node of an edge set.
func danglingEndpoints(edges map[StopPair]struct{}) (IDSet, IDSet) {
	froms := NewIDSet()
	tos := NewIDSet()
	for pair := range edges {
		froms.Add(pair.From)
		tos.Add(pair.To)
	}
	danglingFrom := NewIDSet()
	for id := range froms {
		if !tos.Has(id) {
			danglingFrom.Add(id)
		}
	}
	danglingTo := NewIDSet()
	for id := range tos {
		if !froms.Has(id) {
			danglingTo.Add(id)
		}
	}
	return danglingFrom, danglingTo
}

// ToAttributes renders the service as a flat attribute dictionary.
func (s *Service) ToAttributes() map[string]any {
	attrs := map[string]any{
		"id":   s.ID,
		"name": s.Name,
	}
	for k, v := range s.Attributes {
		if k != "id" && k != "name" {
			attrs[k] = v
		}
	}
	return attrs
}
