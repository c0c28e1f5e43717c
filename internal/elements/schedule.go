package elements

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"netweave.openmodal.org/internal/changelog"
	"netweave.openmodal.org/internal/geo"
	"netweave.openmodal.org/internal/vehicles"
)

// Vehicle is one entry of the schedule's vehicle registry.
type Vehicle struct {
	Type string `json:"type"`
}

// Stats summarizes the size of a schedule.
type Stats struct {
	NumServices int `json:"num_services"`
	NumRoutes   int `json:"num_routes"`
	NumStops    int `json:"num_stops"`
	NumEdges    int `json:"num_edges"`
	NumVehicles int `json:"num_vehicles"`
}

// Schedule is the top-level aggregate: all services, the global stop set,
// the vehicle registry, the minimum-transfer-time table and the single
// shared graph every route and service view delegates to.
type Schedule struct {
	EPSG                 string
	VehicleTypes         map[string]vehicles.Type
	Vehicles             map[string]Vehicle
	MinimalTransferTimes map[string]map[string]float64
	Attributes           map[string]any

	graph *ElementGraph
}

// NewSchedule assembles a schedule from services, merging their graphs
// into one shared graph. Service IDs are deduplicated by suffixing;
// route IDs are deduplicated across all services, not just within their
// own. Every rename is logged as a warning.
func NewSchedule(epsg string, services []*Service) (*Schedule, error) {
	s := &Schedule{
		EPSG:                 epsg,
		VehicleTypes:         vehicles.Defaults().VehicleTypes,
		Vehicles:             map[string]Vehicle{},
		MinimalTransferTimes: map[string]map[string]float64{},
		Attributes:           map[string]any{},
		graph:                NewElementGraph(epsg),
	}

	usedServices := NewIDSet()
	usedRoutes := NewIDSet()
	for _, service := range services {
		if usedServices.Has(service.ID) {
			newID := uniqueID(service.ID, func(candidate string) bool {
				_, taken := service.graph.Service(candidate)
				return usedServices.Has(candidate) || taken
			})
			s.graph.Logger().Warn("auto-renamed clashing service id",
				slog.String("old_id", service.ID),
				slog.String("new_id", newID))
			if err := service.Reindex(newID); err != nil {
				return nil, err
			}
		}
		usedServices.Add(service.ID)

		for _, route := range service.Routes() {
			if usedRoutes.Has(route.ID) {
				newID := uniqueID(route.ID, func(candidate string) bool {
					_, taken := service.graph.Route(candidate)
					return usedRoutes.Has(candidate) || taken
				})
				s.graph.Logger().Warn("auto-renamed route id clashing across services",
					slog.String("service_id", service.ID),
					slog.String("old_id", route.ID),
					slog.String("new_id", newID))
				if err := route.Reindex(newID); err != nil {
					return nil, err
				}
			}
			usedRoutes.Add(route.ID)
		}
	}

	for _, service := range services {
		s.graph.mergeFrom(service.graph, false)
	}
	s.graph.refreshServiceTags()

	if err := s.GenerateVehicles(false); err != nil {
		return nil, err
	}
	return s, nil
}

// NewScheduleFromGraph adopts a pre-built graph as a schedule. The graph
// must pass VerifyGraphSchema; this is the zero-copy ingestion path.
func NewScheduleFromGraph(g *ElementGraph) (*Schedule, error) {
	if err := VerifyGraphSchema(g); err != nil {
		return nil, err
	}
	s := &Schedule{
		EPSG:                 g.CRS,
		VehicleTypes:         vehicles.Defaults().VehicleTypes,
		Vehicles:             map[string]Vehicle{},
		MinimalTransferTimes: map[string]map[string]float64{},
		Attributes:           map[string]any{},
		graph:                g,
	}
	g.refreshServiceTags()
	if err := s.GenerateVehicles(false); err != nil {
		return nil, err
	}
	return s, nil
}

// SetLogger redirects warning output for the schedule and its graph.
func (s *Schedule) SetLogger(logger *slog.Logger) {
	s.graph.SetLogger(logger)
}

// Graph exposes the shared graph. Route and service views obtained from
// the schedule alias this exact object.
func (s *Schedule) Graph() *ElementGraph {
	return s.graph
}

// ChangeLog returns the schedule's change log.
func (s *Schedule) ChangeLog() *changelog.ChangeLog {
	return s.graph.Log
}

// ServiceIDs returns all service IDs in registration order.
func (s *Schedule) ServiceIDs() []string {
	return s.graph.ServiceIDs()
}

// RouteIDs returns all route IDs in registration order.
func (s *Schedule) RouteIDs() []string {
	return s.graph.RouteIDs()
}

// StopIDs returns all stop IDs, sorted.
func (s *Schedule) StopIDs() []string {
	return s.graph.NodeIDs()
}

// ReferenceNodes returns the graph's node IDs, sorted.
func (s *Schedule) ReferenceNodes() []string {
	return s.graph.NodeIDs()
}

// ReferenceEdges returns the graph's directed edges, sorted.
func (s *Schedule) ReferenceEdges() []StopPair {
	return s.graph.EdgePairs()
}

// HasService reports whether the service exists.
func (s *Schedule) HasService(id string) bool {
	_, ok := s.graph.Service(id)
	return ok
}

// HasRoute reports whether the route exists.
func (s *Schedule) HasRoute(id string) bool {
	_, ok := s.graph.Route(id)
	return ok
}

// HasStop reports whether the stop exists.
func (s *Schedule) HasStop(id string) bool {
	return s.graph.HasStop(id)
}

// Service returns a service view by ID.
func (s *Schedule) Service(id string) (*Service, error) {
	service, ok := s.graph.Service(id)
	if !ok {
		return nil, &ServiceIndexError{ID: id, Reason: "does not exist"}
	}
	return service, nil
}

// Route returns a route view by ID, regardless of which service it
// belongs to.
func (s *Schedule) Route(id string) (*Route, error) {
	route, ok := s.graph.Route(id)
	if !ok {
		return nil, &RouteIndexError{ID: id, Reason: "does not exist"}
	}
	return route, nil
}

// Stop returns a stop by ID.
func (s *Schedule) Stop(id string) (*Stop, error) {
	node, ok := s.graph.StopNode(id)
	if !ok {
		return nil, &StopIndexError{ID: id, Reason: "does not exist"}
	}
	return node.Stop, nil
}

// Services returns all service views in registration order.
func (s *Schedule) Services() []*Service {
	ids := s.graph.ServiceIDs()
	services := make([]*Service, 0, len(ids))
	for _, id := range ids {
		if service, ok := s.graph.Service(id); ok {
			services = append(services, service)
		}
	}
	return services
}

// Routes returns all route views in registration order.
func (s *Schedule) Routes() []*Route {
	ids := s.graph.RouteIDs()
	routes := make([]*Route, 0, len(ids))
	for _, id := range ids {
		if route, ok := s.graph.Route(id); ok {
			routes = append(routes, route)
		}
	}
	return routes
}

// Stops returns all stops sorted by ID.
func (s *Schedule) Stops() []*Stop {
	ids := s.graph.NodeIDs()
	stops := make([]*Stop, 0, len(ids))
	for _, id := range ids {
		node, _ := s.graph.StopNode(id)
		stops = append(stops, node.Stop)
	}
	return stops
}

// AddService extends the shared graph with a new service. Incoming route
// IDs clashing with existing ones are reindexed with a warning. Incoming
// stops whose data conflicts with the schedule's existing stop data are
// fatal unless force is set, in which case the schedule's data silently
// wins.
func (s *Schedule) AddService(service *Service, force bool) error {
	if s.HasService(service.ID) {
		return &ServiceIndexError{ID: service.ID, Reason: "already exists in the schedule"}
	}

	for _, route := range service.Routes() {
		if s.HasRoute(route.ID) {
			newID := uniqueID(route.ID, func(candidate string) bool {
				_, inOwn := service.graph.Route(candidate)
				return s.HasRoute(candidate) || inOwn
			})
			s.graph.Logger().Warn("auto-renamed incoming route id clashing with the schedule",
				slog.String("service_id", service.ID),
				slog.String("old_id", route.ID),
				slog.String("new_id", newID))
			if err := route.Reindex(newID); err != nil {
				return err
			}
		}
	}

	if err := s.checkStopConflicts(service.graph, force); err != nil {
		return err
	}

	routeIDs := service.RouteIDs()
	routeAttrs := make([]map[string]any, 0, len(routeIDs))
	routes := service.Routes()
	for _, route := range routes {
		routeAttrs = append(routeAttrs, route.ToAttributes())
	}

	s.graph.mergeFrom(service.graph, true)
	s.graph.refreshServiceTags()

	s.graph.Log.Add("service", service.ID, service.ToAttributes())
	s.graph.Log.AddBunch("route", routeIDs, routeAttrs)

	// Vehicles are generated for newly introduced trips only; vehicles
	// that already carry a type assignment are never overwritten.
	return s.GenerateVehicles(false)
}

// AddServices adds several services; all incoming IDs are checked for
// clashes before any graph mutation happens.
func (s *Schedule) AddServices(services []*Service, force bool) error {
	for _, service := range services {
		if s.HasService(service.ID) {
			return &ServiceIndexError{ID: service.ID, Reason: "already exists in the schedule"}
		}
	}
	for _, service := range services {
		if err := s.AddService(service, force); err != nil {
			return err
		}
	}
	return nil
}

// AddRoute extends an existing service with a new route.
func (s *Schedule) AddRoute(serviceID string, route *Route, force bool) error {
	service, ok := s.graph.Service(serviceID)
	if !ok {
		return &ServiceIndexError{ID: serviceID, Reason: "does not exist"}
	}
	if route.ID == "" || s.HasRoute(route.ID) {
		base := route.ID
		if base == "" {
			base = serviceID
		}
		newID := uniqueID(base, func(candidate string) bool {
			_, inOwn := route.graph.Route(candidate)
			return s.HasRoute(candidate) || inOwn
		})
		s.graph.Logger().Warn("auto-renamed incoming route id clashing with the schedule",
			slog.String("service_id", serviceID),
			slog.String("old_id", route.ID),
			slog.String("new_id", newID))
		if err := route.Reindex(newID); err != nil {
			return err
		}
	}

	if err := s.checkStopConflicts(route.graph, force); err != nil {
		return err
	}

	s.graph.mergeFrom(route.graph, true)
	// The merge is a no-op when the route was built over the schedule's
	// own graph, so the route registry entry is made explicitly.
	s.graph.registerRoute(route)
	s.graph.registerService(service, []string{route.ID})
	s.graph.tagRouteMembership(route)
	s.graph.refreshServiceTags()

	s.graph.Log.Add("route", route.ID, route.ToAttributes())
	return s.GenerateVehicles(false)
}

// checkStopConflicts compares incoming stop data against the schedule's
// existing stops. Conflicts are fatal unless force is set; with force the
// schedule's data wins, with a warning.
func (s *Schedule) checkStopConflicts(incoming *ElementGraph, force bool) error {
	var conflicting []string
	for _, id := range incoming.NodeIDs() {
		existing, ok := s.graph.StopNode(id)
		if !ok {
			continue
		}
		incomingNode, _ := incoming.StopNode(id)
		if !reflect.DeepEqual(existing.Stop.ToAttributes(), incomingNode.Stop.ToAttributes()) {
			conflicting = append(conflicting, id)
		}
	}
	if len(conflicting) == 0 {
		return nil
	}
	if !force {
		return &ConflictingStopDataError{StopIDs: conflicting}
	}
	s.graph.Logger().Warn("force-merging stops with conflicting data, existing data wins",
		slog.Int("stops", len(conflicting)))
	return nil
}

// RemoveService removes a service and all its routes, stripping their
// membership from every touched node and edge. Stops and edges left
// without any route are dropped from the graph; stops referenced by the
// minimum-transfer-time table stay.
func (s *Schedule) RemoveService(id string) error {
	return s.RemoveServices([]string{id})
}

// RemoveServices removes several services. Every given ID must exist.
func (s *Schedule) RemoveServices(ids []string) error {
	for _, id := range ids {
		if !s.HasService(id) {
			return &ServiceIndexError{ID: id, Reason: "does not exist"}
		}
	}
	for _, id := range ids {
		service, _ := s.graph.Service(id)
		serviceAttrs := service.ToAttributes()

		routeIDs := s.graph.RoutesForService(id)
		routes := make([]*Route, 0, len(routeIDs))
		routeAttrs := make([]map[string]any, 0, len(routeIDs))
		for _, routeID := range routeIDs {
			route, _ := s.graph.Route(routeID)
			routes = append(routes, route)
			routeAttrs = append(routeAttrs, route.ToAttributes())
		}

		for _, routeID := range routeIDs {
			s.removeRouteMembershipOnly(routeID)
			s.graph.unregisterRoute(routeID)
		}
		s.graph.unregisterService(id)
		s.graph.refreshServiceTags()

		s.graph.Log.RemoveBunch("route", routeIDs, routeAttrs)
		s.graph.Log.Remove("service", id, serviceAttrs)

		s.removeOrphanedGraphElements(routes)
	}
	s.rebuildVehicles()
	return nil
}

// RemoveRoute removes a single route. If this empties its service, the
// service is removed too, with a warning. Stops and edges only the
// removed route used are dropped from the graph.
func (s *Schedule) RemoveRoute(id string) error {
	return s.RemoveRoutes([]string{id})
}

// RemoveRoutes removes several routes. Every given ID must exist.
func (s *Schedule) RemoveRoutes(ids []string) error {
	for _, id := range ids {
		if !s.HasRoute(id) {
			return &RouteIndexError{ID: id, Reason: "does not exist"}
		}
	}
	for _, id := range ids {
		route, _ := s.graph.Route(id)
		attrs := route.ToAttributes()
		serviceID, hasService := s.graph.ServiceForRoute(id)

		s.removeRouteMembershipOnly(id)
		s.graph.unregisterRoute(id)
		s.graph.refreshServiceTags()
		s.graph.Log.Remove("route", id, attrs)

		if hasService && len(s.graph.RoutesForService(serviceID)) == 0 {
			s.graph.Logger().Warn("service has no routes left, removing it",
				slog.String("service_id", serviceID))
			service, _ := s.graph.Service(serviceID)
			serviceAttrs := service.ToAttributes()
			s.graph.unregisterService(serviceID)
			s.graph.refreshServiceTags()
			s.graph.Log.Remove("service", serviceID, serviceAttrs)
		}

		s.removeOrphanedGraphElements([]*Route{route})
	}
	s.rebuildVehicles()
	return nil
}

// removeRouteMembershipOnly strips a route ID from every node and edge
// membership set without refreshing service tags.
func (s *Schedule) removeRouteMembershipOnly(routeID string) {
	for _, id := range s.graph.NodeIDs() {
		node, _ := s.graph.StopNode(id)
		node.Routes.Remove(routeID)
	}
	for _, pair := range s.graph.EdgePairs() {
		data, _ := s.graph.Edge(pair.From, pair.To)
		data.Routes.Remove(routeID)
	}
}

// removeOrphanedGraphElements deletes the edges and stop nodes that no
// route references anymore after the given routes were stripped from
// the graph. Stops referenced by the minimum-transfer-time table are
// kept, matching the RemoveUnusedStops retention policy.
func (s *Schedule) removeOrphanedGraphElements(removed []*Route) {
	touched := map[string]bool{}
	for _, route := range removed {
		for i := 0; i+1 < len(route.OrderedStops); i++ {
			from, to := route.OrderedStops[i], route.OrderedStops[i+1]
			if data, ok := s.graph.Edge(from, to); ok && data.Routes.Len() == 0 {
				s.graph.RemoveEdge(from, to)
			}
		}
		for _, id := range route.OrderedStops {
			touched[id] = true
		}
	}

	var orphaned []string
	for id := range touched {
		node, ok := s.graph.StopNode(id)
		if !ok {
			continue
		}
		if node.Routes.Len() == 0 && !s.referencedInTransferTimes(id) {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) == 0 {
		return
	}
	sort.Strings(orphaned)
	// Cannot fail: every orphan was just confirmed to be a graph node.
	_ = s.RemoveStops(orphaned)
}

// RemoveStop removes a stop node, its incident edges, and every
// minimum-transfer-time entry referencing it.
func (s *Schedule) RemoveStop(id string) error {
	return s.RemoveStops([]string{id})
}

// RemoveStops removes several stops. Every given ID must exist.
func (s *Schedule) RemoveStops(ids []string) error {
	for _, id := range ids {
		if !s.graph.HasStop(id) {
			return &StopIndexError{ID: id, Reason: "does not exist"}
		}
	}
	removedIDs := make([]string, 0, len(ids))
	removedAttrs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		node, _ := s.graph.StopNode(id)
		attrs := node.Stop.ToAttributes()
		// Captured for the audit trail: which routes and services the
		// stop belonged to at removal time.
		attrs["routes"] = node.Routes.Sorted()
		attrs["services"] = node.Services.Sorted()
		removedIDs = append(removedIDs, id)
		removedAttrs = append(removedAttrs, attrs)

		s.graph.RemoveStopNode(id)
		s.purgeTransferTimes(id)
	}
	s.graph.Log.RemoveBunch("stop", removedIDs, removedAttrs)
	return nil
}

// purgeTransferTimes removes a stop from the minimum-transfer-time table
// in both directions, cleaning up emptied nested entries.
func (s *Schedule) purgeTransferTimes(stopID string) {
	delete(s.MinimalTransferTimes, stopID)
	for from, destinations := range s.MinimalTransferTimes {
		delete(destinations, stopID)
		if len(destinations) == 0 {
			delete(s.MinimalTransferTimes, from)
		}
	}
}

// RemoveUnusedStops removes every stop no route references, except stops
// still referenced by the minimum-transfer-time table. Calling it twice
// in a row makes the second call a no-op.
func (s *Schedule) RemoveUnusedStops() ([]string, error) {
	var unused []string
	for _, id := range s.graph.NodeIDs() {
		node, _ := s.graph.StopNode(id)
		if node.Routes.Len() == 0 && !s.referencedInTransferTimes(id) {
			unused = append(unused, id)
		}
	}
	if len(unused) == 0 {
		return nil, nil
	}
	if err := s.RemoveStops(unused); err != nil {
		return nil, err
	}
	return unused, nil
}

func (s *Schedule) referencedInTransferTimes(stopID string) bool {
	if _, ok := s.MinimalTransferTimes[stopID]; ok {
		return true
	}
	for _, destinations := range s.MinimalTransferTimes {
		if _, ok := destinations[stopID]; ok {
			return true
		}
	}
	return false
}

// SetMinimalTransferTime records the minimum transfer seconds between
// two stops.
func (s *Schedule) SetMinimalTransferTime(from, to string, seconds float64) {
	if s.MinimalTransferTimes[from] == nil {
		s.MinimalTransferTimes[from] = map[string]float64{}
	}
	s.MinimalTransferTimes[from][to] = seconds
}

// MinimalTransferTime looks up the minimum transfer seconds between two
// stops.
func (s *Schedule) MinimalTransferTime(from, to string) (float64, bool) {
	seconds, ok := s.MinimalTransferTimes[from][to]
	return seconds, ok
}

// Add structurally unions another schedule into this one. The two
// schedules must be separable: disjoint service IDs, route IDs, stop
// sets and edge sets. The other schedule is reprojected first if the
// projections differ. overwrite controls clash resolution for the
// vehicle, vehicle-type and transfer-time registries.
func (s *Schedule) Add(other *Schedule, overwrite bool) error {
	overlaps := map[string][]string{}
	if ids := intersectStrings(s.ServiceIDs(), other.ServiceIDs()); len(ids) > 0 {
		overlaps["services"] = ids
	}
	if ids := intersectStrings(s.RouteIDs(), other.RouteIDs()); len(ids) > 0 {
		overlaps["routes"] = ids
	}
	if ids := intersectStrings(s.StopIDs(), other.StopIDs()); len(ids) > 0 {
		overlaps["stops"] = ids
	}
	if pairs := intersectEdges(s.ReferenceEdges(), other.ReferenceEdges()); len(pairs) > 0 {
		overlaps["edges"] = pairs
	}
	if len(overlaps) > 0 {
		return &SeparabilityError{Overlaps: overlaps}
	}

	if other.EPSG != s.EPSG {
		if err := other.Reproject(s.EPSG); err != nil {
			return err
		}
	}

	s.graph.mergeFrom(other.graph, true)
	s.graph.refreshServiceTags()

	for id, vehicle := range other.Vehicles {
		s.mergeRegistryEntry("vehicle", id, overwrite, func() bool {
			existing, ok := s.Vehicles[id]
			return ok && existing != vehicle
		}, func() { s.Vehicles[id] = vehicle })
	}
	for name, vehicleType := range other.VehicleTypes {
		vt := vehicleType
		s.mergeRegistryEntry("vehicle_type", name, overwrite, func() bool {
			existing, ok := s.VehicleTypes[name]
			return ok && !reflect.DeepEqual(existing, vt)
		}, func() { s.VehicleTypes[name] = vt })
	}
	for from, destinations := range other.MinimalTransferTimes {
		for to, seconds := range destinations {
			secs := seconds
			key := fmt.Sprintf("%s->%s", from, to)
			f, t := from, to
			s.mergeRegistryEntry("minimal_transfer_time", key, overwrite, func() bool {
				existing, ok := s.MinimalTransferTime(f, t)
				return ok && existing != secs
			}, func() { s.SetMinimalTransferTime(f, t, secs) })
		}
	}
	return nil
}

// mergeRegistryEntry applies one registry entry from another schedule,
// logging which side won when the entry clashes.
func (s *Schedule) mergeRegistryEntry(kind, id string, overwrite bool, clashes func() bool, apply func()) {
	if clashes() {
		if overwrite {
			s.graph.Logger().Warn("registry clash, incoming data wins",
				slog.String("kind", kind), slog.String("id", id))
			apply()
		} else {
			s.graph.Logger().Warn("registry clash, existing data wins",
				slog.String("kind", kind), slog.String("id", id))
		}
		return
	}
	apply()
}

// ApplyAttributesToStops deep-merges partial attribute updates into the
// given stops. Changing an ID this way is forbidden; use Reindex.
func (s *Schedule) ApplyAttributesToStops(updates map[string]map[string]any) error {
	ids := sortedKeys(updates)
	for _, id := range ids {
		if _, hasID := updates[id]["id"]; hasID {
			return &ForbiddenIDChangeError{ObjectType: "stop", ID: id}
		}
		if !s.graph.HasStop(id) {
			return &StopIndexError{ID: id, Reason: "does not exist"}
		}
	}

	oldAttrs := make([]map[string]any, 0, len(ids))
	newAttrs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		node, _ := s.graph.StopNode(id)
		// Deep-copied so in-place merges below cannot reach into the
		// captured snapshot.
		oldAttrs = append(oldAttrs, deepCopyAttrs(node.Stop.ToAttributes()))
		applyStopAttributes(node.Stop, updates[id])
		newAttrs = append(newAttrs, node.Stop.ToAttributes())
	}
	s.graph.Log.ModifyBunch("stop", ids, oldAttrs, ids, newAttrs)
	return nil
}

// ApplyAttributesToRoutes deep-merges partial attribute updates into the
// given routes. When ordered_stops changes, node and edge membership
// sets are fully re-derived for both the old and new stop sets before
// the rest of the update applies.
func (s *Schedule) ApplyAttributesToRoutes(updates map[string]map[string]any) error {
	ids := sortedKeys(updates)
	for _, id := range ids {
		if _, hasID := updates[id]["id"]; hasID {
			return &ForbiddenIDChangeError{ObjectType: "route", ID: id}
		}
		if !s.HasRoute(id) {
			return &RouteIndexError{ID: id, Reason: "does not exist"}
		}
		if rawStops, ok := updates[id]["ordered_stops"]; ok {
			stops, ok := coerceStringSlice(rawStops)
			if !ok {
				return &RouteIndexError{ID: id, Reason: "ordered_stops must be a list of stop ids"}
			}
			for _, stopID := range stops {
				if !s.graph.HasStop(stopID) {
					return &StopIndexError{ID: stopID, Reason: "does not exist"}
				}
			}
		}
	}

	oldAttrs := make([]map[string]any, 0, len(ids))
	newAttrs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		route, _ := s.graph.Route(id)
		oldAttrs = append(oldAttrs, deepCopyAttrs(route.ToAttributes()))

		if rawStops, ok := updates[id]["ordered_stops"]; ok {
			stops, _ := coerceStringSlice(rawStops)
			route.OrderedStops = stops
			s.removeRouteMembershipOnly(id)
			s.graph.tagRouteMembership(route)
			s.graph.refreshServiceTags()
		}
		applyRouteAttributes(route, updates[id])
		newAttrs = append(newAttrs, route.ToAttributes())
	}
	s.graph.Log.ModifyBunch("route", ids, oldAttrs, ids, newAttrs)
	return nil
}

// ApplyAttributesToServices deep-merges partial attribute updates into
// the given services.
func (s *Schedule) ApplyAttributesToServices(updates map[string]map[string]any) error {
	ids := sortedKeys(updates)
	for _, id := range ids {
		if _, hasID := updates[id]["id"]; hasID {
			return &ForbiddenIDChangeError{ObjectType: "service", ID: id}
		}
		if !s.HasService(id) {
			return &ServiceIndexError{ID: id, Reason: "does not exist"}
		}
	}

	oldAttrs := make([]map[string]any, 0, len(ids))
	newAttrs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		service, _ := s.graph.Service(id)
		oldAttrs = append(oldAttrs, deepCopyAttrs(service.ToAttributes()))
		for key, value := range updates[id] {
			if key == "name" {
				if name, ok := value.(string); ok {
					service.Name = name
				}
				continue
			}
			deepMergeInto(service.Attributes, key, value)
		}
		newAttrs = append(newAttrs, service.ToAttributes())
	}
	s.graph.Log.ModifyBunch("service", ids, oldAttrs, ids, newAttrs)
	return nil
}

// GenerateVehicles derives one vehicle per distinct vehicle ID appearing
// in any route's trips, typed by that route's mode. A vehicle used by
// routes of different modes is fatal. Without overwrite, vehicles that
// already carry a type assignment keep it.
func (s *Schedule) GenerateVehicles(overwrite bool) error {
	modes := map[string]string{}
	var order []string
	for _, route := range s.Routes() {
		for _, vehicleID := range route.Trips.VehicleIDs {
			if existing, ok := modes[vehicleID]; ok {
				if existing != route.Mode {
					return &InconsistentVehicleModeError{
						VehicleID: vehicleID,
						Modes:     []string{existing, route.Mode},
					}
				}
				continue
			}
			modes[vehicleID] = route.Mode
			order = append(order, vehicleID)
		}
	}

	for _, vehicleID := range order {
		if !overwrite {
			if existing, ok := s.Vehicles[vehicleID]; ok && existing.Type != "" {
				continue
			}
		}
		s.Vehicles[vehicleID] = Vehicle{Type: modes[vehicleID]}
	}
	return nil
}

// rebuildVehicles regenerates the registry after removals: only vehicles
// still referenced by trips survive, keeping their type assignments.
func (s *Schedule) rebuildVehicles() {
	referenced := map[string]string{}
	for _, route := range s.Routes() {
		for _, vehicleID := range route.Trips.VehicleIDs {
			if _, ok := referenced[vehicleID]; !ok {
				referenced[vehicleID] = route.Mode
			}
		}
	}
	rebuilt := make(map[string]Vehicle, len(referenced))
	for vehicleID, mode := range referenced {
		if existing, ok := s.Vehicles[vehicleID]; ok && existing.Type != "" {
			rebuilt[vehicleID] = existing
		} else {
			rebuilt[vehicleID] = Vehicle{Type: mode}
		}
	}
	s.Vehicles = rebuilt
}

// ValidateVehicleDefinitions reports, without raising, the vehicles
// whose type is missing from the given definitions.
func (s *Schedule) ValidateVehicleDefinitions(defs *vehicles.Definitions) []string {
	var missing []string
	for vehicleID, vehicle := range s.Vehicles {
		if !defs.Has(vehicle.Type) {
			missing = append(missing, vehicleID)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		s.graph.Logger().Warn("vehicles reference undefined vehicle types",
			slog.Int("vehicles", len(missing)))
	}
	return missing
}

// Reproject transforms every stop's x,y into a new projection. The
// WGS84 lat/lon anchors are untouched.
func (s *Schedule) Reproject(newEPSG string) error {
	if s.EPSG == newEPSG {
		return nil
	}
	transformer, err := geo.NewTransformer(s.EPSG, newEPSG)
	if err != nil {
		return err
	}
	for _, stop := range s.Stops() {
		if err := stop.Reproject(newEPSG, transformer); err != nil {
			return err
		}
	}
	s.EPSG = newEPSG
	s.graph.CRS = newEPSG
	return nil
}

// Stats summarizes the schedule.
func (s *Schedule) Stats() Stats {
	return Stats{
		NumServices: len(s.ServiceIDs()),
		NumRoutes:   len(s.RouteIDs()),
		NumStops:    len(s.StopIDs()),
		NumEdges:    len(s.ReferenceEdges()),
		NumVehicles: len(s.Vehicles),
	}
}

// InvalidRoutes returns the IDs of routes that fail validity checks.
func (s *Schedule) InvalidRoutes() []string {
	var invalid []string
	for _, route := range s.Routes() {
		if !route.IsValidRoute() {
			invalid = append(invalid, route.ID)
		}
	}
	return invalid
}

// InvalidServices returns the IDs of services with at least one invalid
// route.
func (s *Schedule) InvalidServices() []string {
	var invalid []string
	for _, service := range s.Services() {
		if !service.IsValidService() {
			invalid = append(invalid, service.ID)
		}
	}
	return invalid
}

// HasValidServices reports whether every service is valid.
func (s *Schedule) HasValidServices() bool {
	return len(s.InvalidServices()) == 0
}

// applyStopAttributes deep-merges an attribute update into a stop,
// routing known keys to typed fields and everything else into the
// extension bag.
func applyStopAttributes(stop *Stop, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "name":
			if v, ok := value.(string); ok {
				stop.Name = v
			}
		case "x":
			if v, ok := coerceFloat(value); ok {
				stop.X = v
			}
		case "y":
			if v, ok := coerceFloat(value); ok {
				stop.Y = v
			}
		case "epsg":
			if v, ok := value.(string); ok {
				stop.EPSG = v
			}
		case "lat":
			if v, ok := coerceFloat(value); ok {
				stop.Lat = v
			}
		case "lon":
			if v, ok := coerceFloat(value); ok {
				stop.Lon = v
			}
		default:
			deepMergeInto(stop.Attributes, key, value)
		}
	}
}

// applyRouteAttributes deep-merges an attribute update into a route.
// ordered_stops is handled by the caller before this applies.
func applyRouteAttributes(route *Route, updates map[string]any) {
	for key, value := range updates {
		switch key {
		case "ordered_stops":
			// Already applied, with membership re-derivation.
		case "route_short_name":
			if v, ok := value.(string); ok {
				route.ShortName = v
			}
		case "route_long_name":
			if v, ok := value.(string); ok {
				route.LongName = v
			}
		case "mode":
			if v, ok := value.(string); ok {
				route.Mode = v
			}
		case "arrival_offsets":
			if v, ok := coerceStringSlice(value); ok {
				route.ArrivalOffsets = v
			}
		case "departure_offsets":
			if v, ok := coerceStringSlice(value); ok {
				route.DepartureOffsets = v
			}
		case "route":
			if v, ok := coerceStringSlice(value); ok {
				route.NetworkLinks = v
			}
		case "trips":
			if v, ok := value.(map[string]any); ok {
				if ids, ok := coerceStringSlice(v["trip_id"]); ok {
					route.Trips.IDs = ids
				}
				if times, ok := coerceStringSlice(v["trip_departure_time"]); ok {
					route.Trips.DepartureTimes = times
				}
				if vehicleIDs, ok := coerceStringSlice(v["vehicle_id"]); ok {
					route.Trips.VehicleIDs = vehicleIDs
				}
			}
		default:
			deepMergeInto(route.Attributes, key, value)
		}
	}
}

// deepMergeInto merges value under key: nested maps merge recursively,
// scalars and lists overwrite.
func deepMergeInto(target map[string]any, key string, value any) {
	incoming, incomingIsMap := value.(map[string]any)
	existing, existingIsMap := target[key].(map[string]any)
	if incomingIsMap && existingIsMap {
		for k, v := range incoming {
			deepMergeInto(existing, k, v)
		}
		return
	}
	target[key] = value
}

// deepCopyAttrs copies an attribute dictionary recursively through
// nested maps and slices, leaving scalar values shared.
func deepCopyAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyAttrs(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []bool:
		return append([]bool(nil), v...)
	}
	return value
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func coerceStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intersectStrings(a, b []string) []string {
	set := NewIDSet(a...)
	var out []string
	for _, id := range b {
		if set.Has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func intersectEdges(a, b []StopPair) []string {
	set := map[StopPair]struct{}{}
	for _, pair := range a {
		set[pair] = struct{}{}
	}
	var out []string
	for _, pair := range b {
		if _, ok := set[pair]; ok {
			out = append(out, fmt.Sprintf("%s->%s", pair.From, pair.To))
		}
	}
	sort.Strings(out)
	return out
}

// uniqueID finds the first free candidate by suffixing the base with an
// increasing counter.
func uniqueID(base string, taken func(string) bool) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
