package elements

import (
	"fmt"
	"sort"
	"strings"
)

// VerifyGraphSchema is the sole gate for adopting a foreign graph as a
// schedule element graph. It checks structural requirements only; domain
// validity (offsets, self-loops, network paths) stays a query on the
// constructed objects.
func VerifyGraphSchema(g *ElementGraph) error {
	if g == nil {
		return &ScheduleElementGraphSchemaError{Reason: "not a directed graph"}
	}
	for id, node := range g.nodes {
		if node == nil || node.Stop == nil {
			return &ScheduleElementGraphSchemaError{Reason: fmt.Sprintf("node %q carries no stop data", id)}
		}
		missing := missingStopKeys(node.Stop)
		if len(missing) > 0 {
			return &ScheduleElementGraphSchemaError{
				Reason: fmt.Sprintf("node %q lacks required keys: %s", id, strings.Join(missing, ", ")),
			}
		}
	}
	if g.routes == nil {
		return &ScheduleElementGraphSchemaError{Reason: "graph lacks a routes registry"}
	}
	for id, route := range g.routes {
		if route == nil {
			return &ScheduleElementGraphSchemaError{Reason: fmt.Sprintf("route entry %q is empty", id)}
		}
		missing := missingRouteKeys(route)
		if len(missing) > 0 {
			return &ScheduleElementGraphSchemaError{
				Reason: fmt.Sprintf("route %q lacks required keys: %s", id, strings.Join(missing, ", ")),
			}
		}
	}
	if g.services == nil {
		return &ScheduleElementGraphSchemaError{Reason: "graph lacks a services registry"}
	}
	for id, service := range g.services {
		if service == nil || service.ID == "" {
			return &ScheduleElementGraphSchemaError{Reason: fmt.Sprintf("service entry %q lacks an id", id)}
		}
	}
	return nil
}

// missingStopKeys returns the required stop fields that are absent. The
// x,y coordinates are always structurally present on a typed stop, so
// absence reduces to an empty identity or projection.
func missingStopKeys(s *Stop) []string {
	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if s.EPSG == "" {
		missing = append(missing, "epsg")
	}
	return missing
}

// missingRouteKeys returns the required route fields that are absent.
func missingRouteKeys(r *Route) []string {
	var missing []string
	if r.ID == "" {
		missing = append(missing, "id")
	}
	if len(r.OrderedStops) == 0 {
		missing = append(missing, "ordered_stops")
	}
	if r.Mode == "" {
		missing = append(missing, "mode")
	}
	if len(r.ArrivalOffsets) == 0 {
		missing = append(missing, "arrival_offsets")
	}
	if len(r.DepartureOffsets) == 0 {
		missing = append(missing, "departure_offsets")
	}
	if r.Trips.Len() == 0 {
		missing = append(missing, "trips")
	}
	return missing
}

// VerifyMembershipClosure checks the dual membership invariant: every
// node's routes set equals exactly the routes whose ordered stops contain
// it, its services set is the image of that under the route-to-service
// map, and the same holds for edges relative to consecutive stop pairs.
func VerifyMembershipClosure(g *ElementGraph) error {
	expectedNodeRoutes := map[string]IDSet{}
	expectedEdgeRoutes := map[StopPair]IDSet{}
	for id := range g.nodes {
		expectedNodeRoutes[id] = NewIDSet()
	}
	for _, routeID := range g.routeOrder {
		route := g.routes[routeID]
		for i, stopID := range route.OrderedStops {
			if set, ok := expectedNodeRoutes[stopID]; ok {
				set.Add(routeID)
			}
			if i > 0 {
				pair := StopPair{From: route.OrderedStops[i-1], To: stopID}
				if _, ok := expectedEdgeRoutes[pair]; !ok {
					expectedEdgeRoutes[pair] = NewIDSet()
				}
				expectedEdgeRoutes[pair].Add(routeID)
			}
		}
	}

	var problems []string
	for id, node := range g.nodes {
		if !node.Routes.Equal(expectedNodeRoutes[id]) {
			problems = append(problems, fmt.Sprintf("node %q routes %v != %v", id, node.Routes.Sorted(), expectedNodeRoutes[id].Sorted()))
		}
		if !node.Services.Equal(g.serviceImage(node.Routes)) {
			problems = append(problems, fmt.Sprintf("node %q services %v are not the image of its routes", id, node.Services.Sorted()))
		}
	}
	for _, pair := range g.EdgePairs() {
		data, _ := g.Edge(pair.From, pair.To)
		expected := expectedEdgeRoutes[pair]
		if expected == nil {
			expected = NewIDSet()
		}
		if !data.Routes.Equal(expected) {
			problems = append(problems, fmt.Sprintf("edge %s->%s routes %v != %v", pair.From, pair.To, data.Routes.Sorted(), expected.Sorted()))
		}
		if !data.Services.Equal(g.serviceImage(data.Routes)) {
			problems = append(problems, fmt.Sprintf("edge %s->%s services are not the image of its routes", pair.From, pair.To))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &ScheduleElementGraphSchemaError{Reason: strings.Join(problems, "; ")}
	}
	return nil
}
