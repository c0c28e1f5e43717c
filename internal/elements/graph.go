package elements

import (
	"log/slog"
	"sort"

	"netweave.openmodal.org/internal/changelog"
)

// StopPair identifies a directed stop-to-stop hop.
type StopPair struct {
	From string
	To   string
}

// StopNode is a graph node: the stop itself plus membership sets
// recording which routes and services reference it.
type StopNode struct {
	Stop     *Stop
	Routes   IDSet
	Services IDSet
}

// EdgeData carries the membership sets of a stop-to-stop hop.
type EdgeData struct {
	Routes   IDSet
	Services IDSet
}

// ElementGraph is the directed graph substrate shared by every Route,
// Service and Schedule view over the same network: nodes are stops, edges
// are consecutive-stop hops, and the graph-level registries hold the full
// route and service attribute records together with the change log.
//
// The graph is not safe for concurrent mutation; access is assumed to be
// exclusive and sequential.
type ElementGraph struct {
	CRS string
	Log *changelog.ChangeLog

	nodes map[string]*StopNode
	edges map[string]map[string]*EdgeData

	routes       map[string]*Route
	routeOrder   []string
	services     map[string]*Service
	serviceOrder []string

	routeToService  map[string]string
	serviceToRoutes map[string][]string

	logger *slog.Logger
}

// NewElementGraph creates an empty graph declared in the given projection.
func NewElementGraph(crs string) *ElementGraph {
	return &ElementGraph{
		CRS:             crs,
		Log:             changelog.New(),
		nodes:           map[string]*StopNode{},
		edges:           map[string]map[string]*EdgeData{},
		routes:          map[string]*Route{},
		services:        map[string]*Service{},
		routeToService:  map[string]string{},
		serviceToRoutes: map[string][]string{},
		logger:          slog.Default(),
	}
}

// SetLogger redirects the graph's warning output.
func (g *ElementGraph) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Logger returns the graph's logger.
func (g *ElementGraph) Logger() *slog.Logger {
	return g.logger
}

// AddStop inserts a stop as a graph node, or returns the existing node if
// one with the same ID is already present.
func (g *ElementGraph) AddStop(stop *Stop) *StopNode {
	if node, ok := g.nodes[stop.ID]; ok {
		return node
	}
	node := &StopNode{Stop: stop, Routes: NewIDSet(), Services: NewIDSet()}
	g.nodes[stop.ID] = node
	return node
}

// StopNode looks up a node by stop ID.
func (g *ElementGraph) StopNode(id string) (*StopNode, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// HasStop reports whether a stop ID is a node of the graph.
func (g *ElementGraph) HasStop(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// RemoveStopNode deletes a node and every edge incident to it.
func (g *ElementGraph) RemoveStopNode(id string) {
	delete(g.nodes, id)
	delete(g.edges, id)
	for from, successors := range g.edges {
		delete(successors, id)
		if len(successors) == 0 {
			delete(g.edges, from)
		}
	}
}

// AddEdge inserts a directed edge between two existing nodes, or returns
// the existing edge data.
func (g *ElementGraph) AddEdge(from, to string) *EdgeData {
	successors, ok := g.edges[from]
	if !ok {
		successors = map[string]*EdgeData{}
		g.edges[from] = successors
	}
	if data, ok := successors[to]; ok {
		return data
	}
	data := &EdgeData{Routes: NewIDSet(), Services: NewIDSet()}
	successors[to] = data
	return data
}

// Edge looks up the data of a directed edge.
func (g *ElementGraph) Edge(from, to string) (*EdgeData, bool) {
	data, ok := g.edges[from][to]
	return data, ok
}

// HasEdge reports whether the directed edge exists.
func (g *ElementGraph) HasEdge(from, to string) bool {
	_, ok := g.edges[from][to]
	return ok
}

// RemoveEdge deletes a directed edge.
func (g *ElementGraph) RemoveEdge(from, to string) {
	successors, ok := g.edges[from]
	if !ok {
		return
	}
	delete(successors, to)
	if len(successors) == 0 {
		delete(g.edges, from)
	}
}

// NodeIDs returns all node IDs in lexicographic order.
func (g *ElementGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EdgePairs returns all directed edges in lexicographic order.
func (g *ElementGraph) EdgePairs() []StopPair {
	pairs := make([]StopPair, 0)
	for from, successors := range g.edges {
		for to := range successors {
			pairs = append(pairs, StopPair{From: from, To: to})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})
	return pairs
}

// Route looks up a registered route.
func (g *ElementGraph) Route(id string) (*Route, bool) {
	r, ok := g.routes[id]
	return r, ok
}

// Service looks up a registered service.
func (g *ElementGraph) Service(id string) (*Service, bool) {
	s, ok := g.services[id]
	return s, ok
}

// RouteIDs returns registered route IDs in registration order.
func (g *ElementGraph) RouteIDs() []string {
	return append([]string(nil), g.routeOrder...)
}

// ServiceIDs returns registered service IDs in registration order.
func (g *ElementGraph) ServiceIDs() []string {
	return append([]string(nil), g.serviceOrder...)
}

// RoutesForService returns the ordered route IDs of a service.
func (g *ElementGraph) RoutesForService(serviceID string) []string {
	return append([]string(nil), g.serviceToRoutes[serviceID]...)
}

// ServiceForRoute returns the service a route belongs to, if any.
func (g *ElementGraph) ServiceForRoute(routeID string) (string, bool) {
	serviceID, ok := g.routeToService[routeID]
	return serviceID, ok
}

// registerRoute places a route in the graph-level registry and points the
// route's graph reference here.
func (g *ElementGraph) registerRoute(r *Route) {
	if _, exists := g.routes[r.ID]; !exists {
		g.routeOrder = append(g.routeOrder, r.ID)
	}
	g.routes[r.ID] = r
	r.graph = g
}

// unregisterRoute removes a route from the registry and the
// route-to-service maps.
func (g *ElementGraph) unregisterRoute(id string) {
	delete(g.routes, id)
	g.routeOrder = removeFromSlice(g.routeOrder, id)
	if serviceID, ok := g.routeToService[id]; ok {
		g.serviceToRoutes[serviceID] = removeFromSlice(g.serviceToRoutes[serviceID], id)
		delete(g.routeToService, id)
	}
}

// registerService places a service and its route membership in the
// graph-level registries.
func (g *ElementGraph) registerService(s *Service, routeIDs []string) {
	if _, exists := g.services[s.ID]; !exists {
		g.serviceOrder = append(g.serviceOrder, s.ID)
	}
	g.services[s.ID] = s
	s.graph = g
	for _, routeID := range routeIDs {
		g.routeToService[routeID] = s.ID
		if !containsString(g.serviceToRoutes[s.ID], routeID) {
			g.serviceToRoutes[s.ID] = append(g.serviceToRoutes[s.ID], routeID)
		}
	}
}

// unregisterService removes a service from the registries. Its routes
// must already be gone.
func (g *ElementGraph) unregisterService(id string) {
	delete(g.services, id)
	g.serviceOrder = removeFromSlice(g.serviceOrder, id)
	delete(g.serviceToRoutes, id)
}

// tagRouteMembership stamps the route (and its service, when attached) on
// every node and edge the route's ordered stops touch.
func (g *ElementGraph) tagRouteMembership(r *Route) {
	serviceID, hasService := g.routeToService[r.ID]
	for i, stopID := range r.OrderedStops {
		if node, ok := g.nodes[stopID]; ok {
			node.Routes.Add(r.ID)
			if hasService {
				node.Services.Add(serviceID)
			}
		}
		if i > 0 {
			data := g.AddEdge(r.OrderedStops[i-1], stopID)
			data.Routes.Add(r.ID)
			if hasService {
				data.Services.Add(serviceID)
			}
		}
	}
}

// stripRouteMembership removes the route ID from every membership set,
// then re-derives service membership sets from what remains.
func (g *ElementGraph) stripRouteMembership(routeID string) {
	for _, node := range g.nodes {
		node.Routes.Remove(routeID)
	}
	for _, successors := range g.edges {
		for _, data := range successors {
			data.Routes.Remove(routeID)
		}
	}
	g.refreshServiceTags()
}

// refreshServiceTags recomputes the services set of every node and edge
// as the image of its routes set under the route-to-service map. This is
// the single choke point keeping the dual membership invariant true.
func (g *ElementGraph) refreshServiceTags() {
	for _, node := range g.nodes {
		node.Services = g.serviceImage(node.Routes)
	}
	for _, successors := range g.edges {
		for _, data := range successors {
			data.Services = g.serviceImage(data.Routes)
		}
	}
}

func (g *ElementGraph) serviceImage(routes IDSet) IDSet {
	services := NewIDSet()
	for routeID := range routes {
		if serviceID, ok := g.routeToService[routeID]; ok {
			services.Add(serviceID)
		}
	}
	return services
}

// renameRouteMembership rewrites a route ID in every membership set and
// registry without touching graph topology.
func (g *ElementGraph) renameRouteMembership(oldID, newID string) {
	for _, node := range g.nodes {
		if node.Routes.Has(oldID) {
			node.Routes.Remove(oldID)
			node.Routes.Add(newID)
		}
	}
	for _, successors := range g.edges {
		for _, data := range successors {
			if data.Routes.Has(oldID) {
				data.Routes.Remove(oldID)
				data.Routes.Add(newID)
			}
		}
	}
	if r, ok := g.routes[oldID]; ok {
		delete(g.routes, oldID)
		g.routes[newID] = r
		replaceInSlice(g.routeOrder, oldID, newID)
	}
	if serviceID, ok := g.routeToService[oldID]; ok {
		delete(g.routeToService, oldID)
		g.routeToService[newID] = serviceID
		replaceInSlice(g.serviceToRoutes[serviceID], oldID, newID)
	}
}

// renameServiceMembership rewrites a service ID in every membership set
// and registry.
func (g *ElementGraph) renameServiceMembership(oldID, newID string) {
	for _, node := range g.nodes {
		if node.Services.Has(oldID) {
			node.Services.Remove(oldID)
			node.Services.Add(newID)
		}
	}
	for _, successors := range g.edges {
		for _, data := range successors {
			if data.Services.Has(oldID) {
				data.Services.Remove(oldID)
				data.Services.Add(newID)
			}
		}
	}
	if s, ok := g.services[oldID]; ok {
		delete(g.services, oldID)
		g.services[newID] = s
		replaceInSlice(g.serviceOrder, oldID, newID)
	}
	if routeIDs, ok := g.serviceToRoutes[oldID]; ok {
		delete(g.serviceToRoutes, oldID)
		g.serviceToRoutes[newID] = routeIDs
	}
	for routeID, serviceID := range g.routeToService {
		if serviceID == oldID {
			g.routeToService[routeID] = newID
		}
	}
}

// mergeFrom absorbs another graph: nodes, edges, registries and change
// log. Membership sets are unioned. When both graphs carry a node with
// the same ID, preferExisting keeps the receiver's stop data, otherwise
// the other graph's data wins. Every route and service object of the
// other graph is re-pointed at the receiver, so all views over either
// graph alias the merged one afterwards.
func (g *ElementGraph) mergeFrom(other *ElementGraph, preferExisting bool) {
	if other == nil || other == g {
		return
	}
	for _, id := range other.NodeIDs() {
		incoming := other.nodes[id]
		node, exists := g.nodes[id]
		if !exists {
			g.nodes[id] = &StopNode{
				Stop:     incoming.Stop,
				Routes:   incoming.Routes.Copy(),
				Services: incoming.Services.Copy(),
			}
			continue
		}
		if !preferExisting {
			node.Stop = incoming.Stop
		}
		node.Routes.Merge(incoming.Routes)
		node.Services.Merge(incoming.Services)
	}
	for _, pair := range other.EdgePairs() {
		incoming, _ := other.Edge(pair.From, pair.To)
		data := g.AddEdge(pair.From, pair.To)
		data.Routes.Merge(incoming.Routes)
		data.Services.Merge(incoming.Services)
	}
	for _, routeID := range other.routeOrder {
		g.registerRoute(other.routes[routeID])
	}
	for _, serviceID := range other.serviceOrder {
		g.registerService(other.services[serviceID], other.serviceToRoutes[serviceID])
	}
	for routeID, serviceID := range other.routeToService {
		g.routeToService[routeID] = serviceID
	}
	g.Log = g.Log.MergeLogs(other.Log)
}

func removeFromSlice(s []string, value string) []string {
	out := s[:0]
	for _, v := range s {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func replaceInSlice(s []string, oldValue, newValue string) {
	for i, v := range s {
		if v == oldValue {
			s[i] = newValue
		}
	}
}

func containsString(s []string, value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}
