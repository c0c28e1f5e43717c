package elements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAddStopReturnsExistingNode(t *testing.T) {
	g := NewElementGraph("epsg:4326")
	first := g.AddStop(stopAt(t, "s1", 51.5, -0.1))
	second := g.AddStop(stopAt(t, "s1", 52.0, -0.2))

	assert.Same(t, first, second)
	node, _ := g.StopNode("s1")
	assert.Equal(t, 51.5, node.Stop.Lat)
}

func TestGraphRemoveStopNodeRemovesIncidentEdges(t *testing.T) {
	g := NewElementGraph("epsg:4326")
	g.AddStop(stopAt(t, "s1", 51.5, -0.1))
	g.AddStop(stopAt(t, "s2", 51.51, -0.1))
	g.AddStop(stopAt(t, "s3", 51.52, -0.1))
	g.AddEdge("s1", "s2")
	g.AddEdge("s2", "s3")
	g.AddEdge("s3", "s1")

	g.RemoveStopNode("s2")

	assert.False(t, g.HasStop("s2"))
	assert.False(t, g.HasEdge("s1", "s2"))
	assert.False(t, g.HasEdge("s2", "s3"))
	assert.True(t, g.HasEdge("s3", "s1"))
}

func TestGraphEdgePairsSorted(t *testing.T) {
	g := NewElementGraph("epsg:4326")
	for _, id := range []string{"b", "a", "c"} {
		g.AddStop(stopAt(t, id, 51.5, -0.1))
	}
	g.AddEdge("c", "a")
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")

	assert.Equal(t, []StopPair{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
		{From: "c", To: "a"},
	}, g.EdgePairs())
}

func TestMergeFromUnionsMemberships(t *testing.T) {
	r1 := simpleRoute(t, "r1", "bus",
		stopAt(t, "s1", 51.5, -0.1),
		stopAt(t, "s2", 51.51, -0.1),
	)
	r2 := simpleRoute(t, "r2", "bus",
		stopAt(t, "s2", 51.51, -0.1),
		stopAt(t, "s3", 51.52, -0.1),
	)

	g := r1.Graph()
	g.mergeFrom(r2.Graph(), false)

	// The absorbed route now aliases the receiving graph.
	assert.Same(t, g, r2.Graph())

	node, ok := g.StopNode("s2")
	require.True(t, ok)
	assert.True(t, node.Routes.Has("r1"))
	assert.True(t, node.Routes.Has("r2"))
	assert.Equal(t, []string{"r1", "r2"}, g.RouteIDs())
}

func TestMergeFromPreferExistingKeepsStopData(t *testing.T) {
	g := NewElementGraph("epsg:4326")
	g.AddStop(stopAt(t, "s1", 51.5, -0.1))

	other := NewElementGraph("epsg:4326")
	other.AddStop(stopAt(t, "s1", 52.0, -0.2))

	g.mergeFrom(other, true)
	node, _ := g.StopNode("s1")
	assert.Equal(t, 51.5, node.Stop.Lat)

	// Without preferExisting the incoming data wins.
	g2 := NewElementGraph("epsg:4326")
	g2.AddStop(stopAt(t, "s1", 51.5, -0.1))
	other2 := NewElementGraph("epsg:4326")
	other2.AddStop(stopAt(t, "s1", 52.0, -0.2))
	g2.mergeFrom(other2, false)
	node2, _ := g2.StopNode("s1")
	assert.Equal(t, 52.0, node2.Stop.Lat)
}

func TestTagAndStripRouteMembership(t *testing.T) {
	r := simpleRoute(t, "r1", "bus",
		stopAt(t, "s1", 51.5, -0.1),
		stopAt(t, "s2", 51.51, -0.1),
	)
	svc := simpleService(t, "svc", r)
	g := svc.Graph()

	edge, ok := g.Edge("s1", "s2")
	require.True(t, ok)
	assert.True(t, edge.Routes.Has("r1"))
	assert.True(t, edge.Services.Has("svc"))

	g.stripRouteMembership("r1")

	node, _ := g.StopNode("s1")
	assert.False(t, node.Routes.Has("r1"))
	assert.False(t, node.Services.Has("svc"))
	assert.False(t, edge.Routes.Has("r1"))
	assert.False(t, edge.Services.Has("svc"))
}

func TestRefreshServiceTagsIsTheChokePoint(t *testing.T) {
	r := simpleRoute(t, "r1", "bus",
		stopAt(t, "s1", 51.5, -0.1),
		stopAt(t, "s2", 51.51, -0.1),
	)
	svc := simpleService(t, "svc", r)
	g := svc.Graph()

	// Corrupt a service tag by hand, then re-derive.
	node, _ := g.StopNode("s1")
	node.Services.Add("phantom")
	require.Error(t, VerifyMembershipClosure(g))

	g.refreshServiceTags()
	require.NoError(t, VerifyMembershipClosure(g))
}

func TestRenameRouteMembershipRewritesRegistries(t *testing.T) {
	r := simpleRoute(t, "r1", "bus",
		stopAt(t, "s1", 51.5, -0.1),
		stopAt(t, "s2", 51.51, -0.1),
	)
	svc := simpleService(t, "svc", r)
	g := svc.Graph()

	g.renameRouteMembership("r1", "r1x")
	r.ID = "r1x"

	assert.Equal(t, []string{"r1x"}, g.RouteIDs())
	assert.Equal(t, []string{"r1x"}, g.RoutesForService("svc"))
	serviceID, ok := g.ServiceForRoute("r1x")
	require.True(t, ok)
	assert.Equal(t, "svc", serviceID)
	require.NoError(t, VerifyMembershipClosure(g))
}

func TestMergeFromMergesChangeLogs(t *testing.T) {
	r1 := simpleRoute(t, "r1", "bus",
		stopAt(t, "s1", 51.5, -0.1),
		stopAt(t, "s2", 51.51, -0.1),
	)
	r2 := simpleRoute(t, "r2", "bus",
		stopAt(t, "s3", 51.52, -0.1),
		stopAt(t, "s4", 51.53, -0.1),
	)
	g := r1.Graph()
	g.Log.Add("route", "r1", r1.ToAttributes())
	r2.Graph().Log.Add("route", "r2", r2.ToAttributes())

	g.mergeFrom(r2.Graph(), false)

	assert.Equal(t, 2, g.Log.Len())
}
