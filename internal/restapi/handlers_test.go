package restapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointsRequireValidApiKey(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stops.json?key=invalid")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, model.Code)
	assert.Equal(t, "permission denied", model.Text)
	assert.Equal(t, 1, model.Version)
}

func TestStopsHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stops.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", model.Text)
	assert.Equal(t, 2, model.Version)

	list := retrieveList(t, model)
	require.Len(t, list, 2)

	first, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s1", first["id"])
	assert.Equal(t, "First Street", first["name"])
	assert.InDelta(t, 51.5, first["lat"], 1e-8)
	assert.InDelta(t, -0.1, first["lon"], 1e-8)
	assert.Equal(t, "epsg:4326", first["epsg"])
}

func TestStopHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stop/s1.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	assert.Equal(t, "s1", entry["id"])
	assert.Equal(t, []any{"r1"}, entry["routeIds"])
	assert.Equal(t, []any{"svc1"}, entry["serviceIds"])

	times, ok := entry["minimalTransferTimes"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 120.0, times["s2"], 1e-8)
}

func TestStopHandlerRejectsMalformedID(t *testing.T) {
	resp, _ := serveAndRetrieveEndpoint(t, "/api/graph/stop/bad%20id.json?key=TEST")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStopHandlerNotFound(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stop/nope.json?key=TEST")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "resource not found", model.Text)
}

func TestRoutesHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/routes.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	list := retrieveList(t, model)
	require.Len(t, list, 1)

	route, ok := list[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", route["id"])
	assert.Equal(t, "bus", route["mode"])
	assert.InDelta(t, 2.0, route["stopCount"], 1e-8)
	assert.InDelta(t, 2.0, route["tripCount"], 1e-8)
	assert.True(t, route["valid"].(bool))
}

func TestRouteHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/route/r1.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	assert.Equal(t, "r1", entry["id"])
	assert.Equal(t, "svc1", entry["serviceId"])
	assert.Equal(t, []any{"s1", "s2"}, entry["orderedStops"])
	// s1 and s2 are roughly 2.6 km apart.
	assert.InDelta(t, 2620.0, entry["lengthMeters"], 30)

	trips, ok := entry["trips"].([]any)
	require.True(t, ok)
	require.Len(t, trips, 4)

	first, ok := trips[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "t1", first["trip_id"])
	assert.Equal(t, "08:00:00", first["trip_departure_time"])
	assert.Equal(t, "s1", first["stop_id"])

	_, hasReasons := entry["invalidReasons"]
	assert.False(t, hasReasons)
}

func TestServiceHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/service/svc1.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	assert.Equal(t, "svc1", entry["id"])
	assert.Equal(t, "Line One", entry["name"])
	assert.Equal(t, []any{"r1"}, entry["routeIds"])
	assert.True(t, entry["valid"].(bool))

	directions, ok := entry["directions"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, directions, 1)
}

func TestValidationHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/validation.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	assert.True(t, entry["hasValidServices"].(bool))
	assert.Empty(t, entry["invalidRoutes"])
	assert.Empty(t, entry["invalidServices"])
}

func TestStatsHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stats.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	assert.Equal(t, "epsg:4326", entry["epsg"])
	assert.InDelta(t, 1.0, entry["services"], 1e-8)
	assert.InDelta(t, 1.0, entry["routes"], 1e-8)
	assert.InDelta(t, 2.0, entry["stops"], 1e-8)
	assert.InDelta(t, 1.0, entry["edges"], 1e-8)
	assert.InDelta(t, 2.0, entry["vehicles"], 1e-8)
}

func TestVehiclesHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/vehicles.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entry := retrieveEntry(t, model)
	vehicles, ok := entry["vehicles"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bus", vehicles["veh_bus_t1"])
	assert.Equal(t, "bus", vehicles["veh_bus_t2"])
}

func TestChangeLogHandler(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/change-log.json?key=TEST")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", model.Text)
}

func TestMetricsEndpointNeedsNoKey(t *testing.T) {
	resp, model := serveAndRetrieveEndpoint(t, "/api/graph/stats.json?key=TEST")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", model.Text)

	metricsResp, err := http.Get(resp.Request.URL.Scheme + "://" + resp.Request.URL.Host + "/metrics")
	require.NoError(t, err)
	t.Cleanup(func() { _ = metricsResp.Body.Close() })
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
