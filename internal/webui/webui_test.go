package webui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netweave.openmodal.org/internal/app"
	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/geo"
)

func newTestWebUI(t *testing.T) *WebUI {
	t.Helper()

	s1, err := elements.NewStop("s1", -0.1, 51.5, geo.WGS84)
	require.NoError(t, err)
	s2, err := elements.NewStop("s2", -0.12, 51.52, geo.WGS84)
	require.NoError(t, err)

	route, err := elements.NewRoute(elements.RouteConfig{
		ID: "r1", Mode: "bus",
		Stops:            []*elements.Stop{s1, s2},
		ArrivalOffsets:   []string{"00:00:00", "00:03:00"},
		DepartureOffsets: []string{"00:00:00", "00:03:00"},
		Trips: &elements.Trips{
			IDs:            []string{"t1"},
			DepartureTimes: []string{"08:00:00"},
			VehicleIDs:     []string{"veh_bus_t1"},
		},
	})
	require.NoError(t, err)

	svc, err := elements.NewService(elements.ServiceConfig{ID: "svc1", Routes: []*elements.Route{route}})
	require.NoError(t, err)

	sched, err := elements.NewSchedule(geo.WGS84, []*elements.Service{svc})
	require.NoError(t, err)

	return NewWebUI(&app.Application{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Schedule: sched,
	})
}

func serveDebugPage(t *testing.T, query string) (*http.Response, string) {
	t.Helper()

	webUI := newTestWebUI(t)
	router := httprouter.New()
	webUI.SetWebUIRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/debug/graph" + query)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestDebugIndexDumpsStops(t *testing.T) {
	resp, body := serveDebugPage(t, "?dataType=stops")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "Schedule - Stops")
	assert.Contains(t, body, "s1")
}

func TestDebugIndexDumpsVehicles(t *testing.T) {
	_, body := serveDebugPage(t, "?dataType=vehicles")
	assert.Contains(t, body, "Schedule - Vehicles")
	assert.Contains(t, body, "veh_bus_t1")
}

func TestDebugIndexUnknownDataType(t *testing.T) {
	resp, body := serveDebugPage(t, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Choose a data type")
}
