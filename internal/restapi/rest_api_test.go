package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"netweave.openmodal.org/internal/app"
	"netweave.openmodal.org/internal/elements"
	"netweave.openmodal.org/internal/geo"
	"netweave.openmodal.org/internal/metrics"
)

func testSchedule(t *testing.T) *elements.Schedule {
	t.Helper()

	s1, err := elements.NewStop("s1", -0.1, 51.5, geo.WGS84)
	require.NoError(t, err)
	s1.Name = "First Street"
	s2, err := elements.NewStop("s2", -0.12, 51.52, geo.WGS84)
	require.NoError(t, err)

	route, err := elements.NewRoute(elements.RouteConfig{
		ID: "r1", Mode: "bus", ShortName: "1",
		Stops:            []*elements.Stop{s1, s2},
		ArrivalOffsets:   []string{"00:00:00", "00:03:00"},
		DepartureOffsets: []string{"00:00:00", "00:03:00"},
		Trips: &elements.Trips{
			IDs:            []string{"t1", "t2"},
			DepartureTimes: []string{"08:00:00", "09:00:00"},
			VehicleIDs:     []string{"veh_bus_t1", "veh_bus_t2"},
		},
	})
	require.NoError(t, err)

	svc, err := elements.NewService(elements.ServiceConfig{
		ID: "svc1", Name: "Line One",
		Routes: []*elements.Route{route},
	})
	require.NoError(t, err)

	sched, err := elements.NewSchedule(geo.WGS84, []*elements.Service{svc})
	require.NoError(t, err)
	sched.SetMinimalTransferTime("s1", "s2", 120)
	return sched
}

func newTestAPI(t *testing.T) *RestAPI {
	t.Helper()
	application := &app.Application{
		Config: app.Config{
			Env:     "test",
			ApiKeys: []string{"TEST"},
		},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Schedule: testSchedule(t),
		Metrics:  metrics.NewCollector(),
	}
	return NewRestAPI(application)
}

func serveAndRetrieveEndpoint(t *testing.T, path string) (*http.Response, ResponseModel) {
	t.Helper()

	api := newTestAPI(t)
	router := httprouter.New()
	api.SetRoutes(router)

	server := httptest.NewServer(NewRequestLoggingMiddleware(api.Logger)(router))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var model ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&model))
	return resp, model
}

func retrieveEntry(t *testing.T, model ResponseModel) map[string]any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok)
	entry, ok := data["entry"].(map[string]any)
	require.True(t, ok)
	return entry
}

func retrieveList(t *testing.T, model ResponseModel) []any {
	t.Helper()
	data, ok := model.Data.(map[string]any)
	require.True(t, ok)
	list, ok := data["list"].([]any)
	require.True(t, ok)
	return list
}
