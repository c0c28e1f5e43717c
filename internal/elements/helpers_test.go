package elements

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"netweave.openmodal.org/internal/geo"
)

func stopAt(t *testing.T, id string, lat, lon float64) *Stop {
	t.Helper()
	s, err := NewStop(id, lon, lat, geo.WGS84)
	require.NoError(t, err)
	return s
}

// simpleRoute builds a valid standalone route over the given stops with
// one trip and evenly spaced offsets.
func simpleRoute(t *testing.T, id, mode string, stops ...*Stop) *Route {
	t.Helper()
	arrivals := make([]string, len(stops))
	departures := make([]string, len(stops))
	for i := range stops {
		offset := fmt.Sprintf("00:%02d:00", i*2)
		arrivals[i] = offset
		departures[i] = offset
	}
	r, err := NewRoute(RouteConfig{
		ID:               id,
		ShortName:        id,
		Mode:             mode,
		Stops:            stops,
		ArrivalOffsets:   arrivals,
		DepartureOffsets: departures,
		Trips: &Trips{
			IDs:            []string{id + "_08:00:00"},
			DepartureTimes: []string{"08:00:00"},
			VehicleIDs:     []string{fmt.Sprintf("veh_%s_%s", mode, id)},
		},
	})
	require.NoError(t, err)
	return r
}

func simpleService(t *testing.T, id string, routes ...*Route) *Service {
	t.Helper()
	s, err := NewService(ServiceConfig{ID: id, Routes: routes})
	require.NoError(t, err)
	return s
}
