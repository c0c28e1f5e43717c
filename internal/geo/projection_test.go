package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEPSGCode(t *testing.T) {
	code, err := EPSGCode("epsg:27700")
	require.NoError(t, err)
	assert.Equal(t, 27700, code)

	code, err = EPSGCode("EPSG:4326")
	require.NoError(t, err)
	assert.Equal(t, 4326, code)

	code, err = EPSGCode("3857")
	require.NoError(t, err)
	assert.Equal(t, 3857, code)
}

func TestEPSGCodeRejectsGarbage(t *testing.T) {
	_, err := EPSGCode("not-a-crs")
	assert.Error(t, err)

	var undefined *UndefinedCRSError
	assert.ErrorAs(t, err, &undefined)
}

func TestIsWGS84(t *testing.T) {
	assert.True(t, IsWGS84("epsg:4326"))
	assert.True(t, IsWGS84("EPSG:4326"))
	assert.False(t, IsWGS84("epsg:27700"))
	assert.False(t, IsWGS84("nonsense"))
}

func TestTransformerBritishNationalGridRoundTrip(t *testing.T) {
	transformer, err := NewTransformer("epsg:27700", "epsg:4326")
	require.NoError(t, err)

	x, y := 528504.1342843144, 182155.7435136598
	lon, lat := transformer.Transform(x, y)

	// The Helmert datum shift matches grid-corrected references to a
	// metre or two, which is a few 1e-5 degrees at this latitude.
	assert.InDelta(t, 51.52370573323939, lat, 5e-5)
	assert.InDelta(t, -0.14910908709500162, lon, 5e-5)

	backX, backY := transformer.Inverse(lon, lat)
	assert.InDelta(t, x, backX, 1e-3)
	assert.InDelta(t, y, backY, 1e-3)
}

func TestTransformerGeographicRoundTrip(t *testing.T) {
	transformer, err := NewTransformer("epsg:4326", "epsg:27700")
	require.NoError(t, err)

	lon, lat := -0.14910908709500162, 51.52370573323939
	x, y := transformer.Transform(lon, lat)
	backLon, backLat := transformer.Inverse(x, y)

	assert.InDelta(t, lon, backLon, 1e-8)
	assert.InDelta(t, lat, backLat, 1e-8)
}

func TestToLatLonPassesThroughWGS84(t *testing.T) {
	lat, lon, err := ToLatLon(-0.1491, 51.5237, "epsg:4326")
	require.NoError(t, err)
	assert.Equal(t, 51.5237, lat)
	assert.Equal(t, -0.1491, lon)
}

func TestNewTransformerUnknownCRS(t *testing.T) {
	_, err := NewTransformer("epsg:999999", "epsg:4326")
	assert.Error(t, err)
}

func TestS2CellIDIsStableForAPoint(t *testing.T) {
	a := S2CellID(51.5237, -0.1491)
	b := S2CellID(51.5237, -0.1491)
	assert.Equal(t, a, b)

	c := S2CellID(51.5238, -0.1491)
	assert.NotEqual(t, a, c)
}

func TestCompassDirection(t *testing.T) {
	// due north
	assert.Equal(t, "N", CompassDirection(51.0, 0.0, 52.0, 0.0))
	// due east along the equator
	assert.Equal(t, "E", CompassDirection(0.0, 0.0, 0.0, 1.0))
	// due south
	assert.Equal(t, "S", CompassDirection(52.0, 0.0, 51.0, 0.0))
	// due west along the equator
	assert.Equal(t, "W", CompassDirection(0.0, 1.0, 0.0, 0.0))
}

func TestHaversine(t *testing.T) {
	// London to Paris is roughly 344 km.
	distance := Haversine(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344000, distance, 5000)
}
