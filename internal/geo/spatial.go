package geo

import "github.com/golang/geo/s2"

// S2CellID returns the leaf (level 30) S2 cell containing the given
// WGS84 point. Stops are indexed by these for spatial lookups.
func S2CellID(lat, lon float64) uint64 {
	return uint64(s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}
