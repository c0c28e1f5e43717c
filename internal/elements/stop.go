package elements

import (
	"math"

	"netweave.openmodal.org/internal/geo"
)

// latLonDigits is the rounding applied to lat/lon before comparing stops
// for spatial equality.
const latLonDigits = 8

// reserved attribute keys correspond to typed Stop fields and are never
// stored in the free-form attribute bag.
var reservedStopKeys = map[string]bool{
	"id": true, "x": true, "y": true, "epsg": true,
	"lat": true, "lon": true, "s2_id": true, "name": true,
}

// Stop is a single transit stop: coordinates in a declared projection,
// a permanent WGS84 lat/lon anchor, a spatial cell index derived from the
// anchor, and free-form additional attributes.
type Stop struct {
	ID   string
	X    float64
	Y    float64
	EPSG string
	Name string

	// Lat, Lon and S2ID are derived at construction and anchored to
	// WGS84; Reproject does not touch them.
	Lat  float64
	Lon  float64
	S2ID uint64

	Attributes map[string]any
}

// NewStop constructs a stop from coordinates in the given projection. The
// WGS84 lat/lon anchor and S2 cell index are computed immediately.
func NewStop(id string, x, y float64, epsg string) (*Stop, error) {
	lat, lon, err := geo.ToLatLon(x, y, epsg)
	if err != nil {
		return nil, err
	}
	return &Stop{
		ID:         id,
		X:          x,
		Y:          y,
		EPSG:       epsg,
		Lat:        lat,
		Lon:        lon,
		S2ID:       geo.S2CellID(lat, lon),
		Attributes: map[string]any{},
	}, nil
}

// NewStopWithAnchor constructs a stop whose lat/lon (and optionally S2
// cell) are already known, skipping the projection transform. Readers use
// this on ingest paths where the anchor is part of the input.
func NewStopWithAnchor(id string, x, y float64, epsg string, lat, lon float64, s2id uint64) *Stop {
	if s2id == 0 {
		s2id = geo.S2CellID(lat, lon)
	}
	return &Stop{
		ID:         id,
		X:          x,
		Y:          y,
		EPSG:       epsg,
		Lat:        lat,
		Lon:        lon,
		S2ID:       s2id,
		Attributes: map[string]any{},
	}
}

// IsValid reports whether the stop carries a usable identity.
func (s *Stop) IsValid() bool {
	return s != nil && s.ID != ""
}

// Equal reports spatial equality: lat/lon match when rounded to 8 decimal
// digits. Two stops with different IDs at the same location are equal.
func (s *Stop) Equal(other *Stop) bool {
	if s == nil || other == nil {
		return s == other
	}
	return roundTo(s.Lat, latLonDigits) == roundTo(other.Lat, latLonDigits) &&
		roundTo(s.Lon, latLonDigits) == roundTo(other.Lon, latLonDigits)
}

// IsExact reports spatial equality plus matching ID.
func (s *Stop) IsExact(other *Stop) bool {
	return s.Equal(other) && s.ID == other.ID
}

// Reproject transforms the stop's x,y into a new projection in place. If
// transformer is nil one is derived from the stop's current projection.
// The lat/lon/S2 anchor is left untouched: it is defined once, in WGS84,
// at construction time.
func (s *Stop) Reproject(newEPSG string, transformer *geo.Transformer) error {
	if transformer == nil {
		t, err := geo.NewTransformer(s.EPSG, newEPSG)
		if err != nil {
			return err
		}
		transformer = t
	}
	s.X, s.Y = transformer.Transform(s.X, s.Y)
	s.EPSG = newEPSG
	return nil
}

// AddAdditionalAttributes merges the given attributes additively: keys
// already present keep their current value. The name field is filled only
// if currently empty; reserved coordinate keys are ignored.
func (s *Stop) AddAdditionalAttributes(attrs map[string]any) {
	if s.Attributes == nil {
		s.Attributes = map[string]any{}
	}
	for key, value := range attrs {
		if key == "name" {
			if s.Name == "" {
				if name, ok := value.(string); ok {
					s.Name = name
				}
			}
			continue
		}
		if reservedStopKeys[key] {
			continue
		}
		if _, exists := s.Attributes[key]; !exists {
			s.Attributes[key] = value
		}
	}
}

// LinkRef returns the physical network link the stop is snapped to, if
// any.
func (s *Stop) LinkRef() (string, bool) {
	v, ok := s.Attributes["linkRefId"]
	if !ok {
		return "", false
	}
	ref, ok := v.(string)
	return ref, ok && ref != ""
}

// Copy returns a deep copy of the stop.
func (s *Stop) Copy() *Stop {
	out := *s
	out.Attributes = make(map[string]any, len(s.Attributes))
	for k, v := range s.Attributes {
		out.Attributes[k] = v
	}
	return &out
}

// ToAttributes renders the stop as a flat attribute dictionary, the form
// writers and the change log consume.
func (s *Stop) ToAttributes() map[string]any {
	attrs := map[string]any{
		"id":    s.ID,
		"x":     s.X,
		"y":     s.Y,
		"epsg":  s.EPSG,
		"lat":   s.Lat,
		"lon":   s.Lon,
		"s2_id": s.S2ID,
		"name":  s.Name,
	}
	for k, v := range s.Attributes {
		if !reservedStopKeys[k] {
			attrs[k] = v
		}
	}
	return attrs
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
