package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"
)

// WGS84 is the geographic coordinate system every stop's lat/lon anchor
// is expressed in.
const WGS84 = "epsg:4326"

// UndefinedCRSError indicates a coordinate reference system that is not in
// the EPSG repository.
type UndefinedCRSError struct {
	CRS string
}

func (e *UndefinedCRSError) Error() string {
	return fmt.Sprintf("undefined coordinate reference system: %q", e.CRS)
}

// EPSGCode parses a CRS name such as "epsg:27700", "EPSG:27700" or "27700"
// into its numeric EPSG code.
func EPSGCode(crs string) (int, error) {
	s := strings.TrimSpace(crs)
	if idx := strings.Index(strings.ToLower(s), "epsg:"); idx == 0 {
		s = s[len("epsg:"):]
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, &UndefinedCRSError{CRS: crs}
	}
	return code, nil
}

// IsWGS84 reports whether the given CRS name refers to EPSG:4326.
func IsWGS84(crs string) bool {
	code, err := EPSGCode(crs)
	return err == nil && code == 4326
}

// Transformer converts coordinates between two EPSG coordinate reference
// systems. The zero value is not usable; construct with NewTransformer.
//
// Leaving a CRS is solved by Newton iteration against the projecting
// direction, so a forward and inverse pass agree to well under a
// millimetre even for projected systems whose closed unprojection is
// only approximate.
type Transformer struct {
	FromCRS string
	ToCRS   string

	intoFrom  wgs84.Func // WGS84 lon/lat into the source system
	intoTo    wgs84.Func // WGS84 lon/lat into the target system
	outOfFrom wgs84.Func // approximate source to WGS84, seeds the iteration
	outOfTo   wgs84.Func
}

// NewTransformer builds a bidirectional transformer between two CRS names.
func NewTransformer(fromCRS, toCRS string) (*Transformer, error) {
	fromCode, err := EPSGCode(fromCRS)
	if err != nil {
		return nil, err
	}
	toCode, err := EPSGCode(toCRS)
	if err != nil {
		return nil, err
	}

	repository := wgs84.EPSG()
	from := repository.Code(fromCode)
	if from == nil {
		return nil, &UndefinedCRSError{CRS: fromCRS}
	}
	to := repository.Code(toCode)
	if to == nil {
		return nil, &UndefinedCRSError{CRS: toCRS}
	}

	lonLat := wgs84.LonLat()
	return &Transformer{
		FromCRS:   fromCRS,
		ToCRS:     toCRS,
		intoFrom:  wgs84.Transform(lonLat, from),
		intoTo:    wgs84.Transform(lonLat, to),
		outOfFrom: wgs84.Transform(from, lonLat),
		outOfTo:   wgs84.Transform(to, lonLat),
	}, nil
}

// Transform converts x,y from the source CRS to the target CRS. For
// geographic systems the axis order is x=lon, y=lat.
func (t *Transformer) Transform(x, y float64) (float64, float64) {
	lon, lat := unproject(t.outOfFrom, t.intoFrom, x, y)
	a, b, _ := t.intoTo(lon, lat, 0)
	return a, b
}

// Inverse converts x,y from the target CRS back to the source CRS.
func (t *Transformer) Inverse(x, y float64) (float64, float64) {
	lon, lat := unproject(t.outOfTo, t.intoTo, x, y)
	a, b, _ := t.intoFrom(lon, lat, 0)
	return a, b
}

// unproject recovers the WGS84 lon/lat whose projection is x,y. The
// seeding transform is refined against the projecting direction with a
// numeric Jacobian until the reprojected point lands back on x,y.
func unproject(seed, project wgs84.Func, x, y float64) (float64, float64) {
	lon, lat, _ := seed(x, y, 0)
	tolerance := 1e-9 * (math.Abs(x) + math.Abs(y) + 1)
	const step = 1e-7 // degrees

	for i := 0; i < 8; i++ {
		px, py, _ := project(lon, lat, 0)
		dx, dy := x-px, y-py
		if math.Abs(dx) <= tolerance && math.Abs(dy) <= tolerance {
			break
		}
		pxl, pyl, _ := project(lon+step, lat, 0)
		pxp, pyp, _ := project(lon, lat+step, 0)
		j11 := (pxl - px) / step
		j21 := (pyl - py) / step
		j12 := (pxp - px) / step
		j22 := (pyp - py) / step
		det := j11*j22 - j12*j21
		if det == 0 {
			break
		}
		lon += (dx*j22 - dy*j12) / det
		lat += (dy*j11 - dx*j21) / det
	}
	return lon, lat
}

// ToLatLon projects x,y expressed in the given CRS onto WGS84 and returns
// latitude, longitude. If the CRS already is WGS84 the coordinates are
// passed through as lon,lat.
func ToLatLon(x, y float64, crs string) (float64, float64, error) {
	if IsWGS84(crs) {
		return y, x, nil
	}
	t, err := NewTransformer(crs, WGS84)
	if err != nil {
		return 0, 0, err
	}
	lon, lat := t.Transform(x, y)
	return lat, lon, nil
}
