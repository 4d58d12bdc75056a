package crs

import (
	"fmt"

	"github.com/go-spatial/geom"
)

// Envelope is a bounding rectangle in a CRS. The ordinates of Extent follow the axis order
// of the CRS: {min first axis, min second axis, max first axis, max second axis}.
type Envelope struct {
	Extent geom.Extent
	CRS    CRS
}

// NewEnvelope creates an envelope from ordinates given in the CRS axis order.
func NewEnvelope(min0, min1, max0, max1 float64, c CRS) Envelope {
	return Envelope{Extent: geom.Extent{min0, min1, max0, max1}, CRS: c}
}

// FromEastNorth creates an envelope from an easting/northing extent, transposing it when
// the CRS is northing first.
func FromEastNorth(e geom.Extent, c CRS) Envelope {
	if c.AxisOrder == NorthEast {
		return Envelope{Extent: geom.Extent{e[1], e[0], e[3], e[2]}, CRS: c}
	}
	return Envelope{Extent: e, CRS: c}
}

// EastNorth returns the extent as {minEast, minNorth, maxEast, maxNorth}.
func (e Envelope) EastNorth() geom.Extent {
	if e.CRS.AxisOrder == NorthEast {
		return geom.Extent{e.Extent[1], e.Extent[0], e.Extent[3], e.Extent[2]}
	}
	return e.Extent
}

// UpperLeft returns the north-west corner as easting, northing.
func (e Envelope) UpperLeft() (east, north float64, err error) {
	switch e.CRS.AxisOrder {
	case EastNorth:
		return e.Extent.MinX(), e.Extent.MaxY(), nil
	case NorthEast:
		return e.Extent[1], e.Extent[2], nil
	default:
		return 0, 0, fmt.Errorf("unsupported axis order %v for %v", e.CRS.AxisOrder, e.CRS)
	}
}

// Center returns the centre as easting, northing.
func (e Envelope) Center() (east, north float64) {
	en := e.EastNorth()
	return (en[0] + en[2]) / 2, (en[1] + en[3]) / 2
}

// Intersects reports whether both envelopes share an area of positive size.
// Envelopes touching only along an edge do not intersect.
// Both envelopes are expected to be in the same CRS.
func (e Envelope) Intersects(o Envelope) bool {
	return e.Extent[0] < o.Extent[2] && o.Extent[0] < e.Extent[2] &&
		e.Extent[1] < o.Extent[3] && o.Extent[1] < e.Extent[3]
}

// Intersection returns the overlapping part of both envelopes, in the CRS of e.
func (e Envelope) Intersection(o Envelope) (Envelope, bool) {
	if !e.Intersects(o) {
		return Envelope{}, false
	}
	return Envelope{
		Extent: geom.Extent{
			max(e.Extent[0], o.Extent[0]),
			max(e.Extent[1], o.Extent[1]),
			min(e.Extent[2], o.Extent[2]),
			min(e.Extent[3], o.Extent[3]),
		},
		CRS: e.CRS,
	}, true
}

func (e Envelope) IsEmpty() bool {
	return e.Extent[2] <= e.Extent[0] || e.Extent[3] <= e.Extent[1]
}

func (e Envelope) String() string {
	return fmt.Sprintf("%v[%v %v, %v %v]", e.CRS, e.Extent[0], e.Extent[1], e.Extent[2], e.Extent[3])
}
