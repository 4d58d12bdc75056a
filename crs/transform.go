package crs

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// webMercatorLatLimit is the latitude at which web mercator becomes square.
const webMercatorLatLimit = 85.05112877980659

var (
	ErrUnsupportedTransform = errors.New("unsupported crs transformation")
	ErrOutsideDomain        = errors.New("envelope outside the domain of the target crs")
)

// Transformer reprojects envelopes between CRSs.
type Transformer interface {
	Transform(e Envelope, to CRS) (Envelope, error)
}

type family int

const (
	familyOther family = iota
	familyGeographic
	familyWebMercator
)

func familyOf(c CRS) family {
	switch c.String() {
	case "EPSG:4326", "EPSG:4258", "EPSG:4979", "OGC:CRS84":
		return familyGeographic
	case "EPSG:3857", "EPSG:900913", "EPSG:3785", "EPSG:102100", "EPSG:102113":
		return familyWebMercator
	default:
		return familyOther
	}
}

// OrbTransformer reprojects between geographic WGS84 flavours and web mercator using
// paulmach/orb. Identical CRSs pass through, other combinations are unsupported.
type OrbTransformer struct{}

var _ Transformer = OrbTransformer{}

func (OrbTransformer) Transform(e Envelope, to CRS) (Envelope, error) {
	en := e.EastNorth()
	if e.CRS.Equal(to) {
		return FromEastNorth(en, to), nil
	}
	from, target := familyOf(e.CRS), familyOf(to)
	var projected geom.Extent
	switch {
	case from != familyOther && from == target:
		projected = en
	case from == familyGeographic && target == familyWebMercator:
		if en[1] < -webMercatorLatLimit || en[3] > webMercatorLatLimit {
			return Envelope{}, fmt.Errorf("%v to %v: %w", e, to, ErrOutsideDomain)
		}
		projected = projectExtent(en, project.WGS84.ToMercator)
	case from == familyWebMercator && target == familyGeographic:
		projected = projectExtent(en, project.Mercator.ToWGS84)
	default:
		return Envelope{}, fmt.Errorf("%v to %v: %w", e.CRS, to, ErrUnsupportedTransform)
	}
	for _, o := range projected {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			return Envelope{}, fmt.Errorf("%v to %v: %w", e, to, ErrOutsideDomain)
		}
	}
	return FromEastNorth(projected, to), nil
}

func projectExtent(en geom.Extent, proj orb.Projection) geom.Extent {
	lower := proj(orb.Point{en[0], en[1]})
	upper := proj(orb.Point{en[2], en[3]})
	b := orb.Bound{Min: lower, Max: lower}.Extend(upper)
	return geom.Extent{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}
