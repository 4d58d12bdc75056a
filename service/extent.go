package service

import (
	"math"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/grid"
)

// layerBoundsIn returns the layer bounds in c, declared or reprojected from WGS84.
func (s *Service) layerBoundsIn(c crs.CRS) (crs.Envelope, bool) {
	if bounds, ok := s.layer.BoundingBoxIn(c); ok {
		return bounds, true
	}
	wgs84, ok := s.layer.WGS84Bounds()
	if !ok {
		return crs.Envelope{}, false
	}
	bounds, err := s.transformer.Transform(wgs84, c)
	if err != nil {
		return crs.Envelope{}, false
	}
	return bounds, true
}

// resolveExtent returns requested clipped to the layer bounds, in the tile matrix set CRS.
// When requested cannot be reprojected the layer bounds are reprojected into the request
// CRS instead, clipped there and the clipped extent reprojected. False means there is
// nothing to fetch.
func (s *Service) resolveExtent(requested crs.Envelope) (crs.Envelope, bool) {
	target := s.grid.CRS()

	if declared, ok := s.layer.BoundingBoxIn(requested.CRS); ok {
		clipped, ok := requested.Intersection(declared)
		if !ok {
			s.logger.Warn("requested extent outside layer bounds", "extent", requested.String(), "bounds", declared.String())
			return crs.Envelope{}, false
		}
		requested = clipped
	}

	reprojected, err := s.transformer.Transform(requested, target)
	if err == nil {
		bounds, ok := s.layerBoundsIn(target)
		if !ok {
			return reprojected, !reprojected.IsEmpty()
		}
		clipped, ok := reprojected.Intersection(bounds)
		if !ok {
			s.logger.Warn("requested extent outside layer bounds", "extent", reprojected.String(), "bounds", bounds.String())
		}
		return clipped, ok
	}

	s.logger.Debug("reprojecting requested extent failed, trying layer bounds", "extent", requested.String(), "error", err)
	bounds, ok := s.layerBoundsIn(requested.CRS)
	if !ok {
		if targetBounds, found := s.layerBoundsIn(target); found {
			if b, berr := s.transformer.Transform(targetBounds, requested.CRS); berr == nil {
				bounds, ok = b, true
			}
		}
	}
	if !ok {
		s.logger.Warn("cannot reproject requested extent", "extent", requested.String(), "crs", target.String(), "error", err)
		return crs.Envelope{}, false
	}
	clipped, ok := requested.Intersection(bounds)
	if !ok {
		s.logger.Warn("requested extent outside layer bounds", "extent", requested.String(), "bounds", bounds.String())
		return crs.Envelope{}, false
	}
	reprojected, err = s.transformer.Transform(clipped, target)
	if err != nil {
		s.logger.Warn("cannot reproject requested extent", "extent", clipped.String(), "crs", target.String(), "error", err)
		return crs.Envelope{}, false
	}
	return reprojected, !reprojected.IsEmpty()
}

// ScaleForWidth returns the scale denominator, rounded to a whole number, at which extent
// fills widthPx pixels of the standardized 0.28 mm size. Degrees are converted with
// crs.MetresPerDegree.
func ScaleForWidth(extent crs.Envelope, widthPx int) float64 {
	if widthPx <= 0 {
		return 0
	}
	en := extent.EastNorth()
	width := extent.CRS.Unit.ToMetres(en[2] - en[0])
	return math.Round(width / (float64(widthPx) * grid.StandardPixelSize))
}
