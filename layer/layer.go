// Package layer models a WMTS layer as far as tile retrieval needs it: formats, styles,
// bounding boxes, tile matrix set links with their limits, resource URLs and dimensions.
// Layers are read from JSON, typically converted from a capabilities document elsewhere.
package layer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/tms20"
)

// ResourceTypeTile marks a resource URL template for tiles.
const ResourceTypeTile = "tile"

// preferredFormats are tried in order when no format is configured.
var preferredFormats = []string{"image/png", "image/png24", "png", "png24", "image/png; mode=24bit"}

var ErrNoTileMatrixSetLink = errors.New("layer links no tile matrix set")

type Layer struct {
	Identifier         string              `validate:"required" json:"identifier"`
	Title              string              `json:"title,omitempty"`
	Formats            []string            `validate:"required,min=1" json:"formats"`
	Styles             []Style             `json:"styles,omitempty"`
	WGS84BoundingBox   *BoundingBox        `json:"wgs84BoundingBox,omitempty"`
	BoundingBoxes      []BoundingBox       `json:"boundingBoxes,omitempty"`
	TileMatrixSetLinks []TileMatrixSetLink `validate:"required,min=1,dive" json:"tileMatrixSetLinks"`
	ResourceURLs       []ResourceURL       `validate:"dive" json:"resourceURLs,omitempty"`
	Dimensions         []Dimension         `validate:"dive" json:"dimensions,omitempty"`
}

type Style struct {
	Identifier string `validate:"required" json:"identifier"`
	IsDefault  bool   `json:"isDefault,omitempty"`
}

// BoundingBox has its corners in the axis order of its CRS. A WGS84 bounding box is
// always longitude first.
type BoundingBox struct {
	CRS         crs.CRS         `json:"-"`
	LowerCorner tms20.TwoDPoint `json:"lowerCorner"`
	UpperCorner tms20.TwoDPoint `json:"upperCorner"`
}

type TileMatrixSetLink struct {
	TileMatrixSet string                   `validate:"required" json:"tileMatrixSet"`
	Limits        []tms20.TileMatrixLimits `validate:"dive" json:"limits,omitempty"`
}

type ResourceURL struct {
	Format       string `validate:"required" json:"format"`
	ResourceType string `default:"tile" json:"resourceType"`
	Template     string `validate:"required" json:"template"`
}

type Dimension struct {
	Identifier string   `validate:"required" json:"identifier"`
	Default    string   `json:"default,omitempty"`
	Values     []string `json:"values,omitempty"`
}

func Load(path string) (Layer, error) {
	var l Layer
	layerJSON, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err = json.Unmarshal(layerJSON, &l); err != nil {
		return l, fmt.Errorf("could not read layer %v: %w", path, err)
	}
	return l, nil
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	err := defaults.Set(l)
	if err != nil {
		return err
	}
	type plain Layer
	if err = json.Unmarshal(data, (*plain)(l)); err != nil {
		return err
	}
	for i := range l.ResourceURLs {
		if err = defaults.Set(&l.ResourceURLs[i]); err != nil {
			return err
		}
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(l)
}

func (bb *BoundingBox) UnmarshalJSON(data []byte) error {
	specials, err := marshmallow.Unmarshal(data, bb, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}
	bb.CRS = crs.CRS84
	if rawCrs, ok := specials["crs"]; ok {
		s, ok := rawCrs.(string)
		if !ok {
			return fmt.Errorf(`wrong type key "crs": %T`, rawCrs)
		}
		if bb.CRS, err = crs.Parse(s); err != nil {
			return err
		}
	}
	return nil
}

func (bb BoundingBox) Envelope() crs.Envelope {
	return crs.NewEnvelope(bb.LowerCorner[0], bb.LowerCorner[1], bb.UpperCorner[0], bb.UpperCorner[1], bb.CRS)
}

// HasBounds reports whether the layer declares any bounding box.
func (l *Layer) HasBounds() bool {
	return l.WGS84BoundingBox != nil || len(l.BoundingBoxes) > 0
}

// BoundingBoxIn returns the declared bounding box in c, if any.
func (l *Layer) BoundingBoxIn(c crs.CRS) (crs.Envelope, bool) {
	for _, bb := range l.BoundingBoxes {
		if bb.CRS.Equal(c) {
			return crs.FromEastNorth(bb.Envelope().EastNorth(), c), true
		}
	}
	if l.WGS84BoundingBox != nil && crs.CRS84.Equal(c) {
		return l.WGS84BoundingBox.Envelope(), true
	}
	return crs.Envelope{}, false
}

// WGS84Bounds returns the WGS84 bounding box, longitude first.
func (l *Layer) WGS84Bounds() (crs.Envelope, bool) {
	if l.WGS84BoundingBox == nil {
		return crs.Envelope{}, false
	}
	return crs.FromEastNorth(l.WGS84BoundingBox.Envelope().EastNorth(), crs.CRS84), true
}

// PreferredFormat returns configured when the layer offers it, else a PNG flavour, else
// the first declared format.
func (l *Layer) PreferredFormat(configured string) string {
	if configured != "" {
		for _, f := range l.Formats {
			if strings.EqualFold(f, configured) {
				return f
			}
		}
	}
	for _, preferred := range preferredFormats {
		for _, f := range l.Formats {
			if strings.EqualFold(f, preferred) {
				return f
			}
		}
	}
	if len(l.Formats) == 0 {
		return configured
	}
	return l.Formats[0]
}

// DefaultStyle returns the style marked default, else the first one, else "default".
func (l *Layer) DefaultStyle() string {
	for _, s := range l.Styles {
		if s.IsDefault {
			return s.Identifier
		}
	}
	if len(l.Styles) > 0 {
		return l.Styles[0].Identifier
	}
	return "default"
}

// ResourceTemplate returns the tile URL template for format.
func (l *Layer) ResourceTemplate(format string) (string, bool) {
	var fallback string
	for _, r := range l.ResourceURLs {
		if !strings.EqualFold(r.ResourceType, ResourceTypeTile) {
			continue
		}
		if strings.EqualFold(r.Format, format) {
			return r.Template, true
		}
		if fallback == "" {
			fallback = r.Template
		}
	}
	return fallback, fallback != ""
}

// DimensionValues returns the default value of every dimension, keyed by identifier,
// overridden by the given values.
func (l *Layer) DimensionValues(overrides map[string]string) map[string]string {
	values := make(map[string]string, len(l.Dimensions))
	for _, d := range l.Dimensions {
		if d.Default != "" {
			values[d.Identifier] = d.Default
		}
	}
	for k, v := range overrides {
		for _, d := range l.Dimensions {
			if strings.EqualFold(d.Identifier, k) {
				k = d.Identifier
				break
			}
		}
		values[k] = v
	}
	return values
}

func (l *Layer) Link(tileMatrixSetID string) (TileMatrixSetLink, bool) {
	for _, link := range l.TileMatrixSetLinks {
		if link.TileMatrixSet == tileMatrixSetID {
			return link, true
		}
	}
	return TileMatrixSetLink{}, false
}

// Limits returns the declared limits for one tile matrix.
func (link TileMatrixSetLink) LimitsFor(tileMatrixID string) (tms20.TileMatrixLimits, bool) {
	for _, limits := range link.Limits {
		if limits.TileMatrix == tileMatrixID {
			return limits, true
		}
	}
	return tms20.TileMatrixLimits{}, false
}

// SelectTileMatrixSet picks the linked tile matrix set in the requested CRS, falling back
// to the first linked set that can be loaded.
func (l *Layer) SelectTileMatrixSet(request crs.CRS, load func(id string) (tms20.TileMatrixSet, error)) (tms20.TileMatrixSet, error) {
	if len(l.TileMatrixSetLinks) == 0 {
		return tms20.TileMatrixSet{}, ErrNoTileMatrixSetLink
	}
	var first *tms20.TileMatrixSet
	var errs []error
	for _, link := range l.TileMatrixSetLinks {
		tms, err := load(link.TileMatrixSet)
		if err != nil {
			errs = append(errs, fmt.Errorf("tile matrix set %v: %w", link.TileMatrixSet, err))
			continue
		}
		if tms.CRS.Equal(request) {
			return tms, nil
		}
		if first == nil {
			first = &tms
		}
	}
	if first == nil {
		return tms20.TileMatrixSet{}, errors.Join(errs...)
	}
	return *first, nil
}
