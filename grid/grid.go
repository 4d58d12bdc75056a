// Package grid converts between tile addresses and coordinates for one tile matrix set,
// honoring the axis order and linear unit of its CRS.
package grid

import (
	"errors"
	"fmt"

	"github.com/go-spatial/geom"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/layer"
	"github.com/pdok/wmtstiles/mathhelp"
	"github.com/pdok/wmtstiles/tile"
	"github.com/pdok/wmtstiles/tms20"
)

// StandardPixelSize is the OGC standardized rendering pixel size in metres (0.28 mm).
const StandardPixelSize = 0.00028

var (
	ErrUnsupportedCornerOfOrigin = errors.New("unsupported corner of origin")
	ErrUnknownTileMatrix         = errors.New("unknown tile matrix")
)

// PixelSpan is the size of one pixel of tm in the unit of c.
func PixelSpan(tm tms20.TileMatrix, c crs.CRS) float64 {
	return c.Unit.FromMetres(tm.ScaleDenominator * StandardPixelSize)
}

// TileSpan is the size of one tile of tm in the unit of c, horizontally and vertically.
func TileSpan(tm tms20.TileMatrix, c crs.CRS) (x, y float64) {
	span := PixelSpan(tm, c)
	return float64(tm.TileWidth) * span, float64(tm.TileHeight) * span
}

// Grid is the tile geometry of one tile matrix set as linked by one layer.
type Grid struct {
	tms         tms20.TileMatrixSet
	link        layer.TileMatrixSetLink
	serviceName string
	zooms       map[int]tile.ZoomLevel
}

func New(tms tms20.TileMatrixSet, link layer.TileMatrixSetLink, serviceName string) (*Grid, error) {
	g := &Grid{
		tms:         tms,
		link:        link,
		serviceName: serviceName,
		zooms:       make(map[int]tile.ZoomLevel, len(tms.TileMatrices)),
	}
	for index, tm := range tms.TileMatrices {
		if tm.CornerOfOrigin != "" && tm.CornerOfOrigin != tms20.TopLeft {
			return nil, fmt.Errorf("tile matrix %v of %v: %w %v", tm.ID, tms.ID, ErrUnsupportedCornerOfOrigin, tm.CornerOfOrigin)
		}
		g.zooms[index] = tile.NewZoomLevel(index, tm)
	}
	for _, limits := range link.Limits {
		if _, ok := tms.IndexOf(limits.TileMatrix); !ok {
			return nil, fmt.Errorf("limits of %v: %w %v", tms.ID, ErrUnknownTileMatrix, limits.TileMatrix)
		}
	}
	return g, nil
}

func (g *Grid) TileMatrixSet() tms20.TileMatrixSet {
	return g.tms
}

func (g *Grid) CRS() crs.CRS {
	return g.tms.CRS
}

func (g *Grid) ServiceName() string {
	return g.serviceName
}

// Indices returns the zoom indices, coarsest first.
func (g *Grid) Indices() []int {
	return g.tms.Indices()
}

func (g *Grid) ZoomLevel(index int) (tile.ZoomLevel, bool) {
	z, ok := g.zooms[index]
	return z, ok
}

func (g *Grid) TileMatrix(zoom tile.ZoomLevel) (tms20.TileMatrix, error) {
	tm, ok := g.tms.TileMatrixByIndex(zoom.Index)
	if !ok {
		return tm, fmt.Errorf("%w %d in %v", ErrUnknownTileMatrix, zoom.Index, g.tms.ID)
	}
	return tm, nil
}

// Limits returns the limits the layer declares for the matrix at index, or limits covering
// the whole matrix when it declares none.
func (g *Grid) Limits(index int) (tms20.TileMatrixLimits, bool) {
	tm, ok := g.tms.TileMatrixByIndex(index)
	if !ok {
		return tms20.TileMatrixLimits{}, false
	}
	if limits, ok := g.link.LimitsFor(tm.ID); ok {
		return limits, true
	}
	return g.tms.FullLimits(index)
}

// origin returns the point of origin of tm as easting, northing.
func (g *Grid) origin(tm tms20.TileMatrix) (x, y float64) {
	if g.tms.CRS.AxisOrder == crs.NorthEast {
		return tm.PointOfOrigin[1], tm.PointOfOrigin[0]
	}
	return tm.PointOfOrigin[0], tm.PointOfOrigin[1]
}

// AddressAt returns the tile containing the position given as easting (lon) and
// northing (lat). Positions left of or above the origin map to column or row 0.
func (g *Grid) AddressAt(lon, lat float64, zoom tile.ZoomLevel) tile.Identifier {
	tm, ok := g.tms.TileMatrixByIndex(zoom.Index)
	if !ok {
		return tile.NewIdentifier(0, 0, zoom, g.serviceName)
	}
	originX, originY := g.origin(tm)
	spanX, spanY := TileSpan(tm, g.tms.CRS)
	col := mathhelp.FloorIndex((lon - originX) / spanX)
	row := mathhelp.FloorIndex((originY - lat) / spanY)
	return tile.NewIdentifier(col, row, zoom, g.serviceName)
}

// ExtentOf returns the extent of a tile in the CRS of the tile matrix set, in its native
// axis order.
func (g *Grid) ExtentOf(id tile.Identifier) (crs.Envelope, error) {
	tm, err := g.TileMatrix(id.Zoom)
	if err != nil {
		return crs.Envelope{}, err
	}
	originX, originY := g.origin(tm)
	spanX, spanY := TileSpan(tm, g.tms.CRS)
	minX := float64(id.Col)*spanX + originX
	maxY := originY - float64(id.Row)*spanY
	return crs.FromEastNorth(geom.Extent{minX, maxY - spanY, minX + spanX, maxY}, g.tms.CRS), nil
}

// NewTile materializes the geometry of id.
func (g *Grid) NewTile(id tile.Identifier) (tile.Tile, error) {
	tm, err := g.TileMatrix(id.Zoom)
	if err != nil {
		return tile.Tile{}, err
	}
	extent, err := g.ExtentOf(id)
	if err != nil {
		return tile.Tile{}, err
	}
	return tile.Tile{
		ID:         id,
		TileMatrix: tm.ID,
		Extent:     extent,
		PixelSpan:  PixelSpan(tm, g.tms.CRS),
		Width:      tm.TileWidth,
		Height:     tm.TileHeight,
	}, nil
}

// ClampToLimits moves id inside limits. A column or row at or beyond the maximum becomes
// maximum-1 so that the result still has a neighbour to continue from; one below the
// minimum becomes the minimum. The minimum is applied last.
func ClampToLimits(id tile.Identifier, limits tms20.TileMatrixLimits) tile.Identifier {
	col, row := id.Col, id.Row
	if col >= limits.MaxTileCol {
		col = limits.MaxTileCol - 1
	}
	if col < limits.MinTileCol {
		col = limits.MinTileCol
	}
	if row >= limits.MaxTileRow {
		row = limits.MaxTileRow - 1
	}
	if row < limits.MinTileRow {
		row = limits.MinTileRow
	}
	return tile.NewIdentifier(col, row, id.Zoom, id.ServiceName)
}

// RightNeighbour returns the tile to the right of id, false at the edge of the matrix or
// beyond the limits.
func RightNeighbour(id tile.Identifier, limits tms20.TileMatrixLimits) (tile.Identifier, bool) {
	n, ok := id.RightNeighbour()
	if !ok || n.Col > limits.MaxTileCol {
		return tile.Identifier{}, false
	}
	return n, true
}

// LowerNeighbour returns the tile below id, false at the edge of the matrix or beyond the
// limits.
func LowerNeighbour(id tile.Identifier, limits tms20.TileMatrixLimits) (tile.Identifier, bool) {
	n, ok := id.LowerNeighbour()
	if !ok || n.Row > limits.MaxTileRow {
		return tile.Identifier{}, false
	}
	return n, true
}
