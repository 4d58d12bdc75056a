package service

import (
	"errors"
	"image"
	"math"

	"github.com/go-spatial/geom"
	"golang.org/x/image/draw"

	"github.com/pdok/wmtstiles/crs"
)

var ErrNothingToMosaic = errors.New("no fetched tiles to combine")

// Mosaic draws the fetched tiles of set into one image covering the union of their extents,
// north up. The resolution is taken from the first tile; tiles of another pixel size are
// resampled bilinearly. The returned envelope is in the CRS of the tiles.
func Mosaic(set *TileSet) (*image.RGBA, crs.Envelope, error) {
	var (
		union  geom.Extent
		c      crs.CRS
		scaleX float64
		scaleY float64
		found  bool
	)
	for _, e := range set.Entries() {
		if e.Image == nil {
			continue
		}
		en := e.Tile.Extent.EastNorth()
		if !found {
			union = en
			c = e.Tile.Extent.CRS
			b := e.Image.Bounds()
			scaleX = float64(b.Dx()) / (en[2] - en[0])
			scaleY = float64(b.Dy()) / (en[3] - en[1])
			found = true
			continue
		}
		union = geom.Extent{min(union[0], en[0]), min(union[1], en[1]), max(union[2], en[2]), max(union[3], en[3])}
	}
	if !found {
		return nil, crs.Envelope{}, ErrNothingToMosaic
	}

	width := int(math.Round((union[2] - union[0]) * scaleX))
	height := int(math.Round((union[3] - union[1]) * scaleY))
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, e := range set.Entries() {
		if e.Image == nil {
			continue
		}
		en := e.Tile.Extent.EastNorth()
		x := int(math.Round((en[0] - union[0]) * scaleX))
		y := int(math.Round((union[3] - en[3]) * scaleY))
		w := max(1, int(math.Round((en[2]-en[0])*scaleX)))
		h := max(1, int(math.Round((en[3]-en[1])*scaleY)))
		r := image.Rect(x, y, x+w, y+h)

		src := e.Image.Bounds()
		if src.Dx() == w && src.Dy() == h {
			draw.Draw(dst, r, e.Image, src.Min, draw.Over)
			continue
		}
		draw.BiLinear.Scale(dst, r, e.Image, src, draw.Over, nil)
	}
	return dst, crs.FromEastNorth(union, c), nil
}
