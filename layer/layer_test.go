package layer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/tms20"
)

func loadTestLayer(t *testing.T) Layer {
	t.Helper()
	l, err := Load("testdata/brt.json")
	require.NoError(t, err)
	return l
}

func TestLoad(t *testing.T) {
	l := loadTestLayer(t)
	assert.Equal(t, "standaard", l.Identifier)
	require.Len(t, l.BoundingBoxes, 2)
	assert.Equal(t, "EPSG:28992", l.BoundingBoxes[0].CRS.String())
	assert.Equal(t, crs.CRS84, l.WGS84BoundingBox.CRS)
	assert.Equal(t, ResourceTypeTile, l.ResourceURLs[0].ResourceType)
	assert.True(t, l.HasBounds())
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "no identifier", json: `{"formats":["image/png"],"tileMatrixSetLinks":[{"tileMatrixSet":"x"}]}`},
		{name: "no formats", json: `{"identifier":"x","tileMatrixSetLinks":[{"tileMatrixSet":"x"}]}`},
		{name: "no links", json: `{"identifier":"x","formats":["image/png"]}`},
		{name: "bad limits", json: `{"identifier":"x","formats":["image/png"],"tileMatrixSetLinks":[{"tileMatrixSet":"x","limits":[{"tileMatrix":"0","minTileRow":2,"maxTileRow":1}]}]}`},
		{name: "bad bbox crs", json: `{"identifier":"x","formats":["image/png"],"tileMatrixSetLinks":[{"tileMatrixSet":"x"}],"boundingBoxes":[{"crs":"nonsense","lowerCorner":[0,0],"upperCorner":[1,1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Layer
			require.Error(t, json.Unmarshal([]byte(tt.json), &l))
		})
	}
}

func TestLayer_BoundingBoxIn(t *testing.T) {
	l := loadTestLayer(t)

	rd, ok := l.BoundingBoxIn(crs.MustParse("EPSG:28992"))
	require.True(t, ok)
	assert.Equal(t, geom.Extent{-285401.92, 22598.08, 595401.92, 903401.92}, rd.Extent)

	latLon, ok := l.BoundingBoxIn(crs.WGS84)
	require.True(t, ok)
	assert.Equal(t, geom.Extent{50.7, 3.2, 53.6, 7.3}, latLon.Extent)

	lonLat, ok := l.BoundingBoxIn(crs.CRS84)
	require.True(t, ok)
	assert.Equal(t, geom.Extent{3.2, 50.7, 7.3, 53.6}, lonLat.Extent)

	_, ok = l.BoundingBoxIn(crs.WebMercator)
	assert.False(t, ok)

	wgs84, ok := l.WGS84Bounds()
	require.True(t, ok)
	assert.Equal(t, lonLat, wgs84)
}

func TestLayer_PreferredFormat(t *testing.T) {
	tests := []struct {
		formats    []string
		configured string
		want       string
	}{
		{formats: []string{"image/jpeg", "image/png"}, want: "image/png"},
		{formats: []string{"image/jpeg", "image/png"}, configured: "IMAGE/JPEG", want: "image/jpeg"},
		{formats: []string{"image/jpeg", "image/png8"}, configured: "image/webp", want: "image/jpeg"},
		{formats: []string{"image/jpeg", "image/png; mode=24bit"}, want: "image/png; mode=24bit"},
	}
	for _, tt := range tests {
		l := Layer{Formats: tt.formats}
		assert.Equal(t, tt.want, l.PreferredFormat(tt.configured))
	}
}

func TestLayer_DefaultStyle(t *testing.T) {
	l := loadTestLayer(t)
	assert.Equal(t, "default", l.DefaultStyle())
	assert.Equal(t, "a", (&Layer{Styles: []Style{{Identifier: "a"}, {Identifier: "b"}}}).DefaultStyle())
	assert.Equal(t, "default", (&Layer{}).DefaultStyle())
}

func TestLayer_ResourceTemplate(t *testing.T) {
	l := loadTestLayer(t)
	tmpl, ok := l.ResourceTemplate("image/jpeg")
	require.True(t, ok)
	assert.Contains(t, tmpl, ".jpeg")

	tmpl, ok = l.ResourceTemplate("image/webp")
	require.True(t, ok)
	assert.Contains(t, tmpl, ".png")

	_, ok = (&Layer{}).ResourceTemplate("image/png")
	assert.False(t, ok)
}

func TestLayer_DimensionValues(t *testing.T) {
	l := loadTestLayer(t)
	assert.Equal(t, map[string]string{"Time": "2023"}, l.DimensionValues(nil))
	assert.Equal(t, map[string]string{"Time": "2022", "Elevation": "5"},
		l.DimensionValues(map[string]string{"time": "2022", "Elevation": "5"}))
}

func TestTileMatrixSetLink_LimitsFor(t *testing.T) {
	l := loadTestLayer(t)
	link, ok := l.Link("NetherlandsRDNewQuad")
	require.True(t, ok)
	limits, ok := link.LimitsFor("3")
	require.True(t, ok)
	assert.Equal(t, 6, limits.MaxTileCol)
	_, ok = link.LimitsFor("4")
	assert.False(t, ok)
	_, ok = l.Link("Unknown")
	assert.False(t, ok)
}

func TestLayer_SelectTileMatrixSet(t *testing.T) {
	l := loadTestLayer(t)

	tms, err := l.SelectTileMatrixSet(crs.WebMercator, tms20.LoadEmbeddedTileMatrixSet)
	require.NoError(t, err)
	assert.Equal(t, "WebMercatorQuad", tms.ID)

	tms, err = l.SelectTileMatrixSet(crs.WGS84, tms20.LoadEmbeddedTileMatrixSet)
	require.NoError(t, err)
	assert.Equal(t, "NetherlandsRDNewQuad", tms.ID)

	failing := func(string) (tms20.TileMatrixSet, error) { return tms20.TileMatrixSet{}, errors.New("boom") }
	_, err = l.SelectTileMatrixSet(crs.WGS84, failing)
	require.Error(t, err)

	_, err = (&Layer{}).SelectTileMatrixSet(crs.WGS84, tms20.LoadEmbeddedTileMatrixSet)
	require.ErrorIs(t, err, ErrNoTileMatrixSetLink)
}
