package tms20

import (
	"encoding/json"
	"path"
	"path/filepath"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/wmtstiles/crs"
)

func TestLoadEmbeddedTileMatrixSet(t *testing.T) {
	tests := []struct {
		id        string
		crs       string
		axisOrder crs.AxisOrder
		matrices  int
	}{
		{id: "NetherlandsRDNewQuad", crs: "EPSG:28992", axisOrder: crs.EastNorth, matrices: 17},
		{id: "WebMercatorQuad", crs: "EPSG:3857", axisOrder: crs.EastNorth, matrices: 25},
		{id: "WGS1984Quad", crs: "EPSG:4326", axisOrder: crs.NorthEast, matrices: 18},
		{id: "WorldCRS84Quad", crs: "OGC:CRS84", axisOrder: crs.EastNorth, matrices: 18},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := LoadEmbeddedTileMatrixSet(tt.id)
			require.NoErrorf(t, err, "LoadEmbeddedTileMatrixSet() error = %v", err)
			require.Equal(t, tt.id, got.ID)
			require.Equal(t, tt.crs, got.CRS.String())
			require.Equal(t, tt.axisOrder, got.CRS.AxisOrder)
			require.Len(t, got.TileMatrices, tt.matrices)
			require.NotNil(t, got.BoundingBox)
			require.Equal(t, tt.crs, got.BoundingBox.CRS.String())

			indices := got.Indices()
			for i, index := range indices {
				require.Equal(t, i, index)
			}

			// second load is served from the cache
			again, err := LoadEmbeddedTileMatrixSet(tt.id)
			require.NoError(t, err)
			require.Equal(t, got.ID, again.ID)
		})
	}
}

func TestLoadEmbeddedTileMatrixSet_Unknown(t *testing.T) {
	_, err := LoadEmbeddedTileMatrixSet("DoesNotExist")
	require.Error(t, err)
}

func TestLoadJSONTileMatrixSet(t *testing.T) {
	got, err := loadTestOrEmbeddedTileMatrix("StringIdentifiers")
	require.NoError(t, err)

	require.Equal(t, "EPSG:28992", got.CRS.String())
	require.Nil(t, got.BoundingBox)
	require.Len(t, got.TileMatrices, 3)
	for i, want := range []string{"EPSG:28992:0", "EPSG:28992:1", "EPSG:28992:2"} {
		tm, ok := got.TileMatrixByIndex(i)
		require.True(t, ok)
		assert.Equal(t, want, tm.ID)
		assert.Equal(t, TopLeft, tm.CornerOfOrigin)
		index, ok := got.IndexOf(want)
		require.True(t, ok)
		assert.Equal(t, i, index)
	}
	_, ok := got.IndexOf("EPSG:28992:3")
	assert.False(t, ok)
}

func TestTileMatrixSet_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantCRS string
		wantErr bool
	}{
		{
			name:    "wkt with projjson id",
			json:    `{"id":"x","crs":{"wkt":{"id":{"authority":"EPSG","code":3857}}},"tileMatrices":[` + matrixJSON("0") + `]}`,
			wantCRS: "EPSG:3857",
		},
		{
			name:    "ordered axes override",
			json:    `{"id":"x","crs":"EPSG:3035","orderedAxes":["E","N"],"tileMatrices":[` + matrixJSON("0") + `]}`,
			wantCRS: "EPSG:3035",
		},
		{
			name:    "missing crs",
			json:    `{"id":"x","tileMatrices":[` + matrixJSON("0") + `]}`,
			wantErr: true,
		},
		{
			name:    "missing tile matrices",
			json:    `{"id":"x","crs":"EPSG:3857"}`,
			wantErr: true,
		},
		{
			name:    "empty tile matrices",
			json:    `{"id":"x","crs":"EPSG:3857","tileMatrices":[]}`,
			wantErr: true,
		},
		{
			name:    "duplicate ids",
			json:    `{"id":"x","crs":"EPSG:3857","tileMatrices":[` + matrixJSON("0") + `,` + matrixJSON("0") + `]}`,
			wantErr: true,
		},
		{
			name:    "reference system is not supported",
			json:    `{"id":"x","crs":{"referenceSystem":{}},"tileMatrices":[` + matrixJSON("0") + `]}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tms TileMatrixSet
			err := json.Unmarshal([]byte(tt.json), &tms)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCRS, tms.CRS.String())
		})
	}

	var tms TileMatrixSet
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","crs":"EPSG:3035","orderedAxes":["E","N"],"tileMatrices":[`+matrixJSON("0")+`]}`), &tms))
	assert.Equal(t, crs.EastNorth, tms.CRS.AxisOrder)
}

func TestTileMatrix_UnmarshalJSON(t *testing.T) {
	var tm TileMatrix
	require.Error(t, json.Unmarshal([]byte(`{"id":"0","scaleDenominator":0,"pointOfOrigin":[1,1],"tileWidth":256,"tileHeight":256,"matrixWidth":1,"matrixHeight":1}`), &tm))
	require.Error(t, json.Unmarshal([]byte(`{"id":"0","scaleDenominator":1,"pointOfOrigin":[1,1],"tileWidth":256,"tileHeight":256,"matrixWidth":0,"matrixHeight":1}`), &tm))
	require.NoError(t, json.Unmarshal([]byte(matrixJSON("7")), &tm))
	assert.Equal(t, "7", tm.ID)
	assert.Equal(t, uint(256), tm.TileWidth)
	assert.Equal(t, TopLeft, tm.CornerOfOrigin)
}

func TestTwoDBoundingBox_Envelope(t *testing.T) {
	tms, err := LoadEmbeddedTileMatrixSet("WGS1984Quad")
	require.NoError(t, err)
	env := tms.BoundingBox.Envelope()
	assert.Equal(t, geom.Extent{-90, -180, 90, 180}, env.Extent)
	assert.Equal(t, geom.Extent{-180, -90, 180, 90}, env.EastNorth())
}

func TestTileMatrixSet_FullLimits(t *testing.T) {
	tms, err := LoadEmbeddedTileMatrixSet("WorldCRS84Quad")
	require.NoError(t, err)

	limits, ok := tms.FullLimits(2)
	require.True(t, ok)
	assert.Equal(t, TileMatrixLimits{TileMatrix: "2", MinTileRow: 0, MaxTileRow: 3, MinTileCol: 0, MaxTileCol: 7}, limits)
	assert.True(t, limits.Contains(7, 3))
	assert.False(t, limits.Contains(8, 0))
	assert.False(t, limits.Contains(0, -1))

	_, ok = tms.FullLimits(99)
	assert.False(t, ok)
}

func matrixJSON(id string) string {
	return `{"id":"` + id + `","scaleDenominator":1000,"pointOfOrigin":[0,0.5],"tileWidth":256,"tileHeight":256,"matrixWidth":1,"matrixHeight":1}`
}

func loadTestOrEmbeddedTileMatrix(id string) (TileMatrixSet, error) {
	p, err := filepath.Abs(path.Join("testdata", id+".json"))
	if err != nil {
		return TileMatrixSet{}, err
	}
	tms, err := LoadJSONTileMatrixSet(p)
	if err != nil {
		tms, err = LoadEmbeddedTileMatrixSet(id)
	}
	return tms, err
}
