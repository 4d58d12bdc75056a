package crs

import (
	"math"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		axisOrder AxisOrder
		unit      Unit
		wantErr   bool
	}{
		{in: "EPSG:4326", want: "EPSG:4326", axisOrder: NorthEast, unit: Degree},
		{in: "epsg:3857", want: "EPSG:3857", axisOrder: EastNorth, unit: Metre},
		{in: "CRS:84", want: "OGC:CRS84", axisOrder: EastNorth, unit: Degree},
		{in: "urn:ogc:def:crs:EPSG::28992", want: "EPSG:28992", axisOrder: EastNorth, unit: Metre},
		{in: "urn:ogc:def:crs:OGC:1.3:CRS84", want: "OGC:CRS84", axisOrder: EastNorth, unit: Degree},
		{in: "http://www.opengis.net/def/crs/EPSG/0/3035", want: "EPSG:3035", axisOrder: NorthEast, unit: Metre},
		{in: "http://www.opengis.net/gml/srs/epsg.xml#4326", want: "EPSG:4326", axisOrder: NorthEast, unit: Degree},
		{in: "EPSG:25832", want: "EPSG:25832", axisOrder: EastNorth, unit: Metre},
		{in: "", wantErr: true},
		{in: "nonsense", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.axisOrder, got.AxisOrder)
			assert.Equal(t, tt.unit, got.Unit)
		})
	}
}

func TestCRS_WithOrderedAxes(t *testing.T) {
	c := FromAuthority("EPSG", "99999")
	require.Equal(t, EastNorth, c.AxisOrder)
	assert.Equal(t, NorthEast, c.WithOrderedAxes([]string{"Lat", "Lon"}).AxisOrder)
	assert.Equal(t, EastNorth, WGS84.WithOrderedAxes([]string{"E", "N"}).AxisOrder)
	assert.Equal(t, NorthEast, WGS84.WithOrderedAxes(nil).AxisOrder)
}

func TestUnit_FromMetres(t *testing.T) {
	assert.Equal(t, 10.0, Metre.FromMetres(10))
	assert.InDelta(t, 1.0, Degree.FromMetres(MetresPerDegree), 1e-12)
	assert.InDelta(t, 3.280833333, USSurveyFoot.FromMetres(1), 1e-9)
	assert.InDelta(t, 3.280839895, Foot.FromMetres(1), 1e-9)
	assert.InDelta(t, 1.0, Foot.ToMetres(Foot.FromMetres(1)), 1e-12)
	assert.Equal(t, float64(MetresPerDegree), Degree.ToMetres(1))
}

func TestEnvelope_AxisOrder(t *testing.T) {
	latLon := NewEnvelope(50, 3, 54, 8, WGS84) // lat/lon
	assert.Equal(t, geom.Extent{3, 50, 8, 54}, latLon.EastNorth())

	east, north, err := latLon.UpperLeft()
	require.NoError(t, err)
	assert.Equal(t, 3.0, east)
	assert.Equal(t, 54.0, north)

	lonLat := FromEastNorth(geom.Extent{3, 50, 8, 54}, CRS84)
	assert.Equal(t, geom.Extent{3, 50, 8, 54}, lonLat.Extent)
	assert.Equal(t, latLon.EastNorth(), lonLat.EastNorth())

	_, _, err = NewEnvelope(0, 0, 1, 1, CRS{Authority: "X", Code: "1"}).UpperLeft()
	require.Error(t, err)
}

func TestEnvelope_Intersection(t *testing.T) {
	a := NewEnvelope(0, 0, 10, 10, WebMercator)
	b := NewEnvelope(5, 5, 20, 20, WebMercator)
	touching := NewEnvelope(10, 0, 20, 10, WebMercator)

	got, ok := a.Intersection(b)
	require.True(t, ok)
	assert.Equal(t, geom.Extent{5, 5, 10, 10}, got.Extent)
	assert.False(t, a.Intersects(touching))
	_, ok = a.Intersection(touching)
	assert.False(t, ok)
}

func TestOrbTransformer(t *testing.T) {
	tr := OrbTransformer{}

	t.Run("identity keeps ordinates", func(t *testing.T) {
		e := NewEnvelope(1, 2, 3, 4, WebMercator)
		got, err := tr.Transform(e, WebMercator)
		require.NoError(t, err)
		assert.Equal(t, e, got)
	})

	t.Run("EPSG:4326 to CRS:84 swaps axes", func(t *testing.T) {
		got, err := tr.Transform(NewEnvelope(50, 3, 54, 8, WGS84), CRS84)
		require.NoError(t, err)
		assert.Equal(t, geom.Extent{3, 50, 8, 54}, got.Extent)
	})

	t.Run("round trip through web mercator", func(t *testing.T) {
		e := NewEnvelope(-10, -20, 30, 40, CRS84)
		merc, err := tr.Transform(e, WebMercator)
		require.NoError(t, err)
		assert.InDelta(t, -1113194.9, merc.Extent[0], 1)
		back, err := tr.Transform(merc, CRS84)
		require.NoError(t, err)
		for i := range e.Extent {
			assert.InDelta(t, e.Extent[i], back.Extent[i], 1e-9)
		}
	})

	t.Run("poles are outside web mercator", func(t *testing.T) {
		_, err := tr.Transform(NewEnvelope(-180, -90, 180, 90, CRS84), WebMercator)
		require.ErrorIs(t, err, ErrOutsideDomain)
	})

	t.Run("unsupported pair", func(t *testing.T) {
		_, err := tr.Transform(NewEnvelope(0, 0, 1, 1, FromAuthority("EPSG", "28992")), WebMercator)
		require.ErrorIs(t, err, ErrUnsupportedTransform)
	})

	t.Run("results are finite", func(t *testing.T) {
		got, err := tr.Transform(NewEnvelope(-20037508.34, -20037508.34, 20037508.34, 20037508.34, WebMercator), CRS84)
		require.NoError(t, err)
		for _, o := range got.Extent {
			assert.False(t, math.IsNaN(o))
		}
	})
}
