package urltemplate

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Empty(t *testing.T) {
	_, err := Compile("", nil)
	require.ErrorIs(t, err, ErrEmptyTemplate)
	assert.Panics(t, func() { MustCompile("") })
}

func TestBuild(t *testing.T) {
	tmpl := MustCompile("http://x/{TileMatrix}/{TileCol}/{TileRow}.png")
	assert.Equal(t, "http://x/0/3/5.png", tmpl.Build("0", 3, 5))
}

func TestBuild_AllOrderings(t *testing.T) {
	orderings := [][3]string{
		{TileMatrix, TileCol, TileRow},
		{TileMatrix, TileRow, TileCol},
		{TileCol, TileMatrix, TileRow},
		{TileCol, TileRow, TileMatrix},
		{TileRow, TileMatrix, TileCol},
		{TileRow, TileCol, TileMatrix},
	}
	values := map[string]string{TileMatrix: "EPSG%3A28992%3A12", TileCol: "1234", TileRow: "987"}
	for _, o := range orderings {
		raw := fmt.Sprintf("https://tiles.example.com/wmts/%s/a/%s/b/%s?x=1", o[0], o[1], o[2])
		t.Run(raw, func(t *testing.T) {
			tmpl, err := Compile(raw, nil)
			require.NoError(t, err)

			want := raw
			for k, v := range values {
				want = strings.Replace(want, k, v, 1)
			}
			assert.Equal(t, want, tmpl.Build("EPSG:28992:12", 1234, 987))
		})
	}
}

func TestBuild_CaseInsensitive(t *testing.T) {
	tmpl := MustCompile("{tilematrix}/{TILECOL}/{tileRow}")
	assert.Equal(t, "7/8/9", tmpl.Build("7", 8, 9))
}

func TestBuild_PlaceholderAtEdges(t *testing.T) {
	tmpl := MustCompile("{TileCol}{TileRow}{TileMatrix}")
	assert.Equal(t, "12z", tmpl.Build("z", 1, 2))
}

func TestBuild_MissingPlaceholder(t *testing.T) {
	tmpl := MustCompile("http://x/{TileMatrix}/{TileCol}.png")
	got := tmpl.Build("m", 424242, 777777)
	assert.Equal(t, "http://x/m/424242.png", got)
	assert.NotContains(t, got, "777777")
}

func TestBuild_Concurrent(t *testing.T) {
	tmpl := MustCompile("http://x/{TileMatrix}/{TileCol}/{TileRow}.png")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Equal(t, fmt.Sprintf("http://x/3/%d/%d.png", i, i*10), tmpl.Build("3", i, i*10))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(len("http://x/3/49/490.png")), tmpl.longest.Load())
}

func TestSubstitute(t *testing.T) {
	got := Substitute("https://x/{Style}/{tilematrixset}/{Time}/{TileMatrix}/{TileCol}/{TileRow}.png", map[string]string{
		"Style":         "default",
		"TileMatrixSet": "EPSG:3857",
		"Time":          "{Time}",
	})
	assert.Equal(t, "https://x/default/EPSG:3857/{Time}/{TileMatrix}/{TileCol}/{TileRow}.png", got)
}

func TestBuild_MultibyteCaseFolding(t *testing.T) {
	// both characters change byte length when lowercased
	for _, prefix := range []string{"K", "İ"} {
		t.Run(prefix, func(t *testing.T) {
			tmpl := MustCompile("http://x/" + prefix + "/{TileMatrix}/{tilecol}/{TileRow}.png")
			assert.Equal(t, "http://x/"+prefix+"/0/3/5.png", tmpl.Build("0", 3, 5))
		})
	}
}

func TestSubstitute_MultibyteCaseFolding(t *testing.T) {
	got := Substitute("https://x/İK/{style}/{TileMatrixSet}/{TileMatrix}", map[string]string{
		"Style":         "grijs",
		"TileMatrixSet": "EPSG:28992",
	})
	assert.Equal(t, "https://x/İK/grijs/EPSG:28992/{TileMatrix}", got)
}
