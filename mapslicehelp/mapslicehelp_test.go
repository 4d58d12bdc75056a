package mapslicehelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestOrderedMap(t *testing.T) {
	m := orderedmap.New[string, int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, OrderedMapKeys(m))
	assert.Equal(t, []int{1, 2, 3}, OrderedMapValues(m))
}
