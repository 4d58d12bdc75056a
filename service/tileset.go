package service

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/wmtstiles/cache"
	"github.com/pdok/wmtstiles/mapslicehelp"
	"github.com/pdok/wmtstiles/tile"
)

// TileSet holds the tiles of one extent in traversal order: row by row, left to right.
type TileSet struct {
	Zoom  tile.ZoomLevel
	tiles *orderedmap.OrderedMap[tile.Identifier, cache.Entry]
}

func newTileSet(zoom tile.ZoomLevel) *TileSet {
	return &TileSet{Zoom: zoom, tiles: orderedmap.New[tile.Identifier, cache.Entry]()}
}

func (s *TileSet) add(e cache.Entry) {
	s.tiles.Set(e.Tile.ID, e)
}

func (s *TileSet) Len() int {
	if s == nil || s.tiles == nil {
		return 0
	}
	return s.tiles.Len()
}

func (s *TileSet) IsEmpty() bool {
	return s.Len() == 0
}

func (s *TileSet) Contains(id tile.Identifier) bool {
	if s.Len() == 0 {
		return false
	}
	_, ok := s.tiles.Get(id)
	return ok
}

func (s *TileSet) Get(id tile.Identifier) (cache.Entry, bool) {
	if s.Len() == 0 {
		return cache.Entry{}, false
	}
	return s.tiles.Get(id)
}

// Entries returns the resolved tiles in traversal order.
func (s *TileSet) Entries() []cache.Entry {
	if s.Len() == 0 {
		return []cache.Entry{}
	}
	return mapslicehelp.OrderedMapValues(s.tiles)
}

func (s *TileSet) Identifiers() []tile.Identifier {
	if s.Len() == 0 {
		return []tile.Identifier{}
	}
	return mapslicehelp.OrderedMapKeys(s.tiles)
}
