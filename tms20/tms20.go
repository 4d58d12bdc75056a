// Package tms20 implements the OGC Tile Matrix Set standard (v2.0), the part of it that is
// needed to address tiles: matrix sets, tile matrices and tile matrix limits.
// See https://www.ogc.org/standard/tms/
package tms20

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/mathhelp"
)

var (
	//go:embed tilematrixsets/*.json
	embeddedTileMatrixSetsJSONFS embed.FS
	embeddedTileMatrixSetsCache  = make(map[string]*TileMatrixSet)
	embeddedTileMatrixSetsMu     sync.Mutex
)

func LoadJSONTileMatrixSet(path string) (TileMatrixSet, error) {
	var tms TileMatrixSet
	tmsJSON, err := os.ReadFile(path)
	if err != nil {
		return tms, err
	}
	err = json.Unmarshal(tmsJSON, &tms)
	if err != nil {
		return tms, fmt.Errorf("could not read tile matrix set %v: %w", path, err)
	}
	return tms, nil
}

func LoadEmbeddedTileMatrixSet(id string) (TileMatrixSet, error) {
	embeddedTileMatrixSetsMu.Lock()
	defer embeddedTileMatrixSetsMu.Unlock()

	var tms TileMatrixSet
	cached, ok := embeddedTileMatrixSetsCache[id]
	if ok {
		return *cached, nil
	}
	tmsJSON, err := embeddedTileMatrixSetsJSONFS.ReadFile("tilematrixsets/" + id + ".json")
	if err != nil {
		return tms, err
	}
	err = json.Unmarshal(tmsJSON, &tms)
	if err != nil {
		return tms, err
	}
	embeddedTileMatrixSetsCache[id] = &tms
	return tms, nil
}

// LoadTileMatrixSet loads a built-in tile matrix set by id, or else a JSON file.
func LoadTileMatrixSet(idOrPath string) (TileMatrixSet, error) {
	tms, err := LoadEmbeddedTileMatrixSet(idOrPath)
	if err == nil {
		return tms, nil
	}
	return LoadJSONTileMatrixSet(idOrPath)
}

// TileMatrixSet is a definition of a tile matrix set following the Tile Matrix Set standard.
type TileMatrixSet struct {
	// Tile matrix set identifier. Implementation of 'identifier'
	ID string `validate:"required" json:"id"`
	// Title of this tile matrix set, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Brief narrative description of this tile matrix set, normally available for display to a human
	Description string `json:"description,omitempty"`
	// Unordered list of one or more commonly used or formalized word(s) or phrase(s) used to describe this tile matrix set
	Keywords []string `json:"keywords,omitempty"`
	// Reference to an official source for this TileMatrixSet
	URI         string   `validate:"omitempty,uri" json:"uri,omitempty"`
	OrderedAxes []string `validate:"omitempty,len=2" json:"orderedAxes,omitempty"`
	// Coordinate Reference System (CRS), axis order taken from OrderedAxes when given
	CRS crs.CRS `validate:"required" json:"-"`
	// Reference to a well-known scale set
	WellKnownScaleSet string `validate:"omitempty,uri" json:"wellKnownScaleSet,omitempty"`
	// Minimum bounding rectangle surrounding the tile matrix set, in the supported CRS
	BoundingBox *TwoDBoundingBox `json:"boundingBox,omitempty"`
	// Describes scale levels and its tile matrices, keyed by index (coarsest is 0)
	TileMatrices map[int]TileMatrix `validate:"required,min=1" json:"-"`
}

func (tms *TileMatrixSet) UnmarshalJSON(data []byte) error {
	err := defaults.Set(tms)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, tms, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// CRS
	rawCrs, ok := specials["crs"]
	if !ok {
		return fmt.Errorf(`missing key "crs"`)
	}
	tms.CRS, err = unmarshalCRS(rawCrs)
	if err != nil {
		return err
	}
	tms.CRS = tms.CRS.WithOrderedAxes(tms.OrderedAxes)
	if tms.BoundingBox != nil && tms.BoundingBox.CRS.IsZero() {
		tms.BoundingBox.CRS = tms.CRS
	}

	// TileMatrices
	rawTileMatrices, ok := specials["tileMatrices"]
	if !ok {
		return fmt.Errorf(`missing key "tileMatrices"`)
	}
	tms.TileMatrices, err = unmarshalTileMatrices(rawTileMatrices)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tms)
}

// unmarshalTileMatrices keys the matrices by their integer id. When not every id is
// integer-like (e.g. "EPSG:28992:3") the position in the list is used instead.
func unmarshalTileMatrices(rawTileMatrices interface{}) (map[int]TileMatrix, error) {
	rawTileMatricesList, ok := rawTileMatrices.([]interface{})
	if !ok {
		return nil, fmt.Errorf(`"tileMatrices" should be an array`)
	}
	list := make([]TileMatrix, 0, len(rawTileMatricesList))
	integerIDs := true
	for _, rawTileMatrix := range rawTileMatricesList {
		rawTileMatrixMap, ok := rawTileMatrix.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf(`"tileMatrices" should be objects`)
		}
		var tileMatrix TileMatrix
		err := tileMatrix.UnmarshalJSONFromMap(rawTileMatrixMap)
		if err != nil {
			return nil, err
		}
		if _, err := strconv.ParseInt(tileMatrix.ID, 10, 64); err != nil {
			integerIDs = false
		}
		list = append(list, tileMatrix)
	}
	tileMatrices := make(map[int]TileMatrix, len(list))
	for i, tileMatrix := range list {
		index := i
		if integerIDs {
			id, _ := strconv.ParseInt(tileMatrix.ID, 10, 64)
			index = int(id)
		}
		if _, dupe := tileMatrices[index]; dupe {
			return nil, fmt.Errorf(`duplicate tile matrix "%v"`, tileMatrix.ID)
		}
		tileMatrices[index] = tileMatrix
	}
	return tileMatrices, nil
}

// unmarshalCRS accepts a URI string, an object with a "uri", or an object with a
// ProjJSON "wkt" carrying an id.
func unmarshalCRS(rawCrs interface{}) (crs.CRS, error) {
	if rawCrsString, ok := rawCrs.(string); ok {
		return crs.Parse(rawCrsString)
	}
	rawCrsMap, ok := rawCrs.(map[string]interface{})
	if !ok {
		return crs.CRS{}, fmt.Errorf(`wrong type key "crs": %T`, rawCrs)
	}
	if rawURI, ok := rawCrsMap["uri"]; ok {
		uri, ok := rawURI.(string)
		if !ok {
			return crs.CRS{}, fmt.Errorf(`uri property is not a string but a %T`, rawURI)
		}
		return crs.Parse(uri)
	}
	if rawWKT, ok := rawCrsMap["wkt"]; ok {
		wktMap, ok := rawWKT.(map[string]interface{})
		if !ok {
			return crs.CRS{}, fmt.Errorf(`wkt property is not an object but a %T`, rawWKT)
		}
		var wkt projJSON
		if _, err := marshmallow.UnmarshalFromJSONMap(wktMap, &wkt); err != nil {
			return crs.CRS{}, fmt.Errorf(`could not parse wkt as ProjJSON "%v"`, wktMap)
		}
		validate := validator.New(validator.WithRequiredStructEnabled())
		if err := validate.Struct(&wkt); err != nil {
			return crs.CRS{}, err
		}
		return crs.FromAuthority(wkt.ID.AuthorityName, fmt.Sprint(wkt.ID.AuthorityCode)), nil
	}
	return crs.CRS{}, fmt.Errorf(`could not unmarshal crs, expected "uri" or "wkt": %v`, rawCrsMap)
}

type projJSON struct {
	ID projJSONID `validate:"required" json:"id"`
}

type projJSONID struct {
	AuthorityName string      `validate:"required" json:"authority"`
	AuthorityCode interface{} `validate:"required" json:"code"` // string or number
}

// Minimum bounding rectangle surrounding a 2D resource in the CRS indicated elsewhere
type TwoDBoundingBox struct {
	LowerLeft   TwoDPoint `validate:"required" json:"lowerLeft"`
	UpperRight  TwoDPoint `validate:"required" json:"upperRight"`
	CRS         crs.CRS   `json:"-"`
	OrderedAxes []string  `validate:"omitempty,len=2" json:"orderedAxes,omitempty"`
}

func (bb *TwoDBoundingBox) UnmarshalJSON(data []byte) error {
	err := defaults.Set(bb)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, bb, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// CRS is optional, it defaults to the CRS of the tile matrix set
	if rawCrs, ok := specials["crs"]; ok {
		bb.CRS, err = unmarshalCRS(rawCrs)
		if err != nil {
			return err
		}
		bb.CRS = bb.CRS.WithOrderedAxes(bb.OrderedAxes)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(bb)
}

// Envelope returns the bounding box with its ordinates in CRS axis order.
func (bb *TwoDBoundingBox) Envelope() crs.Envelope {
	return crs.NewEnvelope(bb.LowerLeft[0], bb.LowerLeft[1], bb.UpperRight[0], bb.UpperRight[1], bb.CRS)
}

// A 2D Point in the CRS indicated elsewhere
type TwoDPoint [2]float64

// A tile matrix, usually corresponding to a particular zoom level of a TileMatrixSet.
type TileMatrix struct {
	// Identifier selecting one of the scales defined in the TileMatrixSet and representing the scaleDenominator the tile.
	// Implementation of 'identifier'
	ID string `validate:"required" json:"id"`
	// Title of this tile matrix, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Brief narrative description of this tile matrix set, normally available for display to a human
	Description string `json:"description,omitempty"`
	// Unordered list of one or more commonly used or formalized word(s) or phrase(s) used to describe this dataset
	Keywords []string `json:"keywords,omitempty"`
	// Scale denominator of this tile matrix
	ScaleDenominator float64 `validate:"required,gt=0" json:"scaleDenominator"`
	// Cell size of this tile matrix
	CellSize float64 `validate:"omitempty,gt=0" json:"cellSize"`
	// The corner of the tile matrix (_topLeft_ or _bottomLeft_) used as the origin for numbering tile rows and columns.
	// This corner is also a corner of the (0, 0) tile.
	CornerOfOrigin CornerOfOrigin `validate:"omitempty,oneof=topLeft bottomLeft" json:"cornerOfOrigin,omitempty"`
	// Precise position in CRS coordinates of the corner of origin (e.g. the top-left corner) for this tile matrix.
	// The ordinates follow the axis order of the CRS.
	PointOfOrigin TwoDPoint `validate:"required" json:"pointOfOrigin"`
	// Width of each tile of this tile matrix in pixels
	TileWidth uint `validate:"required,min=1" json:"tileWidth"`
	// Height of each tile of this tile matrix in pixels
	TileHeight uint `validate:"required,min=1" json:"tileHeight"`
	// Width of the matrix (number of tiles in width)
	MatrixWidth uint `validate:"required,min=1" json:"matrixWidth"`
	// Height of the matrix (number of tiles in height)
	MatrixHeight uint `validate:"required,min=1" json:"matrixHeight"`
	// Describes the rows that have variable matrix width
	VariableMatrixWidths []VariableMatrixWidth `json:"variableMatrixWidths,omitempty"`
}

func (tm *TileMatrix) UnmarshalJSON(data []byte) error {
	return UnmarshalJSONMapUsingUnmarshalJSONFromMap(tm, data)
}

func (tm *TileMatrix) UnmarshalJSONFromMap(data interface{}) error {
	err := defaults.Set(tm)
	if err != nil {
		return err
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`data is not a map but a %T`, data)
	}

	_, err = marshmallow.UnmarshalFromJSONMap(dataMap, tm, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}
	if tm.CornerOfOrigin == "" {
		tm.CornerOfOrigin = TopLeft
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tm)
}

type CornerOfOrigin string

const (
	TopLeft    CornerOfOrigin = "topLeft"
	BottomLeft CornerOfOrigin = "bottomLeft"
)

// Variable Matrix Width data structure
type VariableMatrixWidth struct {
	// Number of tiles in width that coalesce in a single tile for these rows
	Coalesce uint `validate:"required,min=2" json:"coalesce"`
	// First tile row where the coalescence factor applies for this tilematrix
	MinTileRow uint `validate:"min=0" json:"minTileRow"`
	// Last tile row where the coalescence factor applies for this tilematrix
	MaxTileRow uint `validate:"min=0" json:"maxTileRow"`
}

// TileMatrixLimits restricts the populated tiles of one tile matrix. All bounds are inclusive.
type TileMatrixLimits struct {
	TileMatrix string `validate:"required" json:"tileMatrix"`
	MinTileRow int    `validate:"min=0" json:"minTileRow"`
	MaxTileRow int    `validate:"gtefield=MinTileRow" json:"maxTileRow"`
	MinTileCol int    `validate:"min=0" json:"minTileCol"`
	MaxTileCol int    `validate:"gtefield=MinTileCol" json:"maxTileCol"`
}

func (l TileMatrixLimits) Contains(col, row int) bool {
	return mathhelp.BetweenInc(col, l.MinTileCol, l.MaxTileCol) &&
		mathhelp.BetweenInc(row, l.MinTileRow, l.MaxTileRow)
}

// Indices returns the tile matrix indices, coarsest first.
func (tms *TileMatrixSet) Indices() []int {
	indices := make([]int, 0, len(tms.TileMatrices))
	for i := range tms.TileMatrices {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

func (tms *TileMatrixSet) TileMatrixByIndex(index int) (TileMatrix, bool) {
	tm, ok := tms.TileMatrices[index]
	return tm, ok
}

// IndexOf returns the index of the tile matrix with the given id.
func (tms *TileMatrixSet) IndexOf(tileMatrixID string) (int, bool) {
	for i, tm := range tms.TileMatrices {
		if tm.ID == tileMatrixID {
			return i, true
		}
	}
	return 0, false
}

// FullLimits covers every tile of the tile matrix at index.
func (tms *TileMatrixSet) FullLimits(index int) (TileMatrixLimits, bool) {
	tm, ok := tms.TileMatrices[index]
	if !ok {
		return TileMatrixLimits{}, false
	}
	return TileMatrixLimits{
		TileMatrix: tm.ID,
		MinTileRow: 0,
		MaxTileRow: int(tm.MatrixHeight) - 1,
		MinTileCol: 0,
		MaxTileCol: int(tm.MatrixWidth) - 1,
	}, true
}

func UnmarshalJSONMapUsingUnmarshalJSONFromMap(target marshmallow.UnmarshalerFromJSONMap, data []byte) error {
	var dataMap map[string]interface{}
	err := json.Unmarshal(data, &dataMap)
	if err != nil {
		return err
	}
	return target.UnmarshalJSONFromMap(dataMap)
}
