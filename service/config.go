package service

import (
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxTiles bounds the number of tiles of one extent when the caller gives no limit.
const DefaultMaxTiles = 1000

type Protocol string

const (
	ProtocolREST Protocol = "REST"
	ProtocolKVP  Protocol = "KVP"
)

type Config struct {
	// Name of the service, part of every tile cache key
	ServiceName string `default:"wmts" validate:"required"`
	// REST uses a resource URL template, KVP sends GetTile requests to KVPBaseURL
	Protocol Protocol `default:"REST" validate:"oneof=REST KVP"`
	// Resource URL template, taken from the layer when empty
	Template   string
	KVPBaseURL string `validate:"omitempty,url"`
	// Image format, a PNG flavour offered by the layer when empty
	Format string
	// Style, the default style of the layer when empty
	Style string
	// Tile matrix set id, selected by CRS when empty
	TileMatrixSet string
	// CRS to select the tile matrix set by
	CRS string `default:"EPSG:3857"`
	// Dimension values overriding the layer defaults, e.g. {"Time": "2023"}
	Dimensions map[string]string
	// Extra HTTP headers sent with every tile request
	Headers   map[string]string
	UserAgent string        `default:"wmtstiles/1.0"`
	Timeout   time.Duration `default:"30s" validate:"gt=0"`
	CacheSize int           `default:"150" validate:"min=1"`
	MaxTiles  int           `default:"1000" validate:"min=1"`
}

// Normalize applies defaults and validates the config.
func (c *Config) Normalize() error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Protocol == ProtocolKVP && c.KVPBaseURL == "" {
		return ErrNoKVPBaseURL
	}
	return nil
}
