// Package service turns a requested extent and scale into the set of WMTS tiles covering
// it, fetching every tile at most once through a shared, bounded cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdok/wmtstiles/cache"
	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/grid"
	"github.com/pdok/wmtstiles/layer"
	"github.com/pdok/wmtstiles/logging"
	"github.com/pdok/wmtstiles/metrics"
	"github.com/pdok/wmtstiles/tile"
	"github.com/pdok/wmtstiles/tms20"
	"github.com/pdok/wmtstiles/transport"
	"github.com/pdok/wmtstiles/urltemplate"
)

const tracerName = "github.com/pdok/wmtstiles/service"

var (
	ErrNilLayer           = errors.New("layer must not be nil")
	ErrNoTemplate         = errors.New("no resource url template for REST tile requests")
	ErrMissingBoundingBox = errors.New("layer declares no bounding box")
	ErrNoTileMatrixSet    = errors.New("no tile matrix set")
	ErrNoKVPBaseURL       = errors.New("KVP tile requests need a base url")
)

type Option func(*Service)

func WithLogger(logger logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithGetter replaces the HTTP getter built from the config.
func WithGetter(getter transport.Getter) Option {
	return func(s *Service) { s.getter = getter }
}

// WithCache shares a tile cache between services. Service names keep their keys apart.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTransformer(t crs.Transformer) Option {
	return func(s *Service) { s.transformer = t }
}

// WithTileMatrixSetLoader replaces loading tile matrix sets by id from the embedded sets or
// from file.
func WithTileMatrixSetLoader(load func(id string) (tms20.TileMatrixSet, error)) Option {
	return func(s *Service) { s.loadTileMatrixSet = load }
}

type Service struct {
	cfg         Config
	layer       *layer.Layer
	grid        *grid.Grid
	fetcher     Fetcher
	fetch       cache.FetchFunc
	cache       *cache.Cache
	getter      transport.Getter
	transformer crs.Transformer
	logger      logging.Logger
	tracer      trace.Tracer

	loadTileMatrixSet func(id string) (tms20.TileMatrixSet, error)
}

// New creates a service for one layer. When tms is nil the tile matrix set is the one named
// in the config, or else the linked set matching the configured CRS.
func New(l *layer.Layer, tms *tms20.TileMatrixSet, cfg Config, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, ErrNilLayer
	}
	if !l.HasBounds() {
		return nil, fmt.Errorf("layer %v: %w", l.Identifier, ErrMissingBoundingBox)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Service{
		cfg:               cfg,
		layer:             l,
		transformer:       crs.OrbTransformer{},
		logger:            logging.Nop(),
		tracer:            otel.Tracer(tracerName),
		loadTileMatrixSet: tms20.LoadTileMatrixSet,
	}
	for _, opt := range opts {
		opt(s)
	}

	selected, err := s.selectTileMatrixSet(tms)
	if err != nil {
		return nil, err
	}
	link, ok := l.Link(selected.ID)
	if !ok {
		link = layer.TileMatrixSetLink{TileMatrixSet: selected.ID}
	}
	if s.grid, err = grid.New(selected, link, cfg.ServiceName); err != nil {
		return nil, err
	}

	if s.cache == nil {
		if s.cache, err = cache.New(cfg.CacheSize, s.logger); err != nil {
			return nil, err
		}
	}
	if s.getter == nil {
		s.getter = transport.NewHTTPGetter(cfg.Timeout, cfg.UserAgent)
	}
	if s.fetcher, err = s.newFetcher(selected); err != nil {
		return nil, err
	}
	s.fetch = instrumented(s.fetcher, s.tracer, s.logger)

	s.logger.Info("wmts tile service ready",
		"service", cfg.ServiceName,
		"layer", l.Identifier,
		"tileMatrixSet", selected.ID,
		"crs", selected.CRS.String(),
		"protocol", string(cfg.Protocol))
	return s, nil
}

func (s *Service) selectTileMatrixSet(tms *tms20.TileMatrixSet) (tms20.TileMatrixSet, error) {
	if tms != nil {
		if len(tms.TileMatrices) == 0 {
			return *tms, fmt.Errorf("%w: %v has no tile matrices", ErrNoTileMatrixSet, tms.ID)
		}
		return *tms, nil
	}
	if s.cfg.TileMatrixSet != "" {
		selected, err := s.loadTileMatrixSet(s.cfg.TileMatrixSet)
		if err != nil {
			return selected, fmt.Errorf("%w: %v: %w", ErrNoTileMatrixSet, s.cfg.TileMatrixSet, err)
		}
		return selected, nil
	}
	request, err := crs.Parse(s.cfg.CRS)
	if err != nil {
		return tms20.TileMatrixSet{}, fmt.Errorf("%w: %w", ErrNoTileMatrixSet, err)
	}
	selected, err := s.layer.SelectTileMatrixSet(request, s.loadTileMatrixSet)
	if err != nil {
		return selected, fmt.Errorf("%w for layer %v: %w", ErrNoTileMatrixSet, s.layer.Identifier, err)
	}
	return selected, nil
}

func (s *Service) newFetcher(tms tms20.TileMatrixSet) (Fetcher, error) {
	format := s.layer.PreferredFormat(s.cfg.Format)
	style := s.cfg.Style
	if style == "" {
		style = s.layer.DefaultStyle()
	}
	dimensions := s.layer.DimensionValues(s.cfg.Dimensions)

	switch s.cfg.Protocol {
	case ProtocolKVP:
		return &kvpFetcher{
			client:  transport.NewKVPClient(s.getter, s.cfg.KVPBaseURL),
			baseURL: s.cfg.KVPBaseURL,
			request: transport.GetTileRequest{
				Layer:         s.layer.Identifier,
				Style:         style,
				Format:        format,
				TileMatrixSet: tms.ID,
				Dimensions:    dimensions,
			},
			headers: s.cfg.Headers,
		}, nil
	default:
		raw := s.cfg.Template
		if raw == "" {
			raw, _ = s.layer.ResourceTemplate(format)
		}
		if raw == "" {
			return nil, ErrNoTemplate
		}
		fixed := map[string]string{"Style": style, "TileMatrixSet": tms.ID}
		for k, v := range dimensions {
			fixed[k] = v
		}
		template, err := urltemplate.Compile(urltemplate.Substitute(raw, fixed), s.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoTemplate, err)
		}
		return &templateFetcher{template: template, getter: s.getter, headers: s.cfg.Headers}, nil
	}
}

func (s *Service) Grid() *grid.Grid {
	return s.grid
}

func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// ZoomLevelForScale selects the zoom level whose scale denominator is nearest to scale.
// Levels are scanned from finest to coarsest so a coarser level wins a tie. With
// recommended the distance is the log ratio of both scales instead of their difference.
func (s *Service) ZoomLevelForScale(scale float64, recommended bool) tile.ZoomLevel {
	tms := s.grid.TileMatrixSet()
	indices := tms.Indices()
	best := indices[0]
	bestDistance := math.Inf(1)
	for i := len(indices) - 1; i >= 0; i-- {
		tm := tms.TileMatrices[indices[i]]
		distance := math.Abs(tm.ScaleDenominator - scale)
		if recommended && scale > 0 {
			distance = math.Abs(math.Log(tm.ScaleDenominator / scale))
		}
		if distance <= bestDistance {
			best = indices[i]
			bestDistance = distance
		}
	}
	zoom, _ := s.grid.ZoomLevel(best)
	return zoom
}

// IdentifyTileAtCoordinate returns the tile containing the position, given as easting and
// northing in the CRS of the tile matrix set.
func (s *Service) IdentifyTileAtCoordinate(lon, lat float64, zoom int) tile.Identifier {
	z, ok := s.grid.ZoomLevel(zoom)
	if !ok {
		z = tile.ZoomLevel{Index: zoom}
	}
	return s.grid.AddressAt(lon, lat, z)
}

// FindUpperLeftTile returns the tile to start a traversal of extent from, clamped to the
// limits of the zoom level. Extent is reprojected to the tile matrix set CRS if needed.
func (s *Service) FindUpperLeftTile(extent crs.Envelope, zoom int) (tile.Identifier, bool) {
	z, ok := s.grid.ZoomLevel(zoom)
	if !ok {
		return tile.Identifier{}, false
	}
	if !extent.CRS.Equal(s.grid.CRS()) {
		reprojected, err := s.transformer.Transform(extent, s.grid.CRS())
		if err != nil {
			s.logger.Warn("cannot reproject extent", "extent", extent.String(), "error", err)
			return tile.Identifier{}, false
		}
		extent = reprojected
	}
	return s.upperLeftTile(extent, z)
}

func (s *Service) upperLeftTile(extent crs.Envelope, zoom tile.ZoomLevel) (tile.Identifier, bool) {
	east, north, err := extent.UpperLeft()
	if err != nil {
		s.logger.Warn("cannot determine upper left corner", "extent", extent.String(), "error", err)
		return tile.Identifier{}, false
	}
	limits, ok := s.grid.Limits(zoom.Index)
	if !ok {
		return tile.Identifier{}, false
	}
	return grid.ClampToLimits(s.grid.AddressAt(east, north, zoom), limits), true
}

// CreateURL returns the fetch URL of t. It is built once per tile and kept in the cache.
func (s *Service) CreateURL(t tile.Tile) (string, error) {
	return s.cache.URL(t, s.fetcher.URL)
}

// TilesInExtent returns the tiles covering requested at the zoom level nearest to
// scaleFactor, in row-major order. At most maxTiles tiles are returned, DefaultMaxTiles
// when maxTiles is not positive. An extent outside the layer or one that cannot be
// reprojected gives an empty set. A failing tile fetch aborts with the error.
func (s *Service) TilesInExtent(ctx context.Context, requested crs.Envelope, scaleFactor float64, wantRecommendedZoom bool, maxTiles int) (*TileSet, error) {
	if maxTiles <= 0 {
		maxTiles = s.cfg.MaxTiles
	}
	zoom := s.ZoomLevelForScale(scaleFactor, wantRecommendedZoom)
	result := newTileSet(zoom)

	ctx, span := s.tracer.Start(ctx, "wmts.tiles_in_extent", trace.WithAttributes(
		attribute.String("wmts.service", s.cfg.ServiceName),
		attribute.String("wmts.extent", requested.String()),
		attribute.Float64("wmts.scale", scaleFactor),
		attribute.Int("wmts.zoom", zoom.Index),
	))
	defer span.End()

	extent, ok := s.resolveExtent(requested)
	if !ok {
		return result, nil
	}
	first, ok := s.upperLeftTile(extent, zoom)
	if !ok {
		return result, nil
	}
	limits, _ := s.grid.Limits(zoom.Index)

	err := s.traverse(ctx, result, first, extent, limits, maxTiles)
	span.SetAttributes(attribute.Int("wmts.tiles", result.Len()))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.TilesPerRequest.Observe(float64(result.Len()))
	s.logger.Debug("tiles in extent", "extent", extent.String(), "zoom", zoom.Index, "tiles", result.Len())
	return result, nil
}

// traverse walks the tiles row by row starting at first. A row ends at the matrix edge,
// beyond the limits or at the first tile not intersecting extent; the next row starts below
// the first tile of the row under the same conditions.
func (s *Service) traverse(ctx context.Context, result *TileSet, first tile.Identifier, extent crs.Envelope, limits tms20.TileMatrixLimits, maxTiles int) error {
	if err := s.resolveInto(ctx, result, first); err != nil {
		return err
	}
	rowStart := first
	for {
		current := rowStart
		for {
			next, ok := grid.RightNeighbour(current, limits)
			if !ok || !s.intersects(next, extent) {
				break
			}
			if result.Len() >= maxTiles {
				s.logger.Warn("tile limit reached, returning partial result", "maxTiles", maxTiles)
				return nil
			}
			if err := s.resolveInto(ctx, result, next); err != nil {
				return err
			}
			current = next
		}

		next, ok := grid.LowerNeighbour(rowStart, limits)
		if !ok || !s.intersects(next, extent) || result.Len() >= result.Zoom.MaxTileCount {
			return nil
		}
		if result.Len() >= maxTiles {
			s.logger.Warn("tile limit reached, returning partial result", "maxTiles", maxTiles)
			return nil
		}
		if err := s.resolveInto(ctx, result, next); err != nil {
			return err
		}
		rowStart = next
	}
}

func (s *Service) intersects(id tile.Identifier, extent crs.Envelope) bool {
	tileExtent, err := s.grid.ExtentOf(id)
	return err == nil && tileExtent.Intersects(extent)
}

func (s *Service) resolveInto(ctx context.Context, result *TileSet, id tile.Identifier) error {
	t, err := s.grid.NewTile(id)
	if err != nil {
		return err
	}
	e, err := s.cache.Resolve(ctx, t, s.fetch)
	if err != nil {
		return err
	}
	result.add(e)
	return nil
}
