package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdok/wmtstiles/cache"
	"github.com/pdok/wmtstiles/logging"
	"github.com/pdok/wmtstiles/metrics"
	"github.com/pdok/wmtstiles/tile"
	"github.com/pdok/wmtstiles/transport"
	"github.com/pdok/wmtstiles/urltemplate"
)

// Fetcher retrieves tiles using one WMTS request encoding.
type Fetcher interface {
	// URL returns the URL the tile is fetched from.
	URL(t tile.Tile) (string, error)
	// Fetch completes base with the decoded image.
	Fetch(ctx context.Context, base cache.Entry) (cache.Entry, error)
	Protocol() Protocol
}

type templateFetcher struct {
	template *urltemplate.Template
	getter   transport.Getter
	headers  map[string]string
}

var _ Fetcher = (*templateFetcher)(nil)

func (f *templateFetcher) URL(t tile.Tile) (string, error) {
	return f.template.Build(t.TileMatrix, t.ID.Col, t.ID.Row), nil
}

func (f *templateFetcher) Fetch(ctx context.Context, base cache.Entry) (cache.Entry, error) {
	if base.URL == "" {
		base.URL, _ = f.URL(base.Tile)
	}
	body, _, err := f.getter.Get(ctx, base.URL, f.headers)
	if err != nil {
		return base, transport.NewFetchError(base.URL, err)
	}
	return decodeInto(base, body)
}

func (f *templateFetcher) Protocol() Protocol {
	return ProtocolREST
}

type kvpFetcher struct {
	client  *transport.KVPClient
	baseURL string
	request transport.GetTileRequest
	headers map[string]string
}

var _ Fetcher = (*kvpFetcher)(nil)

func (f *kvpFetcher) requestFor(t tile.Tile) transport.GetTileRequest {
	req := f.request
	req.TileMatrix = t.TileMatrix
	req.TileCol = t.ID.Col
	req.TileRow = t.ID.Row
	return req
}

func (f *kvpFetcher) URL(t tile.Tile) (string, error) {
	return f.requestFor(t).URL(f.baseURL)
}

func (f *kvpFetcher) Fetch(ctx context.Context, base cache.Entry) (cache.Entry, error) {
	if base.URL == "" {
		if u, err := f.URL(base.Tile); err == nil {
			base.URL = u
		}
	}
	body, _, err := f.client.GetTile(ctx, f.requestFor(base.Tile), f.headers)
	if err != nil {
		return base, transport.NewFetchError(base.URL, err)
	}
	return decodeInto(base, body)
}

func (f *kvpFetcher) Protocol() Protocol {
	return ProtocolKVP
}

func decodeInto(e cache.Entry, body []byte) (cache.Entry, error) {
	img, format, err := transport.DecodeImage(body)
	if err != nil {
		return e, transport.NewFetchError(e.URL, err)
	}
	e.Image = img
	e.Format = format
	return e, nil
}

// instrumented wraps a fetch with a span, metrics and logging.
func instrumented(f Fetcher, tracer trace.Tracer, logger logging.Logger) cache.FetchFunc {
	protocol := string(f.Protocol())
	return func(ctx context.Context, base cache.Entry) (cache.Entry, error) {
		ctx, span := tracer.Start(ctx, "wmts.fetch_tile",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("wmts.protocol", protocol),
				attribute.String("wmts.tile", base.Tile.ID.String()),
			),
		)
		defer span.End()

		start := time.Now()
		e, err := f.Fetch(ctx, base)
		metrics.TilesUpstreamLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TilesUpstreamRequests.WithLabelValues(protocol, "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("fetching tile failed", "tile", base.Tile.ID.String(), "url", logging.Short(e.URL), "error", err)
			return e, err
		}
		metrics.TilesUpstreamRequests.WithLabelValues(protocol, "ok").Inc()
		span.SetAttributes(attribute.String("url.full", e.URL))
		span.SetStatus(codes.Ok, "")
		logger.Debug("fetched tile", "tile", base.Tile.ID.String(), "url", logging.Short(e.URL), "format", e.Format)
		return e, nil
	}
}
