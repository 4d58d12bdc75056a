package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/pdok/wmtstiles/crs"
	"github.com/pdok/wmtstiles/layer"
	"github.com/pdok/wmtstiles/logging"
	"github.com/pdok/wmtstiles/service"
	"github.com/pdok/wmtstiles/transport"
)

const LAYER string = `layer`
const TILEMATRIXSET string = `tilematrixset`
const CRS string = `crs`
const PROTOCOL string = `protocol`
const TEMPLATE string = `template`
const KVPURL string = `kvpurl`
const FORMAT string = `format`
const STYLE string = `style`
const DIMENSION string = `dimension`
const HEADER string = `header`
const EXTENT string = `extent`
const EXTENTCRS string = `extentcrs`
const SCALE string = `scale`
const WIDTH string = `width`
const RECOMMENDED string = `recommended`
const MAXTILES string = `maxtiles`
const CACHESIZE string = `cachesize`
const TIMEOUT string = `timeout`
const S3 string = `s3`
const LOGLEVEL string = `loglevel`
const OUTPUT string = `output`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "wmtstiles"
	app.Usage = "Lists and fetches the WMTS tiles covering an extent at a scale"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     LAYER,
			Aliases:  []string{"l"},
			Usage:    "Layer definition (JSON)",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(LAYER)},
		},
		&cli.StringFlag{
			Name:    TILEMATRIXSET,
			Aliases: []string{"tms"},
			Usage:   `ID of a (built-in) tile matrix set or path to one. Selected by CRS when empty. E.g.: NetherlandsRDNewQuad`,
			EnvVars: []string{strcase.ToScreamingSnake(TILEMATRIXSET)},
		},
		&cli.StringFlag{
			Name:    CRS,
			Usage:   "CRS to select the tile matrix set by",
			Value:   "EPSG:3857",
			EnvVars: []string{strcase.ToScreamingSnake(CRS)},
		},
		&cli.StringFlag{
			Name:    PROTOCOL,
			Usage:   "REST or KVP",
			Value:   string(service.ProtocolREST),
			EnvVars: []string{strcase.ToScreamingSnake(PROTOCOL)},
		},
		&cli.StringFlag{
			Name:    TEMPLATE,
			Usage:   "Resource URL template overriding the one of the layer",
			EnvVars: []string{strcase.ToScreamingSnake(TEMPLATE)},
		},
		&cli.StringFlag{
			Name:    KVPURL,
			Usage:   "Base URL for KVP GetTile requests",
			EnvVars: []string{strcase.ToScreamingSnake(KVPURL)},
		},
		&cli.StringFlag{
			Name:    FORMAT,
			Usage:   "Image format, a PNG flavour of the layer when empty",
			EnvVars: []string{strcase.ToScreamingSnake(FORMAT)},
		},
		&cli.StringFlag{
			Name:    STYLE,
			Usage:   "Style, the default style of the layer when empty",
			EnvVars: []string{strcase.ToScreamingSnake(STYLE)},
		},
		&cli.StringSliceFlag{
			Name:    DIMENSION,
			Usage:   "Dimension value as key=value. E.g.: Time=2023",
			EnvVars: []string{strcase.ToScreamingSnake(DIMENSION)},
		},
		&cli.StringSliceFlag{
			Name:    HEADER,
			Usage:   "Extra request header as key=value",
			EnvVars: []string{strcase.ToScreamingSnake(HEADER)},
		},
		&cli.StringFlag{
			Name:     EXTENT,
			Aliases:  []string{"e"},
			Usage:    `Extent as JSON array in the axis order of its CRS. E.g.: [0,300000,250000,600000]`,
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(EXTENT)},
		},
		&cli.StringFlag{
			Name:    EXTENTCRS,
			Usage:   "CRS of the extent",
			Value:   "EPSG:3857",
			EnvVars: []string{strcase.ToScreamingSnake(EXTENTCRS)},
		},
		&cli.Float64Flag{
			Name:    SCALE,
			Usage:   "Scale denominator to select the zoom level by",
			EnvVars: []string{strcase.ToScreamingSnake(SCALE)},
		},
		&cli.IntFlag{
			Name:    WIDTH,
			Usage:   "Width in pixels the extent is rendered at, used when no scale is given",
			Value:   1024,
			EnvVars: []string{strcase.ToScreamingSnake(WIDTH)},
		},
		&cli.BoolFlag{
			Name:    RECOMMENDED,
			Usage:   "Select the zoom level by scale ratio instead of scale difference",
			EnvVars: []string{strcase.ToScreamingSnake(RECOMMENDED)},
		},
		&cli.IntFlag{
			Name:    MAXTILES,
			Usage:   "Maximum number of tiles",
			Value:   service.DefaultMaxTiles,
			EnvVars: []string{strcase.ToScreamingSnake(MAXTILES)},
		},
		&cli.IntFlag{
			Name:    CACHESIZE,
			Usage:   "Number of tiles kept in memory",
			Value:   150,
			EnvVars: []string{strcase.ToScreamingSnake(CACHESIZE)},
		},
		&cli.DurationFlag{
			Name:    TIMEOUT,
			Usage:   "HTTP timeout per tile",
			Value:   30 * time.Second,
			EnvVars: []string{strcase.ToScreamingSnake(TIMEOUT)},
		},
		&cli.BoolFlag{
			Name:    S3,
			Usage:   "Resolve s3:// tile URLs with the shared AWS configuration",
			EnvVars: []string{strcase.ToScreamingSnake(S3)},
		},
		&cli.StringFlag{
			Name:    OUTPUT,
			Aliases: []string{"o"},
			Usage:   "Write the tiles combined into one PNG to this path",
			EnvVars: []string{strcase.ToScreamingSnake(OUTPUT)},
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{strcase.ToScreamingSnake(LOGLEVEL)},
		},
	}

	app.Action = func(c *cli.Context) error {
		logger, err := logging.NewZapLogger(c.String(LOGLEVEL))
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		l, err := layer.Load(c.String(LAYER))
		if err != nil {
			return err
		}
		extent, err := parseExtent(c.String(EXTENT), c.String(EXTENTCRS))
		if err != nil {
			return err
		}
		dimensions, err := parseKeyValues(c.StringSlice(DIMENSION))
		if err != nil {
			return err
		}
		headers, err := parseKeyValues(c.StringSlice(HEADER))
		if err != nil {
			return err
		}

		cfg := service.Config{
			Protocol:      service.Protocol(strings.ToUpper(c.String(PROTOCOL))),
			Template:      c.String(TEMPLATE),
			KVPBaseURL:    c.String(KVPURL),
			Format:        c.String(FORMAT),
			Style:         c.String(STYLE),
			TileMatrixSet: c.String(TILEMATRIXSET),
			CRS:           c.String(CRS),
			Dimensions:    dimensions,
			Headers:       headers,
			UserAgent:     "wmtstiles/" + versioninfo.Short(),
			Timeout:       c.Duration(TIMEOUT),
			CacheSize:     c.Int(CACHESIZE),
			MaxTiles:      c.Int(MAXTILES),
		}
		opts := []service.Option{service.WithLogger(logger)}
		if c.Bool(S3) {
			s3Getter, err := transport.NewS3Getter(false)
			if err != nil {
				return err
			}
			opts = append(opts, service.WithGetter(transport.SchemeGetter{
				HTTP: transport.NewHTTPGetter(cfg.Timeout, cfg.UserAgent),
				S3:   s3Getter,
			}))
		}
		svc, err := service.New(&l, nil, cfg, opts...)
		if err != nil {
			return err
		}

		scale := c.Float64(SCALE)
		if scale <= 0 {
			scale = service.ScaleForWidth(extent, c.Int(WIDTH))
		}
		tiles, err := svc.TilesInExtent(context.Background(), extent, scale, c.Bool(RECOMMENDED), c.Int(MAXTILES))
		if err != nil {
			return err
		}
		logger.Info("resolved tiles", "zoom", tiles.Zoom.Index, "tiles", tiles.Len(), "scale", scale)
		for _, e := range tiles.Entries() {
			b := e.Image.Bounds()
			fmt.Printf("%s\t%dx%d\t%s\n", e.Tile.ID.Code(), b.Dx(), b.Dy(), e.URL)
		}
		if c.String(OUTPUT) != "" {
			return writeMosaic(c.String(OUTPUT), tiles, logger)
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func writeMosaic(path string, tiles *service.TileSet, logger logging.Logger) error {
	img, extent, err := service.Mosaic(tiles)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = png.Encode(f, img); err != nil {
		return err
	}
	logger.Info("wrote mosaic", "path", path, "extent", extent.String(), "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return f.Close()
}

func parseExtent(raw string, rawCRS string) (crs.Envelope, error) {
	var ordinates [4]float64
	if err := json.Unmarshal([]byte(raw), &ordinates); err != nil {
		return crs.Envelope{}, fmt.Errorf("invalid extent %v: %w", raw, err)
	}
	c, err := crs.Parse(rawCRS)
	if err != nil {
		return crs.Envelope{}, err
	}
	return crs.NewEnvelope(ordinates[0], ordinates[1], ordinates[2], ordinates[3], c), nil
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result, nil
}
