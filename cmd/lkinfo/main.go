package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/geodataio/layerkit/internal/config"
	"github.com/geodataio/layerkit/internal/logger"
	"github.com/geodataio/layerkit/vector"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file listing datasets"`
	BBox       string `short:"b" long:"bbox"   description:"Spatial filter as west,south,east,north"`
	Format     string `short:"f" long:"format" description:"Geometry output format" choice:"wkt" choice:"json" default:"wkt"`
	Summary    bool   `short:"s" long:"summary" description:"Print layer summaries only, no features"`

	Args struct {
		Paths []string `positional-arg-name:"dataset" description:"Dataset files (.fgb, .geojson)"`
	} `positional-args:"yes"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	type target struct {
		path string
		bbox string
	}
	targets := make([]target, 0, len(opts.Args.Paths))
	for _, p := range opts.Args.Paths {
		targets = append(targets, target{path: p, bbox: opts.BBox})
	}

	if opts.ConfigFile != "" {
		cfg, err := config.Load(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		for _, d := range cfg.Datasets {
			bbox := opts.BBox
			if len(d.BBox) == 4 {
				parts := make([]string, 4)
				for i, v := range d.BBox {
					parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				bbox = strings.Join(parts, ",")
			}
			targets = append(targets, target{path: d.Path, bbox: bbox})
		}
	}

	if len(targets) == 0 {
		log.Fatal().Msg("No datasets given; pass file paths or --config")
	}

	for _, t := range targets {
		if err := inspect(t.path, t.bbox, opts.Format, opts.Summary); err != nil {
			log.Error().Err(err).Str("path", t.path).Msg("Failed to inspect dataset")
		}
	}
}

func inspect(path, bbox, format string, summaryOnly bool) error {
	ds, err := vector.Open(path)
	if err != nil {
		return err
	}
	defer ds.Close()

	var filter *vector.Geometry
	if bbox != "" {
		filter, err = parseBBox(bbox)
		if err != nil {
			return err
		}
		defer filter.Close()
	}

	fmt.Printf("%s: %d layer(s)\n", path, ds.LayerCount())
	for i := 0; i < ds.LayerCount(); i++ {
		layer, err := ds.Layer(i)
		if err != nil {
			return err
		}
		if filter != nil {
			layer.SetSpatialFilter(filter)
		}

		fmt.Printf("  layer %q: %d feature(s)\n", layer.Name(), layer.FeatureCount())
		for _, f := range layer.Defn().Fields() {
			fmt.Printf("    field %s: %s\n", f.Name, f.Type)
		}
		if summaryOnly {
			continue
		}

		features := layer.Features()
		for f := features.Next(); f != nil; f = features.Next() {
			printFeature(layer, f, format)
		}
	}
	return nil
}

func printFeature(layer *vector.Layer, f *vector.Feature, format string) {
	attrs := make([]string, 0)
	for _, fd := range layer.Defn().Fields() {
		v, err := f.Field(fd.Name)
		if err != nil {
			continue
		}
		switch fd.Type {
		case vector.FTInteger, vector.FTInteger64:
			attrs = append(attrs, fmt.Sprintf("%s=%d", fd.Name, v.AsInt64()))
		case vector.FTReal:
			attrs = append(attrs, fmt.Sprintf("%s=%g", fd.Name, v.AsReal()))
		default:
			attrs = append(attrs, fmt.Sprintf("%s=%q", fd.Name, v.AsString()))
		}
	}

	shape := "(no geometry)"
	if g := f.Geometry(); g != nil {
		if format == "json" {
			shape = g.JSON()
		} else {
			shape = g.WKT()
		}
	}
	fmt.Printf("    %s %s\n", shape, strings.Join(attrs, " "))
}

// parseBBox turns "west,south,east,north" into a rectangle geometry.
func parseBBox(s string) (*vector.Geometry, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return vector.BBox(vals[0], vals[1], vals[2], vals[3]), nil
}
