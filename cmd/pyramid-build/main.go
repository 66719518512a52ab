// pyramid-build writes a multi-resolution GeoTIFF pyramid from a single
// image. Each page halves the one before it; the first page carries the
// GeoKeys, and a .prj sidecar can carry the projection as well-known text.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/geotiff"
	"github.com/ironsheep/raster-pyramid/internal/imaging"
	"github.com/ironsheep/raster-pyramid/internal/pyramid"
)

type options struct {
	output     string
	definition string
	epsg       uint16
	model      string
	prj        string
	pixelScale float64
	origin     []float64
	levels     int
	minSize    int
	workers    int
	bigEndian  bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("pyramid-build", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.output, "output", "o", "", "pyramid file to write (.tif)")
	flagSet.StringVar(&opts.definition, "definition", "", "also write a YAML pyramid definition to this path")
	flagSet.Uint16Var(&opts.epsg, "epsg", 0, "EPSG code written to the GeoKeys")
	flagSet.StringVar(&opts.model, "model", "projected", "model type of --epsg: projected or geographic")
	flagSet.StringVar(&opts.prj, "prj", "", "file with the projection as well-known text, copied to the .prj sidecar")
	flagSet.Float64Var(&opts.pixelScale, "pixel-scale", 0, "model units per pixel of the finest level")
	flagSet.Float64SliceVar(&opts.origin, "origin", nil, "model coordinates x,y of the top-left corner")
	flagSet.IntVar(&opts.levels, "levels", 0, "maximum number of levels, 0 for no limit")
	flagSet.IntVar(&opts.minSize, "min-size", imaging.DefaultMinLevelSize, "stop before a level's shorter side drops below this")
	flagSet.IntVar(&opts.workers, "workers", 0, "decodeWorkers written to the definition")
	flagSet.BoolVar(&opts.bigEndian, "big-endian", false, "write a big endian TIFF")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flagSet.NArg() != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected one source image, got %d arguments", flagSet.NArg())
	}
	if opts.output == "" {
		return fmt.Errorf("--output is required")
	}

	return build(flagSet.Arg(0), opts)
}

func build(source string, opts options) error {
	enc, err := encodeOptions(opts)
	if err != nil {
		return err
	}

	var wkt []byte
	if opts.prj != "" {
		wkt, err = os.ReadFile(opts.prj)
		if err != nil {
			return fmt.Errorf("reading projection: %w", err)
		}
		if _, err := crs.ParseWKT(string(wkt)); err != nil {
			return fmt.Errorf("projection %s: %w", opts.prj, err)
		}
	}

	img, err := imaging.Open(source)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	pages, err := imaging.Reduce(img, imaging.ReduceOptions{Levels: opts.levels, MinSize: opts.minSize})
	if err != nil {
		return err
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := geotiff.Encode(f, pages, enc); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if wkt != nil {
		if err := os.WriteFile(geotiff.SidecarPath(opts.output), wkt, 0o644); err != nil {
			return err
		}
	}
	if opts.definition != "" {
		if err := writeDefinition(opts); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "wrote %s with %d levels (%dx%d to %dx%d)\n", opts.output, len(pages),
		pages[0].Bounds().Dx(), pages[0].Bounds().Dy(),
		pages[len(pages)-1].Bounds().Dx(), pages[len(pages)-1].Bounds().Dy())
	return nil
}

func encodeOptions(opts options) (*geotiff.EncodeOptions, error) {
	enc := &geotiff.EncodeOptions{}
	if opts.bigEndian {
		enc.ByteOrder = binary.BigEndian
	}

	if opts.epsg != 0 {
		switch opts.model {
		case "projected":
			enc.Keys = geotiff.ProjectedKeys(opts.epsg)
		case "geographic":
			enc.Keys = geotiff.GeographicKeys(opts.epsg)
		default:
			return nil, fmt.Errorf("unknown model type %q", opts.model)
		}
	}

	if opts.pixelScale < 0 {
		return nil, fmt.Errorf("pixel scale must not be negative")
	}
	if opts.pixelScale > 0 {
		enc.PixelScale = &[3]float64{opts.pixelScale, opts.pixelScale, 0}
	}
	switch len(opts.origin) {
	case 0:
	case 2:
		enc.TiePoint = &[6]float64{0, 0, 0, opts.origin[0], opts.origin[1], 0}
	default:
		return nil, fmt.Errorf("--origin takes x,y, got %d values", len(opts.origin))
	}
	return enc, nil
}

// writeDefinition writes a definition naming the pyramid file relative to
// the definition's directory.
func writeDefinition(opts options) error {
	abs, err := filepath.Abs(opts.output)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(filepath.Dir(opts.definition))
	if err != nil {
		return err
	}
	file, err := filepath.Rel(dir, abs)
	if err != nil {
		file = abs
	}

	cfg := pyramid.Config{PyramidFile: file, DecodeWorkers: opts.workers}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(opts.definition, data, 0o644)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `pyramid-build - write a GeoTIFF raster pyramid

Usage:
  pyramid-build [flags] <source image>

Examples:
  # UTM 32N orthophoto with 20 cm pixels
  pyramid-build -o ortho.tif --epsg 25832 --pixel-scale 0.2 --origin 500000,5600000 ortho.png

  # WGS 84 overview with a definition for pyramid-mcp
  pyramid-build -o world.tif --epsg 4326 --model geographic --definition world.yaml world.jpg

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
