package pyramid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// Source describes a pyramid file as seen by a backend probe.
type Source struct {
	Path     string
	Pages    int
	Metadata crs.Metadata
}

// Inspect opens path once to count its pages and read the metadata of the
// first page. The probe is closed before Inspect returns on every path.
//
// A probe that cannot expose geo-keys does not fail Inspect; the error is
// kept in Metadata.GeoKeysErr for the CRS resolver.
func Inspect(backend raster.Backend, path string) (src Source, err error) {
	probe, err := backend.OpenProbe(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: opening %s: %w", ErrIO, path, err)
	}
	defer func() {
		if cerr := probe.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrIO, path, cerr)
		}
	}()

	src = Source{Path: path, Pages: probe.PageCount()}
	if src.Pages == 0 {
		return src, nil
	}

	keys, kerr := probe.GeoKeys()
	if kerr != nil && !errors.Is(kerr, raster.ErrMetadataUnavailable) {
		kerr = fmt.Errorf("%w: %w", raster.ErrMetadataUnavailable, kerr)
	}
	src.Metadata = crs.Metadata{GeoKeys: keys, GeoKeysErr: kerr}

	if pp, ok := probe.(raster.ProjectionProbe); ok {
		if text, ok := pp.NativeProjection(0); ok {
			src.Metadata.Projection = text
		}
	}
	return src, nil
}

// ReadOptions controls ReadLevels.
type ReadOptions struct {
	// Format is passed to the backend with every page. Defaults to
	// raster.DefaultFormat.
	Format string

	// Workers bounds concurrent page decodes. Values below 1 mean 1.
	Workers int

	Logger *slog.Logger
}

// ReadLevels decodes every page of src into a level tagged with crsAlias.
//
// Levels are returned in page order regardless of the order decodes finish
// in. If any page fails, or ctx is done before all pages are decoded, every
// raster decoded so far is closed and no levels are returned.
func ReadLevels(ctx context.Context, backend raster.Backend, src Source, crsAlias string, opts ReadOptions) ([]Level, error) {
	if src.Pages <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPyramid, src.Path)
	}
	format := opts.Format
	if format == "" {
		format = raster.DefaultFormat
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	levels := make([]Level, src.Pages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range levels {
		i := i // per-iteration copy; go.mod targets go1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decode := raster.DecodeOptions{Format: format, ImageIndex: i, CRSAlias: crsAlias}
			r, err := backend.DecodePage(gctx, src.Path, decode)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			if r == nil {
				return fmt.Errorf("page %d: %w: backend returned no raster", i, raster.ErrDecode)
			}
			levels[i] = Level{Index: i, Options: decode, Raster: r}
			logger.Debug("decoded pyramid level", "file", src.Path, "index", i, "bounds", r.Bounds())
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		closeLevels(levels)
		return nil, err
	}
	return levels, nil
}

// closeLevels releases the rasters of levels, ignoring unset entries.
func closeLevels(levels []Level) error {
	var errs []error
	for _, l := range levels {
		if l.Raster == nil {
			continue
		}
		if err := l.Raster.Close(); err != nil {
			errs = append(errs, fmt.Errorf("level %d: %w", l.Index, err))
		}
	}
	return errors.Join(errs...)
}
