package pyramid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// Provider builds pyramids from definitions.
type Provider struct {
	backends *raster.Registry
	crs      *crs.Registry
	logger   *slog.Logger
}

// NewProvider returns a provider that decodes with backends and resolves
// coordinate systems against crsReg. A nil logger uses slog.Default().
func NewProvider(backends *raster.Registry, crsReg *crs.Registry, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{backends: backends, crs: crsReg, logger: logger}
}

// Create reads the definition at configLocation and builds its pyramid.
// Any failure is returned as an *InitializationError.
func (p *Provider) Create(ctx context.Context, configLocation string) (*Pyramid, error) {
	cfg, err := LoadConfig(configLocation)
	if err != nil {
		return nil, &InitializationError{ConfigPath: configLocation, Kind: KindOf(err), Err: err}
	}
	pyr, err := p.build(ctx, cfg)
	if err != nil {
		return nil, &InitializationError{ConfigPath: configLocation, File: cfg.PyramidFile, Kind: KindOf(err), Err: err}
	}
	return pyr, nil
}

// CreateFromConfig builds the pyramid described by cfg. Relative paths in
// cfg are used as given. Any failure is returned as an *InitializationError.
func (p *Provider) CreateFromConfig(ctx context.Context, cfg Config) (*Pyramid, error) {
	cfg = cfg.withDefaults()
	err := cfg.Validate()
	var pyr *Pyramid
	if err == nil {
		pyr, err = p.build(ctx, cfg)
	}
	if err != nil {
		return nil, &InitializationError{File: cfg.PyramidFile, Kind: KindOf(err), Err: err}
	}
	return pyr, nil
}

func (p *Provider) build(ctx context.Context, cfg Config) (*Pyramid, error) {
	if p.backends == nil || p.crs == nil {
		return nil, errors.New("provider has no backend or CRS registry")
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	backend, err := p.backend(cfg)
	if err != nil {
		return nil, err
	}
	resolver, err := crs.NewResolver(p.crs, crs.ResolverOptions{DefaultCRS: cfg.DefaultCRS, Logger: p.logger})
	if err != nil {
		return nil, fmt.Errorf("%w: defaultCrs: %v", ErrConfigParse, err)
	}

	src, err := Inspect(backend, cfg.PyramidFile)
	if err != nil {
		return nil, err
	}
	if src.Pages == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPyramid, src.Path)
	}

	var res crs.Resolution
	if cfg.CRS != "" {
		res, err = resolver.Override(cfg.CRS)
		if err != nil {
			return nil, fmt.Errorf("%w: crs: %v", ErrConfigParse, err)
		}
	} else {
		res = resolver.Resolve(src.Metadata)
	}
	for _, d := range res.Diagnostics {
		p.logger.Info("crs diagnostic", "file", src.Path, "code", d.Code, "message", d.Message)
	}

	levels, err := ReadLevels(ctx, backend, src, res.CRS.Alias(), ReadOptions{
		Format:  cfg.Format,
		Workers: cfg.DecodeWorkers,
		Logger:  p.logger,
	})
	if err != nil {
		return nil, err
	}

	pyr, err := Assemble(src.Path, levels, res)
	if err != nil {
		closeLevels(levels)
		return nil, err
	}
	p.logger.Info("pyramid loaded",
		"file", src.Path,
		"levels", pyr.Len(),
		"crs", res.CRS.Alias(),
		"crs_source", res.Source,
	)
	return pyr, nil
}

// backend selects the configured backend, or the first one registered for
// the configured format.
func (p *Provider) backend(cfg Config) (raster.Backend, error) {
	var (
		b   raster.Backend
		err error
	)
	if cfg.Backend != "" {
		b, err = p.backends.Lookup(cfg.Backend)
	} else {
		b, err = p.backends.ForFormat(cfg.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return b, nil
}
