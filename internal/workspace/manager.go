// Package workspace owns the pyramids published to readers.
//
// A Manager maps definition paths to built pyramids. It is the only place
// pyramids are created or torn down: readers obtain a published pyramid
// from Load or Get and may use it without locking, because a pyramid never
// changes once built.
package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ironsheep/raster-pyramid/internal/pyramid"
)

// Builder creates a pyramid from a definition file. *pyramid.Provider
// implements it.
type Builder interface {
	Create(ctx context.Context, configLocation string) (*pyramid.Pyramid, error)
}

// Manager provides thread-safe publication of pyramids keyed by the path of
// their definition.
//
// Once a definition is loaded, subsequent Load calls for the same path
// return the published pyramid without reading the file again. Concurrent
// Load calls for a path that is not yet published share one build.
//
// # Lifecycle
//
// Published pyramids remain in memory until they are replaced by Reload or
// removed by Evict or Clear, which close them. A closed pyramid keeps its
// levels and coordinate system but its level rasters no longer hold
// pixels, so callers should not keep pyramids across a reload.
//
// # Example Usage
//
//	mgr := workspace.NewManager(provider, logger)
//	pyr, err := mgr.Load(ctx, "/srv/coverages/dem.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(pyr.CoordinateSystem(), pyr.Len())
type Manager struct {
	builder Builder
	logger  *slog.Logger
	loads   singleflight.Group

	mu        sync.RWMutex
	coverages map[string]*pyramid.Pyramid
}

// NewManager creates an empty manager that builds pyramids with builder.
// A nil logger uses slog.Default().
func NewManager(builder Builder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		builder:   builder,
		logger:    logger,
		coverages: make(map[string]*pyramid.Pyramid),
	}
}

// key normalizes a definition path. Different spellings of the same
// relative path share an entry; a relative and an absolute path do not.
func key(path string) string {
	return filepath.Clean(path)
}

// Load returns the pyramid published for path, building and publishing it
// first if needed.
//
// Parameters:
//   - ctx: Bounds how long this caller waits. The build itself is shared
//     with concurrent callers and is not cancelled by any one of them; the
//     definition's timeout bounds it instead.
//   - path: Path of the pyramid definition.
//
// Returns:
//   - *pyramid.Pyramid: The published pyramid. If another pyramid was
//     published for path while this one was being built, for example by
//     Reload, that one is kept and returned and the fresh build is closed.
//   - error: The builder's error, typically a *pyramid.InitializationError,
//     or ctx's error. Nothing is published when it is non-nil.
func (m *Manager) Load(ctx context.Context, path string) (*pyramid.Pyramid, error) {
	k := key(path)
	if pyr, ok := m.Get(k); ok {
		return pyr, nil
	}

	build := context.WithoutCancel(ctx)
	ch := m.loads.DoChan(k, func() (any, error) {
		if pyr, ok := m.Get(k); ok {
			return pyr, nil
		}
		pyr, err := m.builder.Create(build, k)
		if err != nil {
			m.logger.Warn("coverage unavailable", "config", k, "error", err)
			return nil, err
		}

		m.mu.Lock()
		current, published := m.coverages[k]
		if !published {
			m.coverages[k] = pyr
		}
		m.mu.Unlock()

		if published {
			m.closePyramid(k, pyr)
			return current, nil
		}
		return pyr, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pyramid.Pyramid), nil
	}
}

// Reload builds path again and publishes the result in place of the current
// pyramid, which is then closed. If the build fails the current pyramid,
// if any, stays published and the error is returned.
func (m *Manager) Reload(ctx context.Context, path string) (*pyramid.Pyramid, error) {
	k := key(path)
	pyr, err := m.builder.Create(ctx, k)
	if err != nil {
		m.logger.Warn("reload failed, keeping current coverage", "config", k, "error", err)
		return nil, err
	}

	m.mu.Lock()
	old := m.coverages[k]
	m.coverages[k] = pyr
	m.mu.Unlock()

	if old != nil {
		m.closePyramid(k, old)
	}
	return pyr, nil
}

// Get returns the pyramid published for path without building it.
func (m *Manager) Get(path string) (*pyramid.Pyramid, bool) {
	m.mu.RLock()
	pyr, ok := m.coverages[key(path)]
	m.mu.RUnlock()
	return pyr, ok
}

// Evict unpublishes and closes the pyramid for path. It reports whether a
// pyramid was published.
func (m *Manager) Evict(path string) bool {
	k := key(path)
	m.mu.Lock()
	pyr, ok := m.coverages[k]
	delete(m.coverages, k)
	m.mu.Unlock()

	if ok {
		m.closePyramid(k, pyr)
	}
	return ok
}

// Clear unpublishes and closes every pyramid.
func (m *Manager) Clear() {
	m.mu.Lock()
	old := m.coverages
	m.coverages = make(map[string]*pyramid.Pyramid)
	m.mu.Unlock()

	for k, pyr := range old {
		m.closePyramid(k, pyr)
	}
}

// Paths returns the definition paths with a published pyramid, sorted.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	paths := make([]string, 0, len(m.coverages))
	for k := range m.coverages {
		paths = append(paths, k)
	}
	m.mu.RUnlock()
	sort.Strings(paths)
	return paths
}

func (m *Manager) closePyramid(k string, pyr *pyramid.Pyramid) {
	if err := pyr.Close(); err != nil {
		m.logger.Warn("closing coverage", "config", k, "error", err)
	}
}
