package pyramid

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// fakeBackend serves a synthetic file of square pages, halving in size.
type fakeBackend struct {
	pages      int
	keys       *raster.GeoKeys
	keysErr    error
	projection string
	openErr    error
	failPage   int
	nilPage    int
	delay      func(page int) time.Duration
	blockUntil bool

	mu        sync.Mutex
	probeOpen bool
	decoded   []int
	closed    map[int]int
}

func newFakeBackend(pages int) *fakeBackend {
	return &fakeBackend{pages: pages, failPage: -1, nilPage: -1, closed: make(map[int]int)}
}

func (b *fakeBackend) OpenProbe(path string) (raster.Probe, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.mu.Lock()
	b.probeOpen = true
	b.mu.Unlock()
	if b.projection != "" {
		return &fakeProjectionProbe{fakeProbe{b}}, nil
	}
	return &fakeProbe{b}, nil
}

func (b *fakeBackend) DecodePage(ctx context.Context, path string, opts raster.DecodeOptions) (raster.Raster, error) {
	b.mu.Lock()
	open := b.probeOpen
	b.mu.Unlock()
	if open {
		return nil, fmt.Errorf("%w: probe still open", raster.ErrDecode)
	}

	if b.blockUntil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.delay != nil {
		select {
		case <-time.After(b.delay(opts.ImageIndex)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if opts.ImageIndex == b.failPage {
		return nil, fmt.Errorf("%w: page %d is corrupt", raster.ErrDecode, opts.ImageIndex)
	}
	if opts.ImageIndex == b.nilPage {
		return nil, nil
	}

	b.mu.Lock()
	b.decoded = append(b.decoded, opts.ImageIndex)
	b.mu.Unlock()
	size := 256 >> opts.ImageIndex
	return &fakeRaster{b: b, index: opts.ImageIndex, bounds: image.Rect(0, 0, size, size)}, nil
}

func (b *fakeBackend) closedCount(page int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed[page]
}

func (b *fakeBackend) decodedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.decoded)
}

type fakeProbe struct{ b *fakeBackend }

func (p *fakeProbe) PageCount() int { return p.b.pages }

func (p *fakeProbe) GeoKeys() (*raster.GeoKeys, error) { return p.b.keys, p.b.keysErr }

func (p *fakeProbe) Close() error {
	p.b.mu.Lock()
	p.b.probeOpen = false
	p.b.mu.Unlock()
	return nil
}

type fakeProjectionProbe struct{ fakeProbe }

func (p *fakeProjectionProbe) NativeProjection(page int) (string, bool) {
	return p.b.projection, page == 0
}

type fakeRaster struct {
	b      *fakeBackend
	index  int
	bounds image.Rectangle
}

func (r *fakeRaster) Bounds() image.Rectangle { return r.bounds }

func (r *fakeRaster) Image() image.Image { return image.NewGray(r.bounds) }

func (r *fakeRaster) Close() error {
	r.b.mu.Lock()
	r.b.closed[r.index]++
	r.b.mu.Unlock()
	return nil
}
