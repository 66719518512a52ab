package raster

import (
	"context"
	"testing"
)

type stubBackend struct{ id string }

func (b *stubBackend) OpenProbe(path string) (Probe, error) { return nil, nil }

func (b *stubBackend) DecodePage(ctx context.Context, path string, opts DecodeOptions) (Raster, error) {
	return nil, nil
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("geotiff", func() Backend { return &stubBackend{id: "geotiff"} }, "tif", ".TIFF")

	b, err := reg.Lookup("geotiff")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if b.(*stubBackend).id != "geotiff" {
		t.Errorf("Lookup returned wrong backend")
	}

	if _, err := reg.Lookup("gdal"); err == nil {
		t.Error("Lookup should fail for unregistered name")
	}
}

func TestRegistry_ForFormat(t *testing.T) {
	reg := NewRegistry()
	reg.Register("first", func() Backend { return &stubBackend{id: "first"} }, "tif")
	reg.Register("second", func() Backend { return &stubBackend{id: "second"} }, "tif", "tiff")

	tests := []struct {
		format string
		want   string
	}{
		{"tif", "first"},
		{".TIF", "first"},
		{"tiff", "second"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			b, err := reg.ForFormat(tt.format)
			if err != nil {
				t.Fatalf("ForFormat(%q) failed: %v", tt.format, err)
			}
			if got := b.(*stubBackend).id; got != tt.want {
				t.Errorf("ForFormat(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}

	if _, err := reg.ForFormat("png"); err == nil {
		t.Error("ForFormat should fail for unknown format")
	}
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register("geotiff", func() Backend { return &stubBackend{} })

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	reg.Register("geotiff", func() Backend { return &stubBackend{} })
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", func() Backend { return &stubBackend{} })
	reg.Register("a", func() Backend { return &stubBackend{} })

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestGeoKeys(t *testing.T) {
	src := map[GeoKey]string{
		GTModelTypeGeoKey:    "2",
		GeographicTypeGeoKey: "4326",
		GTCitationGeoKey:     "WGS 84",
	}
	keys := NewGeoKeys(src)
	src[GTModelTypeGeoKey] = "1"

	if v, ok := keys.Int(GTModelTypeGeoKey); !ok || v != 2 {
		t.Errorf("Int(GTModelTypeGeoKey) = %d, %v; want 2, true (copy must be isolated)", v, ok)
	}
	if _, ok := keys.Int(GTCitationGeoKey); ok {
		t.Error("Int on a non-numeric value should report false")
	}
	if _, ok := keys.Get(ProjectedCSTypeGeoKey); ok {
		t.Error("Get on a missing key should report false")
	}
	if keys.Len() != 3 {
		t.Errorf("Len() = %d, want 3", keys.Len())
	}

	order := keys.Keys()
	want := []GeoKey{GTModelTypeGeoKey, GTCitationGeoKey, GeographicTypeGeoKey}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", order, want)
		}
	}
}

func TestGeoKeys_Nil(t *testing.T) {
	var keys *GeoKeys
	if _, ok := keys.Get(GTModelTypeGeoKey); ok {
		t.Error("nil GeoKeys should report missing keys")
	}
	if keys.Len() != 0 || keys.Keys() != nil {
		t.Error("nil GeoKeys should be empty")
	}
	_ = keys.String()
}

type georef struct {
	scale    [3]float64
	tie      [6]float64
	hasScale bool
}

func (g georef) PixelScale() ([3]float64, bool) { return g.scale, g.hasScale }

func (g georef) TiePoint() ([6]float64, bool) { return g.tie, true }

func TestModelPoint(t *testing.T) {
	g := georef{
		scale:    [3]float64{10, 10, 0},
		tie:      [6]float64{0, 0, 0, 500000, 5600000, 0},
		hasScale: true,
	}

	tests := []struct {
		x, y   float64
		mx, my float64
	}{
		{0, 0, 500000, 5600000},
		{1, 0, 500010, 5600000},
		{0.5, 0.5, 500005, 5599995},
		{100, 200, 501000, 5598000},
	}
	for _, tt := range tests {
		mx, my, ok := ModelPoint(g, tt.x, tt.y)
		if !ok {
			t.Fatalf("ModelPoint(%v,%v) not ok", tt.x, tt.y)
		}
		if mx != tt.mx || my != tt.my {
			t.Errorf("ModelPoint(%v,%v) = (%v,%v), want (%v,%v)", tt.x, tt.y, mx, my, tt.mx, tt.my)
		}
	}

	g.hasScale = false
	if _, _, ok := ModelPoint(g, 0, 0); ok {
		t.Error("ModelPoint should fail without a pixel scale")
	}
}
