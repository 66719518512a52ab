package pyramid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeDefinition(t, "dem.yaml", `
pyramidFile: data/dem.tif
crs: EPSG:31467
defaultCrs: EPSG:4258
backend: geotiff
decodeWorkers: 4
timeout: 90s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "data", "dem.tif"), cfg.PyramidFile)
	require.Equal(t, "EPSG:31467", cfg.CRS)
	require.Equal(t, "EPSG:4258", cfg.DefaultCRS)
	require.Equal(t, "tif", cfg.Format)
	require.Equal(t, "geotiff", cfg.Backend)
	require.Equal(t, 4, cfg.DecodeWorkers)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)
}

func TestLoadConfig_XML(t *testing.T) {
	path := writeDefinition(t, "dem.xml", `<?xml version="1.0" encoding="UTF-8"?>
<Pyramid xmlns="http://www.deegree.org/datasource/coverage/pyramid" configVersion="3.1.0">
  <PyramidFile>
    /srv/coverages/dem.tif
  </PyramidFile>
</Pyramid>
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/coverages/dem.tif", cfg.PyramidFile)
	require.Equal(t, "tif", cfg.Format)
	require.Equal(t, 1, cfg.DecodeWorkers)
	require.Empty(t, cfg.CRS)
}

func TestLoadConfig_XMLWithoutNamespace(t *testing.T) {
	path := writeDefinition(t, "dem.xml", `<Pyramid><PyramidFile>dem.tif</PyramidFile><DecodeWorkers>2</DecodeWorkers></Pyramid>`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "dem.tif"), cfg.PyramidFile)
	require.Equal(t, 2, cfg.DecodeWorkers)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"missing pyramid file", "a.yaml", "crs: EPSG:4326\n", "pyramidFile is required"},
		{"empty yaml", "a.yaml", "", "empty definition"},
		{"unknown field", "a.yml", "pyramidFile: a.tif\nlevels: 3\n", "field levels not found"},
		{"bad yaml", "a.yaml", "pyramidFile: [\n", "malformed"},
		{"negative workers", "a.yaml", "pyramidFile: a.tif\ndecodeWorkers: -2\n", "decodeWorkers"},
		{"bad timeout", "a.yaml", "pyramidFile: a.tif\ntimeout: soon\n", "timeout"},
		{"negative timeout", "a.yaml", "pyramidFile: a.tif\ntimeout: -1s\n", "timeout"},
		{"wrong xml root", "a.xml", "<Coverage><PyramidFile>a.tif</PyramidFile></Coverage>", "malformed"},
		{"wrong namespace", "a.xml", `<Pyramid xmlns="urn:other"><PyramidFile>a.tif</PyramidFile></Pyramid>`, "namespace"},
		{"unsupported extension", "a.json", `{"pyramidFile": "a.tif"}`, "unsupported definition type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeDefinition(t, tt.file, tt.content))
			require.ErrorIs(t, err, ErrConfigParse)
			require.Contains(t, err.Error(), tt.want)
			require.Equal(t, KindConfigParse, KindOf(err))
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseConfig_KeepsRelativePath(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader("pyramidFile: dem.tif\n"), "yaml")
	require.NoError(t, err)
	require.Equal(t, "dem.tif", cfg.PyramidFile)
}
