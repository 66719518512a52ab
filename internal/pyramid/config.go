package pyramid

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// Namespace is the XML namespace of pyramid definitions.
const Namespace = "http://www.deegree.org/datasource/coverage/pyramid"

// Config is a pyramid definition.
type Config struct {
	// PyramidFile is the multi-page raster file. Relative paths are
	// resolved against the directory of the definition file.
	PyramidFile string `yaml:"pyramidFile" json:"pyramid_file"`

	// CRS, when set, is used instead of inferring the coordinate system
	// from the file.
	CRS string `yaml:"crs,omitempty" json:"crs,omitempty"`

	// DefaultCRS replaces the built-in fallback coordinate system.
	DefaultCRS string `yaml:"defaultCrs,omitempty" json:"default_crs,omitempty"`

	// Format is the decode format hint passed to the backend.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Backend names a registered backend. Empty selects one by Format.
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// DecodeWorkers bounds how many pages are decoded at once.
	DecodeWorkers int `yaml:"decodeWorkers,omitempty" json:"decode_workers,omitempty"`

	// Timeout bounds the whole construction, e.g. "30s". Empty means none.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// xmlConfig is the XML form:
//
//	<Pyramid xmlns="http://www.deegree.org/datasource/coverage/pyramid">
//	  <PyramidFile>dem.tif</PyramidFile>
//	</Pyramid>
type xmlConfig struct {
	XMLName       xml.Name `xml:"Pyramid"`
	PyramidFile   string   `xml:"PyramidFile"`
	CRS           string   `xml:"CRS"`
	DefaultCRS    string   `xml:"DefaultCRS"`
	Format        string   `xml:"Format"`
	Backend       string   `xml:"Backend"`
	DecodeWorkers int      `xml:"DecodeWorkers"`
	Timeout       string   `xml:"Timeout"`
}

// LoadConfig reads a pyramid definition. The encoding is chosen by
// extension: ".yaml" and ".yml" are YAML, ".xml" is XML. The returned
// config has defaults applied and is validated.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading definition: %w", ErrIO, err)
	}

	cfg, err := ParseConfig(bytes.NewReader(data), filepath.Ext(path))
	if err != nil {
		return Config{}, err
	}

	if cfg.PyramidFile != "" && !filepath.IsAbs(cfg.PyramidFile) {
		cfg.PyramidFile = filepath.Join(filepath.Dir(path), cfg.PyramidFile)
	}
	return cfg, nil
}

// ParseConfig decodes a definition in the encoding named by ext ("yaml",
// ".yml", "xml", ...). Unknown YAML fields are rejected.
func ParseConfig(r io.Reader, ext string) (Config, error) {
	var cfg Config

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return Config{}, fmt.Errorf("%w: empty definition", ErrConfigParse)
			}
			return Config{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	case "xml":
		var x xmlConfig
		if err := xml.NewDecoder(r).Decode(&x); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
		if x.XMLName.Space != "" && x.XMLName.Space != Namespace {
			return Config{}, fmt.Errorf("%w: unexpected namespace %q", ErrConfigParse, x.XMLName.Space)
		}
		cfg = Config{
			PyramidFile:   strings.TrimSpace(x.PyramidFile),
			CRS:           strings.TrimSpace(x.CRS),
			DefaultCRS:    strings.TrimSpace(x.DefaultCRS),
			Format:        strings.TrimSpace(x.Format),
			Backend:       strings.TrimSpace(x.Backend),
			DecodeWorkers: x.DecodeWorkers,
			Timeout:       strings.TrimSpace(x.Timeout),
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported definition type %q", ErrConfigParse, ext)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Format == "" {
		c.Format = raster.DefaultFormat
	}
	if c.DecodeWorkers == 0 {
		c.DecodeWorkers = 1
	}
	return c
}

// Validate checks c after defaults have been applied.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PyramidFile) == "" {
		return fmt.Errorf("%w: pyramidFile is required", ErrConfigParse)
	}
	if c.DecodeWorkers < 0 {
		return fmt.Errorf("%w: decodeWorkers must not be negative, got %d", ErrConfigParse, c.DecodeWorkers)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty Timeout is zero.
func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %v", ErrConfigParse, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: timeout must not be negative, got %s", ErrConfigParse, c.Timeout)
	}
	return d, nil
}
