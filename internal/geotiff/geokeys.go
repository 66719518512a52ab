package geotiff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// geoKeys parses the GeoKey directory of d. It returns (nil, nil) when d has
// no directory. Any structural problem in the directory or its parameter
// tags is reported as raster.ErrMetadataUnavailable.
func (s *structure) geoKeys(d ifd) (*raster.GeoKeys, error) {
	de, ok := d.entries[tagGeoKeyDirectory]
	if !ok {
		return nil, nil
	}

	dir, err := s.uints(de)
	if err != nil {
		return nil, fmt.Errorf("%w: key directory: %v", raster.ErrMetadataUnavailable, err)
	}
	if len(dir) < 4 {
		return nil, fmt.Errorf("%w: key directory has %d values", raster.ErrMetadataUnavailable, len(dir))
	}
	n := int(dir[3])
	if len(dir) < 4+4*n {
		return nil, fmt.Errorf("%w: key directory declares %d keys but holds %d values",
			raster.ErrMetadataUnavailable, n, len(dir))
	}

	var doubles []float64
	if e, ok := d.entries[tagGeoDoubleParams]; ok {
		if doubles, err = s.doubles(e); err != nil {
			return nil, fmt.Errorf("%w: double params: %v", raster.ErrMetadataUnavailable, err)
		}
	}
	var ascii string
	if e, ok := d.entries[tagGeoAsciiParams]; ok {
		if ascii, err = s.ascii(e); err != nil {
			return nil, fmt.Errorf("%w: ascii params: %v", raster.ErrMetadataUnavailable, err)
		}
	}

	values := make(map[raster.GeoKey]string, n)
	for i := 0; i < n; i++ {
		k := dir[4+4*i : 8+4*i]
		key, loc, count, off := raster.GeoKey(k[0]), k[1], int(k[2]), int(k[3])

		switch loc {
		case 0:
			values[key] = strconv.FormatUint(uint64(off), 10)
		case tagGeoKeyDirectory:
			if off+count > len(dir) {
				return nil, fmt.Errorf("%w: key %d overruns the directory", raster.ErrMetadataUnavailable, key)
			}
			parts := make([]string, count)
			for j := range parts {
				parts[j] = strconv.FormatUint(uint64(dir[off+j]), 10)
			}
			values[key] = strings.Join(parts, ",")
		case tagGeoDoubleParams:
			if off+count > len(doubles) {
				return nil, fmt.Errorf("%w: key %d overruns double params", raster.ErrMetadataUnavailable, key)
			}
			parts := make([]string, count)
			for j := range parts {
				parts[j] = strconv.FormatFloat(doubles[off+j], 'g', -1, 64)
			}
			values[key] = strings.Join(parts, ",")
		case tagGeoAsciiParams:
			if off+count > len(ascii) {
				return nil, fmt.Errorf("%w: key %d overruns ascii params", raster.ErrMetadataUnavailable, key)
			}
			// Strings are terminated by '|' in place of NUL.
			values[key] = strings.TrimRight(ascii[off:off+count], "|\x00")
		default:
			// Keys stored in other tags are not used for CRS inference.
		}
	}
	return raster.NewGeoKeys(values), nil
}

// pixelScale returns the ModelPixelScale of d, if present.
func (s *structure) pixelScale(d ifd) ([3]float64, bool) {
	var out [3]float64
	e, ok := d.entries[tagModelPixelScale]
	if !ok {
		return out, false
	}
	v, err := s.doubles(e)
	if err != nil || len(v) < 2 {
		return out, false
	}
	copy(out[:], v)
	return out, true
}

// tiePoint returns the first ModelTiepoint of d, if present.
func (s *structure) tiePoint(d ifd) ([6]float64, bool) {
	var out [6]float64
	e, ok := d.entries[tagModelTiepoint]
	if !ok {
		return out, false
	}
	v, err := s.doubles(e)
	if err != nil || len(v) < 6 {
		return out, false
	}
	copy(out[:], v)
	return out, true
}
