package geotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrFormat is wrapped by all structural TIFF errors.
	ErrFormat = errors.New("malformed tiff")

	// ErrBigTIFF reports a BigTIFF file, which this backend cannot decode.
	ErrBigTIFF = errors.New("bigtiff is not supported")
)

// maxPages bounds IFD chain walking on corrupt files.
const maxPages = 4096

const (
	leHeader = "II\x2A\x00"
	beHeader = "MM\x00\x2A"
)

// TIFF tags read or written by this package.
const (
	tagNewSubfileType  = 254
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGeoDoubleParams = 34736
	tagGeoAsciiParams  = 34737
)

// TIFF field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var typeSize = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// entry is a raw IFD entry. Values of up to four bytes are stored inline in
// value; larger values live at the offset encoded in value.
type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value [4]byte
}

type ifd struct {
	offset  uint32
	entries map[uint16]entry
}

func (d ifd) has(tag uint16) bool {
	_, ok := d.entries[tag]
	return ok
}

// structure is the page layout of a classic TIFF file.
type structure struct {
	r     io.ReaderAt
	size  int64
	order binary.ByteOrder
	ifds  []ifd
}

// readStructure walks the IFD chain of r without decoding any pixels.
func readStructure(r io.ReaderAt, size int64) (*structure, error) {
	p := make([]byte, 8)
	if _, err := r.ReadAt(p, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrFormat, err)
	}

	s := &structure{r: r, size: size}
	switch string(p[0:4]) {
	case leHeader:
		s.order = binary.LittleEndian
	case beHeader:
		s.order = binary.BigEndian
	default:
		if (p[0] == 'I' && p[1] == 'I' && p[2] == 0x2B) || (p[0] == 'M' && p[1] == 'M' && p[3] == 0x2B) {
			return nil, ErrBigTIFF
		}
		return nil, fmt.Errorf("%w: bad header %q", ErrFormat, p[0:4])
	}

	seen := make(map[uint32]bool)
	offset := s.order.Uint32(p[4:8])
	for offset != 0 {
		if seen[offset] {
			return nil, fmt.Errorf("%w: IFD chain loops at offset %d", ErrFormat, offset)
		}
		if len(s.ifds) >= maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrFormat, maxPages)
		}
		seen[offset] = true

		d, next, err := s.readIFD(offset)
		if err != nil {
			return nil, err
		}
		s.ifds = append(s.ifds, d)
		offset = next
	}
	return s, nil
}

func (s *structure) readIFD(offset uint32) (ifd, uint32, error) {
	if int64(offset)+2 > s.size {
		return ifd{}, 0, fmt.Errorf("%w: IFD offset %d beyond end of file", ErrFormat, offset)
	}
	p := make([]byte, 2)
	if _, err := s.r.ReadAt(p, int64(offset)); err != nil {
		return ifd{}, 0, fmt.Errorf("%w: reading IFD at %d: %v", ErrFormat, offset, err)
	}
	n := int64(s.order.Uint16(p))

	body := make([]byte, 12*n+4)
	if int64(offset)+2+int64(len(body)) > s.size {
		return ifd{}, 0, fmt.Errorf("%w: IFD at %d truncated", ErrFormat, offset)
	}
	if _, err := s.r.ReadAt(body, int64(offset)+2); err != nil {
		return ifd{}, 0, fmt.Errorf("%w: reading IFD at %d: %v", ErrFormat, offset, err)
	}

	d := ifd{offset: offset, entries: make(map[uint16]entry, n)}
	for i := int64(0); i < n; i++ {
		b := body[12*i : 12*i+12]
		e := entry{
			tag:   s.order.Uint16(b[0:2]),
			typ:   s.order.Uint16(b[2:4]),
			count: s.order.Uint32(b[4:8]),
		}
		copy(e.value[:], b[8:12])
		d.entries[e.tag] = e
	}
	return d, s.order.Uint32(body[12*n:]), nil
}

// raw returns the bytes of e's value, reading them from the file when they
// do not fit inline.
func (s *structure) raw(e entry) ([]byte, error) {
	if int(e.typ) <= 0 || int(e.typ) >= len(typeSize) {
		return nil, fmt.Errorf("%w: tag %d has unknown type %d", ErrFormat, e.tag, e.typ)
	}
	n := int64(typeSize[e.typ]) * int64(e.count)
	if n <= 4 {
		return e.value[:n], nil
	}
	off := int64(s.order.Uint32(e.value[:]))
	if off+n > s.size {
		return nil, fmt.Errorf("%w: tag %d value beyond end of file", ErrFormat, e.tag)
	}
	buf := make([]byte, n)
	if _, err := s.r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: reading tag %d: %v", ErrFormat, e.tag, err)
	}
	return buf, nil
}

// uints decodes an integer-typed entry.
func (s *structure) uints(e entry) ([]uint32, error) {
	b, err := s.raw(e)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, e.count)
	switch e.typ {
	case dtByte, dtUndefined:
		for i := range out {
			out[i] = uint32(b[i])
		}
	case dtShort:
		for i := range out {
			out[i] = uint32(s.order.Uint16(b[2*i:]))
		}
	case dtLong:
		for i := range out {
			out[i] = s.order.Uint32(b[4*i:])
		}
	default:
		return nil, fmt.Errorf("%w: tag %d: type %d is not an unsigned integer", ErrFormat, e.tag, e.typ)
	}
	return out, nil
}

// doubles decodes a floating point entry.
func (s *structure) doubles(e entry) ([]float64, error) {
	b, err := s.raw(e)
	if err != nil {
		return nil, err
	}
	out := make([]float64, e.count)
	switch e.typ {
	case dtDouble:
		for i := range out {
			out[i] = math.Float64frombits(s.order.Uint64(b[8*i:]))
		}
	case dtFloat:
		for i := range out {
			out[i] = float64(math.Float32frombits(s.order.Uint32(b[4*i:])))
		}
	default:
		return nil, fmt.Errorf("%w: tag %d: type %d is not floating point", ErrFormat, e.tag, e.typ)
	}
	return out, nil
}

// ascii decodes an ASCII entry, keeping embedded NULs.
func (s *structure) ascii(e entry) (string, error) {
	if e.typ != dtASCII {
		return "", fmt.Errorf("%w: tag %d: type %d is not ASCII", ErrFormat, e.tag, e.typ)
	}
	b, err := s.raw(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// firstUint returns the first integer value of tag in d, or 0.
func (s *structure) firstUint(d ifd, tag uint16) uint32 {
	e, ok := d.entries[tag]
	if !ok {
		return 0
	}
	v, err := s.uints(e)
	if err != nil || len(v) == 0 {
		return 0
	}
	return v[0]
}
