package geotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// KeyEntry is a GeoKey to write. ASCII and Doubles select the parameter tag
// the value is stored in; otherwise Short is stored inline.
type KeyEntry struct {
	Key     raster.GeoKey
	Short   uint16
	ASCII   string
	Doubles []float64
}

// GeographicKeys returns the keys describing a geographic CRS by EPSG code.
func GeographicKeys(epsg uint16) []KeyEntry {
	return []KeyEntry{
		{Key: raster.GTModelTypeGeoKey, Short: raster.ModelTypeGeographic},
		{Key: raster.GTRasterTypeGeoKey, Short: 1},
		{Key: raster.GeographicTypeGeoKey, Short: epsg},
	}
}

// ProjectedKeys returns the keys describing a projected CRS by EPSG code.
func ProjectedKeys(epsg uint16) []KeyEntry {
	return []KeyEntry{
		{Key: raster.GTModelTypeGeoKey, Short: raster.ModelTypeProjected},
		{Key: raster.GTRasterTypeGeoKey, Short: 1},
		{Key: raster.ProjectedCSTypeGeoKey, Short: epsg},
	}
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// ByteOrder defaults to little endian.
	ByteOrder binary.ByteOrder

	// Keys are written as the GeoKey directory of the first page.
	Keys []KeyEntry

	// RawKeyDirectory, when set, is written verbatim as the GeoKey
	// directory instead of one built from Keys.
	RawKeyDirectory []uint16

	// PixelScale is the ModelPixelScale of the first page. Later pages get
	// the scale multiplied by the ratio of the first page's width to theirs.
	PixelScale *[3]float64

	// TiePoint is written to every page.
	TiePoint *[6]float64
}

// Encode writes pages as a classic, uncompressed, multi-page TIFF. Gray
// images are written as 8-bit grayscale, everything else as 8-bit RGB.
// Pages after the first are flagged as reduced-resolution images.
func Encode(w io.Writer, pages []image.Image, opts *EncodeOptions) error {
	if len(pages) == 0 {
		return errors.New("no pages to encode")
	}
	if opts == nil {
		opts = &EncodeOptions{}
	}
	order := opts.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}

	e := &encoder{order: order}
	if order == binary.LittleEndian {
		e.buf = append(e.buf, leHeader...)
	} else {
		e.buf = append(e.buf, beHeader...)
	}
	e.buf = append(e.buf, 0, 0, 0, 0)
	nextPtr := 4

	width0 := pages[0].Bounds().Dx()
	for i, img := range pages {
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return fmt.Errorf("page %d is empty", i)
		}

		pix, photometric, bits := pixelData(img)
		e.align()
		dataOff := len(e.buf)
		e.buf = append(e.buf, pix...)

		fields := []field{
			e.longs(tagImageWidth, uint32(b.Dx())),
			e.longs(tagImageLength, uint32(b.Dy())),
			e.shorts(tagBitsPerSample, bits...),
			e.shorts(tagCompression, 1),
			e.shorts(tagPhotometric, photometric),
			e.longs(tagStripOffsets, uint32(dataOff)),
			e.shorts(tagSamplesPerPixel, uint16(len(bits))),
			e.longs(tagRowsPerStrip, uint32(b.Dy())),
			e.longs(tagStripByteCounts, uint32(len(pix))),
			e.shorts(tagPlanarConfig, 1),
		}
		if i > 0 {
			fields = append(fields, e.longs(tagNewSubfileType, 1))
		}
		if opts.PixelScale != nil {
			ratio := float64(width0) / float64(b.Dx())
			s := *opts.PixelScale
			fields = append(fields, e.doubles(tagModelPixelScale, s[0]*ratio, s[1]*ratio, s[2]))
		}
		if opts.TiePoint != nil {
			t := *opts.TiePoint
			fields = append(fields, e.doubles(tagModelTiepoint, t[:]...))
		}
		if i == 0 {
			fields = append(fields, e.geoKeyFields(opts)...)
		}

		ifdOff, next := e.writeIFD(fields)
		order.PutUint32(e.buf[nextPtr:], uint32(ifdOff))
		nextPtr = next
	}

	if uint64(len(e.buf)) > math.MaxUint32 {
		return errors.New("encoded file exceeds 4 GiB")
	}
	_, err := w.Write(e.buf)
	return err
}

type field struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

type encoder struct {
	order binary.ByteOrder
	buf   []byte
}

// align pads the buffer to a word boundary.
func (e *encoder) align() {
	if len(e.buf)%2 == 1 {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) shorts(tag uint16, v ...uint16) field {
	data := make([]byte, 2*len(v))
	for i, x := range v {
		e.order.PutUint16(data[2*i:], x)
	}
	return field{tag: tag, typ: dtShort, count: uint32(len(v)), data: data}
}

func (e *encoder) longs(tag uint16, v ...uint32) field {
	data := make([]byte, 4*len(v))
	for i, x := range v {
		e.order.PutUint32(data[4*i:], x)
	}
	return field{tag: tag, typ: dtLong, count: uint32(len(v)), data: data}
}

func (e *encoder) doubles(tag uint16, v ...float64) field {
	data := make([]byte, 8*len(v))
	for i, x := range v {
		e.order.PutUint64(data[8*i:], math.Float64bits(x))
	}
	return field{tag: tag, typ: dtDouble, count: uint32(len(v)), data: data}
}

func (e *encoder) ascii(tag uint16, s string) field {
	data := append([]byte(s), 0)
	return field{tag: tag, typ: dtASCII, count: uint32(len(data)), data: data}
}

func (e *encoder) geoKeyFields(opts *EncodeOptions) []field {
	if opts.RawKeyDirectory != nil {
		return []field{e.shorts(tagGeoKeyDirectory, opts.RawKeyDirectory...)}
	}
	if len(opts.Keys) == 0 {
		return nil
	}

	keys := append([]KeyEntry(nil), opts.Keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })

	dir := []uint16{1, 1, 0, uint16(len(keys))}
	var doubles []float64
	var ascii string
	for _, k := range keys {
		switch {
		case k.ASCII != "":
			s := k.ASCII + "|"
			dir = append(dir, uint16(k.Key), tagGeoAsciiParams, uint16(len(s)), uint16(len(ascii)))
			ascii += s
		case len(k.Doubles) > 0:
			dir = append(dir, uint16(k.Key), tagGeoDoubleParams, uint16(len(k.Doubles)), uint16(len(doubles)))
			doubles = append(doubles, k.Doubles...)
		default:
			dir = append(dir, uint16(k.Key), 0, 1, k.Short)
		}
	}

	fields := []field{e.shorts(tagGeoKeyDirectory, dir...)}
	if len(doubles) > 0 {
		fields = append(fields, e.doubles(tagGeoDoubleParams, doubles...))
	}
	if ascii != "" {
		fields = append(fields, e.ascii(tagGeoAsciiParams, ascii))
	}
	return fields
}

// writeIFD appends out-of-line values and the IFD itself. It returns the IFD
// offset and the position of its next-IFD pointer.
func (e *encoder) writeIFD(fields []field) (int, int) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	offsets := make([]int, len(fields))
	for i, f := range fields {
		if len(f.data) > 4 {
			e.align()
			offsets[i] = len(e.buf)
			e.buf = append(e.buf, f.data...)
		}
	}

	e.align()
	ifdOff := len(e.buf)
	var p [12]byte
	e.order.PutUint16(p[:2], uint16(len(fields)))
	e.buf = append(e.buf, p[:2]...)
	for i, f := range fields {
		p = [12]byte{}
		e.order.PutUint16(p[0:], f.tag)
		e.order.PutUint16(p[2:], f.typ)
		e.order.PutUint32(p[4:], f.count)
		if len(f.data) > 4 {
			e.order.PutUint32(p[8:], uint32(offsets[i]))
		} else {
			copy(p[8:], f.data)
		}
		e.buf = append(e.buf, p[:]...)
	}
	next := len(e.buf)
	e.buf = append(e.buf, 0, 0, 0, 0)
	return ifdOff, next
}

// pixelData returns the chunky pixel bytes, photometric interpretation and
// bits per sample for img.
func pixelData(img image.Image) ([]byte, uint16, []uint16) {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := g.PixOffset(b.Min.X, y)
			pix = append(pix, g.Pix[i:i+b.Dx()]...)
		}
		return pix, 1, []uint16{8}
	}

	pix := make([]byte, 0, 3*b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			pix = append(pix, c.R, c.G, c.B)
		}
	}
	return pix, 2, []uint16{8, 8, 8}
}
