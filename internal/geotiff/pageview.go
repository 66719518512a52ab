package geotiff

import (
	"encoding/binary"
	"io"
)

// pageView presents a TIFF file whose header points at a chosen IFD, so a
// decoder that only reads the first page decodes that IFD instead. Bytes
// outside the header's IFD offset field are passed through unchanged.
type pageView struct {
	r      io.ReaderAt
	size   int64
	header [4]byte
	pos    int64
}

func newPageView(r io.ReaderAt, size int64, order binary.ByteOrder, ifdOffset uint32) *pageView {
	v := &pageView{r: r, size: size}
	order.PutUint32(v.header[:], ifdOffset)
	return v
}

func (v *pageView) ReadAt(p []byte, off int64) (int, error) {
	n, err := v.r.ReadAt(p, off)
	// Overlay bytes [4,8) where they intersect the read.
	for i := int64(4); i < 8; i++ {
		if j := i - off; j >= 0 && j < int64(n) {
			p[j] = v.header[i-4]
		}
	}
	return n, err
}

func (v *pageView) Read(p []byte) (int, error) {
	if v.pos >= v.size {
		return 0, io.EOF
	}
	n, err := v.ReadAt(p, v.pos)
	v.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}
