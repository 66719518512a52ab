package pyramid

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/raster"
)

var (
	// ErrEmptyPyramid is returned when the pyramid file has no pages.
	ErrEmptyPyramid = errors.New("pyramid file has no pages")

	// ErrConfigParse is wrapped by every error caused by a malformed
	// pyramid definition.
	ErrConfigParse = errors.New("malformed pyramid definition")

	// ErrIO is wrapped by failures to open or read the pyramid file.
	ErrIO = errors.New("pyramid file i/o failed")
)

// Kind classifies construction failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfigParse
	KindEmptyPyramid
	KindIO
	KindDecode
	KindMetadataUnavailable
	KindUnknownCRS
	KindCanceled
)

var kindNames = [...]string{
	KindUnknown:             "unknown",
	KindConfigParse:         "config-parse",
	KindEmptyPyramid:        "empty-pyramid",
	KindIO:                  "io",
	KindDecode:              "decode",
	KindMetadataUnavailable: "metadata-unavailable",
	KindUnknownCRS:          "unknown-crs",
	KindCanceled:            "canceled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Fatal reports whether errors of kind k abort construction. Metadata and
// CRS lookup failures only degrade the resolved coordinate system.
func (k Kind) Fatal() bool {
	return k != KindMetadataUnavailable && k != KindUnknownCRS
}

// KindOf classifies err. A nil error has KindUnknown.
func KindOf(err error) Kind {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrConfigParse):
		return KindConfigParse
	case errors.Is(err, ErrEmptyPyramid):
		return KindEmptyPyramid
	case errors.Is(err, raster.ErrDecode):
		return KindDecode
	case errors.Is(err, ErrIO), errors.As(err, &pathErr):
		return KindIO
	case errors.Is(err, raster.ErrMetadataUnavailable):
		return KindMetadataUnavailable
	case errors.Is(err, crs.ErrUnknownCRS):
		return KindUnknownCRS
	}
	return KindUnknown
}

// InitializationError is returned by Provider when a coverage cannot be
// built. It names the definition and the raster file involved and wraps the
// originating cause.
type InitializationError struct {
	ConfigPath string
	File       string
	Kind       Kind
	Err        error
}

func (e *InitializationError) Error() string {
	msg := "could not initialize pyramid"
	if e.ConfigPath != "" {
		msg += " from " + e.ConfigPath
	}
	if e.File != "" {
		msg += " (" + e.File + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}
