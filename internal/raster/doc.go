// Package raster defines the contracts between the pyramid core and the
// format-specific backends that actually read raster files.
//
// A backend is split into two capabilities that mirror how a pyramid is
// built:
//
//   - A Probe is a short-lived handle on the source file used to count its
//     pages and to read the geo-metadata of the first page. Callers must
//     Close it before any page is decoded.
//   - DecodePage turns a single page, selected by DecodeOptions.ImageIndex,
//     into a Raster that owns the decoded pixels until it is closed.
//
// Some backends can also describe a page's projection natively (for example
// as well-known text). They expose it by having their Probe implement
// ProjectionProbe; callers discover it with a type assertion.
//
// # Registry
//
// Backends are selected through a Registry that maps a backend name to a
// Factory. The registry is populated explicitly at process start, usually
// in main, and is read-only afterwards:
//
//	reg := raster.NewRegistry()
//	reg.Register("geotiff", geotiff.NewBackend, "tif", "tiff")
//	backend, err := reg.ForFormat("tif")
//
// # Errors
//
// Backends report decode failures wrapped around ErrDecode and missing or
// unreadable geo-metadata wrapped around ErrMetadataUnavailable, so callers
// can classify failures with errors.Is.
package raster
