// Package pyramid builds multi-resolution raster coverages from multi-page
// raster files.
//
// A pyramid definition names one file whose pages hold the same data at
// decreasing resolution, finest first:
//
//	pyramidFile: dem.tif
//	decodeWorkers: 4
//	timeout: 30s
//
// The deegree XML form is read as well:
//
//	<Pyramid xmlns="http://www.deegree.org/datasource/coverage/pyramid">
//	  <PyramidFile>dem.tif</PyramidFile>
//	</Pyramid>
//
// # Construction
//
// Provider.Create runs four steps, each feeding the next:
//
//  1. Inspect opens the file through a raster.Probe, counts its pages and
//     reads first-page metadata. The probe is closed before anything is
//     decoded.
//  2. A crs.Resolver turns the metadata into one coordinate system, or the
//     configured crs is used as is.
//  3. ReadLevels decodes every page, optionally in parallel, tagging each
//     with that coordinate system. Levels keep page order.
//  4. Assemble checks the result and returns an immutable Pyramid.
//
// Nothing is returned unless every step succeeds; rasters decoded before a
// failure are closed. Failures are reported as *InitializationError, whose
// Kind classifies the cause and whose Unwrap exposes it:
//
//	pyr, err := provider.Create(ctx, "coverages/dem.yaml")
//	var ierr *pyramid.InitializationError
//	if errors.As(err, &ierr) && ierr.Kind == pyramid.KindEmptyPyramid {
//		// ...
//	}
//
// Problems that only degrade the coordinate system, such as unknown EPSG
// codes or unreadable GeoKeys, never fail construction. They are available
// from Pyramid.Diagnostics.
//
// # Concurrency
//
// A Pyramid never changes after Assemble returns, so any number of
// goroutines may read it. Close releases the level rasters and must only be
// called once readers are done with it.
package pyramid
