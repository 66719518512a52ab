// Package crs identifies the coordinate reference system of a raster
// pyramid.
//
// SpatialReference is a small value type naming a system by code (for
// example "EPSG:4326"), name and kind. A Registry maps identifiers to
// references; NewRegistry seeds it with an embedded table of common EPSG
// systems. ParseWKT reads WKT1 and WKT2 projection text.
//
// Resolver combines the two. Given the GeoKeys of a raster's first page and,
// optionally, native projection text, it produces a Resolution:
//
//	res := resolver.Resolve(crs.Metadata{GeoKeys: keys, Projection: wkt})
//	fmt.Println(res.CRS.Alias(), res.Source)
//
// Resolution never fails. Unknown codes, unreadable metadata and bad WKT
// are reported as Diagnostics and resolution falls back to the default
// system, EPSG:25832 unless configured otherwise.
package crs
