// Package imaging inspects the decoded levels of a pyramid.
//
// The functions here work on the image.Image of a single level and never
// modify it: Describe reports its layout, SamplePixel reads one value,
// Preview renders a bounded PNG and CheckScales measures how levels shrink
// from page to page. Reduce goes the other way and builds the levels of a
// new pyramid from one source image.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// Every function is stateless. Levels of a published pyramid are never
// written to, so any number of goroutines may inspect them at once.
package imaging
