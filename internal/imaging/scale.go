package imaging

import (
	"image"
	"math"
)

// LevelScale relates a level to the one before it.
type LevelScale struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Ratio is the previous level's width divided by this level's width,
	// rounded to two decimals. It is 1 for the first level and 0 for
	// an empty one.
	Ratio float64 `json:"ratio"`

	// Coarser reports whether the level is smaller than the previous one
	// in both dimensions. The first level is always coarser.
	Coarser bool `json:"coarser"`
}

// ScaleReport is the result of CheckScales.
type ScaleReport struct {
	Levels []LevelScale `json:"levels"`

	// Monotonic is true when every level is coarser than the one before.
	Monotonic bool `json:"monotonic"`
}

// CheckScales measures how level bounds, given in page order, shrink from
// level to level. It only reports; callers keep page order whatever the
// result.
func CheckScales(bounds []image.Rectangle) ScaleReport {
	report := ScaleReport{Levels: make([]LevelScale, len(bounds)), Monotonic: true}
	for i, b := range bounds {
		s := LevelScale{Index: i, Width: b.Dx(), Height: b.Dy(), Ratio: 1, Coarser: true}
		if i > 0 {
			prev := bounds[i-1]
			s.Ratio = 0
			if s.Width > 0 {
				s.Ratio = math.Round(float64(prev.Dx())/float64(s.Width)*100) / 100
			}
			s.Coarser = s.Width < prev.Dx() && s.Height < prev.Dy()
		}
		if !s.Coarser {
			report.Monotonic = false
		}
		report.Levels[i] = s
	}
	return report
}
