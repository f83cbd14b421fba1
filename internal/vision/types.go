package vision

// Template is a reference image prepared for matching: grayscale pixel
// values plus precomputed mean and variance terms.
type Template struct {
	Name   string
	Width  int
	Height int

	// pixels holds row-major grayscale values in [0,255].
	pixels []float64

	// mean and norm are precomputed for the correlation denominator.
	// norm is sqrt(sum((p-mean)^2)) over all pixels.
	mean float64
	norm float64
}

// Match is one located template occurrence within a screenshot.
// X,Y is the top-left corner of the matched region.
type Match struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// Center returns the midpoint of the matched region, which is where
// taps are aimed.
func (m Match) Center() (x, y int) {
	return m.X + m.Width/2, m.Y + m.Height/2
}
