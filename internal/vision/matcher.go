package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
)

// grayPlane is a screenshot converted to row-major grayscale values.
type grayPlane struct {
	width  int
	height int
	pixels []float64
}

// toGrayPlane converts an image to grayscale using ITU-R BT.601
// luminance weights.
func toGrayPlane(img image.Image) *grayPlane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	p := &grayPlane{
		width:  w,
		height: h,
		pixels: make([]float64, w*h),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale to [0,255].
			p.pixels[i] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			i++
		}
	}
	return p
}

// Matcher locates templates in screenshots using normalized
// cross-correlation on grayscale planes. Scores fall in [-1,1]; a
// perfect match scores 1.0 and thresholds are applied to the raw score.
//
// The zero value is ready to use. Matcher is stateless and safe for
// concurrent use.
type Matcher struct{}

// Find scans the screenshot for the template and returns the best
// match at or above the threshold.
//
// When several positions share the best score, the first one in raster
// order (top-to-bottom, left-to-right) wins, so repeated runs against
// the same screenshot always tap the same spot.
//
// Returns:
//   - Match: best location with its score (zero Match when not found)
//   - bool: whether a position cleared the threshold
//   - error: when the template is larger than the screenshot
func (Matcher) Find(screenshot image.Image, tpl *Template, threshold float64) (Match, bool, error) {
	plane := toGrayPlane(screenshot)
	return findInPlane(plane, tpl, threshold)
}

// FindPNG decodes PNG bytes (as produced by screencap) and runs Find.
func (m Matcher) FindPNG(data []byte, tpl *Template, threshold float64) (Match, bool, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Match{}, false, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return m.Find(img, tpl, threshold)
}

func findInPlane(plane *grayPlane, tpl *Template, threshold float64) (Match, bool, error) {
	if tpl.Width > plane.width || tpl.Height > plane.height {
		return Match{}, false, fmt.Errorf("%w: template %dx%d exceeds screenshot %dx%d",
			ErrTemplateTooLarge, tpl.Width, tpl.Height, plane.width, plane.height)
	}

	// Flat templates have no structure to correlate against.
	if tpl.norm == 0 {
		return Match{}, false, fmt.Errorf("%w: %s", ErrFlatTemplate, tpl.Name)
	}

	best := Match{Score: math.Inf(-1)}
	found := false

	maxY := plane.height - tpl.Height
	maxX := plane.width - tpl.Width

	for oy := 0; oy <= maxY; oy++ {
		for ox := 0; ox <= maxX; ox++ {
			score := scoreAt(plane, tpl, ox, oy)
			// Strict > keeps the first raster-order position on ties.
			if score > best.Score {
				best = Match{
					X:      ox,
					Y:      oy,
					Width:  tpl.Width,
					Height: tpl.Height,
					Score:  score,
				}
				found = best.Score >= threshold
			}
		}
	}

	if !found {
		return Match{}, false, nil
	}
	return best, true, nil
}

// scoreAt computes the normalized cross-correlation of the template
// against the screenshot window at (ox, oy).
func scoreAt(plane *grayPlane, tpl *Template, ox, oy int) float64 {
	n := float64(tpl.Width * tpl.Height)

	// Window mean.
	var sum float64
	for ty := 0; ty < tpl.Height; ty++ {
		row := (oy+ty)*plane.width + ox
		for tx := 0; tx < tpl.Width; tx++ {
			sum += plane.pixels[row+tx]
		}
	}
	mean := sum / n

	// Correlation numerator and window variance term.
	var num, winSq float64
	for ty := 0; ty < tpl.Height; ty++ {
		row := (oy+ty)*plane.width + ox
		trow := ty * tpl.Width
		for tx := 0; tx < tpl.Width; tx++ {
			wd := plane.pixels[row+tx] - mean
			td := tpl.pixels[trow+tx] - tpl.mean
			num += wd * td
			winSq += wd * wd
		}
	}

	denom := math.Sqrt(winSq) * tpl.norm
	if denom == 0 {
		// Flat window: no correlation with a structured template.
		return 0
	}
	return num / denom
}
