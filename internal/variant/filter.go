package variant

import (
	"image"
	"math"

	"github.com/debemdeboas/postdeck/internal/model"
	"golang.org/x/image/draw"
)

// filterRegion copies sr out of img and applies opacity, hue rotation,
// contrast and brightness in that order, clamping after each step.
func filterRegion(img image.Image, sr image.Rectangle, adj model.Adjustments) *image.NRGBA {
	out := image.NewNRGBA(sr)
	draw.Draw(out, sr, img, sr.Min, draw.Src)

	if adj.Opacity == 1 && adj.HueRotate == 0 && adj.Contrast == 1 && adj.Brightness == 1 {
		return out
	}

	hue := hueMatrix(adj.HueRotate)
	rotateHue := adj.HueRotate != 0

	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r := float64(pix[i]) / 255
		g := float64(pix[i+1]) / 255
		b := float64(pix[i+2]) / 255

		if rotateHue {
			r, g, b = clamp01(hue[0]*r+hue[1]*g+hue[2]*b),
				clamp01(hue[3]*r+hue[4]*g+hue[5]*b),
				clamp01(hue[6]*r+hue[7]*g+hue[8]*b)
		}

		r = clamp01((r-0.5)*adj.Contrast + 0.5)
		g = clamp01((g-0.5)*adj.Contrast + 0.5)
		b = clamp01((b-0.5)*adj.Contrast + 0.5)

		r = clamp01(r * adj.Brightness)
		g = clamp01(g * adj.Brightness)
		b = clamp01(b * adj.Brightness)

		pix[i] = to8(r)
		pix[i+1] = to8(g)
		pix[i+2] = to8(b)
		pix[i+3] = to8(float64(pix[i+3]) / 255 * adj.Opacity)
	}
	return out
}

// hueMatrix is the luminance-preserving hue rotation used by the CSS
// hue-rotate() filter, row-major.
func hueMatrix(deg float64) [9]float64 {
	s, c := math.Sincos(deg * math.Pi / 180)
	return [9]float64{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
