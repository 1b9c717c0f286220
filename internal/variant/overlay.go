package variant

import (
	"image"
	"image/color"
	"math"

	"github.com/debemdeboas/postdeck/internal/model"
	"golang.org/x/image/draw"
)

const (
	tintAlphaScale   = 0.5
	temperatureAlpha = 0.2
	temperatureMax   = 100
)

var (
	warmOverlay = model.RGB{R: 255, G: 140, B: 0}
	coolOverlay = model.RGB{R: 0, G: 110, B: 255}
)

func applyTint(canvas *image.RGBA, tint model.RGB, amount float64) {
	fill(canvas, tint, amount*tintAlphaScale)
}

// applyTemperature overlays a warm colour for positive values and a cool one
// for negative values, scaled by |t| up to temperatureMax.
func applyTemperature(canvas *image.RGBA, t float64) {
	overlay := warmOverlay
	if t < 0 {
		overlay = coolOverlay
	}
	strength := math.Min(math.Abs(t), temperatureMax) / temperatureMax
	fill(canvas, overlay, strength*temperatureAlpha)
}

func fill(canvas *image.RGBA, c model.RGB, alpha float64) {
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: to8(alpha)})
	draw.Draw(canvas, canvas.Bounds(), src, image.Point{}, draw.Over)
}

// applyVignette darkens towards the edges: transparent inside two thirds of
// the centre-to-corner radius, black at the given alpha at the corners.
func applyVignette(canvas *image.RGBA, strength float64) {
	b := canvas.Bounds()
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	outer := math.Hypot(float64(b.Dx())/2, float64(b.Dy())/2)
	inner := outer * 2 / 3

	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, dy)
			if d <= inner {
				continue
			}
			a := strength * math.Min(1, (d-inner)/(outer-inner))
			keep := 1 - a

			i := canvas.PixOffset(x, y)
			p := canvas.Pix[i : i+4 : i+4]
			p[0] = uint8(math.Round(float64(p[0]) * keep))
			p[1] = uint8(math.Round(float64(p[1]) * keep))
			p[2] = uint8(math.Round(float64(p[2]) * keep))
			p[3] = uint8(math.Round(a*255 + float64(p[3])*keep))
		}
	}
}

// applyNoise perturbs every colour channel by an independent uniform value in
// [-2*amount, +2*amount]. Channels stay within the pixel's alpha because the
// canvas is premultiplied.
func applyNoise(canvas *image.RGBA, amount float64, r Rand) {
	spread := amount * 2
	pix := canvas.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		limit := float64(pix[i+3])
		for c := 0; c < 3; c++ {
			v := float64(pix[i+c]) + (r.Float64()*2-1)*spread
			pix[i+c] = uint8(math.Round(math.Max(0, math.Min(limit, v))))
		}
	}
}
