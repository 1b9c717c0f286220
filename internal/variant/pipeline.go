package variant

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"

	"github.com/debemdeboas/postdeck/internal/model"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	DefaultWidth  = 1080
	DefaultHeight = 1920
)

var (
	ErrInvalidCrop = errors.New("invalid crop rectangle")
	ErrDecode      = errors.New("cannot decode source image")
)

// Rand is the source of randomness for the noise stage and for RandomAdjustments.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

type Pipeline struct {
	Width  int
	Height int

	// Interpolator used when drawing the cropped source onto the canvas.
	Interpolator draw.Interpolator

	// Rand feeds the noise stage. Nil uses the process-wide generator.
	Rand Rand
}

func New(width, height int) *Pipeline {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Pipeline{
		Width:        width,
		Height:       height,
		Interpolator: draw.CatmullRom,
	}
}

// Render decodes src, runs every stage and encodes the canvas as JPEG.
func (p *Pipeline) Render(src []byte, settings model.EditSettings) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, err
	}

	canvas, err := p.RenderImage(img, settings)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, canvas, adjustmentsOf(settings).Quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderImage runs the geometric and photometric stages and returns the
// unencoded canvas.
func (p *Pipeline) RenderImage(img image.Image, settings model.EditSettings) (*image.RGBA, error) {
	adj := adjustmentsOf(settings)

	crop, err := nativeCrop(img.Bounds(), settings)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))

	sr := image.Rect(
		int(math.Floor(crop.X)), int(math.Floor(crop.Y)),
		int(math.Ceil(crop.X+crop.Width)), int(math.Ceil(crop.Y+crop.Height)),
	).Intersect(img.Bounds())
	if sr.Empty() {
		return nil, fmt.Errorf("%w: crop lies outside the %dx%d source", ErrInvalidCrop, img.Bounds().Dx(), img.Bounds().Dy())
	}

	filtered := filterRegion(img, sr, adj)

	interp := p.Interpolator
	if interp == nil {
		interp = draw.CatmullRom
	}
	interp.Transform(canvas, p.sourceToCanvas(crop, adj), filtered, filtered.Bounds(), draw.Over, nil)

	if adj.TintAmount > 0 {
		applyTint(canvas, adj.TintColor, adj.TintAmount)
	}
	if adj.Temperature != 0 {
		applyTemperature(canvas, adj.Temperature)
	}
	if adj.Vignette > 0 {
		applyVignette(canvas, adj.Vignette)
	}
	if adj.Noise > 0 {
		r := p.Rand
		if r == nil {
			r = globalRand{}
		}
		applyNoise(canvas, adj.Noise, r)
	}

	return canvas, nil
}

// Conforms reports whether src already decodes at the pipeline's output size.
func (p *Pipeline) Conforms(src []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return false
	}
	return cfg.Width == p.Width && cfg.Height == p.Height
}

// sourceToCanvas maps native source pixels into canvas space: the crop is
// scaled to fill the canvas, then rotated and optionally mirrored about the
// canvas centre.
func (p *Pipeline) sourceToCanvas(crop model.Crop, adj model.Adjustments) f64.Aff3 {
	w, h := float64(p.Width), float64(p.Height)
	cx, cy := w/2, h/2

	m := translate(-crop.X, -crop.Y)
	m = mul(scale(w/crop.Width, h/crop.Height), m)
	m = mul(translate(-cx, -cy), m)
	if adj.Flip {
		m = mul(scale(-1, 1), m)
	}
	m = mul(rotate(adj.Rotation*math.Pi/180), m)
	m = mul(translate(cx, cy), m)
	return m
}

// nativeCrop converts the crop from display pixels to native pixels. A nil
// crop selects the whole source.
func nativeCrop(bounds image.Rectangle, settings model.EditSettings) (model.Crop, error) {
	nw, nh := float64(bounds.Dx()), float64(bounds.Dy())
	if nw == 0 || nh == 0 {
		return model.Crop{}, fmt.Errorf("%w: empty source", ErrInvalidCrop)
	}

	if settings.Crop == nil {
		return model.Crop{X: float64(bounds.Min.X), Y: float64(bounds.Min.Y), Width: nw, Height: nh}, nil
	}

	c := *settings.Crop
	if c.Width <= 0 || c.Height <= 0 {
		return model.Crop{}, fmt.Errorf("%w: %vx%v", ErrInvalidCrop, c.Width, c.Height)
	}

	sx, sy := 1.0, 1.0
	if settings.DisplayWidth > 0 && settings.DisplayHeight > 0 {
		sx = nw / settings.DisplayWidth
		sy = nh / settings.DisplayHeight
	}

	return model.Crop{
		X:      float64(bounds.Min.X) + c.X*sx,
		Y:      float64(bounds.Min.Y) + c.Y*sy,
		Width:  c.Width * sx,
		Height: c.Height * sy,
	}, nil
}

// adjustmentsOf returns the settings' adjustments with each unset multiplier
// and the quality taken from the neutral set. A zero opacity, contrast or
// brightness counts as unset.
func adjustmentsOf(settings model.EditSettings) model.Adjustments {
	adj := settings.Adjustments
	neutral := model.NeutralAdjustments()
	if adj.Opacity == 0 {
		adj.Opacity = neutral.Opacity
	}
	if adj.Contrast == 0 {
		adj.Contrast = neutral.Contrast
	}
	if adj.Brightness == 0 {
		adj.Brightness = neutral.Brightness
	}
	if adj.Quality <= 0 {
		adj.Quality = neutral.Quality
	}
	adj.Opacity = clamp01(adj.Opacity)
	adj.TintAmount = clamp01(adj.TintAmount)
	adj.Vignette = clamp01(adj.Vignette)
	return adj
}

func translate(x, y float64) f64.Aff3 {
	return f64.Aff3{1, 0, x, 0, 1, y}
}

func scale(x, y float64) f64.Aff3 {
	return f64.Aff3{x, 0, 0, 0, y, 0}
}

func rotate(rad float64) f64.Aff3 {
	s, c := math.Sincos(rad)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

// mul returns a·b, the transform that applies b first.
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
