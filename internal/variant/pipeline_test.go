package variant

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/debemdeboas/postdeck/internal/model"
)

const (
	testW = 40
	testH = 60
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// splitImage is left half red, right half blue.
func splitImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, red)
			} else {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func neutral() model.EditSettings {
	return model.EditSettings{Adjustments: model.NeutralAdjustments()}
}

func isRedDominant(c color.RGBA) bool  { return c.R > 200 && c.B < 60 }
func isBlueDominant(c color.RGBA) bool { return c.B > 200 && c.R < 60 }

func TestRenderOutputSize(t *testing.T) {
	p := New(testW, testH)

	sources := map[string]image.Image{
		"landscape": splitImage(200, 50),
		"portrait":  splitImage(30, 300),
		"square":    splitImage(64, 64),
	}

	crops := map[string]*model.Crop{
		"full":  nil,
		"wide":  {X: 0, Y: 0, Width: 30, Height: 10},
		"small": {X: 5, Y: 5, Width: 3, Height: 7},
	}

	for srcName, src := range sources {
		data := encodePNG(t, src)
		for cropName, crop := range crops {
			t.Run(srcName+"/"+cropName, func(t *testing.T) {
				settings := neutral()
				settings.Crop = crop

				out, err := p.Render(data, settings)
				if err != nil {
					t.Fatalf("Render failed: %v", err)
				}

				cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
				if err != nil {
					t.Fatalf("Failed to decode output: %v", err)
				}
				if format != "jpeg" {
					t.Errorf("Expected jpeg output, got %s", format)
				}
				if cfg.Width != testW || cfg.Height != testH {
					t.Errorf("Expected %dx%d output, got %dx%d", testW, testH, cfg.Width, cfg.Height)
				}
			})
		}
	}
}

func TestRenderDeterministicWithoutNoise(t *testing.T) {
	p := New(testW, testH)
	data := encodePNG(t, splitImage(120, 80))

	settings := model.EditSettings{
		Crop:          &model.Crop{X: 10, Y: 5, Width: 50, Height: 40},
		DisplayWidth:  60,
		DisplayHeight: 40,
		Adjustments: model.Adjustments{
			Rotation:    7,
			Flip:        true,
			Opacity:     0.9,
			HueRotate:   30,
			Contrast:    1.2,
			Brightness:  0.8,
			TintColor:   model.RGB{R: 10, G: 200, B: 30},
			TintAmount:  0.4,
			Temperature: -35,
			Vignette:    0.6,
			Quality:     0.8,
		},
	}

	first, err := p.Render(data, settings)
	if err != nil {
		t.Fatalf("First render failed: %v", err)
	}
	second, err := p.Render(data, settings)
	if err != nil {
		t.Fatalf("Second render failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("Expected byte-identical output for identical inputs without noise")
	}
}

func TestRenderNoiseVariesPixelsOnly(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(80, 80)

	settings := neutral()
	settings.Adjustments.Noise = 20

	a, err := p.RenderImage(src, settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b, err := p.RenderImage(src, settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if a.Bounds() != b.Bounds() {
		t.Fatalf("Bounds differ: %v vs %v", a.Bounds(), b.Bounds())
	}
	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("Expected noise to vary pixel values between runs")
	}

	clean, err := p.RenderImage(src, neutral())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i := range clean.Pix {
		if i%4 == 3 {
			continue
		}
		diff := int(a.Pix[i]) - int(clean.Pix[i])
		if diff > 40 || diff < -40 {
			t.Fatalf("Noise exceeded its amplitude at byte %d: %d", i, diff)
		}
	}
}

func TestRenderNoiseWithSeededRand(t *testing.T) {
	src := splitImage(80, 80)
	settings := neutral()
	settings.Adjustments.Noise = 10

	render := func() []byte {
		p := New(testW, testH)
		p.Rand = rand.New(rand.NewPCG(1, 2))
		img, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		return img.Pix
	}

	if !bytes.Equal(render(), render()) {
		t.Error("Expected identical output for identically seeded noise")
	}
}

func TestRenderCropSelectsRegion(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(100, 50)

	t.Run("Native crop of right half", func(t *testing.T) {
		settings := neutral()
		settings.Crop = &model.Crop{X: 50, Y: 0, Width: 50, Height: 50}

		out, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		for _, pt := range []image.Point{{2, 2}, {testW / 2, testH / 2}, {testW - 3, testH - 3}} {
			if c := out.RGBAAt(pt.X, pt.Y); !isBlueDominant(c) {
				t.Errorf("Expected blue at %v, got %+v", pt, c)
			}
		}
	})

	t.Run("Display crop is scaled to native pixels", func(t *testing.T) {
		settings := neutral()
		// Displayed at half size: the left quarter of the display is the left half natively.
		settings.DisplayWidth = 50
		settings.DisplayHeight = 25
		settings.Crop = &model.Crop{X: 0, Y: 0, Width: 20, Height: 25}

		out, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if c := out.RGBAAt(testW/2, testH/2); !isRedDominant(c) {
			t.Errorf("Expected red at centre, got %+v", c)
		}
	})
}

func TestRenderFlipMirrorsHorizontally(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(100, 100)

	plain, err := p.RenderImage(src, neutral())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := plain.RGBAAt(testW/4, testH/2); !isRedDominant(c) {
		t.Fatalf("Expected red on the left without flip, got %+v", c)
	}

	settings := neutral()
	settings.Adjustments.Flip = true
	flipped, err := p.RenderImage(src, settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := flipped.RGBAAt(testW/4, testH/2); !isBlueDominant(c) {
		t.Errorf("Expected blue on the left after flip, got %+v", c)
	}
	if c := flipped.RGBAAt(3*testW/4, testH/2); !isRedDominant(c) {
		t.Errorf("Expected red on the right after flip, got %+v", c)
	}
}

func TestRenderRotationHalfTurn(t *testing.T) {
	p := New(testW, testH)
	settings := neutral()
	settings.Adjustments.Rotation = 180

	out, err := p.RenderImage(splitImage(100, 100), settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := out.RGBAAt(testW/4, testH/2); !isBlueDominant(c) {
		t.Errorf("Expected blue on the left after a half turn, got %+v", c)
	}
}

func TestRenderOpacity(t *testing.T) {
	p := New(testW, testH)
	settings := neutral()
	settings.Adjustments.Opacity = 0.5

	out, err := p.RenderImage(splitImage(100, 100), settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	c := out.RGBAAt(testW/4, testH/2)
	if c.A < 120 || c.A > 135 {
		t.Errorf("Expected roughly half alpha, got %d", c.A)
	}
}

func TestRenderTintAndTemperature(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(100, 100)

	t.Run("Tint pulls towards the tint colour", func(t *testing.T) {
		settings := neutral()
		settings.Adjustments.TintColor = model.RGB{G: 255}
		settings.Adjustments.TintAmount = 1

		out, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		c := out.RGBAAt(testW/4, testH/2)
		if c.G < 110 || c.G > 145 {
			t.Errorf("Expected green near half intensity, got %+v", c)
		}
		if c.R < 110 || c.R > 145 {
			t.Errorf("Expected red halved by the tint, got %+v", c)
		}
	})

	t.Run("Positive temperature warms", func(t *testing.T) {
		settings := neutral()
		settings.Adjustments.Temperature = 100

		out, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if c := out.RGBAAt(3*testW/4, testH/2); c.R == 0 {
			t.Errorf("Expected warm overlay to add red to the blue half, got %+v", c)
		}
	})

	t.Run("Negative temperature cools", func(t *testing.T) {
		settings := neutral()
		settings.Adjustments.Temperature = -100

		out, err := p.RenderImage(src, settings)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if c := out.RGBAAt(testW/4, testH/2); c.B == 0 {
			t.Errorf("Expected cool overlay to add blue to the red half, got %+v", c)
		}
	})
}

func TestRenderVignetteDarkensCorners(t *testing.T) {
	p := New(testW, testH)
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	settings := neutral()
	settings.Adjustments.Vignette = 1

	out, err := p.RenderImage(src, settings)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	centre := out.RGBAAt(testW/2, testH/2)
	corner := out.RGBAAt(0, 0)
	if centre.R < 250 {
		t.Errorf("Expected untouched centre, got %+v", centre)
	}
	if corner.R > 40 {
		t.Errorf("Expected dark corner, got %+v", corner)
	}
	if corner.A < 200 {
		t.Errorf("Expected opaque corner, got alpha %d", corner.A)
	}
}

func TestRenderErrors(t *testing.T) {
	p := New(testW, testH)

	t.Run("Undecodable source", func(t *testing.T) {
		_, err := p.Render([]byte("not an image"), neutral())
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("Empty crop", func(t *testing.T) {
		settings := neutral()
		settings.Crop = &model.Crop{Width: 0, Height: 10}
		_, err := p.RenderImage(splitImage(10, 10), settings)
		if !errors.Is(err, ErrInvalidCrop) {
			t.Errorf("Expected ErrInvalidCrop, got %v", err)
		}
	})

	t.Run("Crop outside source", func(t *testing.T) {
		settings := neutral()
		settings.Crop = &model.Crop{X: 500, Y: 500, Width: 10, Height: 10}
		_, err := p.RenderImage(splitImage(10, 10), settings)
		if !errors.Is(err, ErrInvalidCrop) {
			t.Errorf("Expected ErrInvalidCrop, got %v", err)
		}
	})
}

func TestZeroAdjustmentsAreNeutral(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(100, 100)

	zero, err := p.RenderImage(src, model.EditSettings{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	neutralOut, err := p.RenderImage(src, neutral())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.Equal(zero.Pix, neutralOut.Pix) {
		t.Error("Expected unset adjustments to render like neutral adjustments")
	}
}

func TestPartialAdjustmentsKeepNeutralDefaults(t *testing.T) {
	p := New(testW, testH)
	src := splitImage(100, 100)

	partial := model.EditSettings{Adjustments: model.Adjustments{Rotation: 180}}
	out, err := p.RenderImage(src, partial)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	full := neutral()
	full.Adjustments.Rotation = 180
	want, err := p.RenderImage(src, full)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.Equal(out.Pix, want.Pix) {
		t.Error("Expected unset multipliers to take their neutral values")
	}
	if c := out.RGBAAt(testW/4, testH/2); !isBlueDominant(c) {
		t.Errorf("Expected blue on the left after a half turn, got %+v", c)
	}
}

func TestConforms(t *testing.T) {
	p := New(testW, testH)

	if !p.Conforms(encodePNG(t, splitImage(testW, testH))) {
		t.Error("Expected a correctly sized image to conform")
	}
	if p.Conforms(encodePNG(t, splitImage(testW+1, testH))) {
		t.Error("Expected a wrongly sized image not to conform")
	}
	if p.Conforms([]byte("garbage")) {
		t.Error("Expected garbage not to conform")
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(0, -1)
	if p.Width != DefaultWidth || p.Height != DefaultHeight {
		t.Errorf("Expected %dx%d, got %dx%d", DefaultWidth, DefaultHeight, p.Width, p.Height)
	}
}
