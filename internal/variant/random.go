package variant

import "github.com/debemdeboas/postdeck/internal/model"

// Ranges for RandomAdjustments. They are kept small so a randomized variant
// stays visually close to its source.
const (
	randRotation    = 2.0
	randOpacityMin  = 0.95
	randHue         = 10.0
	randContrast    = 0.1
	randBrightness  = 0.1
	randTintMax     = 0.1
	randTemperature = 20.0
	randVignetteMax = 0.3
	randNoiseMax    = 5.0
	randQualityMin  = 0.85
	randQualityMax  = 0.95
)

// RandomAdjustments draws one independent photometric parameter set.
func RandomAdjustments(r Rand) model.Adjustments {
	if r == nil {
		r = globalRand{}
	}
	between := func(lo, hi float64) float64 {
		return lo + r.Float64()*(hi-lo)
	}
	channel := func() uint8 {
		return uint8(min(255, int(r.Float64()*256)))
	}

	return model.Adjustments{
		Rotation:    between(-randRotation, randRotation),
		Flip:        r.Float64() < 0.5,
		Opacity:     between(randOpacityMin, 1),
		HueRotate:   between(-randHue, randHue),
		Contrast:    between(1-randContrast, 1+randContrast),
		Brightness:  between(1-randBrightness, 1+randBrightness),
		TintColor:   model.RGB{R: channel(), G: channel(), B: channel()},
		TintAmount:  between(0, randTintMax),
		Temperature: between(-randTemperature, randTemperature),
		Vignette:    between(0, randVignetteMax),
		Noise:       between(0, randNoiseMax),
		Quality:     between(randQualityMin, randQualityMax),
	}
}
