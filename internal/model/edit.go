package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Crop is a rectangle in the pixel space of the image as it was displayed while editing.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type EditSettings struct {
	Crop *Crop `json:"crop,omitempty"`

	// Size of the displayed image the crop was drawn against. Zero means the
	// crop is already in native pixels.
	DisplayWidth  float64 `json:"display_width,omitempty"`
	DisplayHeight float64 `json:"display_height,omitempty"`

	Zoom        float64     `json:"zoom,omitempty"`
	Adjustments Adjustments `json:"adjustments"`

	// Offset in seconds of the frame a video thumbnail was extracted from.
	ThumbnailTime float64 `json:"thumbnail_time,omitempty"`
}

func (e EditSettings) Clone() EditSettings {
	if e.Crop != nil {
		c := *e.Crop
		e.Crop = &c
	}
	return e
}

// Adjustments is the photometric parameter set of the variant pipeline.
type Adjustments struct {
	Rotation    float64 `json:"rotation"`
	Flip        bool    `json:"flip"`
	Opacity     float64 `json:"opacity"`
	HueRotate   float64 `json:"hue_rotate"`
	Contrast    float64 `json:"contrast"`
	Brightness  float64 `json:"brightness"`
	TintColor   RGB     `json:"tint_color"`
	TintAmount  float64 `json:"tint_amount"`
	Temperature float64 `json:"temperature"`
	Vignette    float64 `json:"vignette"`
	Noise       float64 `json:"noise"`
	Quality     float64 `json:"quality"`
}

// NeutralAdjustments leaves the source untouched apart from the output quality.
func NeutralAdjustments() Adjustments {
	return Adjustments{
		Opacity:    1,
		Contrast:   1,
		Brightness: 1,
		Quality:    0.92,
	}
}

type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *RGB) UnmarshalText(text []byte) error {
	rgb, err := ParseRGB(string(text))
	if err != nil {
		return err
	}
	*c = rgb
	return nil
}

// ParseRGB parses "#rrggbb" or "rrggbb".
func ParseRGB(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{R: b[0], G: b[1], B: b[2]}, nil
}
