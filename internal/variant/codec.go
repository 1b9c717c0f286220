package variant

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/webp"
)

// Decode reads any registered still-image format.
func Decode(src []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// Encode writes img as JPEG. Quality is in (0, 1].
func Encode(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	q = max(1, min(100, q))
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
		return fmt.Errorf("error encoding variant: %w", err)
	}
	return nil
}
