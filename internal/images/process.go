// Package images validates, normalizes and stores website logos.
package images

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/sited-io/websites/internal/status"
)

// MaxDimension bounds the width and height of a stored logo.
const MaxDimension = 1024

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// Validate checks the size and the sniffed content type of an upload.
func Validate(data []byte, maxSize int64) error {
	if int64(len(data)) > maxSize {
		return status.ResourceExhaustedf("image is larger than %d bytes", maxSize)
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if mt.Is(allowed) {
			return nil
		}
	}
	return status.InvalidArgumentf("unsupported image type %s", mt.String())
}

// Process decodes an image, scales it down to fit MaxDimension keeping the
// aspect ratio, and encodes it as PNG.
func Process(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, status.Wrap(status.InvalidArgument, err, "image could not be decoded")
	}

	bounds := src.Bounds()
	w, h := fit(bounds.Dx(), bounds.Dy(), MaxDimension)

	var img image.Image = src
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, status.Internalf(err, "encode png")
	}
	return buf.Bytes(), nil
}

// fit returns the size of a w x h image scaled down so neither side exceeds
// limit. Smaller images are returned as is.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
