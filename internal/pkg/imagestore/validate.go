package imagestore

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image is too large")
	ErrUnsupportedImage = errors.New("only JPEG, PNG, GIF and WEBP images are supported")
)

// allowed maps sniffed content types to the extension used for the object key.
// SVG is excluded since it can carry scripts.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Detected is the outcome of a successful content sniff.
type Detected struct {
	ContentType string
	Extension   string
}

// Validate sniffs the image content. The client supplied filename and
// content type are ignored.
func Validate(data []byte, maxBytes int64) (Detected, error) {
	if len(data) == 0 {
		return Detected{}, ErrEmptyImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Detected{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(data), maxBytes)
	}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return Detected{ContentType: m.String(), Extension: ext}, nil
		}
	}
	return Detected{}, fmt.Errorf("%w (got %s)", ErrUnsupportedImage, mt.String())
}
