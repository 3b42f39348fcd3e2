// Package imagemeta measures pixel dimensions of downloaded image bytes.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// Measure decodes data as an image of the classified kind and returns
// its width and height. Truncated downloads, HTML error pages served
// with an image content type, and format mismatches all fail with a
// DecodeError; the caller skips the single image and carries on.
func Measure(data []byte, kind types.ImageKind) (width, height int, err error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, &types.DecodeError{Kind: kind, Err: err}
	}
	if format != string(kind) {
		return 0, 0, &types.DecodeError{
			Kind: kind,
			Err:  fmt.Errorf("body decoded as %s", format),
		}
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
