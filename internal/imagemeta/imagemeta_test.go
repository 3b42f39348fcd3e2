package imagemeta

import (
	"bytes"
	"errors"
	"image"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestMeasurePNG(t *testing.T) {
	width, height, err := Measure(encodePNG(t, 800, 400), types.KindPNG)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if width != 800 || height != 400 {
		t.Fatalf("got %dx%d, want 800x400", width, height)
	}
}

func TestMeasureJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 48)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	width, height, err := Measure(buf.Bytes(), types.KindJPEG)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if width != 64 || height != 48 {
		t.Fatalf("got %dx%d, want 64x48", width, height)
	}
}

func TestMeasureGIF(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 10, 20), palette.Plan9), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	width, height, err := Measure(buf.Bytes(), types.KindGIF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if width != 10 || height != 20 {
		t.Fatalf("got %dx%d, want 10x20", width, height)
	}
}

func TestMeasureRejectsNonImageBody(t *testing.T) {
	// An origin can serve an HTML error page with an image content type.
	_, _, err := Measure([]byte("<html><body>404</body></html>"), types.KindPNG)
	var decodeErr *types.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
}

func TestMeasureRejectsKindMismatch(t *testing.T) {
	_, _, err := Measure(encodePNG(t, 4, 4), types.KindJPEG)
	var decodeErr *types.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
}

func TestMeasureRejectsTruncatedBody(t *testing.T) {
	data := encodePNG(t, 32, 32)
	_, _, err := Measure(data[:len(data)/2], types.KindPNG)
	var decodeErr *types.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
}
