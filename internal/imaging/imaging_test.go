package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{90, 110, 60, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func TestProcessPhotoJPEG(t *testing.T) {
	p, err := ProcessPhoto(testJPEG(100, 80))
	if err != nil {
		t.Fatalf("ProcessPhoto JPEG: %v", err)
	}
	if p.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", p.MIME)
	}
	if p.Width != 100 || p.Height != 80 {
		t.Errorf("expected 100x80, got %dx%d", p.Width, p.Height)
	}
	if len(p.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestProcessPhotoPNGBecomesJPEG(t *testing.T) {
	p, err := ProcessPhoto(testPNG(100, 100))
	if err != nil {
		t.Fatalf("ProcessPhoto PNG: %v", err)
	}
	if p.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", p.MIME)
	}
	if _, format, err := image.Decode(bytes.NewReader(p.Data)); err != nil || format != "jpeg" {
		t.Errorf("expected JPEG output, got %q (%v)", format, err)
	}
}

func TestProcessPhotoDownscale(t *testing.T) {
	p, err := ProcessPhoto(testJPEG(2048, 1024))
	if err != nil {
		t.Fatalf("ProcessPhoto large: %v", err)
	}
	if p.Width != MaxDimension || p.Height != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, p.Width, p.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if b := img.Bounds(); b.Dx() != p.Width || b.Dy() != p.Height {
		t.Errorf("reported %dx%d, encoded %dx%d", p.Width, p.Height, b.Dx(), b.Dy())
	}
}

func TestProcessPhotoSmallNotUpscaled(t *testing.T) {
	p, err := ProcessPhoto(testJPEG(50, 50))
	if err != nil {
		t.Fatalf("ProcessPhoto small: %v", err)
	}
	if p.Width != 50 || p.Height != 50 {
		t.Errorf("small photo should not be resized: got %dx%d", p.Width, p.Height)
	}
}

func TestProcessPhotoRejected(t *testing.T) {
	tests := map[string][]byte{
		"text":            []byte("not an image"),
		"gif":             []byte("GIF89a..."),
		"png header only": []byte("\x89PNG\r\n\x1a\n"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ProcessPhoto(data)
			if !errors.Is(err, ErrUnsupported) {
				t.Errorf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestReadUploadTooLarge(t *testing.T) {
	big := strings.NewReader(strings.Repeat("x", MaxUploadSize+10))
	if _, err := ReadUpload(big); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestReadUpload(t *testing.T) {
	src := testPNG(10, 20)
	data, err := ReadUpload(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("ReadUpload: %v", err)
	}
	if !bytes.Equal(data, src) {
		t.Errorf("expected %d bytes back unchanged, got %d", len(src), len(data))
	}
}
