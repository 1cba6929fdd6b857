package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// twoRows is 2x2: a red top row and a blue bottom row.
func twoRows() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 1, color.RGBA{B: 255, A: 255})
	}
	return img
}

func encodeWith(t *testing.T, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := enc(&buf, twoRows()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	pngData := encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"png", "albedo.png", pngData},
		{"png with wrong extension", "albedo.tga", pngData},
		{"bmp", "albedo.bmp", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) })},
		{"tga by extension", "albedo.TGA", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return tga.Encode(b, m) })},
		{"jpeg", "albedo.jpg", encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return jpeg.Encode(b, m, nil) })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(bytes.NewReader(tt.data), tt.file)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
				t.Errorf("bounds = %v, want 2x2", b)
			}
		})
	}
}

func TestDecodeUnsupported(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"unknown extension", "notes.txt"},
		{"no extension", "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader("plain text, not pixels"), tt.file)
			if !errors.Is(err, ErrUnsupportedImage) {
				t.Errorf("expected ErrUnsupportedImage, got %v", err)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	data := encodeWith(t, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile(path); err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestToRGBAFlipsRows(t *testing.T) {
	rgba := toRGBA(twoRows())
	// First row in memory is the bottom (blue) row.
	if got := rgba.Pix[0:4]; !bytes.Equal(got, []byte{0, 0, 255, 255}) {
		t.Errorf("first pixel = %v, want blue", got)
	}
	if got := rgba.Pix[rgba.Stride : rgba.Stride+4]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("second row = %v, want red", got)
	}
}
