package debug

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Faultbox/ember/internal/engine/framebuffer"
)

// ScreenshotCapture writes timestamped PNG files to a directory.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	now       func() time.Time
	encoder   png.Encoder
}

// NewScreenshotCapture returns a capture writing <prefix>_<timestamp>.png
// files to outputDir, or the working directory when it is empty.
func NewScreenshotCapture(outputDir, prefix string) *ScreenshotCapture {
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
		encoder:   png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// CaptureTarget reads the color attachment of t and saves it.
func (sc *ScreenshotCapture) CaptureTarget(t *framebuffer.Target) (string, error) {
	pixels, err := t.ReadPixels()
	if err != nil {
		return "", fmt.Errorf("reading %s target: %w", t.Kind(), err)
	}
	w, h := t.Size()
	return sc.CaptureFromImage(&image.RGBA{
		Pix:    pixels,
		Stride: int(w) * 4,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	})
}

// CaptureFromImage saves img and returns the file name. Captures within the
// same millisecond get a numeric suffix instead of overwriting each other.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, name, err := sc.create()
	if err != nil {
		return "", err
	}
	if err := sc.encoder.Encode(file, img); err != nil {
		file.Close()
		os.Remove(name)
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return name, nil
}

func (sc *ScreenshotCapture) create() (*os.File, string, error) {
	base := sc.GenerateFilename()
	name := base
	for i := 1; ; i++ {
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) || i > 99 {
			return nil, "", fmt.Errorf("creating file: %w", err)
		}
		name = fmt.Sprintf("%s-%d.png", base[:len(base)-len(".png")], i)
	}
}

// GenerateFilename returns the name the next capture would get if no file
// with that name exists.
func (sc *ScreenshotCapture) GenerateFilename() string {
	name := fmt.Sprintf("%s_%s.png", sc.prefix, sc.now().Format("2006-01-02_15-04-05.000"))
	return filepath.Join(sc.outputDir, name)
}
