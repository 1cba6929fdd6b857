// Package texture decodes image files and uploads them as GPU textures.
package texture

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for files no decoder recognizes.
var ErrUnsupportedImage = errors.New("unsupported image format")

// sniffLen is how many bytes filetype needs to match every image signature.
const sniffLen = 262

type decodeFunc func(io.Reader) (image.Image, error)

var decoders = map[string]decodeFunc{
	"png":  png.Decode,
	"jpg":  jpeg.Decode,
	"jpeg": jpeg.Decode,
	"gif":  gif.Decode,
	"bmp":  bmp.Decode,
	"tif":  tiff.Decode,
	"tiff": tiff.Decode,
	"webp": webp.Decode,
	"tga":  tga.Decode,
}

// Decode decodes an image. The content signature decides the decoder; name's
// extension is used for formats without one (TGA).
func Decode(r io.Reader, name string) (image.Image, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	format := ""
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		format = kind.Extension
	}
	if _, ok := decoders[format]; !ok {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	}

	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedImage)
	}
	img, err := decode(br)
	if err != nil {
		return nil, fmt.Errorf("decoding %s as %s: %w", name, format, err)
	}
	return img, nil
}

// DecodeFile opens and decodes an image file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, path)
}

// toRGBA converts img to tightly packed RGBA rows, bottom row first, the
// order glTexImage2D expects.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	stride := src.Stride
	rows := b.Dy()
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := src.Pix[top*stride : (top+1)*stride]
		c := src.Pix[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, c)
		copy(c, tmp)
	}
	return src
}
