package texture

import (
	"errors"
	"image"
	"image/color"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/model"
)

// ErrReleased is returned when a released texture is released again.
var ErrReleased = errors.New("texture already released")

// Texture is a 2D RGBA texture on the GPU.
type Texture struct {
	dev      gfx.Device
	id       uint32
	typ      model.TextureType
	path     string
	width    int32
	height   int32
	released bool
}

// ID returns the texture handle.
func (t *Texture) ID() uint32 { return t.id }

// Type returns how the texture is sampled.
func (t *Texture) Type() model.TextureType { return t.typ }

// Path returns the file the texture was loaded from, empty for generated ones.
func (t *Texture) Path() string { return t.path }

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int32) { return t.width, t.height }

// Release deletes the texture.
func (t *Texture) Release() error {
	if t.released {
		return ErrReleased
	}
	t.dev.DeleteTexture(t.id)
	t.released = true
	return nil
}

// Upload creates a mipmapped, repeating texture from img.
func Upload(dev gfx.Device, img image.Image, typ model.TextureType) (*Texture, error) {
	rgba := toRGBA(img)
	w, h := int32(rgba.Rect.Dx()), int32(rgba.Rect.Dy())

	id := dev.GenTexture()
	if id == 0 {
		return nil, &gfx.ResourceError{Op: "create texture", Resource: typ.String(), Err: gfx.ErrAllocation}
	}

	dev.BindTexture(gl.TEXTURE_2D, id)
	dev.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, gl.RGBA, gl.UNSIGNED_BYTE, rgba.Pix)
	dev.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	dev.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	dev.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	dev.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	dev.GenerateMipmap(gl.TEXTURE_2D)
	dev.BindTexture(gl.TEXTURE_2D, 0)

	return &Texture{dev: dev, id: id, typ: typ, width: w, height: h}, nil
}

// Solid creates a 1x1 texture of a single color.
func Solid(dev gfx.Device, c color.Color, typ model.TextureType) (*Texture, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return Upload(dev, img, typ)
}

// FallbackColor is the color used in place of a texture of type t that
// failed to load: a neutral value for the shading model.
func FallbackColor(t model.TextureType) color.RGBA {
	switch t {
	case model.NormalMap:
		return color.RGBA{R: 128, G: 128, B: 255, A: 255}
	case model.MetallicMap, model.HeightMap:
		return color.RGBA{A: 255}
	case model.RoughnessMap, model.AOMap:
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	case model.SpecularMap:
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	default:
		// magenta
		return color.RGBA{R: 255, B: 255, A: 255}
	}
}
