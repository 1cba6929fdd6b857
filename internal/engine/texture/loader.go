package texture

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/logger"
)

type cacheKey struct {
	path string
	typ  model.TextureType
}

// Loader turns texture references into GPU textures. Textures are cached by
// path and type, so materials sharing an image share one handle. A reference
// that cannot be loaded is replaced by a 1x1 fallback of its type.
//
// Loader is not safe for concurrent use; it issues GPU calls.
type Loader struct {
	dev       gfx.Device
	decode    func(path string) (image.Image, error)
	cache     map[cacheKey]*Texture
	fallbacks map[model.TextureType]*Texture
	colors    map[model.TextureType]color.RGBA
	log       *zap.Logger

	hits   int
	misses int
}

// NewLoader returns a loader reading image files from disk.
func NewLoader(dev gfx.Device) *Loader {
	return &Loader{
		dev:       dev,
		decode:    DecodeFile,
		cache:     make(map[cacheKey]*Texture),
		fallbacks: make(map[model.TextureType]*Texture),
		colors:    make(map[model.TextureType]color.RGBA),
		log:       logger.Named("texture"),
	}
}

// WithLogger replaces the loader's logger.
func (l *Loader) WithLogger(log *zap.Logger) *Loader {
	l.log = log
	return l
}

// SetFallbackColor overrides the fallback color for type t. It applies to
// fallbacks created after the call.
func (l *Loader) SetFallbackColor(t model.TextureType, c color.RGBA) {
	l.colors[t] = c
}

// Load returns the texture for ref, decoding and uploading it on first use.
func (l *Loader) Load(ref model.TextureRef) (*Texture, error) {
	key := cacheKey{path: ref.Path, typ: ref.Type}
	if tex, ok := l.cache[key]; ok {
		l.hits++
		return tex, nil
	}
	l.misses++

	img, err := l.decode(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("loading %s texture: %w", ref.Type, err)
	}
	tex, err := Upload(l.dev, img, ref.Type)
	if err != nil {
		return nil, err
	}
	tex.path = ref.Path
	l.cache[key] = tex

	w, h := tex.Size()
	l.log.Debug("texture loaded",
		zap.String("path", ref.Path),
		zap.Stringer("type", ref.Type),
		zap.Int32("width", w),
		zap.Int32("height", h),
	)
	return tex, nil
}

// Fallback returns the shared fallback texture for type t.
func (l *Loader) Fallback(t model.TextureType) (*Texture, error) {
	if tex, ok := l.fallbacks[t]; ok {
		return tex, nil
	}
	c, ok := l.colors[t]
	if !ok {
		c = FallbackColor(t)
	}
	tex, err := Solid(l.dev, c, t)
	if err != nil {
		return nil, err
	}
	l.fallbacks[t] = tex
	return tex, nil
}

// Resolve replaces the textures attached to mat with those named by its
// references. Load failures are logged, substituted with a fallback and
// returned combined; the material is usable either way.
func (l *Loader) Resolve(mat *model.Material) error {
	mat.DetachTextures()

	var errs error
	for _, ref := range mat.TextureRefs() {
		tex, err := l.Load(ref)
		if err == nil {
			mat.AttachTexture(tex)
			continue
		}
		l.log.Warn("using fallback texture",
			zap.String("material", mat.Name),
			zap.String("path", ref.Path),
			zap.Error(err),
		)
		errs = multierr.Append(errs, err)

		fb, fbErr := l.Fallback(ref.Type)
		if fbErr != nil {
			errs = multierr.Append(errs, fbErr)
			continue
		}
		mat.AttachTexture(fb)
	}
	return errs
}

// ResolveModel resolves every material of info.
func (l *Loader) ResolveModel(info *model.LoadedModelInfo) error {
	var errs error
	for _, mat := range info.Materials {
		errs = multierr.Append(errs, l.Resolve(mat))
	}
	return errs
}

// Evict releases every cached texture loaded from path and returns how many
// were dropped. Materials holding them must be resolved again.
func (l *Loader) Evict(path string) (int, error) {
	var (
		n    int
		errs error
	)
	for key, tex := range l.cache {
		if key.path != path {
			continue
		}
		errs = multierr.Append(errs, tex.Release())
		delete(l.cache, key)
		n++
	}
	return n, errs
}

// Cached reports whether a texture for path is in the cache.
func (l *Loader) Cached(path string) bool {
	for key := range l.cache {
		if key.path == path {
			return true
		}
	}
	return false
}

// Stats returns cache hits, misses and the number of cached textures.
func (l *Loader) Stats() (hits, misses, size int) {
	return l.hits, l.misses, len(l.cache)
}

// Release deletes every cached and fallback texture.
func (l *Loader) Release() error {
	var errs error
	for key, tex := range l.cache {
		errs = multierr.Append(errs, tex.Release())
		delete(l.cache, key)
	}
	for t, tex := range l.fallbacks {
		errs = multierr.Append(errs, tex.Release())
		delete(l.fallbacks, t)
	}
	return errs
}
