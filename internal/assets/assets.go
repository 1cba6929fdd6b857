// Package assets keeps imported models resident on the GPU and reloads them
// when their files change on disk.
package assets

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/importer"
	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/engine/texture"
	"github.com/Faultbox/ember/internal/logger"
)

// Entry is a model loaded through the manager. ID stays the same across
// reloads; Generation counts them.
type Entry struct {
	ID         uuid.UUID
	Path       string
	Model      *model.LoadedModelInfo
	LoadedAt   time.Time
	Generation int
}

// Options configures a Manager.
type Options struct {
	Import importer.Options
	// Watch enables hot reload of model and texture files.
	Watch  bool
	Logger *zap.Logger
}

// Manager imports models, uploads their buffers and resolves their textures.
// Load, ProcessReloads, Unload and Close issue GPU calls and must run on the
// render thread. The file watcher runs on its own goroutine and only records
// which paths changed.
type Manager struct {
	dev      gfx.Device
	importer *importer.Importer
	textures *texture.Loader
	cache    *Cache
	log      *zap.Logger

	watcher *fsnotify.Watcher
	watched map[string]bool // directories
	wg      sync.WaitGroup

	mu    sync.Mutex
	dirty map[string]bool
}

// NewManager creates a manager drawing textures from textures.
func NewManager(dev gfx.Device, textures *texture.Loader, opts Options) (*Manager, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Named("assets")
	}
	if opts.Import.Logger == nil {
		opts.Import.Logger = log.Named("importer")
	}

	m := &Manager{
		dev:      dev,
		importer: importer.New(opts.Import),
		textures: textures,
		cache:    NewCache(),
		log:      log,
		watched:  make(map[string]bool),
		dirty:    make(map[string]bool),
	}

	if opts.Watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("creating file watcher: %w", err)
		}
		m.watcher = w
		m.wg.Add(1)
		go m.watch()
	}
	return m, nil
}

// Load returns the entry for path, importing it on first use.
func (m *Manager) Load(path string) (*Entry, error) {
	key := cleanPath(path)
	if e, ok := m.cache.Get(key); ok {
		return e, nil
	}

	info, err := m.upload(path)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:       uuid.New(),
		Path:     key,
		Model:    info,
		LoadedAt: time.Now(),
	}
	m.cache.Set(key, e)
	m.watchEntry(e)

	m.log.Info("model loaded",
		zap.String("path", key),
		zap.Stringer("id", e.ID),
		zap.Int("meshes", len(info.Meshes)),
		zap.Int("materials", len(info.Materials)),
		zap.Int("triangles", info.TriangleCount()),
	)
	return e, nil
}

// upload imports path, creates its GPU buffers and resolves its textures.
// Texture failures are logged; they never fail the load.
func (m *Manager) upload(path string) (*model.LoadedModelInfo, error) {
	info, err := m.importer.LoadModel(path)
	if err != nil {
		return nil, err
	}
	if err := info.CreateBuffers(m.dev); err != nil {
		return nil, multierr.Append(fmt.Errorf("uploading %s: %w", path, err), info.Release())
	}
	if err := m.textures.ResolveModel(info); err != nil {
		m.log.Warn("model has missing textures", zap.String("path", path), zap.Error(err))
	}
	return info, nil
}

// Get returns the cached entry for path without loading it.
func (m *Manager) Get(path string) (*Entry, bool) {
	return m.cache.Peek(cleanPath(path))
}

// Unload releases the model at path and drops it from the cache.
func (m *Manager) Unload(path string) error {
	key := cleanPath(path)
	e, ok := m.cache.Peek(key)
	if !ok {
		return nil
	}
	m.cache.Delete(key)
	return e.Model.Release()
}

// MarkDirty schedules path for reload by the next ProcessReloads.
func (m *Manager) MarkDirty(path string) {
	m.mu.Lock()
	m.dirty[cleanPath(path)] = true
	m.mu.Unlock()
}

// Pending returns how many paths are waiting for ProcessReloads.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirty)
}

func (m *Manager) takeDirty() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.dirty
	m.dirty = make(map[string]bool)
	return d
}

// ProcessReloads re-imports every changed model and reloads every changed
// texture, returning the entries that were updated. A model that fails to
// re-import keeps its previous version.
func (m *Manager) ProcessReloads() []*Entry {
	var updated []*Entry
	for path := range m.takeDirty() {
		if e, ok := m.cache.Peek(path); ok {
			if m.reloadModel(e) {
				updated = append(updated, e)
			}
			continue
		}
		updated = append(updated, m.reloadTexture(path)...)
	}
	return updated
}

func (m *Manager) reloadModel(e *Entry) bool {
	info, err := m.upload(e.Path)
	if err != nil {
		m.log.Error("reload failed, keeping previous version", zap.String("path", e.Path), zap.Error(err))
		return false
	}
	if err := e.Model.Release(); err != nil {
		m.log.Warn("releasing previous version", zap.String("path", e.Path), zap.Error(err))
	}
	e.Model = info
	e.LoadedAt = time.Now()
	e.Generation++
	m.watchEntry(e)

	m.log.Info("model reloaded", zap.String("path", e.Path), zap.Int("generation", e.Generation))
	return true
}

// reloadTexture evicts path from the texture cache and re-resolves every
// model referencing it.
func (m *Manager) reloadTexture(path string) []*Entry {
	var updated []*Entry
	evicted := make(map[string]bool)
	for _, e := range m.cache.Entries() {
		uses := false
		for _, mat := range e.Model.Materials {
			for _, ref := range mat.TextureRefs() {
				if cleanPath(ref.Path) != path {
					continue
				}
				uses = true
				if !evicted[ref.Path] {
					if _, err := m.textures.Evict(ref.Path); err != nil {
						m.log.Warn("evicting texture", zap.String("path", ref.Path), zap.Error(err))
					}
					evicted[ref.Path] = true
				}
			}
		}
		if !uses {
			continue
		}
		if err := m.textures.ResolveModel(e.Model); err != nil {
			m.log.Warn("model has missing textures", zap.String("path", e.Path), zap.Error(err))
		}
		updated = append(updated, e)
	}
	if len(updated) > 0 {
		m.log.Info("texture reloaded", zap.String("path", path), zap.Int("models", len(updated)))
	}
	return updated
}

// watchEntry adds the directories of the model and its textures to the
// watcher.
func (m *Manager) watchEntry(e *Entry) {
	if m.watcher == nil {
		return
	}
	dirs := []string{filepath.Dir(e.Path)}
	for _, mat := range e.Model.Materials {
		for _, ref := range mat.TextureRefs() {
			dirs = append(dirs, filepath.Dir(cleanPath(ref.Path)))
		}
	}
	for _, dir := range dirs {
		if m.watched[dir] {
			continue
		}
		if err := m.watcher.Add(dir); err != nil {
			m.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		m.watched[dir] = true
	}
}

func (m *Manager) watch() {
	defer m.wg.Done()
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				m.log.Debug("file changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
				m.MarkDirty(ev.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Stats returns model cache hits and misses.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close stops the watcher and releases every model and texture.
func (m *Manager) Close() error {
	var errs error
	if m.watcher != nil {
		errs = multierr.Append(errs, m.watcher.Close())
		m.wg.Wait()
		m.watcher = nil
	}
	for _, e := range m.cache.Entries() {
		errs = multierr.Append(errs, e.Model.Release())
	}
	m.cache.Clear()
	errs = multierr.Append(errs, m.textures.Release())
	return errs
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
