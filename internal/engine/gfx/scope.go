package gfx

import (
	"errors"

	"go.uber.org/multierr"
)

// ErrScopeClosed is returned by Add after Close.
var ErrScopeClosed = errors.New("gfx: scope already closed")

// Releaser is a GPU-owning value that can give its handles back to the driver.
type Releaser interface {
	Release() error
}

// ReleaseFunc adapts a plain function to Releaser.
type ReleaseFunc func() error

// Release calls f.
func (f ReleaseFunc) Release() error {
	return f()
}

// Scope collects GPU resources and releases them together, in reverse order
// of registration. Typical use:
//
//	scope := gfx.NewScope()
//	defer scope.Close()
//	scope.Add(mesh)
type Scope struct {
	items  []Releaser
	closed bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers r for release. Adding to a closed scope releases r
// immediately and returns ErrScopeClosed combined with any release error.
func (s *Scope) Add(r Releaser) error {
	if s.closed {
		return multierr.Append(ErrScopeClosed, r.Release())
	}
	s.items = append(s.items, r)
	return nil
}

// Len returns the number of resources awaiting release.
func (s *Scope) Len() int {
	return len(s.items)
}

// Close releases every registered resource, last added first. All releases
// are attempted; their errors are combined. Close is idempotent.
func (s *Scope) Close() error {
	var err error
	for i := len(s.items) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.items[i].Release())
	}
	s.items = nil
	s.closed = true
	return err
}
