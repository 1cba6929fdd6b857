package gfx

import (
	"errors"
	"fmt"
)

// ErrAllocation is returned when the driver hands back a zero object handle.
var ErrAllocation = errors.New("GPU object allocation failed")

// ResourceError reports a failed GPU resource operation.
type ResourceError struct {
	Op       string // operation, e.g. "create buffers"
	Resource string // resource name, e.g. mesh or target name
	Err      error
}

func (e *ResourceError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("gfx: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gfx: %s %q: %v", e.Op, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
