// Package formats provides decoders that turn 3D model files into scene graphs.
//
// Supported formats are Wavefront OBJ (with MTL material libraries) and
// glTF 2.0 in both its JSON (.gltf) and binary (.glb) containers.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/Faultbox/ember/pkg/scene"
)

// ErrUnsupportedFormat is returned for files no decoder understands.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Format identifies a model file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatOBJ
	FormatGLTF
	FormatGLB
)

// String returns the canonical file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatGLTF:
		return "gltf"
	case FormatGLB:
		return "glb"
	default:
		return "unknown"
	}
}

var glbType = filetype.NewType("glb", "model/gltf-binary")

func init() {
	filetype.AddMatcher(glbType, func(buf []byte) bool {
		return len(buf) >= 4 && string(buf[:4]) == "glTF"
	})
}

// Detect determines the format of the file at path, first by extension and
// then by sniffing its header.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return FormatOBJ, nil
	case ".gltf":
		return FormatGLTF, nil
	case ".glb":
		return FormatGLB, nil
	}

	kind, err := filetype.MatchFile(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("sniffing %s: %w", path, err)
	}
	if kind == glbType {
		return FormatGLB, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Extensions lists the file extensions Open accepts.
func Extensions() []string {
	return []string{"obj", "gltf", "glb"}
}

// Open decodes the model file at path into a scene graph.
// The returned scene has not been post-processed; see scene.Process.
func Open(path string) (*scene.Scene, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatOBJ:
		return ParseOBJFile(path)
	case FormatGLTF, FormatGLB:
		return ParseGLTFFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
