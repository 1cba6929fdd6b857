// Package importer turns model files into engine-native mesh and material
// records.
//
// A file is decoded into a neutral scene graph (pkg/formats), triangulated
// (pkg/scene) and then flattened: every scene material becomes a
// model.Material, every scene mesh a model.Mesh, both in file order, so the
// material index stored on a mesh stays valid in the result.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/logger"
	"github.com/Faultbox/ember/pkg/formats"
	"github.com/Faultbox/ember/pkg/scene"
)

var (
	// ErrIncompleteScene is returned when the decoded scene failed validation.
	ErrIncompleteScene = errors.New("scene is incomplete")
	// ErrNoRootNode is returned when the decoded scene has no root node.
	ErrNoRootNode = errors.New("scene has no root node")
)

// ImportError reports a failed LoadModel call.
type ImportError struct {
	Path    string
	Message string // human-readable reason from the decoder
	Err     error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %s", e.Path, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Options controls optional post-processing. Both steps are off by default
// so normals and tangents from the source file are kept as they are.
type Options struct {
	// GenNormals computes smooth normals for meshes that have none.
	GenNormals bool
	// CalcTangentSpace computes tangents and bitangents for meshes with
	// normals and texture coordinates.
	CalcTangentSpace bool
	// Logger receives progress messages. Defaults to logger.Named("importer").
	Logger *zap.Logger
}

// Importer loads model files. It holds no per-file state and may be reused.
type Importer struct {
	steps scene.PostProcess
	log   *zap.Logger
}

// New returns an importer with the given options.
func New(opts Options) *Importer {
	steps := scene.Triangulate
	if opts.GenNormals {
		steps |= scene.GenNormals
	}
	if opts.CalcTangentSpace {
		steps |= scene.CalcTangentSpace
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("importer")
	}
	return &Importer{steps: steps, log: log}
}

// LoadModel imports the model at path.
//
// On failure the result is empty (never partially filled) and the error is
// an *ImportError; errors.Is identifies ErrIncompleteScene, ErrNoRootNode,
// formats.ErrUnsupportedFormat and os errors.
//
// A complete scene without meshes is not a failure: LoadModel logs a warning
// and returns an empty model with a nil error. Callers that need geometry
// must check len(info.Meshes) themselves.
func (im *Importer) LoadModel(path string) (*model.LoadedModelInfo, error) {
	info := &model.LoadedModelInfo{}

	im.log.Info("loading model", zap.String("path", path))
	s, err := formats.Open(path)
	if err != nil {
		return info, im.fail(path, err.Error(), err)
	}

	scene.Process(s, im.steps)
	for _, w := range s.Warnings {
		im.log.Warn("import warning", zap.String("path", path), zap.String("warning", w))
	}
	if s.Incomplete() {
		msg := ErrIncompleteScene.Error()
		if len(s.Warnings) > 0 {
			msg = s.Warnings[len(s.Warnings)-1]
		}
		return info, im.fail(path, msg, ErrIncompleteScene)
	}
	if s.Root == nil {
		return info, im.fail(path, ErrNoRootNode.Error(), ErrNoRootNode)
	}

	dir := ImportDir(path)

	if s.HasMaterials() {
		n := len(s.Materials)
		for i, src := range s.Materials {
			mat := loadMaterial(src, dir)
			info.Materials = append(info.Materials, mat)
			im.log.Debug("material imported",
				zap.Int("index", i),
				zap.Int("count", n),
				zap.String("name", mat.Name),
				zap.Int("textures", len(mat.TextureRefs())),
			)
		}
	}

	if s.HasMeshes() {
		n := len(s.Meshes)
		for i, src := range s.Meshes {
			mesh := loadMesh(src)
			info.Meshes = append(info.Meshes, mesh)
			im.log.Debug("mesh imported",
				zap.Int("index", i),
				zap.Int("count", n),
				zap.String("name", mesh.Name),
				zap.Int("vertices", len(mesh.Vertices())),
				zap.Int("triangles", mesh.TriangleCount()),
			)
		}
	} else {
		im.log.Warn("model has no meshes", zap.String("path", path))
	}

	im.log.Info("model imported",
		zap.String("path", path),
		zap.Int("meshes", len(info.Meshes)),
		zap.Int("materials", len(info.Materials)),
	)
	return info, nil
}

func (im *Importer) fail(path, msg string, err error) error {
	im.log.Error("failed to load model", zap.String("path", path), zap.String("reason", msg))
	return &ImportError{Path: path, Message: msg, Err: err}
}

// ImportDir returns path up to and including its last '/' or '\', or "" if
// path has no separator. Texture paths in a model file are relative to it.
func ImportDir(path string) string {
	return path[:strings.LastIndexAny(path, `/\`)+1]
}

// loadMesh flattens one triangulated scene mesh. Attributes the source lacks
// stay zero; tangents and bitangents are only copied together.
func loadMesh(src *scene.Mesh) *model.Mesh {
	n := src.NumVertices()
	hasPos := src.HasPositions()
	hasNormals := src.HasNormals()
	hasTangents := src.HasTangentsAndBitangents()
	hasUV := src.HasTextureCoords(0)

	vertices := make([]model.VertexInfo, n)
	for i := range vertices {
		v := &vertices[i]
		if hasPos {
			v.Position = mgl32.Vec3(src.Positions[i])
		}
		if hasNormals {
			v.Normal = mgl32.Vec3(src.Normals[i])
		}
		if hasTangents {
			v.Tangent = mgl32.Vec3(src.Tangents[i])
			v.Bitangent = mgl32.Vec3(src.Bitangents[i])
		}
		if hasUV {
			v.TexCoords = mgl32.Vec2(src.TexCoords[0][i])
		}
	}

	var indices []uint32
	for _, f := range src.Faces {
		indices = append(indices, f.Indices...)
	}

	matIdx := src.MaterialIndex
	if matIdx < 0 {
		matIdx = model.NoMaterial
	}

	mesh := model.NewMesh(src.Name, vertices, indices, matIdx)
	mesh.UpdateBounds()
	return mesh
}

// importedRoles lists the scene texture roles that are imported, in scan
// order.
var importedRoles = [...]scene.TextureRole{
	scene.RoleDiffuse,
	scene.RoleNormals,
	scene.RoleSpecular,
	scene.RoleHeight,
}

// textureType maps an imported scene role to its engine texture type.
func textureType(role scene.TextureRole) (model.TextureType, bool) {
	switch role {
	case scene.RoleDiffuse:
		return model.DiffuseMap, true
	case scene.RoleNormals:
		return model.NormalMap, true
	case scene.RoleSpecular:
		return model.SpecularMap, true
	case scene.RoleHeight:
		return model.HeightMap, true
	default:
		return 0, false
	}
}

// loadMaterial copies the material name and collects a texture reference for
// every slot of every imported role, prefixing dir to the raw path.
func loadMaterial(src *scene.Material, dir string) *model.Material {
	mat := model.NewMaterial(src.Name)
	for _, role := range importedRoles {
		typ, ok := textureType(role)
		if !ok {
			continue
		}
		for i := 0; i < src.TextureCount(role); i++ {
			raw, ok := src.Texture(role, i)
			if !ok {
				continue
			}
			mat.AddTextureRef(model.TextureRef{Path: dir + raw, Type: typ})
		}
	}
	return mat
}
