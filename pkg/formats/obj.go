// Wavefront OBJ and MTL parser.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/ember/pkg/scene"
)

// OBJ format errors.
var (
	ErrMalformedOBJ = errors.New("malformed OBJ data")
	ErrMalformedMTL = errors.New("malformed MTL data")
)

// MaterialOpener opens a material library referenced by an OBJ file.
type MaterialOpener func(name string) (io.ReadCloser, error)

// mtlRoles maps MTL texture statements to texture roles.
var mtlRoles = map[string]scene.TextureRole{
	"map_kd":   scene.RoleDiffuse,
	"map_ks":   scene.RoleSpecular,
	"map_ka":   scene.RoleAmbient,
	"map_ke":   scene.RoleEmissive,
	"map_bump": scene.RoleHeight,
	"bump":     scene.RoleHeight,
	"norm":     scene.RoleNormals,
	"map_kn":   scene.RoleNormals,
	"disp":     scene.RoleDisplacement,
	"map_d":    scene.RoleOpacity,
	"map_ns":   scene.RoleShininess,
	"map_pr":   scene.RoleRoughness,
	"map_pm":   scene.RoleMetalness,
}

// objVertexKey identifies a unique position/uv/normal combination.
// Absent components are -1.
type objVertexKey struct {
	v, vt, vn int
}

type objMeshBuilder struct {
	mesh      *scene.Mesh
	uvs       [][2]float32
	hasUV     bool
	hasNormal bool
	verts     map[objVertexKey]uint32
}

type objParser struct {
	name    string
	openMtl MaterialOpener

	positions [][3]float32
	normals   [][3]float32
	uvs       [][2]float32

	scene     *scene.Scene
	materials map[string]int
	builders  map[string]*objMeshBuilder
	order     []*objMeshBuilder

	object   string
	material int
	current  *objMeshBuilder
	line     int
	skipped  int
}

// ParseOBJFile reads an OBJ file and the material libraries it references.
// Material libraries are resolved relative to the OBJ file's directory.
func ParseOBJFile(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	opener := func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, name))
	}
	return ParseOBJ(f, filepath.Base(path), opener)
}

// ParseOBJ decodes OBJ data. name becomes the root node name and openMtl,
// when non-nil, is used to load material libraries.
func ParseOBJ(r io.Reader, name string, openMtl MaterialOpener) (*scene.Scene, error) {
	p := &objParser{
		name:      name,
		openMtl:   openMtl,
		scene:     &scene.Scene{},
		materials: make(map[string]int),
		builders:  make(map[string]*objMeshBuilder),
		material:  scene.NoMaterial,
	}
	if err := scanLines(r, p.parseLine); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

// scanLines feeds logical lines to fn, joining backslash continuations and
// stripping comments and a leading UTF-8 byte order mark.
func scanLines(r io.Reader, fn func(lineNo int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var pending strings.Builder
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := sc.Text()
		if lineNo == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.HasSuffix(text, "\\") {
			pending.WriteString(strings.TrimSuffix(text, "\\"))
			pending.WriteByte(' ')
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(text)
			text = pending.String()
			pending.Reset()
		}
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := fn(lineNo, fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (p *objParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedOBJ, p.line, fmt.Sprintf(format, args...))
}

func (p *objParser) warnf(format string, args ...any) {
	p.scene.Warnings = append(p.scene.Warnings, fmt.Sprintf("line %d: ", p.line)+fmt.Sprintf(format, args...))
}

func (p *objParser) parseLine(lineNo int, fields []string) error {
	p.line = lineNo
	args := fields[1:]

	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return p.errorf("vertex: %v", err)
		}
		p.positions = append(p.positions, [3]float32{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return p.errorf("normal: %v", err)
		}
		p.normals = append(p.normals, [3]float32{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(args, 1)
		if err != nil {
			return p.errorf("texcoord: %v", err)
		}
		uv := [2]float32{v[0], 0}
		if len(v) > 1 {
			uv[1] = v[1]
		}
		p.uvs = append(p.uvs, uv)
	case "f":
		return p.parseFace(args)
	case "o", "g":
		p.object = strings.Join(args, " ")
		p.current = nil
	case "usemtl":
		name := strings.Join(args, " ")
		idx, ok := p.materials[name]
		if !ok {
			p.warnf("unknown material %q", name)
			idx = scene.NoMaterial
		}
		p.material = idx
		p.current = nil
	case "mtllib":
		for _, lib := range args {
			if err := p.loadMaterialLib(lib); err != nil {
				p.warnf("material library %s: %v", lib, err)
			}
		}
	case "l", "p":
		p.skipped++
	case "s", "vp", "cstype", "deg", "curv", "surf", "end", "bevel", "c_interp", "d_interp", "lod", "shadow_obj", "trace_obj":
		// Smoothing groups and free-form geometry carry no data the engine consumes.
	default:
		p.warnf("unknown statement %q", fields[0])
	}
	return nil
}

// builder returns the mesh builder for the current object/material pair,
// creating it on first use so that no empty meshes are emitted.
func (p *objParser) builder() *objMeshBuilder {
	if p.current != nil {
		return p.current
	}
	key := p.object + "\x00" + strconv.Itoa(p.material)
	b, ok := p.builders[key]
	if !ok {
		name := p.object
		if name == "" {
			name = "defaultobject"
		}
		b = &objMeshBuilder{
			mesh: &scene.Mesh{
				Name:          name,
				MaterialIndex: p.material,
			},
			verts: make(map[objVertexKey]uint32),
		}
		p.builders[key] = b
		p.order = append(p.order, b)
	}
	p.current = b
	return b
}

func (p *objParser) parseFace(args []string) error {
	if len(args) < 3 {
		p.skipped++
		return nil
	}
	b := p.builder()
	face := scene.Face{Indices: make([]uint32, 0, len(args))}
	for _, ref := range args {
		key, err := p.parseVertexRef(ref)
		if err != nil {
			return err
		}
		idx, ok := b.verts[key]
		if !ok {
			idx = uint32(len(b.mesh.Positions))
			b.verts[key] = idx
			b.mesh.Positions = append(b.mesh.Positions, p.positions[key.v])

			var uv [2]float32
			if key.vt >= 0 {
				uv = p.uvs[key.vt]
				b.hasUV = true
			}
			b.uvs = append(b.uvs, uv)

			var n [3]float32
			if key.vn >= 0 {
				n = p.normals[key.vn]
				b.hasNormal = true
			}
			b.mesh.Normals = append(b.mesh.Normals, n)
		}
		face.Indices = append(face.Indices, idx)
	}
	b.mesh.Faces = append(b.mesh.Faces, face)
	return nil
}

// parseVertexRef parses "v", "v/vt", "v//vn" or "v/vt/vn" into absolute
// zero-based indices. Negative indices count back from the last element.
func (p *objParser) parseVertexRef(ref string) (objVertexKey, error) {
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return objVertexKey{}, p.errorf("bad vertex reference %q", ref)
	}
	key := objVertexKey{v: -1, vt: -1, vn: -1}

	var err error
	if key.v, err = p.resolveIndex(parts[0], len(p.positions)); err != nil || key.v < 0 {
		return key, p.errorf("bad position index in %q", ref)
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.vt, err = p.resolveIndex(parts[1], len(p.uvs)); err != nil || key.vt < 0 {
			return key, p.errorf("bad texcoord index in %q", ref)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.vn, err = p.resolveIndex(parts[2], len(p.normals)); err != nil || key.vn < 0 {
			return key, p.errorf("bad normal index in %q", ref)
		}
	}
	return key, nil
}

func (p *objParser) resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return -1, fmt.Errorf("index %d out of range (%d)", i, count)
	}
}

func (p *objParser) loadMaterialLib(name string) error {
	if p.openMtl == nil {
		return errors.New("no material opener")
	}
	rc, err := p.openMtl(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	mats, err := ParseMTL(rc)
	if err != nil {
		return err
	}
	for _, m := range mats {
		if _, dup := p.materials[m.Name]; dup {
			p.warnf("duplicate material %q ignored", m.Name)
			continue
		}
		p.materials[m.Name] = len(p.scene.Materials)
		p.scene.Materials = append(p.scene.Materials, m)
	}
	return nil
}

func (p *objParser) finish() *scene.Scene {
	root := &scene.Node{Name: p.name}
	for _, b := range p.order {
		if len(b.mesh.Faces) == 0 {
			continue
		}
		m := b.mesh
		if b.hasUV {
			m.TexCoords = [][][2]float32{b.uvs}
		}
		if !b.hasNormal {
			m.Normals = nil
		}
		idx := len(p.scene.Meshes)
		p.scene.Meshes = append(p.scene.Meshes, m)
		root.Children = append(root.Children, &scene.Node{Name: m.Name, Meshes: []int{idx}})
	}
	if p.skipped > 0 {
		p.scene.Warnings = append(p.scene.Warnings, fmt.Sprintf("skipped %d point/line elements", p.skipped))
	}
	p.scene.Root = root
	return p.scene
}

// ParseMTL decodes a material library. Materials are returned in definition order.
func ParseMTL(r io.Reader) ([]*scene.Material, error) {
	var mats []*scene.Material
	var cur *scene.Material

	err := scanLines(r, func(lineNo int, fields []string) error {
		key := strings.ToLower(fields[0])
		if key == "newmtl" {
			if len(fields) < 2 {
				return fmt.Errorf("%w: line %d: newmtl without name", ErrMalformedMTL, lineNo)
			}
			cur = scene.NewMaterial(strings.Join(fields[1:], " "))
			mats = append(mats, cur)
			return nil
		}
		role, ok := mtlRoles[key]
		if !ok {
			// Scalar properties (Kd, Ns, illum, ...) are not imported.
			return nil
		}
		if cur == nil {
			return fmt.Errorf("%w: line %d: %s before newmtl", ErrMalformedMTL, lineNo, fields[0])
		}
		if path := textureStatementPath(fields[1:]); path != "" {
			cur.AddTexture(role, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mats, nil
}

// textureOptionArgs is the maximum argument count of each MTL texture option.
var textureOptionArgs = map[string]int{
	"-blendu":  1,
	"-blendv":  1,
	"-bm":      1,
	"-boost":   1,
	"-cc":      1,
	"-clamp":   1,
	"-imfchan": 1,
	"-texres":  1,
	"-type":    1,
	"-mm":      2,
	"-o":       3,
	"-s":       3,
	"-t":       3,
}

// textureStatementPath strips texture options and returns the file name,
// which may contain spaces.
func textureStatementPath(args []string) string {
	i := 0
	for i < len(args) {
		n, ok := textureOptionArgs[strings.ToLower(args[i])]
		if !ok {
			break
		}
		i++
		for j := 0; j < n && i < len(args)-1; j++ {
			if _, err := strconv.ParseFloat(args[i], 32); err != nil && j > 0 {
				break
			}
			i++
		}
	}
	if i >= len(args) {
		return ""
	}
	return strings.Join(args[i:], " ")
}

func parseFloats(args []string, min int) ([]float32, error) {
	if len(args) < min {
		return nil, fmt.Errorf("expected at least %d values, got %d", min, len(args))
	}
	out := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
