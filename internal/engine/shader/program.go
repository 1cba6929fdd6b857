package shader

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/logger"
)

// ErrReleased is returned when a released program is released again.
var ErrReleased = errors.New("shader program already released")

// Program is a linked shader program with a uniform location cache.
// Setters on uniforms the driver reports as inactive are ignored; each such
// name is logged once.
type Program struct {
	dev      gfx.Device
	id       uint32
	name     string
	uniforms map[string]int32
	log      *zap.Logger
	released bool
}

// NewProgram wraps an already linked program.
func NewProgram(dev gfx.Device, id uint32, name string) *Program {
	return &Program{
		dev:      dev,
		id:       id,
		name:     name,
		uniforms: make(map[string]int32),
		log:      logger.Named("shader"),
	}
}

// Build compiles and links vertexSrc and fragmentSrc on the current context.
func Build(dev gfx.Device, name, vertexSrc, fragmentSrc string) (*Program, error) {
	id, err := CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("building %s program: %w", name, err)
	}
	return NewProgram(dev, id, name), nil
}

// ID returns the program handle.
func (p *Program) ID() uint32 { return p.id }

// Use makes the program current.
func (p *Program) Use() {
	p.dev.UseProgram(p.id)
}

// Location returns the cached location of a uniform, or -1 if inactive.
func (p *Program) Location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.dev.GetUniformLocation(p.id, name)
	if loc < 0 {
		p.log.Debug("inactive uniform", zap.String("program", p.name), zap.String("uniform", name))
	}
	p.uniforms[name] = loc
	return loc
}

// MustLocation returns the location of a uniform.
// Panics if the uniform is not found or inactive.
func (p *Program) MustLocation(name string) int32 {
	loc := p.Location(name)
	if loc < 0 {
		panic(fmt.Sprintf("uniform %q not found in program %s", name, p.name))
	}
	return loc
}

// SetInt sets an int or sampler uniform.
func (p *Program) SetInt(name string, v int32) {
	if loc := p.Location(name); loc >= 0 {
		p.dev.Uniform1i(loc, v)
	}
}

// SetFloat sets a float uniform.
func (p *Program) SetFloat(name string, v float32) {
	if loc := p.Location(name); loc >= 0 {
		p.dev.Uniform1f(loc, v)
	}
}

// SetVec3 sets a vec3 uniform.
func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.Location(name); loc >= 0 {
		p.dev.Uniform3f(loc, v[0], v[1], v[2])
	}
}

// SetMat4 sets a mat4 uniform.
func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.Location(name); loc >= 0 {
		p.dev.UniformMatrix4fv(loc, (*[16]float32)(&m))
	}
}

// Release deletes the program.
func (p *Program) Release() error {
	if p.released {
		return ErrReleased
	}
	p.dev.DeleteProgram(p.id)
	p.released = true
	return nil
}
