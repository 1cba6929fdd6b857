// Package shader compiles GLSL programs and wraps them with a uniform cache.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// CompileError carries the driver's info log for a failed stage or link.
type CompileError struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, strings.TrimRight(e.Log, "\x00\n"))
}

type stage struct {
	name   string
	typ    uint32
	source string
}

// CompileProgram compiles the vertex and fragment sources and links them.
// It calls the driver directly and needs a current context. Shader objects
// are deleted before returning in every case.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	stages := []stage{
		{"vertex", gl.VERTEX_SHADER, vertexSrc},
		{"fragment", gl.FRAGMENT_SHADER, fragmentSrc},
	}

	compiled := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range compiled {
			gl.DeleteShader(s)
		}
	}()
	for _, st := range stages {
		id, err := compileStage(st)
		if err != nil {
			return 0, err
		}
		compiled = append(compiled, id)
	}

	program := gl.CreateProgram()
	for _, s := range compiled {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range compiled {
		gl.DetachShader(program, s)
	}

	if !status(program, gl.LINK_STATUS, gl.GetProgramiv) {
		log := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, &CompileError{Stage: "link", Log: log}
	}
	return program, nil
}

func compileStage(st stage) (uint32, error) {
	id := gl.CreateShader(st.typ)
	src, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(id, 1, src, nil)
	free()
	gl.CompileShader(id)

	if !status(id, gl.COMPILE_STATUS, gl.GetShaderiv) {
		log := infoLog(id, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(id)
		return 0, &CompileError{Stage: st.name, Log: log}
	}
	return id, nil
}

func status(id, pname uint32, get func(uint32, uint32, *int32)) bool {
	var v int32
	get(id, pname, &v)
	return v != gl.FALSE
}

func infoLog(id uint32, get func(uint32, uint32, *int32), read func(uint32, int32, *int32, *uint8)) string {
	var n int32
	get(id, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return "no log"
	}
	buf := make([]byte, n)
	read(id, n, nil, &buf[0])
	return string(buf)
}
