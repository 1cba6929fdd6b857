package shader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/gfx/gfxtest"
)

func TestProgramUniforms(t *testing.T) {
	dev := gfxtest.New()
	id := dev.AddProgram()
	p := NewProgram(dev, id, "test")

	p.Use()
	if dev.CurrentProgram != id {
		t.Fatalf("current program = %d, want %d", dev.CurrentProgram, id)
	}

	p.SetInt("albedoMap", 3)
	p.SetInt("albedoMap", 4)
	p.SetFloat("exposure", 1.5)
	p.SetVec3("lightDir", mgl32.Vec3{0, -1, 0})
	m := mgl32.Translate3D(1, 2, 3)
	p.SetMat4("model", m)

	if n := dev.Count("GetUniformLocation"); n != 4 {
		t.Errorf("expected 4 location lookups (cached), got %d", n)
	}
	if v, ok := dev.UniformInt("albedoMap"); !ok || v != 4 {
		t.Errorf("albedoMap = %d, %v", v, ok)
	}

	last := dev.Uniforms[len(dev.Uniforms)-1]
	if last.Name != "model" || last.Value != [16]float32(m) {
		t.Errorf("model uniform = %+v", last)
	}
}

func TestProgramInactiveUniform(t *testing.T) {
	dev := gfxtest.New()
	p := NewProgram(dev, dev.AddProgram(), "test")

	p.SetInt("missingSampler", 1)
	p.SetInt("missingSampler", 2)
	if len(dev.Uniforms) != 0 {
		t.Errorf("inactive uniform was set: %v", dev.Uniforms)
	}
	if dev.Count("GetUniformLocation") != 1 {
		t.Error("inactive location should be cached")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLocation should panic for an inactive uniform")
		}
	}()
	p.MustLocation("missingSampler")
}

func TestProgramRelease(t *testing.T) {
	dev := gfxtest.New()
	p := NewProgram(dev, dev.AddProgram(), "test")

	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
	if dev.Live(gfxtest.KindProgram) != 0 {
		t.Error("program not deleted")
	}
	if err := p.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release = %v", err)
	}
}

func TestCompileError(t *testing.T) {
	err := error(&CompileError{Stage: "fragment", Log: "0:12: 'vec5' : undeclared identifier\n\x00"})
	if got, want := err.Error(), "fragment: 0:12: 'vec5' : undeclared identifier"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("building model program: %w", err)
	var ce *CompileError
	if !errors.As(wrapped, &ce) || ce.Stage != "fragment" {
		t.Errorf("errors.As failed on %v", wrapped)
	}
}
