package viewer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/ember/internal/config"
	"github.com/Faultbox/ember/internal/engine/gfx/gfxtest"
	"github.com/Faultbox/ember/internal/engine/input"
	"github.com/Faultbox/ember/internal/engine/renderer"
	"github.com/Faultbox/ember/internal/engine/shader"
)

const triangleOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

const wideOBJ = `v -4 0 0
v 4 0 0
v 0 2 0
f 1 2 3
`

func writeModel(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestViewer(t *testing.T) (*Viewer, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.New()
	cfg := config.Default()
	cfg.Assets.ScreenshotDir = t.TempDir()

	programs := renderer.Programs{
		Model: shader.NewProgram(dev, dev.AddProgram(), "model"),
		Depth: shader.NewProgram(dev, dev.AddProgram(), "depth"),
		Lines: shader.NewProgram(dev, dev.AddProgram(), "lines"),
	}
	v, err := newViewer(cfg, dev, programs, func() (int32, int32) { return 800, 600 })
	if err != nil {
		t.Fatalf("newViewer: %v", err)
	}
	t.Cleanup(func() {
		if err := v.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return v, dev
}

func TestOpenFitsCamera(t *testing.T) {
	v, _ := newTestViewer(t)
	var titles []string
	v.setTitle = func(s string) { titles = append(titles, s) }

	path := writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)
	if err := v.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v.Model() == nil {
		t.Fatal("expected a displayed model")
	}
	want := mgl32.Vec3{0.5, 0.5, 0}
	if !v.camera.Center.ApproxEqual(want) {
		t.Errorf("camera center = %v, want %v", v.camera.Center, want)
	}
	if len(titles) != 1 || !strings.Contains(titles[0], "tri.obj") || !strings.Contains(titles[0], "1 triangles") {
		t.Errorf("titles = %q", titles)
	}
}

func TestOpenFailureKeepsModel(t *testing.T) {
	v, _ := newTestViewer(t)
	dir := t.TempDir()

	if err := v.Open(writeModel(t, dir, "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}
	before := v.Model()

	if err := v.Open(filepath.Join(dir, "missing.obj")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if v.Model() != before {
		t.Error("failed open replaced the displayed model")
	}
}

func TestOpenSwitchUnloadsPrevious(t *testing.T) {
	v, dev := newTestViewer(t)
	dir := t.TempDir()
	first := writeModel(t, dir, "tri.obj", triangleOBJ)
	second := writeModel(t, dir, "wide.obj", wideOBJ)

	if err := v.Open(first); err != nil {
		t.Fatal(err)
	}
	vaos := dev.Live(gfxtest.KindVertexArray)

	if err := v.Open(second); err != nil {
		t.Fatal(err)
	}
	if _, ok := v.assets.Get(first); ok {
		t.Error("previous model still cached")
	}
	if got := dev.Live(gfxtest.KindVertexArray); got != vaos {
		t.Errorf("live VAOs = %d, want %d", got, vaos)
	}
	if v.camera.Distance <= 5 {
		t.Errorf("camera did not back off for the wider model: distance %v", v.camera.Distance)
	}
}

func TestFrameDrawsModel(t *testing.T) {
	v, dev := newTestViewer(t)
	if err := v.Open(writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}

	dev.ResetCalls()
	if err := v.frame(); err != nil {
		t.Fatalf("frame: %v", err)
	}
	// shadow pass + color pass
	if len(dev.DrawCalls) != 2 {
		t.Fatalf("draw calls = %d, want 2", len(dev.DrawCalls))
	}
	if dev.BoundFramebuffer != 0 {
		t.Errorf("frame left framebuffer %d bound", dev.BoundFramebuffer)
	}

	v.showBounds = true
	dev.ResetCalls()
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	last := dev.DrawCalls[len(dev.DrawCalls)-1]
	if last.Mode != gl.LINES || last.Count != 24 {
		t.Errorf("bounds draw = %+v, want 24 lines vertices", last)
	}
}

func TestFrameWithoutModel(t *testing.T) {
	v, dev := newTestViewer(t)
	dev.ResetCalls()
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	if len(dev.DrawCalls) != 0 {
		t.Errorf("draw calls = %d, want 0", len(dev.DrawCalls))
	}
	if dev.Count("Clear") != 1 {
		t.Errorf("Clear calls = %d, want 1", dev.Count("Clear"))
	}
}

func TestHeadlight(t *testing.T) {
	v, dev := newTestViewer(t)
	if err := v.Open(writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}

	v.handleEvent(input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_L})
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	if n, ok := dev.UniformInt("pointLightCount"); !ok || n != 1 {
		t.Errorf("pointLightCount = %d (%v), want 1", n, ok)
	}

	v.handleEvent(input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_L})
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	if n, _ := dev.UniformInt("pointLightCount"); n != 0 {
		t.Errorf("pointLightCount = %d after toggle, want 0", n)
	}
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  input.Event
		verify func(*testing.T, *Viewer)
	}{
		{
			name:  "quit",
			event: input.Event{Type: input.EventQuit},
			verify: func(t *testing.T, v *Viewer) {
				if v.running {
					t.Error("expected viewer to stop")
				}
			},
		},
		{
			name:  "escape",
			event: input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_ESCAPE},
			verify: func(t *testing.T, v *Viewer) {
				if v.running {
					t.Error("expected viewer to stop")
				}
			},
		},
		{
			name:  "wheel zooms in",
			event: input.Event{Type: input.EventMouseWheel, DeltaY: 1},
			verify: func(t *testing.T, v *Viewer) {
				if v.camera.Distance >= 5 {
					t.Errorf("distance = %v, want < 5", v.camera.Distance)
				}
			},
		},
		{
			name:  "left drag orbits",
			event: input.Event{Type: input.EventMouseMove, DeltaX: 100, Buttons: buttonLeft},
			verify: func(t *testing.T, v *Viewer) {
				if v.camera.Yaw == 0 {
					t.Error("expected yaw to change")
				}
				if v.camera.Center != (mgl32.Vec3{}) {
					t.Error("orbit moved the center")
				}
			},
		},
		{
			name:  "right drag pans",
			event: input.Event{Type: input.EventMouseMove, DeltaX: 100, Buttons: buttonRight},
			verify: func(t *testing.T, v *Viewer) {
				if v.camera.Center == (mgl32.Vec3{}) {
					t.Error("expected center to move")
				}
				if v.camera.Yaw != 0 {
					t.Error("pan changed yaw")
				}
			},
		},
		{
			name:  "motion without buttons",
			event: input.Event{Type: input.EventMouseMove, DeltaX: 100},
			verify: func(t *testing.T, v *Viewer) {
				if v.camera.Yaw != 0 || v.camera.Center != (mgl32.Vec3{}) {
					t.Error("hover moved the camera")
				}
			},
		},
		{
			name:  "toggle bounds",
			event: input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_B},
			verify: func(t *testing.T, v *Viewer) {
				if !v.showBounds {
					t.Error("expected bounds to be visible")
				}
			},
		},
		{
			name:  "screenshot key",
			event: input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_F12},
			verify: func(t *testing.T, v *Viewer) {
				if !v.wantShot {
					t.Error("expected a pending screenshot")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestViewer(t)
			v.running = true
			v.handleEvent(tt.event)
			tt.verify(t, v)
		})
	}
}

func TestFileDrop(t *testing.T) {
	v, _ := newTestViewer(t)
	path := writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)

	v.handleEvent(input.Event{Type: input.EventFileDrop, Path: path})
	if v.Model() == nil {
		t.Fatal("dropped file was not opened")
	}
}

func TestDialogPick(t *testing.T) {
	v, _ := newTestViewer(t)
	v.picks <- writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)

	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	if v.Model() == nil {
		t.Fatal("picked file was not opened")
	}
}

func TestResize(t *testing.T) {
	v, _ := newTestViewer(t)
	v.drawableSize = func() (int32, int32) { return 1280, 640 }

	v.handleEvent(input.Event{Type: input.EventWindowResize, Width: 640, Height: 320})
	if got := v.renderer.Aspect(); got != 2 {
		t.Errorf("aspect = %v, want 2", got)
	}
}

func TestScreenshot(t *testing.T) {
	v, dev := newTestViewer(t)
	if err := v.Open(writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}
	dev.ReadPixelsFill = 200

	v.handleEvent(input.Event{Type: input.EventKeyDown, Key: sdl.SCANCODE_F12})
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	if v.wantShot {
		t.Error("screenshot still pending after frame")
	}

	files, err := filepath.Glob(filepath.Join(v.cfg.Assets.ScreenshotDir, "ember_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("screenshots = %v, want 1", files)
	}
	if n := dev.Live(gfxtest.KindFramebuffer); n != 1 {
		// only the shadow map target remains
		t.Errorf("live framebuffers = %d, want 1", n)
	}
	if dev.BoundFramebuffer != 0 {
		t.Errorf("screenshot left framebuffer %d bound", dev.BoundFramebuffer)
	}
}

func TestClickSelectsMesh(t *testing.T) {
	v, dev := newTestViewer(t)
	if err := v.Open(writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}

	click := func(x, y int) {
		v.handleEvent(input.Event{Type: input.EventMouseDown, Button: sdl.BUTTON_LEFT, MouseX: x, MouseY: y})
		v.handleEvent(input.Event{Type: input.EventMouseUp, Button: sdl.BUTTON_LEFT, MouseX: x, MouseY: y})
	}

	click(400, 300)
	if v.Selected() == nil {
		t.Fatal("click on the model selected nothing")
	}

	dev.ResetCalls()
	if err := v.frame(); err != nil {
		t.Fatal(err)
	}
	last := dev.DrawCalls[len(dev.DrawCalls)-1]
	if last.Mode != gl.LINES {
		t.Errorf("selection outline not drawn, last draw %+v", last)
	}

	click(0, 0)
	if v.Selected() != nil {
		t.Error("click on empty space kept the selection")
	}
}

func TestDragDoesNotSelect(t *testing.T) {
	v, _ := newTestViewer(t)
	if err := v.Open(writeModel(t, t.TempDir(), "tri.obj", triangleOBJ)); err != nil {
		t.Fatal(err)
	}

	v.handleEvent(input.Event{Type: input.EventMouseDown, Button: sdl.BUTTON_LEFT, MouseX: 100, MouseY: 300})
	v.handleEvent(input.Event{Type: input.EventMouseUp, Button: sdl.BUTTON_LEFT, MouseX: 400, MouseY: 300})
	if v.Selected() != nil {
		t.Error("drag selected a mesh")
	}
}
