package viewer

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/input"
)

// handleEvent applies one input event to the camera and viewer state.
func (v *Viewer) handleEvent(ev input.Event) {
	switch ev.Type {
	case input.EventQuit:
		v.running = false

	case input.EventWindowResize:
		w, h := v.drawableSize()
		v.renderer.Resize(w, h)

	case input.EventKeyDown:
		v.handleKey(ev.Key)

	case input.EventMouseMove:
		switch {
		case ev.Buttons&buttonLeft != 0:
			v.camera.HandleDrag(ev.DeltaX, ev.DeltaY)
		case ev.Buttons&(buttonMiddle|buttonRight) != 0:
			v.camera.HandlePan(ev.DeltaX, ev.DeltaY)
		}

	case input.EventMouseDown:
		if ev.Button == sdl.BUTTON_LEFT {
			v.press = [2]int{ev.MouseX, ev.MouseY}
		}

	case input.EventMouseUp:
		if ev.Button == sdl.BUTTON_LEFT && isClick(v.press, ev.MouseX, ev.MouseY) {
			v.pick(ev.MouseX, ev.MouseY)
		}

	case input.EventMouseWheel:
		v.camera.HandleZoom(ev.DeltaY)

	case input.EventFileDrop:
		_ = v.Open(ev.Path)
	}
}

// isClick reports whether the button was released within a few pixels of
// where it went down.
func isClick(press [2]int, x, y int) bool {
	dx, dy := x-press[0], y-press[1]
	return dx*dx+dy*dy <= 9
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_F:
		if m := v.Model(); m != nil {
			v.camera.FitToBounds(m.Bounds())
		}
	case sdl.SCANCODE_B:
		v.showBounds = !v.showBounds
		v.log.Debug("bounding boxes", zap.Bool("visible", v.showBounds))
	case sdl.SCANCODE_L:
		v.headlight = !v.headlight
		v.log.Debug("headlight", zap.Bool("enabled", v.headlight))
	case sdl.SCANCODE_O:
		v.openDialog()
	case sdl.SCANCODE_F11:
		if err := v.toggleFullscreen(); err != nil {
			v.log.Warn("fullscreen toggle failed", zap.Error(err))
		}
	case sdl.SCANCODE_F12:
		v.wantShot = true
	}
}
