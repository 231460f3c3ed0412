package opengl

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"pst-renderer/glctx"
)

func init() {
	// GL and glfw calls must stay on the main thread.
	runtime.LockOSThread()
}

// Window is a glfw window with an OpenGL 4.1 core context. It implements
// glctx.Surface and glctx.LossSimulator.
type Window struct {
	Handle *glfw.Window
	Title  string

	backend  *Backend
	listener glctx.LossListener

	lost      bool
	prevented bool
}

var (
	_ glctx.Surface       = (*Window)(nil)
	_ glctx.LossSimulator = (*Window)(nil)
)

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:     1280,
		Height:    720,
		Title:     "pst",
		Resizable: true,
		VSync:     true,
	}
}

// NewWindow opens a window and makes its context current on the calling
// thread.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	glfw.SwapInterval(boolToInt(config.VSync))

	return &Window{Handle: handle, Title: config.Title}, nil
}

// GL returns the window's context, loading the GL entry points on first use.
func (w *Window) GL() (glctx.GL, error) {
	if w.lost {
		return nil, errors.New("opengl: context is lost")
	}
	if w.backend == nil {
		b, err := NewBackend()
		if err != nil {
			return nil, err
		}
		w.backend = b
	}
	return w.backend, nil
}

// GLVersion returns the driver's version string, or "" before GL is loaded.
func (w *Window) GLVersion() string {
	if w.backend == nil {
		return ""
	}
	return w.backend.Version()
}

// Size returns the framebuffer size in pixels, which differs from the
// window size on high-DPI displays.
func (w *Window) Size() (int, int) {
	return w.Handle.GetFramebufferSize()
}

func (w *Window) SubscribeContextLoss(l glctx.LossListener) func() {
	w.listener = l
	return func() {
		if w.listener == l {
			w.listener = nil
		}
	}
}

// LoseContext simulates a context loss. The GL objects stay allocated until
// the listener restores and the backend discards them.
func (w *Window) LoseContext() {
	if w.lost {
		return
	}
	w.lost = true
	w.prevented = w.listener != nil && w.listener.ContextLost()
}

// RestoreContext ends a simulated loss.
func (w *Window) RestoreContext() {
	if !w.lost {
		return
	}
	w.lost = false
	if w.prevented && w.listener != nil {
		w.listener.ContextRestored()
	}
	w.prevented = false
}

func (w *Window) Lost() bool { return w.lost }

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key glfw.Key) bool {
	return w.Handle.GetKey(key) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

func (w *Window) IsMouseButtonPressed(button glfw.MouseButton) bool {
	return w.Handle.GetMouseButton(button) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

// ScrollCallback is the type for scroll event handlers
type ScrollCallback func(xoff, yoff float64)

func (w *Window) SetScrollCallback(cb ScrollCallback) {
	w.Handle.SetScrollCallback(func(win *glfw.Window, xoff, yoff float64) {
		cb(xoff, yoff)
	})
}

// KeyCallback receives key presses, ignoring repeats and releases.
type KeyCallback func(key glfw.Key, mods glfw.ModifierKey)

func (w *Window) SetKeyCallback(cb KeyCallback) {
	w.Handle.SetKeyCallback(func(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			cb(key, mods)
		}
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
