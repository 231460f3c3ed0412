// Package glctx is a name-addressed resource and draw-state layer over a GL
// context.
//
// A Context owns every GPU object it creates and addresses them by
// caller-chosen names. Draws follow a fixed phase discipline:
//
//	c.Begin("draw").            // Inactive  -> Preparing
//		Value("pointSize", 2).
//		Pack("quad", "position").
//		Ready().                // Preparing -> Drawing
//		Triangles().
//		DrawArrays(0, 6).
//		End()                   // Drawing   -> Inactive
//
// Draw-sequence methods return the Context so they can be chained. The first
// error is kept and every later chained call does nothing until Recover is
// called; check Err after a sequence. Registry methods (Create*, Delete*,
// lookups) return their errors directly.
//
// A Context is not safe for concurrent use. All calls must come from the
// thread that drives frames.
package glctx

import (
	"errors"
	"fmt"
	"log/slog"

	"pst-renderer/core"
	"pst-renderer/shader"
)

// Context is the resource registry and draw state machine for one GL context.
type Context struct {
	gl      GL
	surface Surface
	shaders *shader.Registry

	buffers       *store
	framebuffers  *store
	renderbuffers *store
	textures      *store
	programs      map[string]*program
	extensions    map[string]bool

	phase  core.Phase
	active *program
	mode   int32

	err  error
	lost bool

	initIDs  map[string]bool
	allocIDs map[string]bool
	versions map[string]uint64

	optional  map[string][]float64
	optionalv map[string]vectorDefault

	loss   *LossManager
	cancel func()

	log *slog.Logger
}

// New returns a context that compiles programs from shaders. It has no GL
// until SetSurface is called.
func New(shaders *shader.Registry) *Context {
	c := &Context{
		shaders:       shaders,
		buffers:       newStore(core.KindBuffer),
		framebuffers:  newStore(core.KindFramebuffer),
		renderbuffers: newStore(core.KindRenderbuffer),
		textures:      newStore(core.KindTexture),
		programs:      make(map[string]*program),
		extensions:    make(map[string]bool),
		mode:          -1,
		initIDs:       make(map[string]bool),
		allocIDs:      make(map[string]bool),
		versions:      make(map[string]uint64),
		optional:      make(map[string][]float64),
		optionalv:     make(map[string]vectorDefault),
		log:           core.Logger().With("component", "glctx"),
	}
	c.loss = &LossManager{ctx: c}
	return c
}

// SetSurface attaches the context to s, acquiring its graphics context and
// subscribing to its loss notifications. Passing nil detaches the context.
func (c *Context) SetSurface(s Surface) error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.surface = nil
	c.gl = nil
	if s == nil {
		return nil
	}

	gl, err := s.GL()
	if err != nil {
		return fmt.Errorf("glctx: failed to acquire context: %w", err)
	}
	if gl == nil {
		return &core.ConfigError{Op: "glctx.SetSurface", Msg: "surface returned no GL"}
	}

	c.surface = s
	c.gl = gl
	c.lost = false
	c.cancel = s.SubscribeContextLoss(c.loss)
	c.initContext()
	return nil
}

// Surface returns the attached surface, or nil.
func (c *Context) Surface() Surface {
	return c.surface
}

// GL returns the underlying GL or ErrContextLost when no live context exists.
func (c *Context) GL() (GL, error) {
	if c.gl == nil || c.lost {
		return nil, core.ErrContextLost
	}
	return c.gl, nil
}

// Lost reports whether the context is currently lost.
func (c *Context) Lost() bool {
	return c.lost
}

// Shaders returns the registry programs are compiled from.
func (c *Context) Shaders() *shader.Registry {
	return c.shaders
}

func (c *Context) initContext() {
	c.extensions = make(map[string]bool)
	for _, name := range c.gl.Extensions() {
		c.extensions[name] = true
	}
	c.log.Debug("context initialized", "extensions", len(c.extensions))
}

// HasExtension reports whether the GL advertised name.
func (c *Context) HasExtension(name string) bool {
	return c.extensions[name]
}

// Extension returns the first of names supported by the GL.
func (c *Context) Extension(names ...string) (string, error) {
	for _, name := range names {
		if c.extensions[name] {
			return name, nil
		}
	}
	return "", &core.NotFoundError{Kind: "extension", Name: fmt.Sprint(names)}
}

// Phase returns the current draw phase.
func (c *Context) Phase() core.Phase {
	return c.phase
}

// Err returns the first error recorded by a chained call, or nil.
func (c *Context) Err() error {
	return c.err
}

// Recover returns and clears the recorded error. If a draw was in progress
// it is abandoned: the program is deactivated and the phase returns to
// Inactive.
func (c *Context) Recover() error {
	err := c.err
	c.err = nil
	if c.phase != core.PhaseInactive {
		if c.live() {
			c.gl.UseProgram(0)
		}
		c.phase = core.PhaseInactive
		c.active = nil
		c.mode = -1
	}
	return err
}

// fail records err unless an earlier error is already pending.
func (c *Context) fail(err error) *Context {
	if c.err == nil {
		c.err = err
	}
	return c
}

// skip reports whether a chained call must do nothing.
func (c *Context) skip() bool {
	return c.err != nil || c.lost
}

// live reports whether GL calls may be issued.
func (c *Context) live() bool {
	return c.gl != nil && !c.lost
}

// chain validates the common preconditions of a chained GL call.
func (c *Context) chain(op string) bool {
	if c.skip() {
		return false
	}
	if c.gl == nil {
		c.fail(fmt.Errorf("%s: %w", op, errNoGL))
		return false
	}
	return true
}

func (c *Context) expect(op string, want core.Phase) bool {
	if c.phase != want {
		c.fail(&core.PhaseError{Op: op, Expected: want, Actual: c.phase})
		return false
	}
	return true
}

var errNoGL = errors.New("no graphics context attached")

// requireGL is the registry-side counterpart of chain.
func (c *Context) requireGL(op string) (GL, error) {
	if c.gl == nil {
		return nil, fmt.Errorf("%s: %w", op, errNoGL)
	}
	if c.lost {
		return nil, fmt.Errorf("%s: %w", op, core.ErrContextLost)
	}
	return c.gl, nil
}
