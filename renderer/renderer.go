// Package renderer runs the particle simulation: two feedback passes that
// advance particle positions and colours stored in float textures, then a
// point draw of every particle.
package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"pst-renderer/config"
	"pst-renderer/core"
	"pst-renderer/glctx"
	"pst-renderer/ring"
	"pst-renderer/scene"
	"pst-renderer/shader"
	"pst-renderer/textures"
)

var (
	//go:embed shaders/step.glsl
	stepSource string
	//go:embed shaders/draw.glsl
	drawSource string
	//go:embed shaders/fill.glsl
	fillSource string

	// DefaultShader is a step snippet that swirls particles around the
	// z axis.
	//go:embed shaders/snippet.glsl
	DefaultShader string
)

// Options are runtime settings applied with Configure.
type Options struct {
	// TextureBaseURL is prepended to the lookup texture file names. It may
	// be an http(s) URL, a file:// URL or a directory.
	TextureBaseURL string
}

// Renderer owns a graphics context and the simulation state living in it.
// All methods must be called from the frame thread.
type Renderer struct {
	ctx     *glctx.Context
	shaders *shader.Registry

	dim       int
	ringCount int
	clear     core.Color

	position *ring.Ring
	color    *ring.Ring
	indices  []float32

	camera *scene.OrbitCamera

	loader   *textures.Loader
	lookups  map[string]string // texture name -> file name
	loaded   map[string]*textures.Texture
	textures Options

	hot hotReload

	onCompile []func()
	onError   []func([]shader.Diagnostic)

	now   func() time.Time
	start time.Time

	initialized bool
	log         *slog.Logger
}

// New returns a renderer configured by cfg. It has no graphics context
// until SetSurface is called.
func New(cfg config.Config) *Renderer {
	shaders := shader.NewRegistry()
	shaders.MustPreprocess(stepSource)
	shaders.MustPreprocess(drawSource)
	shaders.MustPreprocess(fillSource)

	step, _ := shaders.Get("step")
	marker := strings.Index(step.Fragment, shaderMarker)
	if marker < 0 {
		panic("renderer: step shader has no " + shaderMarker + " marker")
	}

	camera := scene.NewOrbitCamera(mgl32.Vec3{}, 5, math.Pi/4, 1)
	camera.NearPlane, camera.FarPlane = 0.1, 20000
	camera.Pitch = 0
	camera.UpdatePosition()

	return &Renderer{
		ctx:       glctx.New(shaders),
		shaders:   shaders,
		dim:       cfg.Simulation.TextureDim,
		ringCount: cfg.Simulation.RingCount,
		clear:     cfg.Background(),
		camera:    camera,
		loader:    textures.NewLoader(nil),
		lookups:   map[string]string{"noiseLUT": "noise-lut.png"},
		loaded:    make(map[string]*textures.Texture),
		hot: hotReload{
			template: step.Fragment,
			marker:   marker,
			debounce: time.Duration(cfg.Shader.Debounce),
		},
		now: time.Now,
		log: core.Logger().With("component", "renderer"),
	}
}

// Context exposes the graphics context, mainly for tests and tools.
func (r *Renderer) Context() *glctx.Context { return r.ctx }

// Shaders returns the registry holding the built-in programs.
func (r *Renderer) Shaders() *shader.Registry { return r.shaders }

// Camera returns the camera used by the draw pass.
func (r *Renderer) Camera() *scene.OrbitCamera { return r.camera }

// SetSurface attaches the renderer to s and acquires its graphics context.
// It must be called before Init.
func (r *Renderer) SetSurface(s glctx.Surface) error {
	if r.initialized {
		return &core.ConfigError{Op: "renderer.SetSurface", Msg: "surface cannot change after Init"}
	}
	return r.ctx.SetSurface(s)
}

func (r *Renderer) Surface() glctx.Surface { return r.ctx.Surface() }

// OnCompile registers f to be called after every successful shader build.
func (r *Renderer) OnCompile(f func()) { r.onCompile = append(r.onCompile, f) }

// OnError registers f to receive the diagnostics of a failed shader build,
// with line numbers relative to the text passed to SetShader.
func (r *Renderer) OnError(f func([]shader.Diagnostic)) { r.onError = append(r.onError, f) }

// Configure applies opts. A texture base URL starts loading the lookup
// textures in the background; they become available to the step shader
// once loaded.
func (r *Renderer) Configure(opts Options) {
	if opts.TextureBaseURL == "" {
		return
	}
	r.textures = opts
	r.loadTextures()
}

func (r *Renderer) loadTextures() {
	names := make([]string, 0, len(r.lookups))
	for name := range r.lookups {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := core.TextureOptions{Filter: glctx.LINEAR, Wrap: glctx.REPEAT}
	for _, name := range names {
		src, err := joinURL(r.textures.TextureBaseURL, r.lookups[name])
		if err != nil {
			r.log.Warn("bad texture url", "name", name, "err", err)
			continue
		}
		r.loader.Load(src, opts, func(tex *textures.Texture, err error) {
			if err != nil {
				r.log.Warn("failed to load texture", "name", name, "src", src, "err", err)
				return
			}
			r.loaded[name] = tex
		})
	}
}

func joinURL(base, file string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		return strings.TrimSuffix(base, "/") + "/" + file, nil
	}
	return u.JoinPath(file).String(), nil
}

// Init creates the programs, buffers and rings of the simulation and fills
// the rings with the reset state.
func (r *Renderer) Init() error {
	c := r.ctx
	if r.dim <= 0 {
		return &core.ConfigError{Op: "renderer.Init", Msg: fmt.Sprintf("bad texture size %d", r.dim)}
	}
	for _, name := range []string{"fill", "draw"} {
		if c.HasProgram(name) {
			continue
		}
		if err := c.CreateProgram(name); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
	}
	for _, name := range []string{"index", "quad"} {
		if c.HasBuffer(name) {
			continue
		}
		if err := c.CreateBuffer(name); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
	}
	for name := range r.lookups {
		if c.HasTexture(name) {
			continue
		}
		if err := c.CreateTexture(name); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
	}

	opts := core.TextureOptions{
		Width:          r.dim,
		Height:         r.dim,
		InternalFormat: glctx.RGBA32F,
		Format:         glctx.RGBA,
		Type:           glctx.FLOAT,
	}
	r.position = ring.New(c, "position")
	if err := r.position.Alloc(r.ringCount, opts); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	r.color = ring.New(c, "color")
	if err := r.color.Alloc(r.ringCount, opts); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	r.initialized = true
	if err := r.ensure(); err != nil {
		return err
	}
	r.log.Info("renderer initialized", "particles", r.count(), "rings", r.ringCount)
	return nil
}

func (r *Renderer) count() int { return r.dim * r.dim }

// ensure (re)creates the GPU state that does not survive a context loss.
// Everything is keyed in the context's alloc cache, so after the first
// frame and until the next restoration it issues no GL calls.
func (r *Renderer) ensure() error {
	c := r.ctx
	c.Alloc("renderer:state", func() error {
		c.ClearColorv(r.clear).Enable(glctx.PROGRAM_POINT_SIZE)
		return c.Err()
	})
	c.Init("renderer:indices", func() error {
		r.indices = make([]float32, r.count())
		for i := range r.indices {
			r.indices[i] = float32(i)
		}
		return nil
	})
	c.Alloc("renderer:buffers", func() error {
		c.UploadCCWQuad("quad").BufferDataStatic("index", r.indices)
		return c.Err()
	})
	// Lookup textures sample as black until their image is uploaded.
	for name := range r.lookups {
		if _, ok := r.loaded[name]; ok {
			continue
		}
		c.Alloc("renderer:placeholder:"+name, func() error {
			c.UploadPlaceholderTexture(name).BindTexture2D("")
			return c.Err()
		})
	}
	if err := c.Err(); err != nil {
		return r.recover(err)
	}
	if err := r.position.Ensure(); err != nil {
		return r.recover(err)
	}
	if err := r.color.Ensure(); err != nil {
		return r.recover(err)
	}
	c.Alloc("renderer:reset", r.reset)
	return r.recover(c.Err())
}

// reset fills the previous two frames of both rings with (0, 0, 0, 1).
func (r *Renderer) reset() error {
	c := r.ctx
	for _, name := range []string{r.position.Name(1), r.color.Name(1), r.position.Name(2), r.color.Name(2)} {
		c.BindFramebuffer(name).
			Viewport(0, 0, r.dim, r.dim).
			Begin("fill").
			Valuev("color", core.ColorBlack.Vec(), false).
			Pack("quad", "position").
			Ready().
			Triangles().
			DrawArrays(0, 6).
			End()
	}
	c.BindFramebuffer("")
	return c.Err()
}

// Step advances the simulation by one frame and draws it to the surface.
// It does nothing while the graphics context is lost.
func (r *Renderer) Step() error {
	if !r.initialized {
		return &core.ConfigError{Op: "renderer.Step", Msg: "Init has not been called"}
	}
	if r.ctx.Lost() {
		return nil
	}
	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	elapsed := now.Sub(r.start).Seconds()

	r.loader.Poll()
	if err := r.uploadTextures(); err != nil {
		return err
	}
	if err := r.ensure(); err != nil {
		return err
	}

	w, h := r.ctx.Surface().Size()
	r.camera.UpdateAspectRatio(float32(w), float32(h))

	if r.hot.due(now) {
		r.compile()
	}

	c := r.ctx
	if c.HasProgram("step") {
		c.Optional("side", float64(r.dim)).
			Optional("count", float64(r.count())).
			Optional("time", elapsed).
			Optional("position1", 0).
			Optional("position2", 1).
			Optional("color1", 2).
			Optional("color2", 3).
			Optional("noiseLUT", 4)
		r.stepPass(r.position, false)
		r.stepPass(r.color, true)
	}
	r.drawPass(w)
	if err := r.recover(c.Err()); err != nil {
		return err
	}

	if err := r.position.Rotate(); err != nil {
		return err
	}
	return r.color.Rotate()
}

// stepPass renders the next state of target from the previous two frames
// of both rings.
func (r *Renderer) stepPass(target *ring.Ring, colorPass bool) {
	c := r.ctx
	c.BindFramebuffer(target.Name(0)).
		Viewport(0, 0, r.dim, r.dim).
		ActiveTexture(0).BindTexture2D(r.position.Name(1)).
		ActiveTexture(1).BindTexture2D(r.position.Name(2)).
		ActiveTexture(2).BindTexture2D(r.color.Name(1)).
		ActiveTexture(3).BindTexture2D(r.color.Name(2))
	c.ActiveTexture(4).BindTexture2D("noiseLUT")

	pass := 0.0
	if colorPass {
		pass = 1
	}
	c.Optional("colorPass", pass).
		Begin("step").
		Pack("quad", "position").
		Ready().
		Triangles().
		DrawArrays(0, 6).
		End()
}

// drawPass renders every particle as a point into the default framebuffer.
func (r *Renderer) drawPass(width int) {
	view := r.camera.ViewMatrix()
	projection := r.camera.ProjectionMatrix()

	r.ctx.BindFramebuffer("").
		SurfaceViewport().
		ActiveTexture(0).BindTexture2D(r.position.Name(0)).
		ActiveTexture(1).BindTexture2D(r.color.Name(0)).
		Clear(true, true, true).
		Begin("draw").
		Pack("index", "index").
		Value("side", float64(r.dim)).
		Value("width", float64(width)).
		Value("pointSize", 0.001).
		Value("position0", 0).
		Value("color0", 1).
		Valuev("view", view[:], false).
		Valuev("projection", projection[:], false).
		Ready().
		Points().
		DrawArrays(0, r.count()).
		End()
}

func (r *Renderer) uploadTextures() error {
	var errs []error
	for name, tex := range r.loaded {
		if err := textures.Upload(r.ctx, name, tex); err != nil {
			errs = append(errs, err)
			delete(r.loaded, name)
			r.ctx.Recover()
		}
	}
	return errors.Join(errs...)
}

// recover clears the context's pending error so the next frame starts
// clean, and returns err.
func (r *Renderer) recover(err error) error {
	if err != nil {
		r.ctx.Recover()
	}
	return err
}

// Close stops background texture loads and releases every GPU resource.
func (r *Renderer) Close() error {
	r.loader.Close()
	if !r.initialized {
		return nil
	}
	r.initialized = false
	if r.ctx.Lost() || r.ctx.Surface() == nil {
		return nil
	}

	var errs []error
	errs = append(errs, r.position.Release(), r.color.Release())
	for _, kind := range core.ResourceKinds {
		for _, name := range r.ctx.Names(kind) {
			var err error
			switch kind {
			case core.KindBuffer:
				err = r.ctx.DeleteBuffer(name)
			case core.KindFramebuffer:
				err = r.ctx.DeleteFramebuffer(name)
			case core.KindRenderbuffer:
				err = r.ctx.DeleteRenderbuffer(name)
			case core.KindTexture:
				err = r.ctx.DeleteTexture(name)
			case core.KindProgram:
				err = r.ctx.DeleteProgram(name)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
