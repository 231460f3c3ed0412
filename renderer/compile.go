package renderer

import (
	"errors"
	"time"

	"pst-renderer/core"
	"pst-renderer/shader"
)

// shaderMarker is replaced by the live snippet in the step fragment shader.
const shaderMarker = "//{{shaderSrc}}"

// hotReload tracks the live step snippet. Changes are applied once the
// snippet has been quiet for the debounce interval.
type hotReload struct {
	template string
	marker   int

	src      string
	pending  bool
	deadline time.Time
	debounce time.Duration
}

func (h *hotReload) set(src string, now time.Time) {
	if h.src == "" {
		h.deadline = now
	} else {
		h.deadline = now.Add(h.debounce)
	}
	h.src = src
	h.pending = true
}

func (h *hotReload) due(now time.Time) bool {
	return h.pending && !now.Before(h.deadline)
}

// splice returns the step fragment shader with the snippet in place of the
// marker.
func (h *hotReload) splice() string {
	return h.template[:h.marker] + h.src + h.template[h.marker+len(shaderMarker):]
}

// SetShader replaces the step snippet. The first snippet is compiled on the
// next Step; later ones once no other change arrived for the debounce
// interval.
func (r *Renderer) SetShader(src string) {
	r.hot.set(src, r.now())
}

// Shader returns the current step snippet.
func (r *Renderer) Shader() string {
	return r.hot.src
}

// compile rebuilds the step program from the current snippet. On failure
// the previous program and its source stay in use and the error handlers
// receive the compiler diagnostics.
func (r *Renderer) compile() {
	r.hot.pending = false
	src := r.hot.splice()

	step, _ := r.shaders.Get("step")
	prev, err := r.shaders.Replace(shader.Definition{Name: "step", Vertex: step.Vertex, Fragment: src})
	if err != nil {
		r.log.Error("step shader missing from registry", "err", err)
		return
	}

	err = r.ctx.RebuildProgram("step")
	if err == nil {
		r.log.Info("step shader compiled")
		for _, f := range r.onCompile {
			f()
		}
		return
	}

	// Restoring the context rebuilds programs from the registry, so it
	// must hold the source of the program in use.
	r.shaders.Replace(prev)

	var diags []shader.Diagnostic
	var be *core.BuildError
	if errors.As(err, &be) {
		diags = shader.Remap(shader.ParseDiagnostics(be.Log), shader.LineOf(src, r.hot.marker))
	}
	if len(diags) == 0 {
		diags = []shader.Diagnostic{{Line: 0, Message: err.Error()}}
	}
	r.log.Warn("step shader failed to compile", "errors", len(diags), "err", err)
	for _, f := range r.onError {
		f(diags)
	}
}

// StepSource returns the step fragment shader with the current snippet in
// place, and the line the snippet starts on.
func (r *Renderer) StepSource() (string, int) {
	return r.hot.splice(), shader.LineOf(r.hot.template, r.hot.marker)
}
