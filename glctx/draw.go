package glctx

import (
	"fmt"

	"pst-renderer/core"
)

// vectorDefault is a registered Optionalv value.
type vectorDefault struct {
	values    []float32
	transpose bool
}

// Begin activates the program called name and enters the Preparing phase.
// Every variable of the program starts unbound.
func (c *Context) Begin(name string) *Context {
	const op = "glctx.Begin"
	if !c.chain(op) || !c.expect(op, core.PhaseInactive) {
		return c
	}
	p, err := c.program(name)
	if err != nil {
		return c.fail(err)
	}
	if p.err != nil {
		return c.fail(p.err)
	}
	for _, v := range p.order {
		v.Ready = false
	}
	c.gl.UseProgram(p.handle)
	c.active = p
	c.mode = -1
	c.phase = core.PhasePreparing
	return c
}

// Value binds scalar components to a uniform or a constant attribute. It
// takes exactly as many values as the variable has components; integer
// uniforms receive truncated values.
func (c *Context) Value(name string, values ...float64) *Context {
	const op = "glctx.Value"
	if !c.chain(op) || !c.expect(op, core.PhasePreparing) {
		return c
	}
	v, err := c.variable(op, name)
	if err != nil {
		return c.fail(err)
	}
	if err := c.setValue(v, values); err != nil {
		return c.fail(err)
	}
	return c
}

// Valuev binds a packed vector to a variable. Uniform vectors may hold
// several array elements; attributes take exactly one element. transpose
// only applies to matrices.
func (c *Context) Valuev(name string, values []float32, transpose bool) *Context {
	const op = "glctx.Valuev"
	if !c.chain(op) || !c.expect(op, core.PhasePreparing) {
		return c
	}
	v, err := c.variable(op, name)
	if err != nil {
		return c.fail(err)
	}
	if err := c.setVector(v, values, transpose); err != nil {
		return c.fail(err)
	}
	return c
}

// Pack feeds the attributes names from the buffer called buffer, which
// holds them interleaved as float32 in the given order.
func (c *Context) Pack(buffer string, names ...string) *Context {
	const op = "glctx.Pack"
	if !c.chain(op) || !c.expect(op, core.PhasePreparing) {
		return c
	}
	if len(names) == 0 {
		return c.fail(&core.ConfigError{Op: op, Msg: "no attribute provided"})
	}
	vbo, err := c.buffers.get(buffer)
	if err != nil {
		return c.fail(err)
	}
	vars := make([]*Variable, len(names))
	seen := make(map[string]bool, len(names))
	stride := 0
	for i, name := range names {
		if seen[name] {
			return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("%q is packed twice", name)})
		}
		seen[name] = true
		v, err := c.variable(op, name)
		if err != nil {
			return c.fail(err)
		}
		if !v.Attribute {
			return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("%q is not an attribute", name)})
		}
		if v.Ready {
			return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("%q is already bound", name)})
		}
		vars[i] = v
		stride += v.Arity
	}

	c.gl.BindBuffer(ARRAY_BUFFER, vbo)
	offset := 0
	for _, v := range vars {
		slot := uint32(v.Location)
		c.gl.EnableVertexAttribArray(slot)
		c.gl.VertexAttribPointer(slot, int32(v.Arity), FLOAT, false, stride*4, offset*4)
		offset += v.Arity
		v.Ready = true
	}
	return c
}

// Manual marks variables as bound by the caller through the raw GL.
func (c *Context) Manual(names ...string) *Context {
	const op = "glctx.Manual"
	if !c.chain(op) || !c.expect(op, core.PhasePreparing) {
		return c
	}
	for _, name := range names {
		v, err := c.variable(op, name)
		if err != nil {
			return c.fail(err)
		}
		v.Ready = true
	}
	return c
}

// Optional registers a scalar default for variables called name in any
// program. Ready applies it to a variable left unbound. Calling it with no
// values removes the default.
func (c *Context) Optional(name string, values ...float64) *Context {
	if c.err != nil {
		return c
	}
	if len(values) == 0 {
		delete(c.optional, name)
		return c
	}
	if len(values) > 4 {
		return c.fail(&core.ConfigError{Op: "glctx.Optional", Msg: fmt.Sprintf("bad value count %d for %q", len(values), name)})
	}
	c.optional[name] = append([]float64(nil), values...)
	return c
}

// Optionalv registers a vector default for variables called name in any
// program. A nil or empty slice removes the default.
func (c *Context) Optionalv(name string, values []float32, transpose bool) *Context {
	if c.err != nil {
		return c
	}
	if len(values) == 0 {
		delete(c.optionalv, name)
		return c
	}
	c.optionalv[name] = vectorDefault{values: append([]float32(nil), values...), transpose: transpose}
	return c
}

// Ready applies registered defaults to unbound variables and enters the
// Drawing phase. Any variable still unbound is an error.
func (c *Context) Ready() *Context {
	const op = "glctx.Ready"
	if !c.chain(op) || !c.expect(op, core.PhasePreparing) {
		return c
	}
	c.phase = core.PhaseDrawing
	for _, v := range c.active.order {
		if v.Ready {
			continue
		}
		if d, ok := c.optional[v.Name]; ok {
			if err := c.setValue(v, d); err != nil {
				return c.fail(err)
			}
		} else if d, ok := c.optionalv[v.Name]; ok {
			if err := c.setVector(v, d.values, d.transpose); err != nil {
				return c.fail(err)
			}
		}
		if !v.Ready {
			return c.fail(&core.BindingError{Program: c.active.name, Variable: v.Name})
		}
	}
	return c
}

// Primitive selects the primitive mode used by DrawArrays.
func (c *Context) Primitive(mode uint32) *Context {
	if c.err != nil {
		return c
	}
	if mode > TRIANGLE_FAN {
		return c.fail(&core.ConfigError{Op: "glctx.Primitive", Msg: fmt.Sprintf("bad primitive mode %d", mode)})
	}
	c.mode = int32(mode)
	return c
}

func (c *Context) Points() *Context        { return c.Primitive(POINTS) }
func (c *Context) Lines() *Context         { return c.Primitive(LINES) }
func (c *Context) LineLoop() *Context      { return c.Primitive(LINE_LOOP) }
func (c *Context) LineStrip() *Context     { return c.Primitive(LINE_STRIP) }
func (c *Context) Triangles() *Context     { return c.Primitive(TRIANGLES) }
func (c *Context) TriangleStrip() *Context { return c.Primitive(TRIANGLE_STRIP) }
func (c *Context) TriangleFan() *Context   { return c.Primitive(TRIANGLE_FAN) }

// DrawArrays submits count vertices starting at first.
func (c *Context) DrawArrays(first, count int) *Context {
	const op = "glctx.DrawArrays"
	if !c.chain(op) || !c.expect(op, core.PhaseDrawing) {
		return c
	}
	if c.mode < 0 {
		return c.fail(&core.ConfigError{Op: op, Msg: "primitive mode not set"})
	}
	if first < 0 || count < 0 {
		return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("bad range first=%d count=%d", first, count)})
	}
	c.gl.DrawArrays(uint32(c.mode), first, count)
	return c
}

// End deactivates the program and returns to the Inactive phase.
func (c *Context) End() *Context {
	const op = "glctx.End"
	if !c.chain(op) || !c.expect(op, core.PhaseDrawing) {
		return c
	}
	c.gl.UseProgram(0)
	c.active = nil
	c.mode = -1
	c.phase = core.PhaseInactive
	return c
}

// setValue uploads values to v with the call matching v's kind, arity and
// component type. The value count must equal the arity.
func (c *Context) setValue(v *Variable, values []float64) error {
	const op = "glctx.Value"
	n := len(values)
	if v.Matrix || n != v.Arity {
		return &core.ConfigError{Op: op, Msg: fmt.Sprintf("cannot bind %d values to %q (arity %d)", n, v.Name, v.Arity)}
	}
	gl := c.gl
	f := func(k int) float32 { return float32(values[k]) }
	i := func(k int) int32 { return int32(values[k]) }

	switch {
	case v.Attribute:
		slot := uint32(v.Location)
		gl.DisableVertexAttribArray(slot)
		switch v.Arity {
		case 1:
			gl.VertexAttrib1f(slot, f(0))
		case 2:
			gl.VertexAttrib2f(slot, f(0), f(1))
		case 3:
			gl.VertexAttrib3f(slot, f(0), f(1), f(2))
		case 4:
			gl.VertexAttrib4f(slot, f(0), f(1), f(2), f(3))
		}
	case v.Float:
		switch v.Arity {
		case 1:
			gl.Uniform1f(v.Location, f(0))
		case 2:
			gl.Uniform2f(v.Location, f(0), f(1))
		case 3:
			gl.Uniform3f(v.Location, f(0), f(1), f(2))
		case 4:
			gl.Uniform4f(v.Location, f(0), f(1), f(2), f(3))
		}
	default:
		switch v.Arity {
		case 1:
			gl.Uniform1i(v.Location, i(0))
		case 2:
			gl.Uniform2i(v.Location, i(0), i(1))
		case 3:
			gl.Uniform3i(v.Location, i(0), i(1), i(2))
		case 4:
			gl.Uniform4i(v.Location, i(0), i(1), i(2), i(3))
		}
	}
	v.Ready = true
	return nil
}

func (c *Context) setVector(v *Variable, values []float32, transpose bool) error {
	const op = "glctx.Valuev"
	n := v.Arity
	bad := func() error {
		return &core.ConfigError{Op: op, Msg: fmt.Sprintf("cannot bind %d components to %q (arity %d)", len(values), v.Name, n)}
	}
	gl := c.gl

	switch {
	case v.Attribute:
		if len(values) != n || n > 4 {
			return bad()
		}
		slot := uint32(v.Location)
		gl.DisableVertexAttribArray(slot)
		switch n {
		case 1:
			gl.VertexAttrib1fv(slot, values)
		case 2:
			gl.VertexAttrib2fv(slot, values)
		case 3:
			gl.VertexAttrib3fv(slot, values)
		case 4:
			gl.VertexAttrib4fv(slot, values)
		}
	case v.Matrix:
		if len(values) == 0 || len(values)%n != 0 {
			return bad()
		}
		switch n {
		case 4:
			gl.UniformMatrix2fv(v.Location, transpose, values)
		case 9:
			gl.UniformMatrix3fv(v.Location, transpose, values)
		case 16:
			gl.UniformMatrix4fv(v.Location, transpose, values)
		}
	case v.Float:
		if len(values) == 0 || len(values)%n != 0 {
			return bad()
		}
		switch n {
		case 1:
			gl.Uniform1fv(v.Location, values)
		case 2:
			gl.Uniform2fv(v.Location, values)
		case 3:
			gl.Uniform3fv(v.Location, values)
		case 4:
			gl.Uniform4fv(v.Location, values)
		}
	default:
		if len(values) == 0 || len(values)%n != 0 {
			return bad()
		}
		ints := make([]int32, len(values))
		for k, x := range values {
			ints[k] = int32(x)
		}
		switch n {
		case 1:
			gl.Uniform1iv(v.Location, ints)
		case 2:
			gl.Uniform2iv(v.Location, ints)
		case 3:
			gl.Uniform3iv(v.Location, ints)
		case 4:
			gl.Uniform4iv(v.Location, ints)
		}
	}
	v.Ready = true
	return nil
}
