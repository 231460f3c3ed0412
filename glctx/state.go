package glctx

import (
	"fmt"

	"pst-renderer/core"
)

// ccwQuad covers clip space with two counter-clockwise triangles.
var ccwQuad = []float32{
	-1, -1, 1, -1, 1, 1,
	-1, -1, 1, 1, -1, 1,
}

// BindFramebuffer makes the framebuffer called name the render target. The
// empty name selects the surface's default framebuffer.
func (c *Context) BindFramebuffer(name string) *Context {
	if !c.chain("glctx.BindFramebuffer") {
		return c
	}
	var fbo uint32
	if name != "" {
		h, err := c.framebuffers.get(name)
		if err != nil {
			return c.fail(err)
		}
		fbo = h
	}
	c.gl.BindFramebuffer(fbo)
	return c
}

// Viewport sets the viewport and the scissor box to the same rectangle.
func (c *Context) Viewport(x, y, width, height int) *Context {
	if !c.chain("glctx.Viewport") {
		return c
	}
	c.gl.Viewport(x, y, width, height)
	c.gl.Scissor(x, y, width, height)
	return c
}

// SurfaceViewport sets the viewport to the whole drawable.
func (c *Context) SurfaceViewport() *Context {
	if !c.chain("glctx.SurfaceViewport") {
		return c
	}
	if c.surface == nil {
		return c.fail(fmt.Errorf("glctx.SurfaceViewport: %w", errNoGL))
	}
	w, h := c.surface.Size()
	return c.Viewport(0, 0, w, h)
}

// ActiveTexture selects texture unit unit for later BindTexture2D calls.
func (c *Context) ActiveTexture(unit int) *Context {
	if !c.chain("glctx.ActiveTexture") {
		return c
	}
	if unit < 0 {
		return c.fail(&core.ConfigError{Op: "glctx.ActiveTexture", Msg: fmt.Sprintf("bad texture unit %d", unit)})
	}
	c.gl.ActiveTexture(TEXTURE0 + uint32(unit))
	return c
}

// BindTexture2D binds the texture called name to the active unit. The
// empty name unbinds.
func (c *Context) BindTexture2D(name string) *Context {
	if !c.chain("glctx.BindTexture2D") {
		return c
	}
	var tex uint32
	if name != "" {
		h, err := c.textures.get(name)
		if err != nil {
			return c.fail(err)
		}
		tex = h
	}
	c.gl.BindTexture(tex)
	return c
}

func (c *Context) bindBuffer(op string, target uint32, name string) *Context {
	if !c.chain(op) {
		return c
	}
	var buf uint32
	if name != "" {
		h, err := c.buffers.get(name)
		if err != nil {
			return c.fail(err)
		}
		buf = h
	}
	c.gl.BindBuffer(target, buf)
	return c
}

// BindArrayBuffer binds the buffer called name as the vertex buffer.
func (c *Context) BindArrayBuffer(name string) *Context {
	return c.bindBuffer("glctx.BindArrayBuffer", ARRAY_BUFFER, name)
}

// BindElementBuffer binds the buffer called name as the index buffer.
func (c *Context) BindElementBuffer(name string) *Context {
	return c.bindBuffer("glctx.BindElementBuffer", ELEMENT_ARRAY_BUFFER, name)
}

// BufferDataStatic replaces the contents of the buffer called name.
func (c *Context) BufferDataStatic(name string, data []float32) *Context {
	if c.BindArrayBuffer(name); c.skip() {
		return c
	}
	c.gl.BufferData(ARRAY_BUFFER, data, STATIC_DRAW)
	return c
}

// BufferSubData overwrites part of the buffer called name, starting at
// offset bytes.
func (c *Context) BufferSubData(name string, offset int, data []float32) *Context {
	if c.BindArrayBuffer(name); c.skip() {
		return c
	}
	c.gl.BufferSubData(ARRAY_BUFFER, offset, data)
	return c
}

// UploadCCWQuad fills the buffer called name with a full-screen quad: six
// 2D vertices forming two counter-clockwise triangles.
func (c *Context) UploadCCWQuad(name string) *Context {
	return c.BufferDataStatic(name, ccwQuad)
}

// UploadPlaceholderTexture gives the texture called name a single opaque
// black texel, so it can be sampled before its real contents arrive.
func (c *Context) UploadPlaceholderTexture(name string) *Context {
	if c.BindTexture2D(name); c.skip() {
		return c
	}
	opts := core.TextureOptions{Width: 1, Height: 1}
	c.TexParameters(opts)
	return c.TexImage2D(opts, []byte{0, 0, 0, 255})
}

// TexParameters applies the filter and wrap settings of opts to the bound
// texture.
func (c *Context) TexParameters(opts core.TextureOptions) *Context {
	if !c.chain("glctx.TexParameters") {
		return c
	}
	t := ResolveTexture(opts)
	c.gl.TexParameteri(TEXTURE_MIN_FILTER, int32(t.MinFilter))
	c.gl.TexParameteri(TEXTURE_MAG_FILTER, int32(t.MagFilter))
	c.gl.TexParameteri(TEXTURE_WRAP_S, int32(t.WrapS))
	c.gl.TexParameteri(TEXTURE_WRAP_T, int32(t.WrapT))
	return c
}

// TexImage2D allocates the bound texture with the size and storage of
// opts. pixels may be nil to leave the contents undefined.
func (c *Context) TexImage2D(opts core.TextureOptions, pixels []byte) *Context {
	const op = "glctx.TexImage2D"
	if !c.chain(op) {
		return c
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("bad size %dx%d", opts.Width, opts.Height)})
	}
	t := ResolveTexture(opts)
	c.gl.TexImage2D(t.InternalFormat, t.Width, t.Height, t.Format, t.Type, pixels)
	return c
}

// AttachTexture attaches the texture called name as the only colour
// attachment of the bound framebuffer and checks completeness.
func (c *Context) AttachTexture(name string) *Context {
	const op = "glctx.AttachTexture"
	if !c.chain(op) {
		return c
	}
	tex, err := c.textures.get(name)
	if err != nil {
		return c.fail(err)
	}
	c.gl.FramebufferTexture2D(COLOR_ATTACHMENT0, tex)
	if status := c.gl.CheckFramebufferStatus(); status != FRAMEBUFFER_COMPLETE {
		return c.fail(&core.ConfigError{Op: op, Msg: fmt.Sprintf("framebuffer incomplete with %q: status 0x%X", name, status)})
	}
	return c
}

func (c *Context) ClearColor(r, g, b, a float32) *Context {
	if c.chain("glctx.ClearColor") {
		c.gl.ClearColor(r, g, b, a)
	}
	return c
}

func (c *Context) ClearColorv(col core.Color) *Context {
	return c.ClearColor(col.R, col.G, col.B, col.A)
}

func (c *Context) ClearDepth(d float32) *Context {
	if c.chain("glctx.ClearDepth") {
		c.gl.ClearDepth(d)
	}
	return c
}

func (c *Context) ClearStencil(s int32) *Context {
	if c.chain("glctx.ClearStencil") {
		c.gl.ClearStencil(s)
	}
	return c
}

// Clear clears the selected buffers of the bound framebuffer.
func (c *Context) Clear(color, depth, stencil bool) *Context {
	if !c.chain("glctx.Clear") {
		return c
	}
	var mask uint32
	if color {
		mask |= COLOR_BUFFER_BIT
	}
	if depth {
		mask |= DEPTH_BUFFER_BIT
	}
	if stencil {
		mask |= STENCIL_BUFFER_BIT
	}
	if mask != 0 {
		c.gl.Clear(mask)
	}
	return c
}

func (c *Context) Enable(capability uint32) *Context {
	if c.chain("glctx.Enable") {
		c.gl.Enable(capability)
	}
	return c
}

func (c *Context) Disable(capability uint32) *Context {
	if c.chain("glctx.Disable") {
		c.gl.Disable(capability)
	}
	return c
}

// ResolveTexture fills the unset fields of opts with their defaults.
func ResolveTexture(opts core.TextureOptions) core.TextureOptions {
	pick := func(vals ...uint32) uint32 {
		for _, v := range vals {
			if v != 0 {
				return v
			}
		}
		return 0
	}
	opts.MinFilter = pick(opts.MinFilter, opts.Filter, NEAREST)
	opts.MagFilter = pick(opts.MagFilter, opts.Filter, NEAREST)
	opts.WrapS = pick(opts.WrapS, opts.Wrap, CLAMP_TO_EDGE)
	opts.WrapT = pick(opts.WrapT, opts.Wrap, CLAMP_TO_EDGE)
	opts.InternalFormat = pick(opts.InternalFormat, RGBA)
	opts.Format = pick(opts.Format, RGBA)
	opts.Type = pick(opts.Type, UNSIGNED_BYTE)
	return opts
}
