package glctx

import (
	"sort"

	"pst-renderer/core"
)

// store maps names to handles for one resource kind.
type store struct {
	kind  core.ResourceKind
	items map[string]uint32
}

func newStore(kind core.ResourceKind) *store {
	return &store{kind: kind, items: make(map[string]uint32)}
}

func (s *store) has(name string) bool {
	_, ok := s.items[name]
	return ok
}

func (s *store) get(name string) (uint32, error) {
	h, ok := s.items[name]
	if !ok {
		return 0, &core.NotFoundError{Kind: s.kind.String(), Name: name}
	}
	return h, nil
}

func (s *store) add(name string, h uint32) error {
	if s.has(name) {
		return &core.DuplicateError{Kind: s.kind.String(), Name: name}
	}
	s.items[name] = h
	return nil
}

func (s *store) remove(name string) (uint32, error) {
	h, err := s.get(name)
	if err != nil {
		return 0, err
	}
	delete(s.items, name)
	return h, nil
}

func (s *store) names() []string {
	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rotate moves the handle of names[len-1] to names[0] and the handle of
// every other names[i] to names[i+1].
func (s *store) rotate(names []string) error {
	handles := make([]uint32, len(names))
	for i, name := range names {
		h, err := s.get(name)
		if err != nil {
			return err
		}
		handles[i] = h
	}
	for i, name := range names {
		s.items[name] = handles[(i+len(names)-1)%len(names)]
	}
	return nil
}

func (c *Context) storeFor(kind core.ResourceKind) *store {
	switch kind {
	case core.KindBuffer:
		return c.buffers
	case core.KindFramebuffer:
		return c.framebuffers
	case core.KindRenderbuffer:
		return c.renderbuffers
	case core.KindTexture:
		return c.textures
	}
	return nil
}

func (c *Context) create(kind core.ResourceKind, name string, gen func(GL) uint32) error {
	s := c.storeFor(kind)
	if s.has(name) {
		return &core.DuplicateError{Kind: kind.String(), Name: name}
	}
	gl, err := c.requireGL("glctx.create " + kind.String())
	if err != nil {
		return err
	}
	c.log.Debug("create", "kind", kind.String(), "name", name)
	return s.add(name, gen(gl))
}

func (c *Context) destroy(kind core.ResourceKind, name string, release func(GL, uint32)) error {
	s := c.storeFor(kind)
	h, err := s.remove(name)
	if err != nil {
		return err
	}
	if c.live() {
		release(c.gl, h)
	}
	return nil
}

// CreateBuffer creates a vertex or index buffer called name.
func (c *Context) CreateBuffer(name string) error {
	return c.create(core.KindBuffer, name, GL.CreateBuffer)
}

// CreateFramebuffer creates a framebuffer called name.
func (c *Context) CreateFramebuffer(name string) error {
	return c.create(core.KindFramebuffer, name, GL.CreateFramebuffer)
}

// CreateRenderbuffer creates a renderbuffer called name.
func (c *Context) CreateRenderbuffer(name string) error {
	return c.create(core.KindRenderbuffer, name, GL.CreateRenderbuffer)
}

// CreateTexture creates a texture called name.
func (c *Context) CreateTexture(name string) error {
	return c.create(core.KindTexture, name, GL.CreateTexture)
}

func (c *Context) HasBuffer(name string) bool       { return c.buffers.has(name) }
func (c *Context) HasFramebuffer(name string) bool  { return c.framebuffers.has(name) }
func (c *Context) HasRenderbuffer(name string) bool { return c.renderbuffers.has(name) }
func (c *Context) HasTexture(name string) bool      { return c.textures.has(name) }

// HasProgram reports whether a program called name has been built.
func (c *Context) HasProgram(name string) bool {
	_, ok := c.programs[name]
	return ok
}

func (c *Context) Buffer(name string) (uint32, error)       { return c.buffers.get(name) }
func (c *Context) Framebuffer(name string) (uint32, error)  { return c.framebuffers.get(name) }
func (c *Context) Renderbuffer(name string) (uint32, error) { return c.renderbuffers.get(name) }
func (c *Context) Texture(name string) (uint32, error)      { return c.textures.get(name) }

// Program returns the GL handle of the program called name.
func (c *Context) Program(name string) (uint32, error) {
	p, err := c.program(name)
	if err != nil {
		return 0, err
	}
	if p.err != nil {
		return 0, p.err
	}
	return p.handle, nil
}

func (c *Context) program(name string) (*program, error) {
	p, ok := c.programs[name]
	if !ok {
		return nil, &core.NotFoundError{Kind: core.KindProgram.String(), Name: name}
	}
	return p, nil
}

// DeleteBuffer removes and releases the buffer called name.
func (c *Context) DeleteBuffer(name string) error {
	return c.destroy(core.KindBuffer, name, GL.DeleteBuffer)
}

// DeleteFramebuffer removes and releases the framebuffer called name.
func (c *Context) DeleteFramebuffer(name string) error {
	return c.destroy(core.KindFramebuffer, name, GL.DeleteFramebuffer)
}

// DeleteRenderbuffer removes and releases the renderbuffer called name.
func (c *Context) DeleteRenderbuffer(name string) error {
	return c.destroy(core.KindRenderbuffer, name, GL.DeleteRenderbuffer)
}

// DeleteTexture removes and releases the texture called name.
func (c *Context) DeleteTexture(name string) error {
	return c.destroy(core.KindTexture, name, GL.DeleteTexture)
}

// DeleteProgram removes and releases the program called name. The program
// must not be active.
func (c *Context) DeleteProgram(name string) error {
	p, err := c.program(name)
	if err != nil {
		return err
	}
	if c.active == p {
		return &core.PhaseError{Op: "glctx.DeleteProgram", Expected: core.PhaseInactive, Actual: c.phase}
	}
	delete(c.programs, name)
	if c.live() && p.handle != 0 {
		c.gl.DeleteProgram(p.handle)
	}
	return nil
}

// AdoptTexture registers a texture created outside the context under name,
// replacing (and releasing) any texture already called name.
func (c *Context) AdoptTexture(name string, handle uint32) error {
	if _, err := c.requireGL("glctx.AdoptTexture"); err != nil {
		return err
	}
	if old, ok := c.textures.items[name]; ok && old != handle {
		c.gl.DeleteTexture(old)
	}
	c.textures.items[name] = handle
	return nil
}

// Names returns the names registered for kind in sorted order.
func (c *Context) Names(kind core.ResourceKind) []string {
	if kind == core.KindProgram {
		names := make([]string, 0, len(c.programs))
		for name := range c.programs {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return c.storeFor(kind).names()
}

// RotateNames cyclically permutes the handles behind names: the object
// known as names[len-1] becomes names[0] and every other names[i] becomes
// names[i+1]. Programs cannot be rotated.
func (c *Context) RotateNames(kind core.ResourceKind, names []string) error {
	s := c.storeFor(kind)
	if s == nil {
		return &core.ConfigError{Op: "glctx.RotateNames", Msg: "cannot rotate " + kind.String() + " names"}
	}
	if len(names) < 2 {
		return nil
	}
	return s.rotate(names)
}
