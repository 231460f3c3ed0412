package glctx

import (
	"errors"
	"fmt"

	"pst-renderer/core"
)

// LossManager is the context's loss listener. A Context subscribes it to
// its surface in SetSurface.
type LossManager struct {
	ctx *Context
}

// ContextLost marks the context lost. It returns true so the surface keeps
// the context restorable.
func (m *LossManager) ContextLost() bool {
	c := m.ctx
	c.lost = true
	c.log.Info("context lost")
	return true
}

// ContextRestored recreates every named resource on the fresh context.
// Errors are recorded on the context.
func (m *LossManager) ContextRestored() {
	c := m.ctx
	if err := c.restore(); err != nil {
		c.log.Error("context restore failed", "err", err)
		c.fail(err)
		return
	}
	c.log.Info("context restored")
}

// LoseContext asks the surface to drop its GL context. It fails when the
// surface cannot simulate loss.
func (c *Context) LoseContext() error {
	sim, ok := c.surface.(LossSimulator)
	if !ok {
		return &core.ConfigError{Op: "glctx.LoseContext", Msg: "surface cannot simulate context loss"}
	}
	sim.LoseContext()
	return nil
}

// RestoreContext asks the surface to restore a context dropped by
// LoseContext.
func (c *Context) RestoreContext() error {
	sim, ok := c.surface.(LossSimulator)
	if !ok {
		return &core.ConfigError{Op: "glctx.RestoreContext", Msg: "surface cannot simulate context loss"}
	}
	sim.RestoreContext()
	return nil
}

func (c *Context) restore() error {
	if c.gl == nil {
		return errNoGL
	}
	c.lost = false
	c.gl.DiscardObjects()

	c.phase = core.PhaseInactive
	c.active = nil
	c.mode = -1

	var errs []error
	for _, kind := range core.ResourceKinds {
		if kind == core.KindProgram {
			for _, name := range c.Names(kind) {
				p, err := c.buildProgram(name)
				if err != nil {
					err = fmt.Errorf("restore program %q: %w", name, err)
					errs = append(errs, err)
					c.programs[name] = &program{name: name, vars: make(map[string]*Variable), err: err}
					continue
				}
				c.programs[name] = p
			}
			continue
		}
		s := c.storeFor(kind)
		gen := generator(kind)
		for _, name := range s.names() {
			s.items[name] = gen(c.gl)
		}
		c.log.Debug("restored", "kind", kind.String(), "count", len(s.items))
	}

	c.initContext()
	c.allocIDs = make(map[string]bool)
	c.versions = make(map[string]uint64)
	return errors.Join(errs...)
}

func generator(kind core.ResourceKind) func(GL) uint32 {
	switch kind {
	case core.KindBuffer:
		return GL.CreateBuffer
	case core.KindFramebuffer:
		return GL.CreateFramebuffer
	case core.KindRenderbuffer:
		return GL.CreateRenderbuffer
	}
	return GL.CreateTexture
}
