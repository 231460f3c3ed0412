// Package ring implements ring-buffered render targets for feedback
// rendering: a fixed set of framebuffer/texture pairs whose names rotate
// after every frame instead of being reallocated.
//
// Slot 0 is the target of the current frame, slot 1 holds the previous
// frame, slot 2 the one before that. Rotate makes the frame just rendered
// slot 1 and recycles the oldest storage as the new slot 0.
package ring

import (
	"fmt"
	"strconv"

	"pst-renderer/core"
	"pst-renderer/glctx"
)

// Ring is a set of framebuffers, each with one colour texture of the same
// name, addressed as base0..base(n-1).
type Ring struct {
	ctx     *glctx.Context
	base    string
	count   int
	opts    core.TextureOptions
	version uint64
}

// New returns an empty ring whose resources will be named after base.
func New(ctx *glctx.Context, base string) *Ring {
	return &Ring{ctx: ctx, base: base}
}

// Alloc creates count framebuffer/texture pairs with storage described by
// opts. Calling it again releases the previous set first.
func (r *Ring) Alloc(count int, opts core.TextureOptions) error {
	const op = "ring.Alloc"
	if opts.Width <= 0 || opts.Height <= 0 {
		return &core.ConfigError{Op: op, Msg: fmt.Sprintf("%s: missing texture size", r.base)}
	}
	if count < 2 {
		return &core.ConfigError{Op: op, Msg: fmt.Sprintf("%s: need at least 2 slots, got %d", r.base, count)}
	}
	if err := r.Release(); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		name := r.base + strconv.Itoa(i)
		if err := r.ctx.CreateFramebuffer(name); err != nil {
			return err
		}
		if err := r.ctx.CreateTexture(name); err != nil {
			return err
		}
		r.count = i + 1
	}
	r.opts = opts
	r.version++
	return r.Ensure()
}

// Ensure (re)configures the ring's storage if it was never configured for
// the current allocation or the context was restored since. Call it once
// per frame before rendering into the ring.
func (r *Ring) Ensure() error {
	if r.count == 0 {
		return nil
	}
	r.ctx.Allocv("ring:"+r.base, r.version, r.setup)
	return r.ctx.Err()
}

func (r *Ring) setup() error {
	c := r.ctx
	for i := 0; i < r.count; i++ {
		name := r.Name(i)
		c.BindTexture2D(name).
			TexParameters(r.opts).
			TexImage2D(r.opts, nil).
			BindFramebuffer(name).
			AttachTexture(name)
	}
	c.BindTexture2D("").BindFramebuffer("")
	return c.Err()
}

// Rotate shifts every slot by one: slot i becomes slot i+1 and the last
// slot becomes slot 0.
func (r *Ring) Rotate() error {
	if r.count == 0 {
		return nil
	}
	names := r.Names()
	if err := r.ctx.RotateNames(core.KindFramebuffer, names); err != nil {
		return err
	}
	return r.ctx.RotateNames(core.KindTexture, names)
}

// Name returns the resource name of slot i.
func (r *Ring) Name(i int) string {
	return r.base + strconv.Itoa(i)
}

// Names returns the resource names of every slot in order.
func (r *Ring) Names() []string {
	names := make([]string, r.count)
	for i := range names {
		names[i] = r.Name(i)
	}
	return names
}

func (r *Ring) Count() int { return r.count }

// Options returns the storage options of the current allocation.
func (r *Ring) Options() core.TextureOptions { return r.opts }

// Release deletes every framebuffer and texture of the ring.
func (r *Ring) Release() error {
	for i := 0; i < r.count; i++ {
		name := r.Name(i)
		if r.ctx.HasFramebuffer(name) {
			if err := r.ctx.DeleteFramebuffer(name); err != nil {
				return err
			}
		}
		if r.ctx.HasTexture(name) {
			if err := r.ctx.DeleteTexture(name); err != nil {
				return err
			}
		}
	}
	r.count = 0
	return nil
}
