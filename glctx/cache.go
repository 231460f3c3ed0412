package glctx

import "fmt"

// Init runs f the first time it is called with id over the lifetime of the
// context, including across context restorations. Use it for CPU-side setup
// that never needs redoing. If f fails, id is not marked done and the error
// is recorded.
func (c *Context) Init(id string, f func() error) *Context {
	if c.err != nil || c.initIDs[id] {
		return c
	}
	if err := f(); err != nil {
		return c.fail(fmt.Errorf("init %q: %w", id, err))
	}
	c.initIDs[id] = true
	return c
}

// Alloc runs f the first time it is called with id, and again after every
// context restoration. Use it for GPU-side storage setup.
func (c *Context) Alloc(id string, f func() error) *Context {
	if c.skip() || c.allocIDs[id] {
		return c
	}
	if err := f(); err != nil {
		return c.fail(fmt.Errorf("alloc %q: %w", id, err))
	}
	c.allocIDs[id] = true
	return c
}

// Allocv runs f whenever version differs from the version last allocated
// under id, and after every context restoration.
func (c *Context) Allocv(id string, version uint64, f func() error) *Context {
	if c.skip() {
		return c
	}
	if v, ok := c.versions[id]; ok && v == version {
		return c
	}
	if err := f(); err != nil {
		return c.fail(fmt.Errorf("alloc %q version %d: %w", id, version, err))
	}
	c.versions[id] = version
	return c
}
