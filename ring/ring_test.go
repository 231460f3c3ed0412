package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pst-renderer/core"
	"pst-renderer/glctx"
	"pst-renderer/internal/gltest"
	"pst-renderer/shader"
)

var floatOpts = core.TextureOptions{
	Width:          16,
	Height:         16,
	InternalFormat: glctx.RGBA32F,
	Format:         glctx.RGBA,
	Type:           glctx.FLOAT,
}

func newRing(t *testing.T, count int) (*Ring, *glctx.Context, *gltest.GL) {
	t.Helper()
	c := glctx.New(shader.NewRegistry())
	s := gltest.NewSurface(64, 64)
	require.NoError(t, c.SetSurface(s))
	r := New(c, "position")
	require.NoError(t, r.Alloc(count, floatOpts))
	return r, c, s.Fake()
}

func TestAlloc(t *testing.T) {
	r, c, fake := newRing(t, 3)
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"position0", "position1", "position2"}, r.Names())

	for _, name := range r.Names() {
		fbo, err := c.Framebuffer(name)
		require.NoError(t, err)
		tex, err := c.Texture(name)
		require.NoError(t, err)

		assert.Equal(t, tex, fake.Attachment(fbo), name)
		img, ok := fake.Texture(tex)
		require.True(t, ok)
		assert.Equal(t, uint32(glctx.RGBA32F), img.InternalFormat)
		assert.Equal(t, uint32(glctx.FLOAT), img.Type)
		assert.Equal(t, 16, img.Width)
		assert.Nil(t, img.Pixels)
	}
	assert.Equal(t, uint32(0), fake.BoundFramebuffer())

	params := fake.Find("TexParameteri")
	require.Len(t, params, 12)
	assert.Equal(t, []any{uint32(glctx.TEXTURE_MIN_FILTER), int32(glctx.NEAREST)}, params[0].Args)
	assert.Equal(t, []any{uint32(glctx.TEXTURE_WRAP_S), int32(glctx.CLAMP_TO_EDGE)}, params[2].Args)
}

func TestAllocErrors(t *testing.T) {
	c := glctx.New(shader.NewRegistry())
	require.NoError(t, c.SetSurface(gltest.NewSurface(1, 1)))
	r := New(c, "color")

	var ce *core.ConfigError
	require.ErrorAs(t, r.Alloc(3, core.TextureOptions{Width: 4}), &ce)
	require.ErrorAs(t, r.Alloc(1, floatOpts), &ce)
	assert.Equal(t, 0, r.Count())
}

func TestRotate(t *testing.T) {
	r, c, _ := newRing(t, 3)

	handles := func() (fbos, texs []uint32) {
		for _, name := range r.Names() {
			f, _ := c.Framebuffer(name)
			x, _ := c.Texture(name)
			fbos = append(fbos, f)
			texs = append(texs, x)
		}
		return
	}
	f0, t0 := handles()

	require.NoError(t, r.Rotate())
	f1, t1 := handles()
	assert.Equal(t, []uint32{f0[2], f0[0], f0[1]}, f1)
	assert.Equal(t, []uint32{t0[2], t0[0], t0[1]}, t1)

	// Each framebuffer still renders into its own texture.
	for i := range f1 {
		assert.Equal(t, t1[i], t0[indexOf(f0, f1[i])])
	}

	require.NoError(t, r.Rotate())
	require.NoError(t, r.Rotate())
	f3, t3 := handles()
	assert.Equal(t, f0, f3)
	assert.Equal(t, t0, t3)
}

func TestReallocReleasesPrevious(t *testing.T) {
	r, _, fake := newRing(t, 4)
	assert.Equal(t, 8, fake.Live(""))

	opts := floatOpts
	opts.Width, opts.Height = 32, 32
	require.NoError(t, r.Alloc(2, opts))
	assert.Equal(t, 4, fake.Live(""))
	assert.Equal(t, 32, r.Options().Width)

	require.NoError(t, r.Release())
	assert.Equal(t, 0, fake.Live(""))
	assert.Equal(t, 0, r.Count())
	require.NoError(t, r.Rotate())
}

func TestEnsureAfterRestore(t *testing.T) {
	r, c, fake := newRing(t, 3)
	require.NoError(t, r.Rotate())

	require.NoError(t, c.LoseContext())
	require.NoError(t, r.Ensure())
	require.NoError(t, c.RestoreContext())

	fake.ResetCalls()
	require.NoError(t, r.Ensure())
	assert.Len(t, fake.Find("TexImage2D"), 3)

	for _, name := range r.Names() {
		fbo, _ := c.Framebuffer(name)
		tex, _ := c.Texture(name)
		assert.Equal(t, tex, fake.Attachment(fbo))
		_, ok := fake.Texture(tex)
		assert.True(t, ok)
	}

	fake.ResetCalls()
	require.NoError(t, r.Ensure())
	assert.Empty(t, fake.Calls, "storage is configured once per restoration")
}

func indexOf(s []uint32, v uint32) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
