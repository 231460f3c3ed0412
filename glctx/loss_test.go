package glctx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pst-renderer/core"
	"pst-renderer/glctx"
	"pst-renderer/internal/gltest"
)

func TestInitRunsOnce(t *testing.T) {
	c, s := newContext(t)
	runs := 0
	f := func() error { runs++; return nil }

	c.Init("setup", f).Init("setup", f)
	require.NoError(t, c.Err())
	assert.Equal(t, 1, runs)

	require.NoError(t, c.LoseContext())
	c.Init("setup", f)
	require.NoError(t, c.RestoreContext())
	c.Init("setup", f)
	assert.Equal(t, 1, runs, "init survives restoration")
	assert.False(t, s.Lost())
}

func TestCacheFailureDoesNotMarkDone(t *testing.T) {
	c, _ := newContext(t)
	boom := errors.New("boom")
	fail := true
	runs := 0
	f := func() error {
		runs++
		if fail {
			return boom
		}
		return nil
	}

	c.Alloc("storage", f)
	require.ErrorIs(t, c.Err(), boom)
	c.Alloc("storage", f)
	assert.Equal(t, 1, runs, "pending error suppresses later calls")

	c.Recover()
	fail = false
	c.Alloc("storage", f).Alloc("storage", f)
	require.NoError(t, c.Err())
	assert.Equal(t, 2, runs)

	fail = true
	c.Init("once", f)
	require.ErrorIs(t, c.Err(), boom)
	c.Recover()
	fail = false
	c.Init("once", f).Init("once", f)
	assert.Equal(t, 4, runs)
}

func TestAllocRerunsAfterRestore(t *testing.T) {
	c, _ := newContext(t)
	runs := 0
	f := func() error { runs++; return nil }

	c.Alloc("storage", f).Alloc("storage", f)
	assert.Equal(t, 1, runs)

	require.NoError(t, c.LoseContext())
	c.Alloc("storage", f)
	assert.Equal(t, 1, runs, "nothing runs while lost")
	assert.NoError(t, c.Err())

	require.NoError(t, c.RestoreContext())
	c.Alloc("storage", f).Alloc("storage", f)
	assert.Equal(t, 2, runs)
}

func TestAllocv(t *testing.T) {
	c, _ := newContext(t)
	var seen []uint64
	alloc := func(v uint64) {
		c.Allocv("ring", v, func() error { seen = append(seen, v); return nil })
	}

	alloc(1)
	alloc(1)
	alloc(2)
	alloc(2)
	alloc(1)
	assert.Equal(t, []uint64{1, 2, 1}, seen)

	require.NoError(t, c.LoseContext())
	require.NoError(t, c.RestoreContext())
	alloc(1)
	assert.Equal(t, []uint64{1, 2, 1, 1}, seen)

	// Versions are tracked per id.
	c.Allocv("other", 1, func() error { seen = append(seen, 100); return nil })
	assert.Equal(t, []uint64{1, 2, 1, 1, 100}, seen)
	require.NoError(t, c.Err())
}

func TestLostContext(t *testing.T) {
	c, fake := newBasic(t)

	require.NoError(t, c.LoseContext())
	assert.True(t, c.Lost())

	_, err := c.GL()
	assert.ErrorIs(t, err, core.ErrContextLost)
	assert.ErrorIs(t, c.CreateBuffer("other"), core.ErrContextLost)
	assert.ErrorIs(t, c.RebuildProgram("basic"), core.ErrContextLost)

	calls := len(fake.Calls)
	bindBasic(c.Begin("basic")).Ready().Points().DrawArrays(0, 1).End()
	assert.NoError(t, c.Err(), "fluent calls no-op while lost")
	assert.Len(t, fake.Calls, calls)

	// Deleting while lost forgets the name without touching GL.
	require.NoError(t, c.DeleteBuffer("quad"))
	assert.Len(t, fake.Calls, calls)
}

func TestRestoreRecreatesEverything(t *testing.T) {
	c, s := newContext(t, basicShader, matrixShader)
	fake := s.Fake()

	require.NoError(t, c.CreateProgram("basic"))
	require.NoError(t, c.CreateProgram("matrix"))
	require.NoError(t, c.CreateBuffer("quad"))
	require.NoError(t, c.CreateFramebuffer("target"))
	require.NoError(t, c.CreateRenderbuffer("depth"))
	for _, name := range []string{"a", "b"} {
		require.NoError(t, c.CreateTexture(name))
	}

	type snapshot map[core.ResourceKind]map[string]uint32
	take := func() snapshot {
		out := snapshot{}
		for _, kind := range core.ResourceKinds {
			out[kind] = map[string]uint32{}
			for _, name := range c.Names(kind) {
				var h uint32
				var err error
				switch kind {
				case core.KindBuffer:
					h, err = c.Buffer(name)
				case core.KindFramebuffer:
					h, err = c.Framebuffer(name)
				case core.KindRenderbuffer:
					h, err = c.Renderbuffer(name)
				case core.KindTexture:
					h, err = c.Texture(name)
				case core.KindProgram:
					h, err = c.Program(name)
				}
				require.NoError(t, err)
				out[kind][name] = h
			}
		}
		return out
	}
	before := take()
	live := fake.Live("")

	// Lose in the middle of a draw.
	require.NoError(t, c.CreateBuffer("x"))
	c.Begin("basic")
	require.NoError(t, c.LoseContext())
	require.NoError(t, c.RestoreContext())
	require.NoError(t, c.Err())

	assert.Equal(t, core.PhaseInactive, c.Phase())
	assert.Equal(t, 1, fake.Generation())

	after := take()
	for kind, names := range before {
		require.Len(t, after[kind], len(names)+boolInt(kind == core.KindBuffer), kind.String())
		for name, h := range names {
			nh, ok := after[kind][name]
			require.True(t, ok, "%s %q survives", kind, name)
			assert.NotEqual(t, h, nh, "%s %q gets a new handle", kind, name)
			assert.True(t, fake.IsLive(nh))
		}
	}
	assert.Equal(t, live+1, fake.Live(""), "one object per name, nothing leaked")

	// Recompiled programs keep their attribute slots and are usable.
	h, _ := c.Program("basic")
	assert.Equal(t, map[string]int32{"color": 0, "position": 1}, fake.AttribLocations(h))

	fake.ResetCalls()
	c.UploadCCWQuad("quad")
	bindBasic(c.Begin("basic")).Ready().Triangles().DrawArrays(0, 6).End()
	require.NoError(t, c.Err())
	assert.Empty(t, fake.Stale)
}

func TestRestoreReportsBrokenProgram(t *testing.T) {
	c, s := newContext(t, basicShader)
	require.NoError(t, c.CreateProgram("basic"))

	require.NoError(t, c.LoseContext())
	s.Fake().FailLink = true
	require.NoError(t, c.RestoreContext())

	var be *core.BuildError
	require.ErrorAs(t, c.Err(), &be)
	assert.False(t, c.Lost())

	// The name survives so the restored set matches the one before loss.
	assert.True(t, c.HasProgram("basic"))
	assert.Equal(t, []string{"basic"}, c.Names(core.KindProgram))
	_, err := c.Program("basic")
	require.ErrorAs(t, err, &be)

	c.Recover()
	c.Begin("basic")
	require.ErrorAs(t, c.Err(), &be)
	c.Recover()

	// A later rebuild brings it back.
	s.Fake().FailLink = false
	require.NoError(t, c.RebuildProgram("basic"))
	h, err := c.Program("basic")
	require.NoError(t, err)
	assert.True(t, s.Fake().IsLive(h))
	assert.Empty(t, s.Fake().Stale)
}

func TestSurfaceSwitchResubscribes(t *testing.T) {
	c, first := newContext(t)
	require.True(t, first.Subscribed())

	second := gltest.NewSurface(10, 10)
	require.NoError(t, c.SetSurface(second))
	assert.False(t, first.Subscribed())
	assert.True(t, second.Subscribed())

	// Loss on the old surface no longer reaches the context.
	first.LoseContext()
	assert.False(t, c.Lost())

	require.NoError(t, c.SetSurface(nil))
	assert.False(t, second.Subscribed())
	_, err := c.GL()
	assert.ErrorIs(t, err, core.ErrContextLost)
}

type plainSurface struct{ glctx.Surface }

func TestLossSimulationUnsupported(t *testing.T) {
	c := glctx.New(nil)
	require.NoError(t, c.SetSurface(plainSurface{gltest.NewSurface(1, 1)}))

	var ce *core.ConfigError
	assert.ErrorAs(t, c.LoseContext(), &ce)
	assert.ErrorAs(t, c.RestoreContext(), &ce)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
