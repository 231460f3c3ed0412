package glctx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pst-renderer/core"
	"pst-renderer/glctx"
	"pst-renderer/shader"
)

func TestAttributeSlotsFollowDeclarationOrder(t *testing.T) {
	c, s := newContext(t, basicShader)
	require.NoError(t, c.CreateProgram("basic"))

	h, err := c.Program("basic")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"color": 0, "position": 1}, s.Fake().AttribLocations(h))

	binds := s.Fake().Find("BindAttribLocation")
	require.Len(t, binds, 2)
	assert.Equal(t, []any{h, uint32(0), "color"}, binds[0].Args)
	assert.Equal(t, []any{h, uint32(1), "position"}, binds[1].Args)

	// Compiled once, linked twice, validated once.
	assert.Len(t, s.Fake().Find("LinkProgram"), 2)
	assert.Len(t, s.Fake().Find("ValidateProgram"), 1)
	assert.Equal(t, 0, s.Fake().Live("Shader"))
	assert.Equal(t, 1, s.Fake().Live("Program"))
}

// layoutShader declares b, a, c: b with an explicit layout, then a and c
// in one declaration.
const layoutShader = `//! name layout
#version 410 core
//! vertex
layout(location = 0) in vec2 b;
in float a, c;
void main() {
    gl_Position = vec4(b, a, c);
}
//! fragment
out vec4 fragColor;
void main() { fragColor = vec4(1.0); }`

func TestAttributeSlotsWithLayoutAndLists(t *testing.T) {
	c, s := newContext(t, layoutShader)
	require.NoError(t, c.CreateProgram("layout"))

	h, err := c.Program("layout")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"b": 0, "a": 1, "c": 2}, s.Fake().AttribLocations(h))

	binds := s.Fake().Find("BindAttribLocation")
	require.Len(t, binds, 3)
	assert.Equal(t, []any{h, uint32(0), "b"}, binds[0].Args)
	assert.Equal(t, []any{h, uint32(1), "a"}, binds[1].Args)
	assert.Equal(t, []any{h, uint32(2), "c"}, binds[2].Args)
}

func TestVariableTable(t *testing.T) {
	c, _ := newContext(t, basicShader)
	require.NoError(t, c.CreateProgram("basic"))

	vars, err := c.Variables("basic")
	require.NoError(t, err)

	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	// Uniforms first; "unused" was optimized away.
	assert.Equal(t, []string{"pointSize", "tint", "lut", "position", "color"}, names)

	byName := map[string]glctx.Variable{}
	for _, v := range vars {
		byName[v.Name] = v
	}
	assert.Equal(t, glctx.Variable{Name: "pointSize", Location: 0, Type: glctx.FLOAT, Arity: 1, Float: true}, byName["pointSize"])
	assert.Equal(t, 4, byName["tint"].Arity)
	assert.True(t, byName["tint"].Float)
	assert.Equal(t, 1, byName["lut"].Arity)
	assert.False(t, byName["lut"].Float)
	assert.True(t, byName["position"].Attribute)
	assert.Equal(t, int32(1), byName["position"].Location)
	assert.Equal(t, 2, byName["position"].Arity)
}

func TestMatrixAndArrayIntrospection(t *testing.T) {
	c, _ := newContext(t, matrixShader)
	require.NoError(t, c.CreateProgram("matrix"))
	vars, err := c.Variables("matrix")
	require.NoError(t, err)

	got := map[string]glctx.Variable{}
	for _, v := range vars {
		got[v.Name] = v
	}
	for name, arity := range map[string]int{"view": 16, "normalMat": 9, "rot": 4} {
		assert.True(t, got[name].Matrix, name)
		assert.Equal(t, arity, got[name].Arity, name)
	}
	assert.False(t, got["cell"].Float)
	assert.Equal(t, 2, got["cell"].Arity)

	// Reported as offsets[0], addressable as offsets.
	require.Contains(t, got, "offsets")
	assert.Equal(t, 2, got["offsets"].Arity)
}

func TestCreateProgramErrors(t *testing.T) {
	broken := func(name, vertexExtra, fragmentExtra string) string {
		return strings.Join([]string{
			"//! name " + name,
			"//! vertex",
			"in vec2 position;",
			vertexExtra,
			"void main() { gl_Position = vec4(position, 0.0, 1.0); }",
			"//! fragment",
			"out vec4 fragColor;",
			fragmentExtra,
			"void main() { fragColor = vec4(1.0); }",
		}, "\n")
	}

	tests := []struct {
		name  string
		src   string
		stage core.BuildStage
	}{
		{name: "vertex", src: broken("vertex", "#error bad vertex", ""), stage: core.StageCompileVertex},
		{name: "fragment", src: broken("fragment", "", "#error bad fragment"), stage: core.StageCompileFragment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newContext(t, tt.src)
			err := c.CreateProgram(tt.name)

			var be *core.BuildError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.stage, be.Stage)
			assert.Equal(t, tt.name, be.Program)
			assert.Contains(t, be.Log, "'#error'")

			assert.False(t, c.HasProgram(tt.name))
			assert.Equal(t, 0, s.Fake().Live(""), "no GL object may survive a failed build")
		})
	}

	t.Run("link", func(t *testing.T) {
		c, s := newContext(t, basicShader)
		s.Fake().FailLink = true
		var be *core.BuildError
		require.ErrorAs(t, c.CreateProgram("basic"), &be)
		assert.Equal(t, core.StageLink, be.Stage)
		assert.Equal(t, 0, s.Fake().Live(""))
	})

	t.Run("validate", func(t *testing.T) {
		c, s := newContext(t, basicShader)
		s.Fake().FailValidate = true
		var be *core.BuildError
		require.ErrorAs(t, c.CreateProgram("basic"), &be)
		assert.Equal(t, core.StageValidate, be.Stage)
		assert.Equal(t, 0, s.Fake().Live(""))
	})

	t.Run("unregistered", func(t *testing.T) {
		c, _ := newContext(t)
		var nf *core.NotFoundError
		require.ErrorAs(t, c.CreateProgram("basic"), &nf)
		assert.Equal(t, "shader", nf.Kind)
	})

	t.Run("duplicate", func(t *testing.T) {
		c, _ := newContext(t, basicShader)
		require.NoError(t, c.CreateProgram("basic"))
		var dup *core.DuplicateError
		require.ErrorAs(t, c.CreateProgram("basic"), &dup)
	})

	t.Run("out of phase", func(t *testing.T) {
		c, _ := newContext(t, basicShader, matrixShader)
		require.NoError(t, c.CreateProgram("basic"))
		c.Begin("basic")
		var pe *core.PhaseError
		require.ErrorAs(t, c.CreateProgram("matrix"), &pe)
		assert.Equal(t, core.PhaseInactive, pe.Expected)
		assert.Equal(t, core.PhasePreparing, pe.Actual)
	})

	t.Run("unknown type", func(t *testing.T) {
		c, s := newContext(t, broken("volume", "", "uniform sampler3D vol;\nvec4 probe() { return texture(vol, vec3(0.0)); }"))
		var ce *core.ConfigError
		require.ErrorAs(t, c.CreateProgram("volume"), &ce)
		assert.Contains(t, ce.Msg, "vol")
		assert.Equal(t, 0, s.Fake().Live(""))
	})

	t.Run("duplicate variable", func(t *testing.T) {
		c, _ := newContext(t, broken("twice", "uniform vec2 position;", ""))
		var dup *core.DuplicateError
		require.ErrorAs(t, c.CreateProgram("twice"), &dup)
		assert.Equal(t, "position", dup.Name)
	})

	t.Run("gl error", func(t *testing.T) {
		c, s := newContext(t, basicShader)
		s.Fake().SetError(0x0500)
		err := c.CreateProgram("basic")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "0x500")
		assert.Equal(t, 0, s.Fake().Live(""))
	})
}

func TestRebuildProgram(t *testing.T) {
	c, s := newContext(t, basicShader)
	reg := c.Shaders()

	// Rebuild of an unknown program creates it.
	require.NoError(t, c.RebuildProgram("basic"))
	old, _ := c.Program("basic")

	good, err := shader.Parse(strings.Replace(basicShader, "vColor * tint", "tint * vColor", 1))
	require.NoError(t, err)
	_, err = reg.Replace(good)
	require.NoError(t, err)

	require.NoError(t, c.RebuildProgram("basic"))
	h, _ := c.Program("basic")
	assert.NotEqual(t, old, h)
	assert.False(t, s.Fake().IsLive(old))

	bad, err := shader.Parse(strings.Replace(basicShader, "out vec4 fragColor;", "#error nope", 1))
	require.NoError(t, err)
	_, err = reg.Replace(bad)
	require.NoError(t, err)

	var be *core.BuildError
	require.ErrorAs(t, c.RebuildProgram("basic"), &be)
	kept, _ := c.Program("basic")
	assert.Equal(t, h, kept, "a failed rebuild keeps the previous program")
	assert.True(t, s.Fake().IsLive(h))
	assert.Equal(t, 1, s.Fake().Live("Program"))

	vars, err := c.Variables("basic")
	require.NoError(t, err)
	assert.Len(t, vars, 5)
}
