package glctx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pst-renderer/glctx"
	"pst-renderer/internal/gltest"
	"pst-renderer/shader"
)

// basicShader declares color before position; the fake GL reports
// attributes reverse-alphabetically, so slots only follow declaration order
// if the context pins them.
const basicShader = `//! name basic
#version 410 core
//! vertex
in vec4 color;
in vec2 position;
uniform float pointSize;
out vec4 vColor;
void main() {
    vColor = color;
    gl_PointSize = pointSize;
    gl_Position = vec4(position, 0.0, 1.0);
}
//! fragment
uniform vec4 tint;
uniform sampler2D lut;
uniform mat4 unused;
in vec4 vColor;
out vec4 fragColor;
void main() {
    fragColor = vColor * tint + texture(lut, vec2(0.5));
}`

const matrixShader = `//! name matrix
#version 410 core
//! vertex
in vec3 position;
uniform mat4 view;
uniform mat3 normalMat;
uniform mat2 rot;
uniform ivec2 cell;
uniform vec2 offsets[4];
void main() {
    gl_Position = view * vec4(normalMat * position, 1.0) + vec4(rot * offsets[0], vec2(cell));
}
//! fragment
out vec4 fragColor;
void main() { fragColor = vec4(1.0); }`

func newContext(t *testing.T, sources ...string) (*glctx.Context, *gltest.Surface) {
	t.Helper()
	reg := shader.NewRegistry()
	for _, src := range sources {
		require.NoError(t, reg.Preprocess(src))
	}
	c := glctx.New(reg)
	s := gltest.NewSurface(320, 240)
	require.NoError(t, c.SetSurface(s))
	return c, s
}

// bindBasic binds every variable of the basic program.
func bindBasic(c *glctx.Context) *glctx.Context {
	return c.Value("pointSize", 2).
		Value("tint", 1, 1, 1, 1).
		Value("lut", 0).
		Pack("quad", "position", "color")
}

func newBasic(t *testing.T) (*glctx.Context, *gltest.GL) {
	t.Helper()
	c, s := newContext(t, basicShader)
	require.NoError(t, c.CreateProgram("basic"))
	require.NoError(t, c.CreateBuffer("quad"))
	c.BufferDataStatic("quad", make([]float32, 36))
	require.NoError(t, c.Err())
	return c, s.Fake()
}
