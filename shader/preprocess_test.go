package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pst-renderer/core"
)

const sample = `//! name sample
#version 410 core
precision highp float;
//! vertex
in vec4 position;
void main() { gl_Position = position; }
//! fragment
out vec4 outColor;
void main() { outColor = vec4(1.0); }
//! common
// shared trailer`

func TestPreprocessLineAlignment(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Preprocess(sample))

	def, ok := r.Get("sample")
	require.True(t, ok)

	in := strings.Split(sample, "\n")
	vert := strings.Split(def.Vertex, "\n")
	frag := strings.Split(def.Fragment, "\n")

	require.Len(t, vert, len(in))
	require.Len(t, frag, len(in))

	// Common lines appear verbatim at the same index in both stages.
	for _, i := range []int{0, 1, 2, 10} {
		assert.Equal(t, in[i], vert[i], "vertex line %d", i)
		assert.Equal(t, in[i], frag[i], "fragment line %d", i)
		assert.NotEmpty(t, vert[i])
	}

	// Stage lines are blanked in the other stage.
	for i := 3; i <= 5; i++ {
		assert.Equal(t, in[i], vert[i])
		assert.Equal(t, "", frag[i])
	}
	for i := 6; i <= 8; i++ {
		assert.Equal(t, "", vert[i])
		assert.Equal(t, in[i], frag[i])
	}
}

func TestPreprocessCarriageReturns(t *testing.T) {
	src := "//! name cr\r//! vertex\rvoid main() {}\r//! fragment\rvoid main() {}"
	def, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, 5, len(strings.Split(def.Vertex, "\n")))
	assert.Equal(t, 5, len(strings.Split(def.Fragment, "\n")))
}

func TestPreprocessDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Preprocess(sample))

	err := r.Preprocess(sample)
	var dup *core.DuplicateError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "sample", dup.Name)
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"bad directive", "//! name x\n//! geometry\nvoid main() {}", "bad directive"},
		{"no name", "//! vertex\nvoid main() {}\n//! fragment\nvoid main() {}", "no name"},
		{"no vertex", "//! name x\n//! fragment\nvoid main() {}", "no vertex source"},
		{"no fragment", "//! name x\n//! vertex\nvoid main() {}", "no fragment source"},
		{"blank fragment", "//! name x\n//! vertex\nvoid main() {}\n//! fragment\n\n   \n", "no fragment source"},
		{"two names", "//! name x\n//! name y\nvoid main() {}", "second name"},
		{"empty name", "//! name\nvoid main() {}", "without a name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			var cfg *core.ConfigError
			require.True(t, errors.As(err, &cfg), "got %v", err)
			assert.Contains(t, cfg.Msg, tt.msg)
		})
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Preprocess(sample))

	prev, err := r.Replace(Definition{Name: "sample", Vertex: "v", Fragment: "f"})
	require.NoError(t, err)
	assert.Equal(t, "sample", prev.Name)

	def, _ := r.Get("sample")
	assert.Equal(t, "f", def.Fragment)

	_, err = r.Replace(Definition{Name: "missing"})
	var nf *core.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	require.NoError(t, a.Preprocess(sample))
	require.NoError(t, b.Preprocess(sample))
	assert.Equal(t, []string{"sample"}, a.Names())
}

func TestMustPreprocessPanics(t *testing.T) {
	assert.Panics(t, func() { NewRegistry().MustPreprocess("no directives") })
}
