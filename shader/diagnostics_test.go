package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pst-renderer/core"
)

func TestParseDiagnostics(t *testing.T) {
	log := "ERROR: 0:12: 'foo' : undeclared identifier\n" +
		"WARNING: 0:3: something harmless\n" +
		"0:7(5): error: `bar' undeclared\n" +
		"0(9) : error C1008: undefined variable \"baz\"\n" +
		"ERROR: 2 compilation errors.  No code generated.\n"

	got := ParseDiagnostics(log)
	want := []core.Diagnostic{
		{Line: 12, Message: "'foo' : undeclared identifier"},
		{Line: 7, Message: "`bar' undeclared"},
		{Line: 9, Message: "C1008: undefined variable \"baz\""},
	}
	assert.Equal(t, want, got)
}

func TestLineOf(t *testing.T) {
	text := "a\nb\nc//{{marker}}\nd"
	assert.Equal(t, 1, LineOf(text, 0))
	assert.Equal(t, 1, LineOf(text, 1))
	assert.Equal(t, 2, LineOf(text, 2))
	assert.Equal(t, 3, LineOf(text, 5))
	assert.Equal(t, 4, LineOf(text, len(text)))
}

func TestRemap(t *testing.T) {
	in := []core.Diagnostic{{Line: 20, Message: "x"}, {Line: 22, Message: "y"}}
	out := Remap(in, 20)
	assert.Equal(t, 1, out[0].Line)
	assert.Equal(t, 3, out[1].Line)
	assert.Equal(t, 20, in[0].Line)
}
