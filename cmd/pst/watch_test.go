package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchShaderForwardsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "step.glsl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := watchShader(path)
	require.NoError(t, err)
	defer w.Close()

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.glsl"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	// Truncation may be observed before the write lands.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case src := <-w.Edits():
			if src == "v2" {
				return
			}
			assert.Empty(t, src)
		case <-timeout:
			t.Fatal("no edit received")
		}
	}
}

func TestShaderWatcherKeepsLatest(t *testing.T) {
	sw := &shaderWatcher{edits: make(chan string, 1)}
	sw.send("a")
	sw.send("b")
	sw.send("c")
	assert.Equal(t, "c", <-sw.edits)
	assert.Empty(t, sw.edits)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 1, lineCount("a"))
	assert.Equal(t, 2, lineCount("a\nb\n"))
	assert.Equal(t, 3, lineCount("a\n\nb"))
}
