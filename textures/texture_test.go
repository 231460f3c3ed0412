package textures

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"pst-renderer/core"
	"pst-renderer/glctx"
	"pst-renderer/internal/gltest"
	"pst-renderer/shader"
)

// gradient is 2x2: red, green on top; blue, white below.
func gradient() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 255, 0, 255})
	img.Set(0, 1, color.NRGBA{0, 0, 255, 255})
	img.Set(1, 1, color.NRGBA{255, 255, 255, 128})
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient()))
	return buf.Bytes()
}

type delivery struct {
	tex *Texture
	err error
}

func loadOne(t *testing.T, l *Loader, src string, opts core.TextureOptions) delivery {
	t.Helper()
	var got []delivery
	l.Load(src, opts, func(tex *Texture, err error) { got = append(got, delivery{tex, err}) })
	require.Eventually(t, func() bool { return l.Poll() > 0 }, 5*time.Second, 5*time.Millisecond)
	require.Len(t, got, 1)
	return got[0]
}

func TestLoadHTTP(t *testing.T) {
	var hits atomic.Int32
	body := encodePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/noise-lut.png" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	defer l.Close()

	opts := core.TextureOptions{Filter: glctx.LINEAR, Wrap: glctx.REPEAT}
	d := loadOne(t, l, srv.URL+"/noise-lut.png", opts)
	require.NoError(t, d.err)
	assert.Equal(t, 2, d.tex.Width)
	assert.Equal(t, 2, d.tex.Height)
	assert.Equal(t, opts, d.tex.Options)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255, 255, 255, 255, 128}, d.tex.Pixels)

	// Cached: no second request.
	d = loadOne(t, l, srv.URL+"/noise-lut.png", opts)
	require.NoError(t, d.err)
	assert.Equal(t, int32(1), hits.Load())

	d = loadOne(t, l, srv.URL+"/missing.png", opts)
	require.Error(t, d.err)
	assert.Contains(t, d.err.Error(), "404")
	assert.Nil(t, d.tex)
}

func TestLoadFileAndFlip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lut.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, gradient()))
	require.NoError(t, f.Close())

	l := NewLoader(nil)
	defer l.Close()

	d := loadOne(t, l, path, core.TextureOptions{FlipY: true})
	require.NoError(t, d.err)
	// Bottom row first.
	assert.Equal(t, []byte{0, 0, 255, 255}, d.tex.Pixels[:4])
	assert.Equal(t, []byte{255, 0, 0, 255}, d.tex.Pixels[8:12])

	d = loadOne(t, l, "file://"+filepath.ToSlash(path), core.TextureOptions{})
	require.NoError(t, d.err)
	assert.Equal(t, []byte{255, 0, 0, 255}, d.tex.Pixels[:4], "a different source string is decoded again")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))

	l := NewLoader(nil)
	defer l.Close()

	d := loadOne(t, l, junk, core.TextureOptions{})
	require.Error(t, d.err)
	assert.Contains(t, d.err.Error(), "decode")

	d = loadOne(t, l, filepath.Join(dir, "absent.png"), core.TextureOptions{})
	require.Error(t, d.err)
	assert.ErrorIs(t, d.err, os.ErrNotExist)
}

func TestPollWithoutResults(t *testing.T) {
	l := NewLoader(nil)
	defer l.Close()
	assert.Equal(t, 0, l.Poll())
}

func TestUpload(t *testing.T) {
	c := glctx.New(shader.NewRegistry())
	s := gltest.NewSurface(8, 8)
	require.NoError(t, c.SetSurface(s))
	fake := s.Fake()

	tex := decode(gradient(), false)
	tex.version = versions.Add(1)
	tex.Options = core.TextureOptions{Filter: glctx.LINEAR}

	require.NoError(t, Upload(c, "noiseLUT", tex))
	h, err := c.Texture("noiseLUT")
	require.NoError(t, err)
	img, ok := fake.Texture(h)
	require.True(t, ok)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, tex.Pixels, img.Pixels)
	assert.Equal(t, uint32(glctx.UNSIGNED_BYTE), img.Type)

	fake.ResetCalls()
	require.NoError(t, Upload(c, "noiseLUT", tex))
	assert.Empty(t, fake.Find("TexImage2D"), "same version uploads once")

	require.NoError(t, c.LoseContext())
	require.NoError(t, Upload(c, "noiseLUT", tex))
	require.NoError(t, c.RestoreContext())
	require.NoError(t, Upload(c, "noiseLUT", tex))
	h, _ = c.Texture("noiseLUT")
	img, ok = fake.Texture(h)
	require.True(t, ok, "re-uploaded after restore")
	assert.Equal(t, tex.Pixels, img.Pixels)

	var ce *core.ConfigError
	assert.ErrorAs(t, Upload(c, "empty", &Texture{}), &ce)
}
