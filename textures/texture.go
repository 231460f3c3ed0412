// Package textures loads images from URLs or files on background goroutines
// and hands the decoded pixels to the frame thread for upload.
package textures

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"pst-renderer/core"
	"pst-renderer/glctx"
)

// Texture is a decoded image held in CPU memory.
type Texture struct {
	Source  string
	Width   int
	Height  int
	Pixels  []byte // RGBA8, row-major
	Options core.TextureOptions

	version uint64
}

// Callback receives the result of a Load. It runs on the goroutine that
// calls Poll.
type Callback func(tex *Texture, err error)

type result struct {
	tex *Texture
	err error
	cb  Callback
}

var versions atomic.Uint64

// Loader fetches and decodes textures concurrently. Results are queued until
// the frame thread calls Poll.
type Loader struct {
	client  *http.Client
	results chan result

	mu    sync.RWMutex
	cache map[string]*Texture

	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
	log     *slog.Logger
}

// NewLoader returns a loader that fetches http(s) URLs with client, or with
// http.DefaultClient when client is nil.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		client:  client,
		results: make(chan result, 16),
		cache:   make(map[string]*Texture),
		ctx:     ctx,
		cancel:  cancel,
		log:     core.Logger().With("component", "textures"),
	}
}

// Load starts fetching src in the background. src may be an http(s) URL, a
// file:// URL or a plain path. cb is called from Poll once the texture is
// decoded or failed. Decoded images are cached by source, so loading the
// same source again only re-applies opts.
func (l *Loader) Load(src string, opts core.TextureOptions, cb Callback) {
	l.mu.RLock()
	cached, ok := l.cache[src]
	l.mu.RUnlock()

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		var r result
		r.cb = cb
		if ok {
			tex := *cached
			if tex.Options != opts {
				tex.Options = opts
				tex.version = versions.Add(1)
			}
			r.tex = &tex
		} else {
			r.tex, r.err = l.load(src, opts)
		}
		select {
		case l.results <- r:
		case <-l.ctx.Done():
		}
	}()
}

func (l *Loader) load(src string, opts core.TextureOptions) (*Texture, error) {
	rc, err := l.open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch texture %s: %w", src, err)
	}
	defer rc.Close()

	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", src, err)
	}

	tex := decode(img, opts.FlipY)
	tex.Source = src
	tex.Options = opts
	tex.version = versions.Add(1)
	l.log.Debug("texture decoded", "src", src, "format", format, "width", tex.Width, "height", tex.Height)

	l.mu.Lock()
	l.cache[src] = tex
	l.mu.Unlock()
	return tex, nil
}

func (l *Loader) open(src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(l.ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	case "file":
		return os.Open(u.Path)
	}
	return os.Open(src)
}

// decode converts img to tightly packed non-premultiplied RGBA8.
func decode(img image.Image, flipY bool) *Texture {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, width*height*4)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := y - bounds.Min.Y
		if flipY {
			row = height - 1 - row
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			idx := (row*width + (x - bounds.Min.X)) * 4
			pixels[idx] = c.R
			pixels[idx+1] = c.G
			pixels[idx+2] = c.B
			pixels[idx+3] = c.A
		}
	}

	return &Texture{Width: width, Height: height, Pixels: pixels}
}

// Poll delivers every finished load to its callback and returns how many
// were delivered. It never blocks.
func (l *Loader) Poll() int {
	n := 0
	for {
		select {
		case r := <-l.results:
			n++
			if r.err != nil {
				l.log.Warn("texture load failed", "err", r.err)
			}
			if r.cb != nil {
				r.cb(r.tex, r.err)
			}
		default:
			return n
		}
	}
}

// Close abandons loads in flight and waits for their goroutines to exit.
// Undelivered results are dropped.
func (l *Loader) Close() {
	l.cancel()
	l.pending.Wait()
}

// Upload makes tex the contents of the texture called name, creating it if
// needed. The upload is repeated after a context restoration, so callers
// holding a texture call Upload every frame.
func Upload(ctx *glctx.Context, name string, tex *Texture) error {
	if tex == nil || len(tex.Pixels) == 0 {
		return &core.ConfigError{Op: "textures.Upload", Msg: fmt.Sprintf("texture %q has no pixel data", name)}
	}
	if ctx.Lost() {
		return nil
	}
	if !ctx.HasTexture(name) {
		if err := ctx.CreateTexture(name); err != nil {
			return err
		}
	}

	opts := tex.Options
	opts.Width, opts.Height = tex.Width, tex.Height
	opts.InternalFormat, opts.Format, opts.Type = glctx.RGBA, glctx.RGBA, glctx.UNSIGNED_BYTE

	ctx.Allocv("texture:"+name, tex.version, func() error {
		ctx.BindTexture2D(name).
			TexParameters(opts).
			TexImage2D(opts, tex.Pixels).
			BindTexture2D("")
		return ctx.Err()
	})
	return ctx.Err()
}
