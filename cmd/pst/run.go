package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli/v2"

	"pst-renderer/core"
	"pst-renderer/internal/opengl"
	"pst-renderer/renderer"
	"pst-renderer/shader"
)

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := core.Logger()

	snippet := renderer.DefaultShader
	if cfg.Shader.Path != "" {
		b, err := os.ReadFile(cfg.Shader.Path)
		if err != nil {
			return fmt.Errorf("failed to read shader: %w", err)
		}
		snippet = string(b)
	}

	winCfg := opengl.DefaultWindowConfig()
	winCfg.Width = cfg.Window.Width
	winCfg.Height = cfg.Window.Height
	winCfg.Title = cfg.Window.Title
	winCfg.VSync = cfg.Window.VSync

	window, err := opengl.NewWindow(winCfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	r := renderer.New(cfg)
	defer r.Close()
	if err := r.SetSurface(window); err != nil {
		return err
	}
	log.Info("opengl context", "version", window.GLVersion())

	source := cfg.Shader.Path
	if source == "" {
		source = "<builtin>"
	}
	r.OnError(printDiagnostics(source))
	r.OnCompile(func() {
		color.New(color.FgGreen).Fprintf(os.Stderr, "%s: compiled\n", source)
	})
	r.SetShader(snippet)
	r.Configure(renderer.Options{TextureBaseURL: cfg.Textures.BaseURL})
	if err := r.Init(); err != nil {
		return err
	}

	var edits <-chan string
	if cfg.Shader.Path != "" && cfg.Shader.Watch {
		w, err := watchShader(cfg.Shader.Path)
		if err != nil {
			return err
		}
		defer w.Close()
		edits = w.Edits()
	}

	input := newOrbitInput()
	window.SetScrollCallback(func(_, yoff float64) {
		r.Camera().Zoom(float32(-yoff) * 0.25)
	})
	window.SetKeyCallback(func(key glfw.Key, _ glfw.ModifierKey) {
		switch key {
		case glfw.KeyEscape:
			window.Handle.SetShouldClose(true)
		case glfw.KeyL:
			if window.Lost() {
				log.Info("restoring context")
				window.RestoreContext()
			} else {
				log.Info("simulating context loss")
				window.LoseContext()
			}
		}
	})

	frames := 0
	lastTitle := time.Now()
	for !window.ShouldClose() {
		select {
		case src := <-edits:
			r.SetShader(src)
		default:
		}

		input.update(window, r.Camera())
		if err := r.Step(); err != nil {
			log.Warn("frame failed", "err", err)
		}
		window.SwapBuffers()
		window.PollEvents()

		frames++
		if elapsed := time.Since(lastTitle); elapsed >= time.Second {
			window.SetTitle(fmt.Sprintf("%s - %.0f FPS", cfg.Window.Title, float64(frames)/elapsed.Seconds()))
			frames = 0
			lastTitle = time.Now()
		}
	}
	return nil
}

// printDiagnostics writes compiler diagnostics in file:line form.
func printDiagnostics(source string) func([]shader.Diagnostic) {
	loc := color.New(color.FgRed, color.Bold)
	return func(diags []shader.Diagnostic) {
		for _, d := range diags {
			loc.Fprintf(os.Stderr, "%s:%d:", source, d.Line)
			fmt.Fprintf(os.Stderr, " %s\n", d.Message)
		}
	}
}
