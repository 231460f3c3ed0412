package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"pst-renderer/renderer"
)

// check preprocesses the built-in programs, the step snippet and any shader
// files given as arguments, without opening a window.
func check(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)

	r := renderer.New(cfg)
	defer r.Close()
	reg := r.Shaders()
	for _, path := range c.Args().Slice() {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read shader: %w", err)
		}
		if err := reg.Preprocess(string(b)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		bold.Printf("%-8s", name)
		fmt.Printf(" vertex %3d lines, fragment %3d lines\n", lineCount(def.Vertex), lineCount(def.Fragment))
	}

	if cfg.Shader.Path != "" {
		b, err := os.ReadFile(cfg.Shader.Path)
		if err != nil {
			return fmt.Errorf("failed to read shader: %w", err)
		}
		r.SetShader(string(b))
	} else {
		r.SetShader(renderer.DefaultShader)
	}
	src, first := r.StepSource()
	fmt.Printf("step snippet spliced at fragment line %d, %d lines total\n", first, lineCount(src))
	return nil
}

func lineCount(s string) int {
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
