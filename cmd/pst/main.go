// Command pst runs a GPU particle simulation whose step shader is edited
// live from a file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"pst-renderer/config"
	"pst-renderer/core"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "load settings from a .toml or .yaml file",
	}
	shaderFlag = &cli.StringFlag{
		Name:    "shader",
		Aliases: []string{"s"},
		Usage:   "step snippet file (defaults to the built-in swirl)",
	}
	widthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "window width in pixels",
	}
	heightFlag = &cli.IntFlag{
		Name:  "height",
		Usage: "window height in pixels",
	}
	dimFlag = &cli.IntFlag{
		Name:  "dim",
		Usage: "particle texture side; the simulation runs dim*dim particles",
	}
	texturesFlag = &cli.StringFlag{
		Name:  "textures",
		Usage: "base URL or directory for lookup textures",
	}
	noWatchFlag = &cli.BoolFlag{
		Name:  "no-watch",
		Usage: "do not reload the shader file when it changes",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "text or json",
	}

	commonFlags = []cli.Flag{configFlag, shaderFlag, dimFlag, logLevelFlag, logFormatFlag}
	runFlags    = []cli.Flag{widthFlag, heightFlag, texturesFlag, noWatchFlag}
)

func main() {
	app := &cli.App{
		Name:   "pst",
		Usage:  "live-coded GPU particle simulation",
		Flags:  append(append([]cli.Flag{}, commonFlags...), runFlags...),
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "open a window and run the simulation (default)",
				Flags:  append(append([]cli.Flag{}, commonFlags...), runFlags...),
				Action: run,
			},
			{
				Name:      "check",
				Usage:     "preprocess shader files and print their stages",
				ArgsUsage: "[shader files...]",
				Flags:     commonFlags,
				Action:    check,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pst:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, applies flag overrides and
// installs the logger.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if c.IsSet(widthFlag.Name) {
		cfg.Window.Width = c.Int(widthFlag.Name)
	}
	if c.IsSet(heightFlag.Name) {
		cfg.Window.Height = c.Int(heightFlag.Name)
	}
	if c.IsSet(dimFlag.Name) {
		cfg.Simulation.TextureDim = c.Int(dimFlag.Name)
	}
	if c.IsSet(shaderFlag.Name) {
		cfg.Shader.Path = c.String(shaderFlag.Name)
	}
	if c.IsSet(texturesFlag.Name) {
		cfg.Textures.BaseURL = c.String(texturesFlag.Name)
	}
	if c.Bool(noWatchFlag.Name) {
		cfg.Shader.Watch = false
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if c.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = c.String(logFormatFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return cfg, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	core.SetLogger(slog.New(handler))
	return cfg, nil
}
