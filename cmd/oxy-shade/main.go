// Command oxy-shade opens a window that renders a WGSL fragment shader full screen and rebuilds it as the
// shader file and its uniforms change.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/Carmen-Shannon/oxy-shade/engine"
	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/Carmen-Shannon/oxy-shade/engine/window"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand(runPreview).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. run receives the merged configuration.
func newRootCommand(run func(cmd *cobra.Command, cfg Config) error) *cobra.Command {
	var (
		configPath string
		flags      = DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:          "oxy-shade [shader.wgsl | project.toml]",
		Short:        "Live preview for WGSL fragment shaders",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := DefaultConfig()
			if configPath != "" {
				loaded, err := LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			overlayFlags(cmd, &cfg, flags)
			if len(args) == 1 {
				cfg.SetStartupPath(args[0])
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "TOML config file")
	f.IntVar(&flags.Window.Width, "width", flags.Window.Width, "window width in pixels")
	f.IntVar(&flags.Window.Height, "height", flags.Window.Height, "window height in pixels")
	f.StringVarP(&flags.Preview.Project, "project", "p", "", "project file to open, also the save target for the S key")
	f.BoolVarP(&flags.Preview.Watch, "watch", "w", flags.Preview.Watch, "reload the shader file when it changes")
	f.BoolVar(&flags.Preview.Time, "time", flags.Preview.Time, "start with the time uniform enabled")
	f.BoolVar(&flags.Preview.VSync, "vsync", flags.Preview.VSync, "synchronize presentation with the display")
	f.Float64Var(&flags.Preview.FrameLimit, "frame-limit", 0, "maximum frames per second, 0 for none")
	f.BoolVar(&flags.Preview.Software, "software", false, "use the software fallback adapter")
	f.StringVar(&flags.Build.CompileTimeout, "compile-timeout", flags.Build.CompileTimeout, "how long to wait for a pipeline build")
	f.BoolVar(&flags.Build.RetryFailed, "retry-failed", false, "retry failed builds every frame")
	f.BoolVar(&flags.Build.Coarse, "coarse", false, "rebuild the pipeline on every uniform edit")
	f.StringVar(&flags.Log.Level, "log-level", flags.Log.Level, "debug, info, warn or error")
	f.BoolVar(&flags.Log.Profile, "profile", false, "log frame and cache statistics every second")

	cmd.AddCommand(newValidateCommand())
	return cmd
}

// overlayFlags copies every explicitly set flag from flags into cfg.
func overlayFlags(cmd *cobra.Command, cfg *Config, flags Config) {
	set := map[string]func(){
		"width":           func() { cfg.Window.Width = flags.Window.Width },
		"height":          func() { cfg.Window.Height = flags.Window.Height },
		"project":         func() { cfg.Preview.Project = flags.Preview.Project },
		"watch":           func() { cfg.Preview.Watch = flags.Preview.Watch },
		"time":            func() { cfg.Preview.Time = flags.Preview.Time },
		"vsync":           func() { cfg.Preview.VSync = flags.Preview.VSync },
		"frame-limit":     func() { cfg.Preview.FrameLimit = flags.Preview.FrameLimit },
		"software":        func() { cfg.Preview.Software = flags.Preview.Software },
		"compile-timeout": func() { cfg.Build.CompileTimeout = flags.Build.CompileTimeout },
		"retry-failed":    func() { cfg.Build.RetryFailed = flags.Build.RetryFailed },
		"coarse":          func() { cfg.Build.Coarse = flags.Build.Coarse },
		"log-level":       func() { cfg.Log.Level = flags.Log.Level },
		"profile":         func() { cfg.Log.Profile = flags.Log.Profile },
	}
	for name, apply := range set {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}

func runPreview(cmd *cobra.Command, cfg Config) error {
	logger, err := newLogger(cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	common.SetLogger(logger)

	w, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	var sceneOptions []scene.SceneBuilderOption
	if cfg.Preview.Time {
		sceneOptions = append(sceneOptions, scene.WithTime())
	}
	s := scene.NewScene(sceneOptions...)

	r := renderer.NewRenderer(renderer.BackendTypeWGPU, w,
		renderer.WithPresentMode(cfg.PresentMode()),
		renderer.WithForceSoftwareRenderer(cfg.Preview.Software),
		renderer.WithCacheOptions(cfg.CacheOptions(func(err error) {
			fmt.Fprintln(cmd.ErrOrStderr(), "build failed:", err)
		})...),
	)
	defer r.Release()

	l, err := loader.NewLoader(s,
		loader.WithHotReload(cfg.Preview.Watch),
		loader.WithErrorHandler(func(path string, err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "reload %s: %v\n", path, err)
		}),
	)
	if err != nil {
		return err
	}
	defer l.Close()

	if path := cfg.StartupPath(); path != "" {
		if err := l.Open(path); err != nil {
			return err
		}
	}

	e, err := engine.NewEngine(w, s, r,
		engine.WithLoader(l, cfg.Preview.Project),
		engine.WithTitle(cfg.Window.Title),
		engine.WithTickRate(cfg.Preview.TickRate),
		engine.WithRenderFrameLimit(cfg.Preview.FrameLimit),
		engine.WithProfiling(cfg.Log.Profile),
	)
	if err != nil {
		return err
	}
	e.Run()
	return nil
}
