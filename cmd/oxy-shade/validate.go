package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/engine/loader"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-shade/engine/scene"
	"github.com/spf13/cobra"
)

// errInvalid is returned by the validate command when at least one file failed.
var errInvalid = errors.New("validation failed")

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate file...",
		Short: "Check shaders or projects without opening a window",
		Long: "validate assembles each file the way the preview does (built-in declarations, the uniform struct " +
			"for projects, then the shader source) and reports WGSL errors.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				if err := validateFile(path); err != nil {
					failed = true
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			}
			if failed {
				return errInvalid
			}
			return nil
		},
	}
}

// validateFile validates a .wgsl file on its own, or a .toml project's shader against its uniforms.
func validateFile(path string) error {
	s := scene.NewScene()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		p, err := loader.LoadProject(path)
		if err != nil {
			return err
		}
		if err := p.Apply(s, path); err != nil {
			return err
		}
	} else {
		src, err := shader.ReadSource(path)
		if err != nil {
			return err
		}
		s.SetShader(src)
	}

	snap := s.Snapshot()
	fs, err := shader.AssembleFragment(snap.Uniforms.Data.StructText, snap.Shader.Data)
	if err != nil {
		return err
	}
	return shader.Validate(fs.Source())
}
