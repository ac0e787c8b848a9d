// Package initcmder provides the init command for initializing a local
// .designlog directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
)

const (
	dirName    = ".designlog"
	configFile = "config.toml"
)

const initLongDesc string = `Initialize a new .designlog/ directory in the current working directory.

Creates a local .designlog/ directory that takes precedence over
~/.designlog/ for configuration, credentials, the history database and the
last run.

With --preset a config.toml is written with the preset's provider settings:
  cerebras      Cerebras GLM, streamed (default provider cerebras)
  nvidia        NVIDIA NIM Qwen, single response (default provider nvidia)
  nvidia-kimi   NVIDIA NIM Kimi K2.5, streamed
  gemini        Gemini Flash with model fallback

Examples:
  designlog init
  designlog init --preset nvidia-kimi
  designlog init --preset gemini --force`

const initShortDesc string = "Initialize a local .designlog/ directory"

func NewInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return runInit(cmd.OutOrStdout(), filepath.Join(cwd, dirName), preset, force)
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Write config.toml from a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml when using --preset")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(w io.Writer, dir, preset string, force bool) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		if cfg, err = config.PresetConfig(preset); err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", dir)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking %s: %w", dir, err)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .designlog directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .designlog directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strings.ToLower(preset)),
		cliui.DimStyle.Render(path),
	)
	return nil
}
