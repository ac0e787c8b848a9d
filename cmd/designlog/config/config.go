// Package configcmder provides the config command for managing persistent
// designlog configuration stored in the .designlog/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
)

const configLongDesc string = `Manage persistent designlog configuration.

Configuration is stored as config.toml in the .designlog/ directory and
provides default values for command flags. CLI flags and DESIGNLOG_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  default.provider,
  providers.<cerebras|nvidia|gemini>.{url, model, fallback_models,
    temperature, top_p, max_tokens, stream, thinking, timeout, prompt,
    max_terms, user_agent, fallback_key},
  history.driver, history.sqlite_path, history.postgres_dsn,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  image.max_dimension

Use subcommands to get, set, or list configuration values:
  designlog config set <key> <value>    Set a configuration value
  designlog config get <key>            Get a configuration value
  designlog config list                 List all configuration values

Examples:
  designlog config set providers.nvidia.stream true
  designlog config set providers.gemini.fallback_models gemini-1.5-flash,gemini-1.5-pro
  designlog config get providers.cerebras.model
  designlog config list`

const configShortDesc string = "Manage persistent designlog configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
