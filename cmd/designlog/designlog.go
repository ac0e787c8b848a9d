// Package designlogcmder assembles the designlog command tree.
package designlogcmder

import (
	"os"

	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/designlog/cmd/designlog/auth"
	chatcmder "github.com/papercomputeco/designlog/cmd/designlog/chat"
	configcmder "github.com/papercomputeco/designlog/cmd/designlog/config"
	geminicmder "github.com/papercomputeco/designlog/cmd/designlog/gemini"
	historycmder "github.com/papercomputeco/designlog/cmd/designlog/history"
	initcmder "github.com/papercomputeco/designlog/cmd/designlog/init"
	termscmder "github.com/papercomputeco/designlog/cmd/designlog/terms"
	versioncmder "github.com/papercomputeco/designlog/cmd/version"
	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
)

const designlogLongDesc string = `designlog asks LLM providers about screenshots and keeps a weekly log of
the design terms they name.

Ask a provider:
  designlog cerebras              Cerebras chat completions (streamed)
  designlog nvidia --image x.png  NVIDIA NIM chat completions with an image
  designlog gemini --image x.png  Gemini generateContent with model fallback

File and browse terms:
  designlog terms                 Extract terms from the last reply
  designlog history list          Show the weekly log

Set up:
  designlog init --preset nvidia  Create a local .designlog/ with a preset
  designlog auth <provider>       Store an API key
  designlog config set <k> <v>    Change a setting`

const designlogShortDesc string = "designlog - weekly design term log from LLM replies"

func NewDesignlogCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:           "designlog",
		Short:         designlogShortDesc,
		Long:          designlogLongDesc,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				cliui.DisableColor()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .designlog/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Append JSON logs to this file")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddGroup(
		&cobra.Group{ID: "providers", Title: "Providers:"},
		&cobra.Group{ID: "log", Title: "Design log:"},
	)

	for _, name := range []string{config.ProviderCerebras, config.ProviderNVIDIA} {
		chat := chatcmder.NewChatCmd(name)
		chat.GroupID = "providers"
		cmd.AddCommand(chat)
	}
	gemini := geminicmder.NewGeminiCmd()
	gemini.GroupID = "providers"
	cmd.AddCommand(gemini)

	terms := termscmder.NewTermsCmd()
	terms.GroupID = "log"
	history := historycmder.NewHistoryCmd()
	history.GroupID = "log"
	cmd.AddCommand(terms, history)

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
