// Package authcmder provides the auth command for storing provider API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/credentials"
)

const authLongDesc string = `Store API keys for the chat providers.

Keys are stored in credentials.toml in the .designlog/ directory. When a
provider command runs, the key is taken from the first of:
  --api-key, the provider's environment variable, credentials.toml,
  .env.local or .env in the working directory, the configured fallback_key.

Supported providers: cerebras, nvidia, gemini

Examples:
  designlog auth cerebras              Prompt for a Cerebras API key
  designlog auth --list                List stored keys
  designlog auth --status              Show which key each provider would use
  designlog auth --remove nvidia       Remove the stored NVIDIA key
  echo $KEY | designlog auth gemini    Pipe a key from stdin`

const authShortDesc string = "Store API keys for the chat providers"

type authCommander struct {
	configDir string
	in        io.Reader
	out       io.Writer
}

func NewAuthCmd() *cobra.Command {
	var (
		listFlag   bool
		statusFlag bool
		removeFlag string
	)

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder := &authCommander{
				configDir: configDir,
				in:        cmd.InOrStdin(),
				out:       cmd.OutOrStdout(),
			}

			switch {
			case listFlag:
				return cmder.runList()
			case statusFlag:
				return cmder.runStatus()
			case removeFlag != "":
				return cmder.runRemove(removeFlag)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.runAuth(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().BoolVar(&statusFlag, "status", false, "Show where each provider's key would be read from")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func (c *authCommander) runAuth(provider string) error {
	provider = credentials.NormalizeProvider(provider)

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return credentials.ErrEmptyKey
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("("+credentials.MaskKey(apiKey)+")"),
	)
	if strings.Contains(apiKey, credentials.PlaceholderMarker) {
		fmt.Fprintf(c.out, "  %s The key contains %q and looks like a documentation example.\n",
			cliui.WarnStyle.Render("!"), credentials.PlaceholderMarker)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *authCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'designlog auth <provider>' to store credentials.\n")
		fmt.Fprintf(c.out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		envVar := credentials.EnvVarForProvider(p)
		if envVar != "" {
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("overridden by "+envVar),
			)
		} else {
			fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
		}
	}
	fmt.Fprintln(c.out)

	return nil
}

// runStatus resolves every provider's key the way the provider commands do
// and reports the winning source.
func (c *authCommander) runStatus() error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fallbacks := make(map[string]string)
	for _, name := range credentials.SupportedProviders() {
		if p, err := config.ProviderFromViper(v, name); err == nil {
			fallbacks[name] = p.FallbackKey
		}
	}

	statuses, err := credentials.Status(credentials.NewResolver(mgr), fallbacks)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Key resolution"))
	for _, st := range statuses {
		if st.Missing != nil {
			fmt.Fprintf(c.out, "  %s  %-8s  %s\n", cliui.FailMark, st.Provider,
				cliui.DimStyle.Render("no key: "+st.Missing.Hint))
			continue
		}

		mark := cliui.SuccessMark
		if st.Resolution.Placeholder() {
			mark = cliui.WarnStyle.Render("!")
		}
		fmt.Fprintf(c.out, "  %s  %-8s  %s  %s\n", mark, st.Provider,
			cliui.ValueStyle.Render(st.Resolution.Masked()),
			cliui.DimStyle.Render("from "+st.Resolution.Origin()),
		)
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(provider string) error {
	provider = credentials.NormalizeProvider(provider)

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey prompts with hidden input when stdin is a terminal and reads
// the first line otherwise.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		envVar := credentials.EnvVarForProvider(provider)
		fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, envVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
