// Package termscmder provides the terms command, which extracts design terms
// from model output and files them in history.
package termscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/designlog/cmd/designlog/cmdutil"
	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/dotdir"
	"github.com/papercomputeco/designlog/pkg/eventstream"
	"github.com/papercomputeco/designlog/pkg/history"
	"github.com/papercomputeco/designlog/pkg/terms"
)

type termsCommander struct {
	maxTerms  int
	dryRun    bool
	jsonOut   bool
	provider  string
	model     string
	imagePath string

	historyDriver string
	sqlitePath    string
	postgresDSN   string

	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
}

const termsLongDesc string = `Extract design terms from model output and file them in history.

Without arguments the reply of the last cerebras, nvidia or gemini run is
used. Pass a file, or "-" for stdin, to parse other text.

Replies may be a JSON list, an object with a "terms" list, either of those
inside a markdown code fence, or plain comma / newline separated words.
Entries are filed under the ISO week and weekday they were recorded on.

Examples:
  designlog nvidia --image shot.png && designlog terms
  designlog terms reply.txt --provider nvidia --model qwen/qwen3.5-397b-a17b
  echo '["Bento grid","Serif"]' | designlog terms - --dry-run`

const termsShortDesc string = "Extract design terms and file them in history"

func NewTermsCmd() *cobra.Command {
	cmder := &termsCommander{}

	cmd := &cobra.Command{
		Use:   "terms [file|-]",
		Short: termsShortDesc,
		Long:  termsLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.HistoryFlags, []string{
				config.FlagHistory,
				config.FlagSQLite,
				config.FlagPostgres,
			})

			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cmdutil.NewLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			cmder.logger = log
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return cmder.run(cmd.Context(), source)
		},
	}

	cmd.Flags().IntVarP(&cmder.maxTerms, "max-terms", "n", 0, "Maximum number of terms to keep (default: the provider's max_terms)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Print the terms without filing them")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the terms as a JSON list")
	cmd.Flags().StringVar(&cmder.provider, "provider", "", "Provider to record for file or stdin input (default: default.provider)")
	cmd.Flags().StringVar(&cmder.model, "model", "", "Model to record for file or stdin input")
	cmd.Flags().StringVar(&cmder.imagePath, "image", "", "Image path to record for file or stdin input")
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagHistory, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *termsCommander) run(ctx context.Context, source string) error {
	run, err := c.loadRun(source)
	if err != nil {
		return err
	}

	maxTerms := c.maxTerms
	if maxTerms <= 0 {
		maxTerms = c.providerMaxTerms(run.Provider)
	}

	if c.dryRun {
		return c.print(terms.Parse(run.Text, maxTerms))
	}

	recorder, err := cmdutil.OpenRecorder(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	entry, err := recorder.Record(ctx, run, maxTerms, eventstream.RunMeta{CompletedAt: run.At})
	if err != nil {
		return err
	}

	if err := c.print(entry.Terms); err != nil {
		return err
	}
	fmt.Fprintf(c.errOut, "  %s Filed under %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(entry.WeekID),
		cliui.DimStyle.Render(history.DayName(entry.Day)),
	)
	return nil
}

// loadRun reads the text to parse: the last run when source is empty, stdin
// for "-", a file otherwise.
func (c *termsCommander) loadRun(source string) (*dotdir.LastRun, error) {
	if source == "" {
		run, err := dotdir.NewManager().LoadLastRun(c.configDir)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, errors.New("no previous run found; run a provider command first or pass a file")
		}
		return run, nil
	}

	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(c.in)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	provider := c.provider
	if provider == "" {
		provider = c.viper.GetString("default.provider")
	}

	return &dotdir.LastRun{
		Provider:  provider,
		Model:     c.model,
		ImagePath: c.imagePath,
		Text:      string(data),
		At:        time.Now(),
	}, nil
}

func (c *termsCommander) providerMaxTerms(provider string) int {
	if provider == "" {
		return terms.DefaultMax
	}
	p, err := config.ProviderFromViper(c.viper, provider)
	if err != nil || p.MaxTerms <= 0 {
		return terms.DefaultMax
	}
	return p.MaxTerms
}

func (c *termsCommander) print(found []string) error {
	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		return enc.Encode(found)
	}
	for _, t := range found {
		fmt.Fprintln(c.out, t)
	}
	return nil
}
