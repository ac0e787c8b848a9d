// Package geminicmder provides the gemini command: one generateContent call,
// trying the configured models in order until one answers.
package geminicmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/designlog/cmd/designlog/cmdutil"
	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/credentials"
	"github.com/papercomputeco/designlog/pkg/dotdir"
	"github.com/papercomputeco/designlog/pkg/eventstream"
	"github.com/papercomputeco/designlog/pkg/gemini"
	"github.com/papercomputeco/designlog/pkg/imagedata"
)

type geminiCommander struct {
	model        string
	url          string
	prompt       string
	maxTokens    int
	timeout      string
	maxTerms     int
	userAgent    string
	maxDimension int

	historyDriver string
	sqlitePath    string
	postgresDSN   string

	imagePath  string
	apiKey     string
	noFallback bool
	render     bool
	record     bool

	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
	out       io.Writer
	errOut    io.Writer
}

const geminiLongDesc string = `Send one generateContent request to Google Gemini and print the reply.

Models are tried in order: --model (providers.gemini.model) first, then
providers.gemini.fallback_models. Each model gets exactly one request; the
first non-empty reply wins. Quota (429) and unknown-model (404) failures are
reported with a hint before the next model is tried.

The API key is taken from, in order: --api-key, $GEMINI_API_KEY,
credentials.toml ("designlog auth gemini"), .env.local / .env in the working
directory, then providers.gemini.fallback_key. Keys still containing the
"Xxx" placeholder are used with a warning.

Examples:
  designlog gemini
  designlog gemini --prompt "Describe this layout" --image screenshot.png
  designlog gemini --model gemini-1.5-pro --no-fallback`

const geminiShortDesc string = "Send one generateContent request to Google Gemini"

func NewGeminiCmd() *cobra.Command {
	cmder := &geminiCommander{}
	fs := config.ProviderFlags(config.ProviderGemini)

	cmd := &cobra.Command{
		Use:   "gemini",
		Short: geminiShortDesc,
		Long:  geminiLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagModel,
				config.FlagURL,
				config.FlagPrompt,
				config.FlagMaxTokens,
				config.FlagTimeout,
				config.FlagMaxTerms,
				config.FlagUserAgent,
				config.FlagMaxDimension,
			})
			config.BindRegisteredFlags(v, cmd, config.HistoryFlags, []string{
				config.FlagHistory,
				config.FlagSQLite,
				config.FlagPostgres,
			})

			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := cmdutil.NewLogger(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			cmder.logger = log
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagURL, &cmder.url)
	config.AddStringFlag(cmd, fs, config.FlagPrompt, &cmder.prompt)
	config.AddIntFlag(cmd, fs, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddStringFlag(cmd, fs, config.FlagTimeout, &cmder.timeout)
	config.AddIntFlag(cmd, fs, config.FlagMaxTerms, &cmder.maxTerms)
	config.AddStringFlag(cmd, fs, config.FlagUserAgent, &cmder.userAgent)
	config.AddIntFlag(cmd, fs, config.FlagMaxDimension, &cmder.maxDimension)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagHistory, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagPostgres, &cmder.postgresDSN)

	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "Image file to attach")
	cmd.Flags().StringVarP(&cmder.apiKey, "api-key", "k", "", "API key (overrides every other source)")
	cmd.Flags().BoolVar(&cmder.noFallback, "no-fallback", false, "Only try --model")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the reply as markdown")
	cmd.Flags().BoolVar(&cmder.record, "record", false, "Extract design terms from the reply and file them in history")

	return cmd
}

func (c *geminiCommander) run(ctx context.Context) error {
	p, err := config.ProviderFromViper(c.viper, config.ProviderGemini)
	if err != nil {
		return err
	}
	timeout, _ := p.TimeoutDuration()

	models := p.Models()
	if c.noFallback && len(models) > 1 {
		models = models[:1]
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	res, err := credentials.NewResolver(mgr, credentials.WithResolverLogger(c.logger)).
		Resolve(config.ProviderGemini, c.apiKey, p.FallbackKey)
	if err != nil {
		return err
	}
	cmdutil.WarnPlaceholder(c.errOut, res)

	inline, imagePath, err := c.loadImage()
	if err != nil {
		return err
	}

	req := gemini.NewRequest(p.Prompt, inline, &gemini.GenerationConfig{
		Temperature:     p.Temperature,
		TopP:            p.TopP,
		MaxOutputTokens: p.MaxTokens,
	})

	opts := []gemini.Option{
		gemini.WithTimeout(timeout),
		gemini.WithLogger(c.logger),
		gemini.WithChatClient(chat.NewClient(chat.WithLogger(c.logger))),
	}
	if p.URL != "" {
		opts = append(opts, gemini.WithURLTemplate(p.URL))
	}
	if p.UserAgent != "" {
		opts = append(opts, gemini.WithUserAgent(p.UserAgent))
	}
	client := gemini.NewClient(opts...)

	var (
		result   *gemini.Result
		attempts []gemini.Attempt
	)
	started := time.Now()
	err = cliui.Step(c.errOut, "Asking Gemini ("+strings.Join(models, ", ")+")", func() error {
		var err error
		result, err = client.GenerateWithFallback(ctx, models, res.Key, req, func(a gemini.Attempt) {
			attempts = append(attempts, a)
		})
		return err
	})
	completed := time.Now()
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}

	for _, a := range attempts {
		cmdutil.ReportAttempt(c.errOut, a)
	}
	fmt.Fprintf(c.errOut, "  %s %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(result.Model),
		cliui.DimStyle.Render("answered"),
	)

	text := strings.TrimSpace(result.Text)
	if c.render {
		rendered, err := cliui.RenderMarkdown(text)
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		fmt.Fprint(c.out, rendered)
	} else {
		fmt.Fprintln(c.out, text)
	}

	run := &dotdir.LastRun{
		Provider:  config.ProviderGemini,
		Model:     result.Model,
		ImagePath: imagePath,
		Text:      text,
		At:        completed,
	}
	if err := dotdir.NewManager().SaveLastRun(run, c.configDir); err != nil {
		c.logger.Warn("could not save last run", "error", err)
	}

	if !c.record {
		return nil
	}

	recorder, err := cmdutil.OpenRecorder(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	entry, err := recorder.Record(ctx, run, p.MaxTerms, eventstream.RunMeta{
		StartedAt:   started,
		CompletedAt: completed,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.errOut, "  %s Filed %d terms under %s\n",
		cliui.SuccessMark, len(entry.Terms), cliui.NameStyle.Render(entry.WeekID))
	return nil
}

func (c *geminiCommander) loadImage() (*gemini.InlineData, string, error) {
	if c.imagePath == "" {
		return nil, "", nil
	}

	img, err := imagedata.Load(c.imagePath, imagedata.Options{
		MaxDimension: config.ImageFromViper(c.viper).MaxDimension,
	})
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(c.errOut, "  %s image %s not found, sending text only\n",
			cliui.WarnStyle.Render("!"), c.imagePath)
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	return &gemini.InlineData{MimeType: img.MIME, Data: img.Base64()}, img.Path, nil
}
