// Package chatcmder provides the cerebras and nvidia commands: one
// chat-completion request, optionally with an image, printed as it streams.
package chatcmder

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
	"github.com/papercomputeco/designlog/pkg/imagedata"
)

type chatCommander struct {
	provider string

	model        string
	url          string
	prompt       string
	maxTokens    int
	timeout      string
	stream       bool
	thinking     bool
	maxTerms     int
	userAgent    string
	maxDimension int

	historyDriver string
	sqlitePath    string
	postgresDSN   string

	imagePath string
	apiKey    string
	render    bool
	record    bool

	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
	out       io.Writer
	errOut    io.Writer
}

var providerLabels = map[string]string{
	config.ProviderCerebras: "Cerebras",
	config.ProviderNVIDIA:   "NVIDIA NIM",
}

const chatLongDesc string = `Send one chat-completion request to %[1]s and print the reply.

The prompt is sent as a text part; with --image the picture follows as a
base64 data URL image part. A missing image file is reported and the text is
sent alone.

With streaming on, the reply is printed fragment by fragment as the server
sends it. Otherwise the complete reply is printed once it arrives.

The API key is taken from, in order: --api-key, $%[2]s, credentials.toml
("designlog auth %[3]s"), .env.local / .env in the working directory, then
providers.%[3]s.fallback_key in config.toml.

The reply is kept as the last run so "designlog terms --last" can file it.
Pass --record to file it right away.

Examples:
  designlog %[3]s
  designlog %[3]s --image screenshot.png --prompt "What is in this picture?"
  designlog %[3]s --image screenshot.png --record --stream=false`

// NewChatCmd returns the command for an OpenAI-compatible provider
// ("cerebras" or "nvidia").
func NewChatCmd(provider string) *cobra.Command {
	cmder := &chatCommander{provider: provider}
	label := providerLabels[provider]
	fs := config.ProviderFlags(provider)

	cmd := &cobra.Command{
		Use:   provider,
		Short: "Send one chat-completion request to " + label,
		Long:  fmt.Sprintf(chatLongDesc, label, credentials.EnvVarForProvider(provider), provider),
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
				config.FlagStream,
				config.FlagThinking,
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
	config.AddBoolFlag(cmd, fs, config.FlagStream, &cmder.stream)
	if provider == config.ProviderNVIDIA {
		config.AddBoolFlag(cmd, fs, config.FlagThinking, &cmder.thinking)
	}
	config.AddIntFlag(cmd, fs, config.FlagMaxTerms, &cmder.maxTerms)
	config.AddStringFlag(cmd, fs, config.FlagUserAgent, &cmder.userAgent)
	config.AddIntFlag(cmd, fs, config.FlagMaxDimension, &cmder.maxDimension)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagHistory, &cmder.historyDriver)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagPostgres, &cmder.postgresDSN)

	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "Image file to attach")
	cmd.Flags().StringVarP(&cmder.apiKey, "api-key", "k", "", "API key (overrides every other source)")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the reply as markdown")
	cmd.Flags().BoolVar(&cmder.record, "record", false, "Extract design terms from the reply and file them in history")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	p, err := config.ProviderFromViper(c.viper, c.provider)
	if err != nil {
		return err
	}
	timeout, _ := p.TimeoutDuration()
	stream := p.Stream != nil && *p.Stream

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	res, err := credentials.NewResolver(mgr, credentials.WithResolverLogger(c.logger)).
		Resolve(c.provider, c.apiKey, p.FallbackKey)
	if err != nil {
		return err
	}
	cmdutil.WarnPlaceholder(c.errOut, res)

	dataURL, imagePath, err := c.loadImage()
	if err != nil {
		return err
	}

	body := chat.CompletionRequest{
		Model:       p.Model,
		Messages:    []chat.Message{chat.UserMessage(p.Prompt, dataURL)},
		Stream:      stream,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	if c.provider == config.ProviderNVIDIA && p.Thinking != nil {
		body.ChatTemplateKwargs = map[string]any{"thinking": *p.Thinking}
	}

	req := chat.NewOutboundRequest(p.URL, res.Key, body, stream, chat.RequestOptions{
		Timeout:   timeout,
		UserAgent: p.UserAgent,
	})
	client := chat.NewClient(chat.WithLogger(c.logger))

	c.logger.Debug("sending request",
		"provider", c.provider,
		"model", p.Model,
		"stream", stream,
		"image", imagePath != "",
		"key_source", string(res.Source),
	)

	started := time.Now()
	var completion *chat.Completion
	if stream {
		completion, err = c.streamReply(ctx, client, req)
	} else {
		completion, err = c.completeReply(ctx, client, req, p.Model)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	completed := time.Now()

	fmt.Fprintf(c.errOut, "  %s %s request complete %s\n",
		cliui.SuccessMark,
		providerLabels[c.provider],
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %s)", p.Model, cliui.FormatDuration(completed.Sub(started)))),
	)

	run := &dotdir.LastRun{
		Provider:  c.provider,
		Model:     p.Model,
		ImagePath: imagePath,
		Text:      completion.Text,
		At:        completed,
	}
	if err := dotdir.NewManager().SaveLastRun(run, c.configDir); err != nil {
		c.logger.Warn("could not save last run", "error", err)
	}

	if !c.record {
		return nil
	}
	return c.recordRun(ctx, run, p.MaxTerms, eventstream.RunMeta{
		StartedAt:   started,
		CompletedAt: completed,
		Streaming:   stream,
	})
}

// loadImage returns the data URL for --image. A missing file is a notice,
// not an error: the request goes out with text only.
func (c *chatCommander) loadImage() (dataURL, path string, err error) {
	if c.imagePath == "" {
		return "", "", nil
	}

	img, err := imagedata.Load(c.imagePath, imagedata.Options{
		MaxDimension:  config.ImageFromViper(c.viper).MaxDimension,
		StrictFormats: c.provider == config.ProviderNVIDIA,
	})
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(c.errOut, "  %s image %s not found, sending text only\n",
			cliui.WarnStyle.Render("!"), c.imagePath)
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}

	c.logger.Debug("attached image",
		"path", img.Path,
		"mime", img.MIME,
		"bytes", len(img.Data),
		"converted", img.Converted,
		"resized", img.Resized,
	)
	return img.DataURL(), img.Path, nil
}

// streamReply writes fragments to stdout as they arrive. With --render the
// reply is collected and rendered once complete.
func (c *chatCommander) streamReply(ctx context.Context, client *chat.Client, req chat.OutboundRequest) (*chat.Completion, error) {
	sink := func(fragment string) error {
		_, err := io.WriteString(c.out, fragment)
		return err
	}
	if c.render {
		sink = func(string) error { return nil }
	}

	completion, err := client.Stream(ctx, req, sink)
	if err != nil {
		if completion != nil && completion.Text != "" && !c.render {
			fmt.Fprintln(c.out)
		}
		return nil, err
	}

	if c.render {
		c.printReply(completion.Text)
	} else {
		fmt.Fprintln(c.out)
	}
	return completion, nil
}

func (c *chatCommander) completeReply(ctx context.Context, client *chat.Client, req chat.OutboundRequest, model string) (*chat.Completion, error) {
	var completion *chat.Completion
	err := cliui.Step(c.errOut, fmt.Sprintf("Waiting for %s (%s)", providerLabels[c.provider], model), func() error {
		var err error
		completion, err = client.Complete(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	if completion.Text == "" {
		// Nothing at choices[0].message.content; show what came back.
		fmt.Fprintln(c.out, strings.TrimSpace(string(completion.Raw)))
		return completion, nil
	}

	c.printReply(completion.Text)
	return completion, nil
}

func (c *chatCommander) printReply(text string) {
	if c.render {
		rendered, err := cliui.RenderMarkdown(text)
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		fmt.Fprint(c.out, rendered)
		return
	}
	fmt.Fprintln(c.out, text)
}

func (c *chatCommander) recordRun(ctx context.Context, run *dotdir.LastRun, maxTerms int, meta eventstream.RunMeta) error {
	recorder, err := cmdutil.OpenRecorder(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	entry, err := recorder.Record(ctx, run, maxTerms, meta)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.errOut, "  %s Filed %d terms under %s %s\n",
		cliui.SuccessMark,
		len(entry.Terms),
		cliui.NameStyle.Render(entry.WeekID),
		cliui.DimStyle.Render(strings.Join(entry.Terms, ", ")),
	)
	return nil
}
