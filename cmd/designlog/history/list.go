package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/history"
	"github.com/papercomputeco/designlog/pkg/utils"
)

const listLongDesc string = `List design log entries.

Entries are grouped by week, oldest first. Pass --week with an ISO week id
or "current" to show a single week.

Examples:
  designlog history list
  designlog history list --week 2026-W10
  designlog history list --output yaml`

const listShortDesc string = "List design log entries"

const termsPreviewWidth = 64

type listCommander struct {
	storeFlags
	week   string
	output string
	out    io.Writer
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch cmder.output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", cmder.output)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), s.store)
		},
	}

	cmder.register(cmd)
	cmd.Flags().StringVarP(&cmder.week, "week", "w", "", `Only list this ISO week ("current" for this week)`)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "text", "Output format: text, json or yaml")

	return cmd
}

func (c *listCommander) run(ctx context.Context, store history.Store) error {
	week := c.week
	if week == "current" {
		week = history.WeekID(time.Now())
	}

	entries, err := store.List(ctx, history.Filter{WeekID: week})
	if err != nil {
		return fmt.Errorf("listing entries: %w", err)
	}

	switch c.output {
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(entries) == 0 {
		fmt.Fprintf(c.out, "  %s No entries recorded.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	current := ""
	for _, e := range entries {
		if e.WeekID != current {
			if current != "" {
				fmt.Fprintln(c.out)
			}
			current = e.WeekID
			fmt.Fprintf(c.out, "  %s\n", cliui.HeaderStyle.Render(current))
		}

		fmt.Fprintf(c.out, "    %s  %s  %s  %s\n",
			cliui.NameStyle.Render(history.DayName(e.Day)),
			cliui.DimStyle.Render(e.CreatedAt.Local().Format("15:04")),
			cliui.KeyStyle.Render(label(e)),
			cliui.TermStyle.Render(utils.Truncate(utils.OneLine(strings.Join(e.Terms, ", ")), termsPreviewWidth)),
		)
	}

	return nil
}

func label(e *history.Entry) string {
	switch {
	case e.Provider == "":
		return "-"
	case e.Model == "":
		return e.Provider
	default:
		return e.Provider + "/" + e.Model
	}
}
