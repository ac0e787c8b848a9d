package historycmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/history"
)

const weeksShortDesc string = "List recorded weeks with entry counts"

func newWeeksCmd() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "weeks",
		Short: weeksShortDesc,
		Long:  weeksShortDesc + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			weeks, err := s.store.Weeks(ctx)
			if err != nil {
				return fmt.Errorf("listing weeks: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, week := range weeks {
				entries, err := s.store.List(ctx, history.Filter{WeekID: week})
				if err != nil {
					return fmt.Errorf("listing week %s: %w", week, err)
				}
				fmt.Fprintf(out, "  %s  %s\n",
					cliui.NameStyle.Render(week),
					cliui.DimStyle.Render(strconv.Itoa(len(entries))+" entries"),
				)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
