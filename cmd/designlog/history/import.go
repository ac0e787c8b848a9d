package historycmder

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/history"
)

const importLongDesc string = `Restore a JSON backup written by "designlog history export".

In merge mode (the default) weeks in the backup overwrite the stored ones and
every other stored week is kept. In replace mode the stored log ends up
holding exactly the backup's weeks.

Examples:
  designlog history import backup.json
  designlog history import backup.json --mode replace
  cat backup.json | designlog history import -`

const importShortDesc string = "Restore a JSON backup of the design log"

func newImportCmd() *cobra.Command {
	flags := &storeFlags{}
	var mode string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importMode, err := history.ParseImportMode(mode)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := history.Import(cmd.Context(), s.store, r, importMode)
			if err != nil {
				return err
			}

			s.logger.Debug("imported history", "mode", importMode, "weeks", result.WeekCount, "entries", result.EntryCount)
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s Imported %d entries across %d weeks (%s)\n",
				cliui.SuccessMark, result.EntryCount, result.WeekCount, importMode)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(history.ImportMerge), "Import mode: merge or replace")

	return cmd
}
