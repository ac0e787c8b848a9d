package historycmder

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/history"
)

const exportLongDesc string = `Write the whole design log as a JSON backup.

The backup groups entries by week and can be restored with
"designlog history import". Without a file argument, or with "-", the
backup is written to stdout.

Examples:
  designlog history export backup.json
  designlog history export > backup.json`

const exportShortDesc string = "Write a JSON backup of the design log"

func newExportCmd() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "export [file|-]",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			var w io.Writer = cmd.OutOrStdout()
			dest := "stdout"
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				defer f.Close()
				w = f
				dest = args[0]
			}

			pkg, err := history.Export(cmd.Context(), s.store, w)
			if err != nil {
				return err
			}

			count := 0
			for _, entries := range pkg.Data {
				count += len(entries)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s Exported %d entries across %d weeks to %s\n",
				cliui.SuccessMark, count, len(pkg.Data), cliui.DimStyle.Render(dest))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
