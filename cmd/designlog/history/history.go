// Package historycmder provides the history command for browsing, exporting
// and importing the design log.
package historycmder

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/designlog/cmd/designlog/cmdutil"
	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/history"
)

const historyLongDesc string = `Browse and back up the design log.

Every recorded run is filed under the ISO week (e.g. 2026-W10) and weekday it
was recorded on. The log lives in the SQLite database in .designlog/ unless
history.driver points elsewhere.

Use subcommands to inspect or move the log:
  designlog history list [--week 2026-W10]   List entries
  designlog history weeks                    List weeks with entry counts
  designlog history export [file]            Write a JSON backup
  designlog history import <file>            Restore a JSON backup

Examples:
  designlog history list --week current
  designlog history export backup.json
  designlog history import backup.json --mode replace`

const historyShortDesc string = "Browse and back up the design log"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newWeeksCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())

	return cmd
}

// storeFlags are the history store flags shared by every subcommand.
type storeFlags struct {
	driver      string
	sqlitePath  string
	postgresDSN string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagHistory, &f.driver)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.HistoryFlags, config.FlagPostgres, &f.postgresDSN)
}

// session is an open store plus the logger it was opened with.
type session struct {
	store  history.Store
	logger *slog.Logger
	close  func()
}

func openSession(cmd *cobra.Command) (*session, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.HistoryFlags, []string{
		config.FlagHistory,
		config.FlagSQLite,
		config.FlagPostgres,
	})

	log, closeLog, err := cmdutil.NewLogger(cmd)
	if err != nil {
		return nil, err
	}

	store, err := cmdutil.OpenHistory(cmd.Context(), v, configDir, log)
	if err != nil {
		closeLog()
		return nil, err
	}

	return &session{
		store:  store,
		logger: log,
		close: func() {
			if err := store.Close(); err != nil {
				log.Warn("closing history store", "error", err)
			}
			closeLog()
		},
	}, nil
}
