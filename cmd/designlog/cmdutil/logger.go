// Package cmdutil holds plumbing shared by the designlog commands: logger
// setup, error reports and recording runs into history.
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/designlog/pkg/logger"
)

// NewLogger builds the command logger from the persistent --debug and
// --log-file flags. Terminal output goes to the command's stderr, pretty
// printed when it is a TTY. With --log-file, JSON records are appended to
// that file as well. The returned func closes the file.
func NewLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")

	stderr := cmd.ErrOrStderr()
	terminal := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(isTerminal(stderr)),
		logger.WithWriter(stderr),
	)

	if logFile == "" {
		return terminal, func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)

	return logger.Multi(terminal, file), func() { _ = f.Close() }, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
