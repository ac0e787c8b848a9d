// Package sqlitepath resolves where the SQLite history database lives.
package sqlitepath

import (
	"os"
	"strings"

	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/dotdir"
)

// EnvVar overrides the database path for every command.
const EnvVar = "DESIGNLOG_DB"

// ResolveSQLitePath returns, in order: override, $DESIGNLOG_DB, or
// history.db inside the resolved .designlog/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvVar)); envPath != "" {
		return envPath, nil
	}

	return dotdir.NewManager().Path(configDir, config.DefaultHistoryFile)
}
