// Package backend opens the history store selected in configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/history"
	"github.com/papercomputeco/designlog/pkg/history/inmemory"
	"github.com/papercomputeco/designlog/pkg/history/postgres"
	"github.com/papercomputeco/designlog/pkg/history/sqlite"
)

// Driver names accepted in [history] driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverInMemory = "inmemory"
)

// UnknownDriverError is returned for an unrecognised driver name.
type UnknownDriverError struct {
	Driver string
}

func (e UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown history driver %q (want %s, %s or %s)", e.Driver, DriverSQLite, DriverPostgres, DriverInMemory)
}

// Open returns the store described by cfg. defaultSQLitePath is used when
// the sqlite driver has no path configured.
func Open(ctx context.Context, cfg config.HistoryConfig, defaultSQLitePath string, log *slog.Logger) (history.Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		store, err := sqlite.NewStore(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite history: %w", err)
		}
		log.Debug("using sqlite history", "path", path)
		return store, nil

	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("history driver %q needs postgres_dsn", DriverPostgres)
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres history: %w", err)
		}
		log.Debug("using postgres history")
		return store, nil

	case DriverInMemory:
		log.Debug("using in-memory history")
		return inmemory.NewStore(), nil

	default:
		return nil, UnknownDriverError{Driver: cfg.Driver}
	}
}
