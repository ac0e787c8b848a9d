package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/designlog/cmd/designlog/sqlitepath"
	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/dotdir"
	"github.com/papercomputeco/designlog/pkg/eventstream"
	eventbackend "github.com/papercomputeco/designlog/pkg/eventstream/backend"
	"github.com/papercomputeco/designlog/pkg/history"
	historybackend "github.com/papercomputeco/designlog/pkg/history/backend"
	"github.com/papercomputeco/designlog/pkg/terms"
)

// ErrNoTerms is returned when model output holds no design terms to record.
var ErrNoTerms = errors.New("no design terms found in model output")

// OpenHistory opens the history store configured in v, resolving the
// default SQLite path against configDir.
func OpenHistory(ctx context.Context, v *viper.Viper, configDir string, log *slog.Logger) (history.Store, error) {
	cfg := config.HistoryFromViper(v)

	var defaultPath string
	if cfg.Driver == "" || cfg.Driver == historybackend.DriverSQLite {
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		cfg.SQLitePath = path
		defaultPath = path
	}

	return historybackend.Open(ctx, cfg, defaultPath, log)
}

// Recorder files model output as a history entry and announces it on the
// event stream.
type Recorder struct {
	Store     history.Store
	Publisher eventstream.Publisher
	Logger    *slog.Logger
	Host      string
}

// OpenRecorder opens the configured history store and event publisher.
func OpenRecorder(ctx context.Context, v *viper.Viper, configDir string, log *slog.Logger) (*Recorder, error) {
	store, err := OpenHistory(ctx, v, configDir, log)
	if err != nil {
		return nil, err
	}

	publisher, err := eventbackend.Open(config.EventStreamFromViper(v), log)
	if err != nil {
		store.Close()
		return nil, err
	}

	host, _ := os.Hostname()
	return &Recorder{Store: store, Publisher: publisher, Logger: log, Host: host}, nil
}

// Record parses up to maxTerms terms from run.Text and stores them. A
// failed publish is logged and does not fail the call.
func (r *Recorder) Record(ctx context.Context, run *dotdir.LastRun, maxTerms int, meta eventstream.RunMeta) (*history.Entry, error) {
	found := terms.Parse(run.Text, maxTerms)
	if len(found) == 0 {
		return nil, ErrNoTerms
	}

	at := run.At
	if at.IsZero() {
		at = time.Now()
	}
	entry := history.NewEntry(at.Local(), run.Provider, run.Model, run.ImagePath, run.Text, found)

	if err := r.Store.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("saving history entry: %w", err)
	}

	meta.HasImage = run.ImagePath != ""
	event := eventstream.NewEntryRecordedEvent(entry, r.Host, meta)
	if err := r.Publisher.PublishEntry(ctx, event); err != nil {
		r.Logger.Warn("could not publish entry event", "entry", entry.ID, "error", err)
	}

	return entry, nil
}

// Close releases the store and the publisher.
func (r *Recorder) Close() error {
	return errors.Join(r.Publisher.Close(), r.Store.Close())
}
