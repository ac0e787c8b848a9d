package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"
)

var weekIDPattern = regexp.MustCompile(`^\d{4}-W(0[1-9]|[1-4]\d|5[0-3])$`)

const (
	// ExportVersion is the format version written by Export.
	ExportVersion = "1.0"

	// AppName tags export packages so foreign files are rejected on import.
	AppName = "designlog"
)

// ImportMode selects how Import combines incoming weeks with stored ones.
type ImportMode string

const (
	// ImportMerge keeps stored weeks and overwrites the ones present in the
	// package.
	ImportMerge ImportMode = "merge"

	// ImportReplace drops every stored week first.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates a user-supplied mode.
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(s); m {
	case ImportMerge, ImportReplace:
		return m, nil
	default:
		return "", InvalidModeError{Mode: s}
	}
}

// ExportPackage is the on-disk backup format.
type ExportPackage struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exportedAt"`
	AppName    string              `json:"appName"`
	Data       map[string][]*Entry `json:"data"`
}

// ImportResult reports what Import wrote.
type ImportResult struct {
	WeekCount  int
	EntryCount int
}

// Export writes every stored entry grouped by week as an indented JSON
// package.
func Export(ctx context.Context, store Store, w io.Writer) (*ExportPackage, error) {
	entries, err := store.List(ctx, Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	pkg := &ExportPackage{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		AppName:    AppName,
		Data:       map[string][]*Entry{},
	}
	for _, e := range entries {
		pkg.Data[e.WeekID] = append(pkg.Data[e.WeekID], e)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return pkg, nil
}

// Import reads a package from r and writes it into store. In merge mode the
// package's weeks win over stored ones; in replace mode stored weeks absent
// from the package are removed. The whole package is validated before the
// store is touched.
func Import(ctx context.Context, store Store, r io.Reader, mode ImportMode) (*ImportResult, error) {
	if _, err := ParseImportMode(string(mode)); err != nil {
		return nil, err
	}

	var pkg ExportPackage
	if err := json.NewDecoder(r).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decoding export package: %w", err)
	}
	if pkg.AppName != AppName {
		return nil, ErrWrongApp
	}
	if pkg.Data == nil {
		return nil, ErrEmptyPackage
	}

	if err := validatePackage(&pkg); err != nil {
		return nil, err
	}

	if mode == ImportReplace {
		weeks, err := store.Weeks(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing weeks: %w", err)
		}
		for _, week := range weeks {
			if _, ok := pkg.Data[week]; ok {
				continue
			}
			if err := store.Replace(ctx, week, nil); err != nil {
				return nil, fmt.Errorf("clearing week %s: %w", week, err)
			}
		}
	}

	result := &ImportResult{WeekCount: len(pkg.Data)}
	for week, entries := range pkg.Data {
		for _, e := range entries {
			e.WeekID = week
		}
		if err := store.Replace(ctx, week, entries); err != nil {
			return nil, fmt.Errorf("importing week %s: %w", week, err)
		}
		result.EntryCount += len(entries)
	}

	return result, nil
}

// validatePackage checks every week id and entry of pkg.
func validatePackage(pkg *ExportPackage) error {
	for week, entries := range pkg.Data {
		if !weekIDPattern.MatchString(week) {
			return &InvalidEntryError{WeekID: week, Index: -1, Reason: "week id is not YYYY-Www"}
		}
		for i, e := range entries {
			switch {
			case e == nil:
				return &InvalidEntryError{WeekID: week, Index: i, Err: ErrNilEntry}
			case e.Day < 0 || e.Day > 6:
				return &InvalidEntryError{WeekID: week, Index: i, Reason: fmt.Sprintf("day %d is outside 0-6", e.Day)}
			}
		}
	}
	return nil
}
