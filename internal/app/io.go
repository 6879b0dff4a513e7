package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/config"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/export"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/store"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	localio "github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/io/local"
)

// FileInput loads profile URLs from a list or CSV file.
type FileInput struct {
	Path string
}

var _ core.InputAdapter[string] = FileInput{}

func (f FileInput) Load(context.Context) ([]string, error) {
	inF, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = inF.Close()
	}()
	return localio.ReadProfileURLs(inF)
}

// InlineInput is a fixed URL list, typically from the command line.
type InlineInput []string

func (in InlineInput) Load(context.Context) ([]string, error) {
	return append([]string(nil), in...), nil
}

// OutputOptions names the export file.
type OutputOptions struct {
	Dir    string
	Prefix string
	Format string
}

// Path returns the export path for a run started at now.
func (o OutputOptions) Path(now time.Time) string {
	return filepath.Join(o.Dir, export.Filename(o.Prefix, now, formatOrDefault(o.Format)))
}

// FileOutput writes records to path in format.
func FileOutput(path, format string) core.OutputAdapter[profile.Record] {
	return core.StoreFunc[profile.Record](func(_ context.Context, records []profile.Record) error {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		outF, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			_ = outF.Close()
		}()
		if err := WriteRecords(outF, format, records); err != nil {
			return err
		}
		return outF.Close()
	})
}

// StoreOutput saves records to the database under run.
func StoreOutput(st *store.SQLite, run store.Run) core.OutputAdapter[profile.Record] {
	return core.StoreFunc[profile.Record](func(ctx context.Context, records []profile.Record) error {
		return st.Save(ctx, run, records)
	})
}

// WriteRecords renders records as csv, xlsx or json.
func WriteRecords(w io.Writer, format string, records []profile.Record) error {
	switch formatOrDefault(format) {
	case config.FormatCSV:
		return export.WriteCSV(w, export.Rows(records))
	case config.FormatXLSX:
		return export.WriteXLSX(w, export.Rows(records))
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []profile.Record{}
		}
		return enc.Encode(records)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func formatOrDefault(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return config.FormatCSV
	}
	return format
}
