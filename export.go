package thrush

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// ExportFormat defines the output format for fetched data.
type ExportFormat int

const (
	// ExportFormatCSV exports records as CSV rows.
	ExportFormatCSV ExportFormat = iota
	// ExportFormatJSON exports records as JSON lines.
	ExportFormatJSON
)

// ExportConfig configures export operations.
type ExportConfig struct {
	// Format is the output format.
	Format ExportFormat

	// IncludeHeader writes the column header row (CSV only).
	IncludeHeader bool

	// TimestampFormat renders record times in the given time layout.
	// Empty renders epoch seconds.
	TimestampFormat string
}

// DefaultExportConfig returns a CSV configuration with a header row and
// epoch-second timestamps.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Format:        ExportFormatCSV,
		IncludeHeader: true,
	}
}

// Export drains a fetch result into w. Columns follow the result's field
// order with the timestamp first; unknown values render as empty CSV
// cells or JSON nulls. It returns the number of records written and any
// write or stream error. The result is consumed but not closed.
func Export(w io.Writer, result *FetchResult, cfg ExportConfig) (int, error) {
	switch cfg.Format {
	case ExportFormatCSV:
		return exportCSV(w, result, cfg)
	case ExportFormatJSON:
		return exportJSON(w, result, cfg)
	default:
		return 0, fmt.Errorf("unsupported export format: %d", cfg.Format)
	}
}

func exportCSV(w io.Writer, result *FetchResult, cfg ExportConfig) (int, error) {
	fields := result.Fields()
	cw := csv.NewWriter(w)

	if cfg.IncludeHeader {
		if err := cw.Write(append([]string{"time"}, fields...)); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	n := 0
	for result.Next() {
		rec := result.Record()
		row := make([]string, 0, len(fields)+1)
		row = append(row, renderExportTime(rec.Time, cfg.TimestampFormat))
		for _, field := range fields {
			v, ok := rec.Values[field]
			if !ok || math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return n, fmt.Errorf("failed to write record: %w", err)
		}
		n++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("csv write error: %w", err)
	}
	return n, result.Err()
}

func exportJSON(w io.Writer, result *FetchResult, cfg ExportConfig) (int, error) {
	fields := result.Fields()

	n := 0
	for result.Next() {
		rec := result.Record()
		values := make(map[string]*float64, len(fields))
		for _, field := range fields {
			if v, ok := rec.Values[field]; ok && !math.IsNaN(v) {
				values[field] = &v
			} else {
				values[field] = nil
			}
		}
		payload, err := json.Marshal(values)
		if err != nil {
			return n, err
		}

		stamp := renderExportTime(rec.Time, cfg.TimestampFormat)
		if cfg.TimestampFormat != "" {
			stamp = strconv.Quote(stamp)
		}
		line := `{"time":` + stamp + `,"values":` + string(payload) + "}\n"
		if _, err := io.WriteString(w, line); err != nil {
			return n, fmt.Errorf("failed to write record: %w", err)
		}
		n++
	}
	return n, result.Err()
}

// renderExportTime formats a record timestamp per the configured layout,
// or as epoch seconds when no layout is set.
func renderExportTime(t time.Time, layout string) string {
	if layout == "" {
		return strconv.FormatInt(t.Unix(), 10)
	}
	return t.Format(layout)
}

// ExportTo fetches and exports in one pass, closing the intermediate
// result itself.
func (r *RRD) ExportTo(ctx context.Context, w io.Writer, cf ConsolidationFunc, opts FetchOptions, cfg ExportConfig) (int, error) {
	result, err := r.Fetch(ctx, cf, opts)
	if err != nil {
		return 0, err
	}
	defer result.Close()
	return Export(w, result, cfg)
}
