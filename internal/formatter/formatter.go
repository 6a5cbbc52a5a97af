// Package formatter renders tables and report results for the terminal and
// exports them as CSV or JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mcncl/deskview/internal/config"
	"github.com/mcncl/deskview/internal/errors"
	"github.com/mcncl/deskview/internal/models"
	"github.com/mcncl/deskview/internal/report"
	"github.com/mcncl/deskview/internal/tabular"
)

// EmptyMessage is shown instead of a table with no rows.
const EmptyMessage = "No tableable data to display."

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Formatter writes results in one output format
type Formatter struct {
	format string
	label  func(string) string
}

// NewFormatter creates a Formatter. label maps a column name to its display
// header and may be nil.
func NewFormatter(format string, label func(string) string) *Formatter {
	if format == "" {
		format = config.FormatTable
	}
	if label == nil {
		label = func(column string) string { return column }
	}
	return &Formatter{format: format, label: label}
}

// WriteResult renders r according to its state. A failed result prints the
// raw body, if there was one; the caller reports the failure itself.
func (f *Formatter) WriteResult(w io.Writer, r report.Result) error {
	switch r.State {
	case report.StateTable:
		return f.WriteTable(w, r.Title, r.Table)
	case report.StateEmpty:
		return writeLine(w, EmptyMessage)
	case report.StateRaw:
		return WriteIndented(w, r.Raw)
	case report.StateFailed:
		if r.RawText == "" {
			return nil
		}
		return writeLine(w, strings.TrimRight(r.RawText, "\n"))
	default:
		return errors.NewOutputError(fmt.Sprintf("unknown result state %s", r.State), nil)
	}
}

// WriteTable writes t in the formatter's format. The title is only shown
// above terminal tables.
func (f *Formatter) WriteTable(w io.Writer, title string, t models.Table) error {
	switch f.format {
	case config.FormatCSV:
		return WriteCSV(w, t)
	case config.FormatJSON:
		return WriteJSON(w, t)
	case config.FormatTable:
		if title != "" {
			if err := writeLine(w, titleStyle.Render(title)); err != nil {
				return err
			}
		}
		return writeLine(w, f.RenderTable(t))
	default:
		return errors.NewOutputError(fmt.Sprintf("unknown output format %q", f.format), nil)
	}
}

// RenderTable draws t as a bordered terminal table with one line per row
func (f *Formatter) RenderTable(t models.Table) string {
	headers := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		headers[i] = f.label(column)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(t.Records()...).
		String()
}

// WriteCSV writes t with a header of column names and one record per row
func WriteCSV(w io.Writer, t models.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return errors.NewOutputError("failed to write CSV header", err)
	}
	if err := writer.WriteAll(t.Records()); err != nil {
		return errors.NewOutputError("failed to write CSV rows", err)
	}
	return nil
}

// WriteJSON writes t as an array of objects, re-nesting dotted column names
func WriteJSON(w io.Writer, t models.Table) error {
	items := make([]models.Value, 0, t.Len())
	for _, row := range t.Rows {
		items = append(items, models.ObjectValue(tabular.Unflatten(row, t.Columns)))
	}
	return WriteIndented(w, models.Array(items...))
}

// WriteIndented writes v as indented JSON, keeping object key order
func WriteIndented(w io.Writer, v models.Value) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return errors.NewOutputError("failed to encode JSON", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return errors.NewOutputError("failed to indent JSON", err)
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.NewOutputError("failed to write output", err)
	}
	return nil
}

// CSVFilename derives an export file name from a view title:
// "Requests Export" becomes "requests_export.csv".
func CSVFilename(title string) string {
	stem := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
	if stem == "" {
		stem = "export"
	}
	return stem + ".csv"
}

// ExportCSV writes t to dir under the file name derived from title and
// returns the path written.
func ExportCSV(dir, title string, t models.Table) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to create output directory '%s'", dir), err)
	}

	path := filepath.Join(dir, CSVFilename(title))
	file, err := os.Create(path)
	if err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to create '%s'", path), err)
	}

	if err := WriteCSV(file, t); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to write '%s'", path), err)
	}
	return path, nil
}

func writeLine(w io.Writer, s string) error {
	if _, err := fmt.Fprintln(w, s); err != nil {
		return errors.NewOutputError("failed to write output", err)
	}
	return nil
}
