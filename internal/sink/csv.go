package sink

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidName is returned for table names that would leave the output
// directory.
var ErrInvalidName = errors.New("invalid table name")

// CSVSink writes each table to its own CSV file under the configured output
// directory: UTF-8, header row first, cells separated by the configured
// delimiter. Existing files with the same name are replaced.
type CSVSink struct {
	outputDir string
	delimiter rune
}

// NewCSVSink creates outputDir if needed. A zero delimiter means ';'.
func NewCSVSink(outputDir string, delimiter rune) (*CSVSink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create csv output directory: %w", err)
	}
	if delimiter == 0 {
		delimiter = ';'
	}

	return &CSVSink{
		outputDir: outputDir,
		delimiter: delimiter,
	}, nil
}

// Path returns where a table written under name ends up.
func (s *CSVSink) Path(name string) string {
	return filepath.Join(s.outputDir, name)
}

// Write replaces the file name under the output directory with table. Names
// that are not a plain file name are rejected.
func (s *CSVSink) Write(name string, table *Table) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	fp := s.Path(name)

	f, err := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open csv file %s: %w", fp, err)
	}

	w := csv.NewWriter(f)
	w.Comma = s.delimiter

	if err := writeTable(w, table); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv file %s: %w", fp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close csv file %s: %w", fp, err)
	}
	return nil
}

func writeTable(w *csv.Writer, table *Table) error {
	if err := w.Write(table.Columns); err != nil {
		return err
	}

	row := make([]string, len(table.Columns))
	for _, r := range table.Rows {
		for i, key := range table.Columns {
			row[i] = FormatValue(r[key])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// FormatValue renders a decoded JSON value as a CSV cell. Nested arrays and
// objects are written back as JSON.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
