package table

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth/internal/fetcher"
)

// ReadCSV reads a headered CSV stream into a table. Every cell stays a
// string.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	stream, err := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{Header: true, TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "table: read csv")
	}
	rows, err := stream.Collect()
	if err != nil {
		return nil, eris.Wrap(err, "table: read csv")
	}
	return New(stream.Header, rows)
}

// ReadXLSX reads the named sheet (or the first one when empty) of an XLSX
// workbook. The first row is the header.
func ReadXLSX(path, sheet string) (*Table, error) {
	rows, err := fetcher.ReadSheet(path, sheet)
	if err != nil {
		return nil, eris.Wrap(err, "table: read xlsx")
	}
	if len(rows) == 0 {
		return nil, eris.New("table: xlsx has no header row")
	}
	header := rows[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	return New(header, rows[1:])
}

// ReadJSON reads a JSON array of flat objects. Columns are the union of keys
// in sorted order; scalars are formatted without exponent where possible.
func ReadJSON(ctx context.Context, r io.Reader) (*Table, error) {
	objs, err := fetcher.StreamJSONArray[map[string]any](ctx, r).Collect()
	if err != nil {
		return nil, eris.Wrap(err, "table: read json")
	}

	keys := make(map[string]bool)
	for _, o := range objs {
		for k := range o {
			keys[k] = true
		}
	}
	columns := make([]string, 0, len(keys))
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	rows := make([]map[string]string, len(objs))
	for i, o := range objs {
		m := make(map[string]string, len(o))
		for k, v := range o {
			m[k] = formatScalar(v)
		}
		rows[i] = m
	}
	return FromMaps(columns, rows)
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ReadFile reads a CSV, XLSX or JSON file chosen by extension.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return ReadXLSX(path, "")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	if ext == ".json" {
		return ReadJSON(ctx, f)
	}
	return ReadCSV(ctx, f)
}
