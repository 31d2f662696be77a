package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadSheet returns the cells of one worksheet as trimmed strings. An empty
// sheet name selects the first sheet. Trailing blank rows are dropped.
func ReadSheet(path, sheet string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	s := f.Sheets[0]
	if sheet != "" {
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, eris.Errorf("xlsx: no sheet %q in %s", sheet, path)
		}
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		var cells []string
		if r != nil {
			cells = make([]string, len(r.Cells))
			for i, c := range r.Cells {
				cells[i] = strings.TrimSpace(c.String())
			}
		}
		rows = append(rows, cells)
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
