package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel returns one segment per sheet: non-empty cells in row order,
// read with a row iterator so large sheets are not loaded whole.
func extractExcel(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	segments := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		text, err := sheetText(f, sheet)
		if err != nil {
			return nil, err
		}
		segments = append(segments, text)
	}
	return segments, nil
}

func sheetText(f *excelize.File, sheet string) (string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var buf strings.Builder
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("read row in sheet %q: %w", sheet, err)
		}
		for _, cell := range cols {
			if cell = strings.TrimSpace(cell); cell != "" {
				buf.WriteString(cell)
				buf.WriteByte('\t')
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String(), rows.Error()
}
