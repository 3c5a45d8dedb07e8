package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/temperature-map/internal/domain"
)

// ErrMissingIDColumn is returned when a table header has no id column.
var ErrMissingIDColumn = errors.New("table header has no id column")

// TableResult holds the parsed rows of an attribute table.
type TableResult struct {
	Rows    []domain.AttributeRow
	Skipped int // malformed records and rows without an id
}

// ParseTable reads a delimited attribute table. The header names the period
// columns; "id" is required and "name" is optional. Cells missing from short
// rows are kept as empty strings so they join as the sentinel.
func ParseTable(data []byte, delimiter rune) (TableResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return TableResult{}, nil
		}
		return TableResult{}, fmt.Errorf("read table header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol, nameCol := -1, -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		switch header[i] {
		case domain.KeyID:
			idCol = i
		case domain.KeyName:
			nameCol = i
		}
	}
	if idCol < 0 {
		return TableResult{}, ErrMissingIDColumn
	}

	var res TableResult
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}

		id := cell(record, idCol)
		if id == "" {
			res.Skipped++
			continue
		}

		row := domain.AttributeRow{
			ID:     id,
			Name:   cell(record, nameCol),
			Values: make([]domain.Column, 0, len(header)),
		}
		for i, h := range header {
			if i == idCol || i == nameCol || h == "" {
				continue
			}
			row.Values = append(row.Values, domain.Column{Period: h, Raw: cell(record, i)})
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
