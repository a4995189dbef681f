package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVSource reads rows from delimited text. The first record is the header.
type CSVSource struct {
	reader io.Reader
	comma  rune
}

// NewCSVSource creates a CSV source. A zero comma means ','.
func NewCSVSource(r io.Reader, comma rune) *CSVSource {
	if comma == 0 {
		comma = ','
	}
	return &CSVSource{reader: r, comma: comma}
}

// Load reads every record. Short records leave their trailing columns absent.
func (s *CSVSource) Load(ctx context.Context) (*Batch, error) {
	r := csv.NewReader(s.reader)
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	columns[0] = strings.TrimPrefix(columns[0], "\ufeff")

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(Row, len(columns))
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			row[columns[i]] = strings.TrimSpace(value)
		}
		rows = append(rows, row)
	}

	return &Batch{
		Columns: columns,
		Rows:    rows,
		Mapping: SuggestMapping(columns),
	}, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
