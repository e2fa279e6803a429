package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column names of a partition header.
const (
	ColumnID         = "ID"
	ColumnName       = "NAME"
	ColumnComicCount = "COMIC_COUNT"
)

// ErrMissingColumn indicates a partition header lacks one of the required columns.
var ErrMissingColumn = errors.New("missing column")

// EncodeCSV renders records as a CSV partition with a header row.
func EncodeCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{ColumnID, ColumnName, ColumnComicCount}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{strconv.Itoa(r.ID), r.Name, strconv.Itoa(r.ComicCount)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write record %s: %w", r, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a CSV partition. Columns are located by header name
// (case-insensitive), so partitions carrying an extra leading index column
// are read as well.
func DecodeCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToUpper(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{ColumnID, ColumnName, ColumnComicCount} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", line, len(header), len(row))
		}

		id, err := strconv.Atoi(strings.TrimSpace(row[idx[ColumnID]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse %s: %w", line, ColumnID, err)
		}
		comics, err := strconv.Atoi(strings.TrimSpace(row[idx[ColumnComicCount]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse %s: %w", line, ColumnComicCount, err)
		}

		records = append(records, Record{
			ID:         id,
			Name:       row[idx[ColumnName]],
			ComicCount: comics,
		})
	}

	return records, nil
}
