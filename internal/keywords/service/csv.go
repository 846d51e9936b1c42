package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	csvHeader   = "keyword"
	maxKeywords = 20000
	utf8BOM     = "\ufeff"
)

var errTooManyKeywords = fmt.Errorf("a pool holds at most %d keywords", maxKeywords)

// parseKeywordCSV reads the first column of every row. A leading "keyword"
// header row is skipped and blank cells are ignored.
func parseKeywordCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	keywords := make([]string, 0, 256)
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		cell := record[0]
		if first {
			cell = strings.TrimPrefix(cell, utf8BOM)
			first = false
			if strings.EqualFold(strings.TrimSpace(cell), csvHeader) {
				continue
			}
		}

		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if len(keywords) == maxKeywords {
			return nil, errTooManyKeywords
		}
		keywords = append(keywords, cell)
	}
	return keywords, nil
}
