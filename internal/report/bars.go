// Package report loads OHLCV bar data and writes the Trades/Equity/
// Optimization/Metrics run artifacts cmd/quantlab produces.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tathienbao/quant-lab/internal/types"
)

// LoadBars reads a `timestamp,open,high,low,close,volume` CSV file (with
// or without a header row) into a types.BarTable. Grounded on the
// teacher's observer.ParseCSV hand-parsed reader: skip-invalid-row
// tolerance is replaced with a hard error here, since a malformed input
// bar silently dropped would shift every downstream index the
// no-look-ahead property test relies on.
func LoadBars(path string) (types.BarTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.BarTable{}, fmt.Errorf("open bar file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseBarsCSV(f)
}

// ParseBarsCSV parses OHLCV rows from r.
func ParseBarsCSV(r io.Reader) (types.BarTable, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	var table types.BarTable
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.BarTable{}, fmt.Errorf("line %d: %w", lineNum+1, err)
		}
		lineNum++

		if lineNum == 1 && isHeaderRow(record) {
			continue
		}
		if len(record) < 6 {
			return types.BarTable{}, fmt.Errorf("line %d: expected 6 columns, got %d", lineNum, len(record))
		}

		ts, o, h, l, c, v, err := parseBarRecord(record)
		if err != nil {
			return types.BarTable{}, fmt.Errorf("line %d: %w", lineNum, err)
		}
		table.Timestamps = append(table.Timestamps, ts)
		table.Open = append(table.Open, o)
		table.High = append(table.High, h)
		table.Low = append(table.Low, l)
		table.Close = append(table.Close, c)
		table.Volume = append(table.Volume, v)
	}
	return table, nil
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(record[1], 64)
	return err != nil
}

func parseBarRecord(record []string) (ts time.Time, o, h, l, c, v float64, err error) {
	ts, err = parseTimestamp(record[0])
	if err != nil {
		return ts, 0, 0, 0, 0, 0, fmt.Errorf("parse timestamp: %w", err)
	}
	vals := make([]float64, 5)
	for i, field := range record[1:6] {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return ts, 0, 0, 0, 0, 0, fmt.Errorf("parse column %d: %w", i+1, err)
		}
	}
	return ts, vals[0], vals[1], vals[2], vals[3], vals[4], nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
