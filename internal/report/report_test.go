package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/quant-lab/internal/types"
)

func TestParseBarsCSV_SkipsHeaderAndParsesRows(t *testing.T) {
	input := "timestamp,open,high,low,close,volume\n" +
		"2024-01-01T00:00:00Z,100,101,99,100.5,10\n" +
		"2024-01-01T01:00:00Z,100.5,102,100,101,12\n"

	table, err := ParseBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBarsCSV() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if table.Close[1] != 101 {
		t.Errorf("Close[1] = %v, want 101", table.Close[1])
	}
}

func TestParseBarsCSV_AcceptsUnixTimestamps(t *testing.T) {
	input := "1704067200,100,101,99,100.5,10\n"
	table, err := ParseBarsCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseBarsCSV() error = %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestParseBarsCSV_RejectsShortRows(t *testing.T) {
	_, err := ParseBarsCSV(strings.NewReader("2024-01-01,100,101,99\n"))
	if err == nil {
		t.Error("expected an error for a row with too few columns")
	}
}

func TestWriteTradesCSV_RoundTripsBasicFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	trades := []types.Trade{{
		Side:         types.SideLong,
		EntryTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExitTime:     time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		EntryPrice:   decimal.RequireFromString("100"),
		ExitPrice:    decimal.RequireFromString("110"),
		Size:         decimal.RequireFromString("1"),
		PnL:          decimal.RequireFromString("10"),
		PnLPct:       10,
		DurationBars: 5,
		ExitReason:   types.ExitTakeProfit,
	}}

	if err := WriteTradesCSV(path, trades); err != nil {
		t.Fatalf("WriteTradesCSV() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "LONG") || !strings.Contains(string(data), "tp") {
		t.Errorf("trades.csv missing expected fields:\n%s", data)
	}
}

func TestWriteMetricsJSON_WritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")

	if err := WriteMetricsJSON(path, types.MetricsBundle{TotalReturnPct: 12.5, NumTrades: 3}); err != nil {
		t.Fatalf("WriteMetricsJSON() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\"TotalReturnPct\": 12.5") {
		t.Errorf("metrics.json missing expected field:\n%s", data)
	}
}
