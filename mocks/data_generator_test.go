package mocks

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	series := gen.Generate(config)

	if series.Len() != 100 {
		t.Errorf("expected 100 rows, got %d", series.Len())
	}

	// Verify rows are in chronological order with a fixed interval
	for i := 1; i < series.Len(); i++ {
		delta := series.Rows[i].Timestamp - series.Rows[i-1].Timestamp
		if delta != int64(config.Interval/time.Second) {
			t.Errorf("unexpected interval at index %d: got %d seconds", i, delta)
		}
	}

	// Verify every product has a positive price in every row
	for i, row := range series.Rows {
		for _, product := range config.Products {
			price, ok := row.Prices.Price(product)
			if !ok || price <= 0 {
				t.Errorf("invalid price for %s at index %d: %f", product, i, price)
			}
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	series1 := gen1.Generate(config)
	series2 := gen2.Generate(config)

	for i := range series1.Rows {
		for _, product := range config.Products {
			if series1.Rows[i].Prices[product] != series2.Rows[i].Prices[product] {
				t.Errorf("data not reproducible at index %d for %s", i, product)
			}
		}
	}
}

func TestDataGenerator_Different_Seeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	series1 := gen1.Generate(config)
	series2 := gen2.Generate(config)

	// Different seeds should produce different results
	sameCount := 0
	for i := range series1.Rows {
		if series1.Rows[i].Prices["A"] == series2.Rows[i].Prices["A"] {
			sameCount++
		}
	}

	if sameCount == series1.Len() {
		t.Error("different seeds produced identical data")
	}
}

func TestDataGenerator_MissingRate(t *testing.T) {
	gen := NewDataGenerator(7)
	config := DefaultConfig()
	config.Count = 500
	config.MissingRate = 0.2

	series := gen.Generate(config)

	missing := 0
	for _, row := range series.Rows {
		for _, product := range config.Products {
			if !row.Prices.Has(product) {
				t.Fatalf("product %s missing from snapshot", product)
			}

			if math.IsNaN(row.Prices[product]) {
				missing++
			}
		}
	}

	if missing == 0 {
		t.Error("expected some missing prices")
	}
}

func TestDataGenerator_GenerateSignals(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 200

	series := gen.Generate(config)
	rows := gen.GenerateSignals(series, "ORBS", 0.3)

	if len(rows) != series.Len() {
		t.Fatalf("expected %d signal rows, got %d", series.Len(), len(rows))
	}

	allowed := map[string]bool{"": true, "A": true, "B": true, "C": true, "ORBS": true}
	changes := 0

	for i, row := range rows {
		if row.Timestamp != series.Rows[i].Timestamp {
			t.Errorf("signal timestamp mismatch at index %d", i)
		}

		if !allowed[row.Signal] {
			t.Errorf("unexpected signal %q at index %d", row.Signal, i)
		}

		if row.Signal != "" {
			changes++
		}
	}

	if changes == 0 || changes == len(rows) {
		t.Errorf("expected a mix of holds and changes, got %d changes", changes)
	}
}

func TestGenerate10K(t *testing.T) {
	series := Generate10K([]string{"X", "Y"})

	if series.Len() != 10000 {
		t.Errorf("expected 10000 rows, got %d", series.Len())
	}

	if len(series.Products) != 2 {
		t.Errorf("expected 2 products, got %d", len(series.Products))
	}
}

func TestWritePricesCSV(t *testing.T) {
	gen := NewDataGenerator(1)
	config := DefaultConfig()
	config.Count = 3
	config.Products = []string{"A", "B"}

	series := gen.Generate(config)
	series.Rows[1].Prices["B"] = math.NaN()

	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := WritePricesCSV(path, series, "CLOSE_"); err != nil {
		t.Fatalf("failed to write prices: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read prices: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}

	if lines[0] != "timestamp,CLOSE_A,CLOSE_B" {
		t.Errorf("unexpected header %q", lines[0])
	}

	if !strings.HasSuffix(lines[2], ",") {
		t.Errorf("expected empty cell for missing price, got %q", lines[2])
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Count != 1000 {
		t.Errorf("expected default count 1000, got %d", config.Count)
	}

	if len(config.Products) != 3 {
		t.Errorf("expected 3 default products, got %d", len(config.Products))
	}

	if config.Interval != time.Hour {
		t.Errorf("expected default interval 1h, got %v", config.Interval)
	}

	if config.InitialPrice != 100.0 {
		t.Errorf("expected default initial price 100.0, got %f", config.InitialPrice)
	}
}
