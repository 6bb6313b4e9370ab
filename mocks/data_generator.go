package mocks

import (
	"encoding/csv"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-rotation/internal/types"
)

// DataGenerator generates realistic price and signal data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how price data is generated.
type GeneratorConfig struct {
	// Products are the product symbols (e.g., "ELVEN_WINE", "SILK")
	Products []string
	// StartTime is the timestamp of the first row
	StartTime time.Time
	// Interval is the duration between rows
	Interval time.Duration
	// Count is the number of rows to generate
	Count int
	// InitialPrice is the average starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per row)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// MissingRate is the chance that a price is NaN
	MissingRate float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Products:     []string{"A", "B", "C"},
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Hour,
		Count:        1000,
		InitialPrice: 100.0,
		Volatility:   0.01, // 1% per row
		Trend:        0.0,  // neutral
		MissingRate:  0.0,
	}
}

// Generate creates a price series based on the configuration.
// Each product follows a geometric Brownian motion with its own starting price.
func (g *DataGenerator) Generate(config GeneratorConfig) types.PriceSeries {
	current := make(map[string]float64, len(config.Products))
	for _, product := range config.Products {
		// Vary initial price slightly per product
		current[product] = config.InitialPrice * (0.8 + g.rng.Float64()*0.4)
	}

	series := types.PriceSeries{
		Products: append([]string(nil), config.Products...),
		Rows:     make([]types.PriceRow, config.Count),
	}

	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		snapshot := make(types.PriceSnapshot, len(config.Products))

		for _, product := range config.Products {
			// Using Box-Muller transform for normal distribution
			u1 := 1 - g.rng.Float64()
			u2 := g.rng.Float64()
			z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

			drift := config.Trend / float64(config.Count) // Distribute trend across rows

			next := current[product] * (1 + config.Volatility*z + drift)
			if next <= 0 {
				next = current[product] * 0.99 // Prevent negative prices
			}

			current[product] = next

			if config.MissingRate > 0 && g.rng.Float64() < config.MissingRate {
				snapshot[product] = math.NaN()

				continue
			}

			snapshot[product] = roundToDecimals(next, 4)
		}

		series.Rows[i] = types.PriceRow{
			Timestamp: currentTime.Unix(),
			Prices:    snapshot,
		}

		currentTime = currentTime.Add(config.Interval)
	}

	return series
}

// GenerateSignals creates one signal row per price row. Each row moves to a
// random product or to cash with the given probability, otherwise it holds.
func (g *DataGenerator) GenerateSignals(series types.PriceSeries, cashSymbol string, changeRate float64) []types.SignalRow {
	choices := append(append([]string(nil), series.Products...), cashSymbol)
	rows := make([]types.SignalRow, series.Len())

	for i, row := range series.Rows {
		rows[i] = types.SignalRow{Timestamp: row.Timestamp}

		if g.rng.Float64() < changeRate {
			rows[i].Signal = choices[g.rng.Intn(len(choices))]
		}
	}

	return rows
}

// Generate10K is a convenience function to generate 10,000 rows
// with default settings for benchmarking.
func Generate10K(products []string) types.PriceSeries {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Products = products
	config.Count = 10000

	return gen.Generate(config)
}

// WritePricesCSV writes the series as a timestamp column followed by one
// <prefix><product> column per product. NaN prices are written as empty cells.
func WritePricesCSV(path string, series types.PriceSeries, prefix string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"timestamp"}
	for _, product := range series.Products {
		header = append(header, prefix+product)
	}

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range series.Rows {
		record := []string{strconv.FormatInt(row.Timestamp, 10)}

		for _, product := range series.Products {
			price, ok := row.Prices.Price(product)
			if !ok {
				record = append(record, "")

				continue
			}

			record = append(record, strconv.FormatFloat(price, 'f', -1, 64))
		}

		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
