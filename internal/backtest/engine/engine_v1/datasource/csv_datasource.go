package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

// CSVDataSource reads a wide price CSV with one column per product.
type CSVDataSource struct {
	path   string
	prefix string
	logger *logger.Logger
	series *types.PriceSeries
}

func NewCSVDataSource(priceColumnPrefix string, log *logger.Logger) *CSVDataSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CSVDataSource{
		prefix: priceColumnPrefix,
		logger: log,
	}
}

// Initialize implements DataSource.
func (c *CSVDataSource) Initialize(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "price file %s", path)
	}

	c.path = path
	c.series = nil

	return nil
}

// ReadPrices implements DataSource. The file is parsed once and cached.
func (c *CSVDataSource) ReadPrices() (types.PriceSeries, error) {
	if c.series != nil {
		return *c.series, nil
	}

	if c.path == "" {
		return types.PriceSeries{}, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	file, err := os.Open(c.path)
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to open price file: %w", err)
	}
	defer file.Close()

	series, err := parsePriceCSV(file, c.prefix)
	if err != nil {
		return types.PriceSeries{}, err
	}

	c.logger.Debug("Loaded price series",
		zap.String("path", c.path),
		zap.Int("rows", series.Len()),
		zap.Strings("products", series.Products),
	)

	c.series = &series

	return series, nil
}

// Count implements DataSource.
func (c *CSVDataSource) Count() (int, error) {
	series, err := c.ReadPrices()
	if err != nil {
		return 0, err
	}

	return series.Len(), nil
}

// Close implements DataSource.
func (c *CSVDataSource) Close() error {
	c.series = nil

	return nil
}

func parsePriceCSV(r io.Reader, prefix string) (types.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return types.PriceSeries{}, errors.New(errors.ErrCodeMalformedInput, "price file is empty")
	}

	if err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read price header", err)
	}

	timestampIndex, _ := findTimestampColumn(header)

	columns, err := selectProductColumns(header, prefix)
	if err != nil {
		return types.PriceSeries{}, err
	}

	series := types.PriceSeries{Products: make([]string, 0, len(columns))}
	for _, column := range columns {
		series.Products = append(series.Products, column.Symbol)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeMalformedInput, err, "failed to read price line %d", line)
		}

		if timestampIndex >= len(record) {
			return types.PriceSeries{}, errors.Newf(errors.ErrCodeMalformedInput, "price line %d has no timestamp", line)
		}

		timestamp, err := parseTimestamp(record[timestampIndex])
		if err != nil {
			return types.PriceSeries{}, fmt.Errorf("price line %d: %w", line, err)
		}

		snapshot := make(types.PriceSnapshot, len(columns))
		for _, column := range columns {
			cell := ""
			if column.Index < len(record) {
				cell = record[column.Index]
			}

			snapshot[column.Symbol] = parsePrice(cell)
		}

		series.Rows = append(series.Rows, types.PriceRow{Timestamp: timestamp, Prices: snapshot})
	}

	return series, nil
}
