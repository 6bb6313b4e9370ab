package datasource

import (
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
)

// TimestampColumn is the required key column of price and signal files.
const TimestampColumn = "timestamp"

// DefaultPriceColumnPrefix marks product price columns, e.g. CLOSE_ELVEN_WINE.
const DefaultPriceColumnPrefix = "CLOSE_"

type DataSource interface {
	// Initialize opens the price series at path
	Initialize(path string) error
	// ReadPrices reads the whole price series in file order
	ReadPrices() (types.PriceSeries, error)
	// Count returns the number of rows in the price series
	Count() (int, error)
	// Close releases any resources held by the data source
	Close() error
}

// NewDataSourceForPath picks a data source for the file extension of path.
// Parquet files are read through DuckDB, everything else as CSV.
func NewDataSourceForPath(path string, priceColumnPrefix string, log *logger.Logger) (DataSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		source, err := NewDuckDBDataSource(":memory:", priceColumnPrefix, log)
		if err != nil {
			return nil, err
		}

		return source, nil
	}

	return NewCSVDataSource(priceColumnPrefix, log), nil
}
