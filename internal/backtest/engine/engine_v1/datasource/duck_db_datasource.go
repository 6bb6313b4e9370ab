package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBDataSource reads price series through a DuckDB view over a Parquet or CSV file.
type DuckDBDataSource struct {
	db              *sql.DB
	logger          *logger.Logger
	sq              squirrel.StatementBuilderType
	prefix          string
	timestampColumn string
	columns         []productColumn
}

// NewDuckDBDataSource opens a DuckDB database at path (":memory:" for an in-memory one).
// This is distinct from Initialize() which points the data source at a price file.
func NewDuckDBDataSource(path string, priceColumnPrefix string, log *logger.Logger) (*DuckDBDataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		prefix: priceColumnPrefix,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS price_data;`)
	if err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	reader := "read_csv_auto"
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader = "read_parquet"
	}

	// Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`CREATE VIEW price_data AS SELECT * FROM %s('%s');`, reader, escapeLiteral(path))

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load price file %s", path)
	}

	header, err := d.columnNames()
	if err != nil {
		return err
	}

	timestampIndex, _ := findTimestampColumn(header)

	columns, err := selectProductColumns(header, d.prefix)
	if err != nil {
		return err
	}

	d.timestampColumn = header[timestampIndex]
	d.columns = columns

	return nil
}

func (d *DuckDBDataSource) columnNames() ([]string, error) {
	rows, err := d.db.Query(`SELECT * FROM price_data LIMIT 0`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to describe price data", err)
	}
	defer rows.Close()

	return rows.Columns()
}

// ReadPrices implements DataSource.
func (d *DuckDBDataSource) ReadPrices() (types.PriceSeries, error) {
	if d.timestampColumn == "" {
		return types.PriceSeries{}, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	selects := make([]string, 0, len(d.columns)+1)
	// timestamps go through the same text parsing as CSV so fractional values are rejected
	selects = append(selects, fmt.Sprintf("CAST(%s AS VARCHAR)", quoteIdentifier(d.timestampColumn)))

	series := types.PriceSeries{Products: make([]string, 0, len(d.columns))}
	for _, column := range d.columns {
		selects = append(selects, fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", quoteIdentifier(column.Column)))
		series.Products = append(series.Products, column.Symbol)
	}

	query, args, err := d.sq.Select(selects...).From("price_data").ToSql()
	if err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build price query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read price data", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawTimestamp sql.NullString

		prices := make([]sql.NullFloat64, len(d.columns))
		dest := make([]any, 0, len(d.columns)+1)
		dest = append(dest, &rawTimestamp)

		for i := range prices {
			dest = append(dest, &prices[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return types.PriceSeries{}, errors.Wrap(errors.ErrCodeMalformedInput, "failed to scan price row", err)
		}

		if !rawTimestamp.Valid {
			return types.PriceSeries{}, errors.Newf(errors.ErrCodeMalformedInput, "price row %d has no timestamp", series.Len()+1)
		}

		timestamp, err := parseTimestamp(rawTimestamp.String)
		if err != nil {
			return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeMalformedInput, err, "price row %d", series.Len()+1)
		}

		snapshot := make(types.PriceSnapshot, len(d.columns))
		for i, column := range d.columns {
			snapshot[column.Symbol] = nullFloat(prices[i])
		}

		series.Rows = append(series.Rows, types.PriceRow{Timestamp: timestamp, Prices: snapshot})
	}

	if err := rows.Err(); err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate price rows", err)
	}

	return series, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count() (int, error) {
	var count int

	err := d.sq.Select("COUNT(*)").From("price_data").RunWith(d.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count price rows", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
