package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	tempDir string
	logger  *logger.Logger
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (suite *DuckDBDataSourceTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *DuckDBDataSourceTestSuite) writeCSV() string {
	path := filepath.Join(suite.tempDir, "prices.csv")
	content := "timestamp,CLOSE_A,CLOSE_B\n0,10,5\n100,11,\n200,12,7\n"
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

// writeParquet converts the CSV fixture with DuckDB itself.
func (suite *DuckDBDataSourceTestSuite) writeParquet() string {
	csvPath := suite.writeCSV()
	parquetPath := filepath.Join(suite.tempDir, "prices.parquet")

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`COPY (SELECT * FROM read_csv_auto('%s')) TO '%s' (FORMAT PARQUET)`, csvPath, parquetPath))
	suite.Require().NoError(err)

	return parquetPath
}

func (suite *DuckDBDataSourceTestSuite) TestReadParquet() {
	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	suite.Require().NoError(source.Initialize(suite.writeParquet()))

	series, err := source.ReadPrices()
	suite.Require().NoError(err)
	suite.Equal([]string{"A", "B"}, series.Products)
	suite.Require().Equal(3, series.Len())
	suite.Equal(int64(200), series.Rows[2].Timestamp)
	suite.Equal(12.0, series.Rows[2].Prices["A"])
	suite.True(math.IsNaN(series.Rows[1].Prices["B"]))

	count, err := source.Count()
	suite.NoError(err)
	suite.Equal(3, count)
}

func (suite *DuckDBDataSourceTestSuite) TestReadCSV() {
	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	suite.Require().NoError(source.Initialize(suite.writeCSV()))

	series, err := source.ReadPrices()
	suite.Require().NoError(err)
	suite.Equal(int64(100), series.Rows[1].Timestamp)
	suite.Equal(11.0, series.Rows[1].Prices["A"])
}

func (suite *DuckDBDataSourceTestSuite) TestMissingTimestampColumn() {
	path := filepath.Join(suite.tempDir, "bad.csv")
	suite.Require().NoError(os.WriteFile(path, []byte("time,CLOSE_A\n0,1\n"), 0644))

	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	err = source.Initialize(path)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func (suite *DuckDBDataSourceTestSuite) TestReadBeforeInitialize() {
	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	_, err = source.ReadPrices()
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

// writeDoubleTimestampParquet stores the timestamp column as DOUBLE.
func (suite *DuckDBDataSourceTestSuite) writeDoubleTimestampParquet(name string, timestamps ...float64) string {
	path := filepath.Join(suite.tempDir, name)

	values := make([]string, len(timestamps))
	for i, ts := range timestamps {
		values[i] = fmt.Sprintf("(%v::DOUBLE, %d::DOUBLE)", ts, 10+i)
	}

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	query := fmt.Sprintf(`COPY (SELECT * FROM (VALUES %s) AS t("timestamp", "CLOSE_A")) TO '%s' (FORMAT PARQUET)`,
		strings.Join(values, ", "), path)
	_, err = db.Exec(query)
	suite.Require().NoError(err)

	return path
}

func (suite *DuckDBDataSourceTestSuite) TestFractionalParquetTimestamp() {
	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	suite.Require().NoError(source.Initialize(suite.writeDoubleTimestampParquet("fractional.parquet", 100, 100.5)))

	_, err = source.ReadPrices()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedInput))
}

func (suite *DuckDBDataSourceTestSuite) TestIntegralDoubleParquetTimestamp() {
	source, err := NewDuckDBDataSource(":memory:", DefaultPriceColumnPrefix, suite.logger)
	suite.Require().NoError(err)
	defer source.Close()

	suite.Require().NoError(source.Initialize(suite.writeDoubleTimestampParquet("integral.parquet", 100, 200)))

	series, err := source.ReadPrices()
	suite.Require().NoError(err)
	suite.Require().Equal(2, series.Len())
	suite.Equal(int64(100), series.Rows[0].Timestamp)
	suite.Equal(int64(200), series.Rows[1].Timestamp)
	suite.Equal(11.0, series.Rows[1].Prices["A"])
}
