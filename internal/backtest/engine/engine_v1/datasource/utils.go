package datasource

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-rotation/pkg/errors"
)

// productColumn maps a source column to the product symbol it carries.
type productColumn struct {
	Index  int
	Column string
	Symbol string
}

// findTimestampColumn returns the index of the timestamp column in header.
func findTimestampColumn(header []string) (int, bool) {
	for i, column := range header {
		if strings.EqualFold(strings.TrimSpace(column), TimestampColumn) {
			return i, true
		}
	}

	return -1, false
}

// selectProductColumns picks the price columns of header. Columns starting with
// prefix are products named by the rest of the column. When no column has the
// prefix, every non-timestamp column is a product.
func selectProductColumns(header []string, prefix string) ([]productColumn, error) {
	timestampIndex, ok := findTimestampColumn(header)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeMalformedInput, "price series must contain a '%s' column", TimestampColumn)
	}

	var prefixed, all []productColumn

	for i, column := range header {
		if i == timestampIndex {
			continue
		}

		name := strings.TrimSpace(column)
		if name == "" {
			continue
		}

		all = append(all, productColumn{Index: i, Column: column, Symbol: strings.ToUpper(name)})

		if prefix != "" && strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			symbol := strings.ToUpper(strings.TrimPrefix(name, prefix))
			prefixed = append(prefixed, productColumn{Index: i, Column: column, Symbol: symbol})
		}
	}

	selected := prefixed
	if len(selected) == 0 {
		selected = all
	}

	if len(selected) == 0 {
		return nil, errors.New(errors.ErrCodeMalformedInput, "price series has no product columns")
	}

	seen := make(map[string]struct{}, len(selected))
	for _, column := range selected {
		if _, dup := seen[column.Symbol]; dup {
			return nil, errors.Newf(errors.ErrCodeMalformedInput, "product %s appears in more than one column", column.Symbol)
		}

		seen[column.Symbol] = struct{}{}
	}

	return selected, nil
}

// parseTimestamp accepts integer timestamps, including integral floats like "100.0".
func parseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ts, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Newf(errors.ErrCodeMalformedInput, "invalid timestamp %q", raw)
	}

	return int64(f), nil
}

// parsePrice returns NaN for blank or unparsable cells.
func parsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}

	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}

	return price
}

func nullFloat(value sql.NullFloat64) float64 {
	if !value.Valid {
		return math.NaN()
	}

	return value.Float64
}
