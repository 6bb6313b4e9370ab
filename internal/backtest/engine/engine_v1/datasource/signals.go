package datasource

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
)

// SignalColumn is the required column of a signal file.
const SignalColumn = "signal"

// ReadSignals loads a signal file. The file must have a signal column; when it has
// no timestamp column every row is marked positional.
func ReadSignals(path string) ([]types.SignalRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "signal file %s", path)
	}

	return ParseSignals(data)
}

// ParseSignals parses the contents of a signal file.
func ParseSignals(data []byte) ([]types.SignalRow, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeMalformedInput, "signal file is empty")
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read signal header", err)
	}

	hasSignal := false
	hasTimestamp := false

	for _, column := range header {
		switch strings.TrimSpace(column) {
		case SignalColumn:
			hasSignal = true
		case TimestampColumn:
			hasTimestamp = true
		}
	}

	if !hasSignal {
		return nil, errors.Newf(errors.ErrCodeMalformedInput, "signal file must contain a '%s' column", SignalColumn)
	}

	rows := []types.SignalRow{}
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, "failed to parse signal file", err)
	}

	if !hasTimestamp {
		for i := range rows {
			rows[i].Positional = true
		}
	}

	return rows, nil
}

// WriteSignals writes signal rows in the timestamp,signal layout strategies produce.
func WriteSignals(path string, rows []types.SignalRow) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create signal file %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write signal file", err)
	}

	return nil
}
