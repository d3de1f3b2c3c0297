// Package loader reads transaction logs from CSV, OFX/QFX and SQLite sources.
package loader

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
	"github.com/Veraticus/flagrant/internal/rules"
	"github.com/araddon/dateparse"
)

// Required column names.
const (
	ColumnUserID  = "user_id"
	ColumnAmount  = "amount"
	ColumnCountry = "country"
	ColumnTime    = "time"
)

// RequiredColumns lists the columns every tabular source must provide.
var RequiredColumns = []string{ColumnUserID, ColumnAmount, ColumnCountry, ColumnTime}

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "transactions"

// Errors returned by ParseTime and ParseAmount. Loaders wrap them in a
// common.MalformedInputError naming the line and column.
var (
	ErrUnrecognizedTime = errors.New("unrecognized timestamp format")
	ErrAmbiguousDate    = errors.New("ambiguous day/month order")
	ErrAmountNotFinite  = errors.New("amount must be finite")
	ErrNegativeAmount   = errors.New("amount must not be negative")
)

// timeLayouts are tried before falling back to dateparse.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339,
	"2006-01-02T15:04",
}

// Options configure how a file is interpreted.
type Options struct {
	DefaultCountry string // Used when an OFX transaction carries no payee country
	Table          string // SQLite table name
}

// FileSource picks a loader by file extension.
func FileSource(path string, opts Options) (rules.Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVFile(path), nil
	case ".ofx", ".qfx":
		return NewOFXFile(path, opts.DefaultCountry), nil
	case ".db", ".sqlite", ".sqlite3":
		table := opts.Table
		if table == "" {
			table = DefaultTable
		}
		return NewSQLiteFile(path, table), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q: expected .csv, .ofx, .qfx, .db or .sqlite", filepath.Ext(path))
	}
}

// ParseTime parses a timestamp, inferring its format. Values without a zone
// are read as UTC. Slash dates whose day and month could be swapped are
// rejected rather than guessed.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if _, err := dateparse.ParseStrict(value); errors.Is(err, dateparse.ErrAmbiguousMMDD) {
		return time.Time{}, ErrAmbiguousDate
	}

	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrUnrecognizedTime, err)
	}
	return t, nil
}

// ParseAmount parses a non-negative, finite amount.
func ParseAmount(value string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	return amount, checkAmount(amount)
}

func checkAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrAmountNotFinite
	}
	if amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// buildTransaction coerces the required string fields of one row.
func buildTransaction(line int, userID, amount, country, ts string, extra map[string]string) (model.Transaction, error) {
	amt, err := ParseAmount(amount)
	if err != nil {
		return model.Transaction{}, &common.MalformedInputError{Line: line, Column: ColumnAmount, Value: amount, Err: err}
	}

	t, err := ParseTime(ts)
	if err != nil {
		return model.Transaction{}, &common.MalformedInputError{Line: line, Column: ColumnTime, Value: ts, Err: err}
	}

	return model.Transaction{
		UserID:  userID,
		Amount:  amt,
		Country: country,
		Time:    t,
		Extra:   extra,
		Line:    line,
	}, nil
}
