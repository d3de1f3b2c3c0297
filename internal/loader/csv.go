package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"
)

// CSVSource reads a CSV transaction log with a header row.
type CSVSource struct {
	reader io.Reader
	path   string
}

// NewCSVFile creates a source that reads the CSV file at path on every Load.
func NewCSVFile(path string) *CSVSource {
	return &CSVSource{path: path}
}

// NewCSVReader creates a source over an already open stream. The stream is
// consumed by the first Load.
func NewCSVReader(r io.Reader) *CSVSource {
	return &CSVSource{reader: r}
}

// Load parses the CSV source.
func (s *CSVSource) Load(ctx context.Context) ([]model.Transaction, error) {
	if s.reader != nil {
		return ParseCSV(ctx, s.reader)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	txns, err := ParseCSV(ctx, f)
	if err != nil {
		return nil, err
	}

	slog.Debug("Parsed CSV file", "file", s.path, "transactions", len(txns))
	return txns, nil
}

// ParseCSV reads transactions from CSV data. The first record is the header;
// columns beyond the required ones are kept in Transaction.Extra.
func ParseCSV(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, common.NewMissingColumnError(ColumnUserID)
	}
	if err != nil {
		return nil, csvError(err)
	}

	index, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		line, _ := reader.FieldPos(0)

		var extra map[string]string
		for i, name := range header {
			if _, required := index.required[i]; required {
				continue
			}
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[name] = record[i]
		}

		tx, err := buildTransaction(line,
			record[index.columns[ColumnUserID]],
			record[index.columns[ColumnAmount]],
			record[index.columns[ColumnCountry]],
			record[index.columns[ColumnTime]],
			extra)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

type headerIndex struct {
	columns  map[string]int
	required map[int]struct{}
}

func indexHeader(header []string) (headerIndex, error) {
	idx := headerIndex{
		columns:  make(map[string]int, len(header)),
		required: make(map[int]struct{}, len(RequiredColumns)),
	}

	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := idx.columns[key]; !seen {
			idx.columns[key] = i
		}
	}

	for _, col := range RequiredColumns {
		i, ok := idx.columns[col]
		if !ok {
			return headerIndex{}, common.NewMissingColumnError(col)
		}
		idx.required[i] = struct{}{}
	}

	return idx, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &common.MalformedInputError{Line: pe.Line, Column: fmt.Sprintf("field %d", pe.Column), Err: pe.Err}
	}
	return fmt.Errorf("failed to read CSV: %w", err)
}
