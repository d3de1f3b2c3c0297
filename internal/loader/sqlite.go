package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/flagrant/internal/common"
	"github.com/Veraticus/flagrant/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads transactions from a table in a SQLite database.
// The database is opened read-only; rows are returned in rowid order.
type SQLiteSource struct {
	db     *sql.DB
	dbPath string
	table  string
}

// NewSQLiteFile creates a source that opens the database at dbPath on Load.
func NewSQLiteFile(dbPath, table string) *SQLiteSource {
	return &SQLiteSource{dbPath: dbPath, table: table}
}

// NewSQLiteDB creates a source over an open database handle. The handle is not closed.
func NewSQLiteDB(db *sql.DB, table string) *SQLiteSource {
	return &SQLiteSource{db: db, table: table}
}

// Load queries every row of the configured table.
func (s *SQLiteSource) Load(ctx context.Context) ([]model.Transaction, error) {
	if !tableNameRegex.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name %q", s.table)
	}

	db := s.db
	if db == nil {
		opened, err := sql.Open("sqlite3", "file:"+s.dbPath+"?mode=ro&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer opened.Close()

		if err := opened.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		db = opened
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[strings.ToLower(name)] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, common.NewMissingColumnError(col)
		}
	}

	var transactions []model.Transaction
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	line := 0
	for rows.Next() {
		line++
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", line, err)
		}

		tx, err := sqliteTransaction(line, columns, index, values)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	common.LogDebug("Read SQLite table", common.Fields{
		"table":        s.table,
		"transactions": len(transactions),
	})

	return transactions, nil
}

func sqliteTransaction(line int, columns []string, index map[string]int, values []any) (model.Transaction, error) {
	var extra map[string]string
	for i, name := range columns {
		switch strings.ToLower(name) {
		case ColumnUserID, ColumnAmount, ColumnCountry, ColumnTime:
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[name] = sqliteString(values[i])
	}

	// DATETIME columns arrive already parsed.
	if t, ok := values[index[ColumnTime]].(time.Time); ok {
		tx, err := buildTransaction(line,
			sqliteString(values[index[ColumnUserID]]),
			sqliteString(values[index[ColumnAmount]]),
			sqliteString(values[index[ColumnCountry]]),
			t.UTC().Format(time.RFC3339Nano),
			extra)
		if err != nil {
			return model.Transaction{}, err
		}
		tx.Time = t
		return tx, nil
	}

	return buildTransaction(line,
		sqliteString(values[index[ColumnUserID]]),
		sqliteString(values[index[ColumnAmount]]),
		sqliteString(values[index[ColumnCountry]]),
		sqliteString(values[index[ColumnTime]]),
		extra)
}

func sqliteString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
