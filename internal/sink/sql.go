// Package sink writes the merged table to destinations other than CSV: a SQL
// database (PostgreSQL, MySQL or SQLite) and a Parquet file.
package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"cropdata/internal/models"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

var (
	// ErrUnsupportedDriver is returned for drivers other than the three above.
	ErrUnsupportedDriver = errors.New("unsupported sql driver")
	// ErrInvalidIdentifier is returned for table or column names that cannot be
	// used unquoted in every supported dialect.
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink replaces one table with the contents of a merged table.
type SQLSink struct {
	db        *sql.DB
	driver    string
	table     string
	batchSize int
}

// OpenSQL connects to dsn and checks the connection.
func OpenSQL(ctx context.Context, driver, dsn, table string, batchSize int) (*SQLSink, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}

	s, err := NewSQLSink(db, driver, table, batchSize)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// NewSQLSink wraps an open database handle.
func NewSQLSink(db *sql.DB, driver, table string, batchSize int) (*SQLSink, error) {
	switch driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SQLSink{db: db, driver: driver, table: table, batchSize: batchSize}, nil
}

// Columns returns the SQL column names for a merged table with the given
// indicator columns.
func Columns(indicators []string) []string {
	cols := []string{models.ColRunID, models.SQLColCountryName, models.SQLColCountryCode, models.ColYear}
	cols = append(cols, indicators...)

	return append(cols, models.ColTempAnomaly)
}

// Write drops and recreates the table, then inserts every row tagged with
// runID. It returns the number of rows inserted.
func (s *SQLSink) Write(ctx context.Context, runID string, t *models.MergedTable) (int, error) {
	for _, name := range t.Indicators {
		if !identRe.MatchString(name) {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidIdentifier, name)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.quote(s.table)); err != nil {
		return 0, fmt.Errorf("%s: drop %s: %w", s.driver, s.table, err)
	}

	if _, err := tx.ExecContext(ctx, s.createTable(t.Indicators)); err != nil {
		return 0, fmt.Errorf("%s: create %s: %w", s.driver, s.table, err)
	}

	for i := 0; i < len(t.Rows); i += s.batchSize {
		end := min(i+s.batchSize, len(t.Rows))

		if err := s.insertBatch(ctx, tx, runID, t.Indicators, t.Rows[i:end]); err != nil {
			return 0, fmt.Errorf("%s: insert rows %d-%d: %w", s.driver, i+1, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", s.driver, err)
	}

	return len(t.Rows), nil
}

// Close closes the database handle.
func (s *SQLSink) Close() error {
	return s.db.Close()
}

func (s *SQLSink) createTable(indicators []string) string {
	text, float := "TEXT", "REAL"

	switch s.driver {
	case DriverPostgres:
		float = "DOUBLE PRECISION"
	case DriverMySQL:
		text, float = "VARCHAR(255)", "DOUBLE"
	}

	defs := []string{
		s.quote("run_id") + " " + text + " NOT NULL",
		s.quote("country_name") + " " + text + " NOT NULL",
		s.quote("country_code") + " " + text + " NOT NULL",
		s.quote("year") + " INTEGER NOT NULL",
	}

	for _, name := range indicators {
		defs = append(defs, s.quote(name)+" "+float)
	}

	defs = append(defs, s.quote(models.ColTempAnomaly)+" "+float)

	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", s.quote(s.table), strings.Join(defs, ",\n\t"))
}

func (s *SQLSink) insertBatch(ctx context.Context, tx *sql.Tx, runID string, indicators []string, batch []models.MergedRow) error {
	cols := Columns(indicators)
	width := len(cols)

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)

	for idx, r := range batch {
		valueStrings = append(valueStrings, s.placeholders(idx*width, width))
		valueArgs = append(valueArgs, runID, r.CountryName, r.CountryCode, r.Year)

		for _, v := range r.Values {
			valueArgs = append(valueArgs, nullable(v))
		}

		valueArgs = append(valueArgs, nullable(r.Anomaly))
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.quote(c)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.quote(s.table), strings.Join(quoted, ", "), strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)

	return err
}

func (s *SQLSink) placeholders(base, n int) string {
	marks := make([]string, n)

	for i := range marks {
		if s.driver == DriverPostgres {
			marks[i] = fmt.Sprintf("$%d", base+i+1)
		} else {
			marks[i] = "?"
		}
	}

	return "(" + strings.Join(marks, ",") + ")"
}

func (s *SQLSink) quote(ident string) string {
	if s.driver == DriverMySQL {
		return "`" + ident + "`"
	}

	return `"` + ident + `"`
}

func nullable(v models.Value) any {
	if !v.Valid {
		return nil
	}

	return v.Float
}
