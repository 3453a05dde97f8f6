package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // snowflake driver

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// identRe restricts table names to plain identifiers; the table name is
// interpolated into the query text.
var identRe = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// SnowflakeSource pulls the extract table from the warehouse and
// re-serializes it as CSV for the normalizer.
type SnowflakeSource struct {
	db    *sql.DB
	table string
}

// BuildDSN renders the gosnowflake DSN:
// user:password@account/database/schema?warehouse=x.
func BuildDSN(cfg config.SnowflakeConfig) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User, cfg.Password, cfg.Account, cfg.Database, cfg.Schema)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}
	return dsn
}

func NewSnowflakeSource(cfg config.SnowflakeConfig) (*SnowflakeSource, error) {
	if cfg.Account == "" || cfg.User == "" {
		return nil, &domain.ConfigurationError{
			Field:  "snowflake.account",
			Reason: "warehouse source needs an account and user",
		}
	}
	db, err := sql.Open("snowflake", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewSnowflakeSourceWithDB(db, cfg.Table), nil
}

// NewSnowflakeSourceWithDB injects an open connection, real or mock.
func NewSnowflakeSourceWithDB(db *sql.DB, table string) *SnowflakeSource {
	if table == "" {
		table = "CUSTOMER_EXTRACT"
	}
	return &SnowflakeSource{db: db, table: table}
}

func (s *SnowflakeSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Open selects the whole extract table and renders it as a CSV stream,
// header row first. Column names stay the warehouse's; the column
// mapper resolves them like any other extract's.
func (s *SnowflakeSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	if !identRe.MatchString(s.table) {
		return nil, "", &domain.ConfigurationError{
			Field:  "snowflake.table",
			Reason: fmt.Sprintf("invalid table name %q", s.table),
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.table)
	if err != nil {
		return nil, "", &domain.DownstreamUnavailableError{System: "snowflake", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, "", fmt.Errorf("read columns: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, "", fmt.Errorf("write header: %w", err)
	}

	values := make([]sql.NullString, len(cols))
	scan := make([]interface{}, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}
	record := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, "", fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			} else {
				record[i] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return nil, "", fmt.Errorf("write row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("flush csv: %w", err)
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), s.table + ".csv", nil
}
