package sourcedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vinco360/crm-replicator/internal/ports"
)

// MySQLQueryService runs read-only backfill queries against the source
// transactional store.
type MySQLQueryService struct {
	db *sql.DB
}

func Connect(ctx context.Context, dsn string) (*MySQLQueryService, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping source db: %w", err)
	}
	return &MySQLQueryService{db: db}, nil
}

var _ ports.SourceQueryService = (*MySQLQueryService)(nil)

// Query returns every row as a column-keyed map. Byte slices are converted to
// strings so date and text columns come back directly usable.
func (s *MySQLQueryService) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("source query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("source query columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("source query scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source query rows: %w", err)
	}
	return out, nil
}

func (s *MySQLQueryService) Close() error {
	return s.db.Close()
}
