package ports

import "context"

// SourceQueryService runs read-only queries against the source transactional
// store. It is used only by the historical backfill import, never during
// steady-state replication.
type SourceQueryService interface {
	// Query returns rows as loosely-typed maps keyed by column name.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}
