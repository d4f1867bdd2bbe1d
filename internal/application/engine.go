package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// RecordDispatcher is the engine's view of the dispatcher.
type RecordDispatcher interface {
	Dispatch(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error
}

// Engine applies one package against the CRM: order the records, then apply
// them strictly sequentially, stopping at the first failure. The applied count
// it returns is what the orchestrator carves the persisted remainder from.
type Engine struct {
	orderer    *Orderer
	dispatcher RecordDispatcher
	log        *slog.Logger
}

func NewEngine(orderer *Orderer, dispatcher RecordDispatcher, log *slog.Logger) *Engine {
	return &Engine{orderer: orderer, dispatcher: dispatcher, log: log}
}

// Execute applies pkg's records in execution order. On failure it returns the
// number of records that were fully applied before the failing one, alongside
// the failure itself. The ordered view replaces pkg.Records so the remainder
// is carved from the order that was actually executed.
func (e *Engine) Execute(ctx context.Context, pkg *domain.Package) (int, error) {
	pkg.Records = e.orderer.Order(pkg.Records)
	for i, rec := range pkg.Records {
		if err := e.dispatcher.Dispatch(ctx, pkg, rec); err != nil {
			e.log.Error("package execution stopped",
				slog.Int64("client_id", pkg.ClientID),
				slog.Int64("business_id", pkg.BusinessID),
				slog.Int("applied", i),
				slog.Int("total", len(pkg.Records)),
				slog.String("error", err.Error()))
			return i, fmt.Errorf("record %d of %d (%s): %w", i+1, len(pkg.Records), rec.Kind, err)
		}
	}
	return len(pkg.Records), nil
}
