package application

import (
	"context"
	"log/slog"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

type routeKey struct {
	kind domain.EntityKind
	op   domain.OperationType
}

type handlerFunc func(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error

// Dispatcher routes one mutation record to the handler owning its
// (kind, operation) pair. The route table is total over inputs: a pair with
// no handler is a mapped no-op, never an error, so unknown kinds and
// OperationType None flow through packages without disturbing them.
type Dispatcher struct {
	crm     ports.CRMClient
	resolve *Resolver
	log     *slog.Logger
	routes  map[routeKey]handlerFunc
}

func NewDispatcher(crm ports.CRMClient, resolve *Resolver, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{crm: crm, resolve: resolve, log: log}
	d.routes = map[routeKey]handlerFunc{
		{domain.KindClient, domain.OperationInsert}:             d.createClient,
		{domain.KindClient, domain.OperationUpdate}:             d.updateClient,
		{domain.KindClientBusinessLink, domain.OperationInsert}: d.createClientBusinessLink,
		{domain.KindClientBusinessLink, domain.OperationUpdate}: d.createBusinessRating,
		{domain.KindEvent, domain.OperationInsert}:              d.createEvent,
		{domain.KindEvent, domain.OperationDelete}:              d.deleteEvent,
		{domain.KindRedemption, domain.OperationInsert}:         d.createRedemption,
		{domain.KindAccount, domain.OperationInsert}:            d.createAccount,
		{domain.KindAccount, domain.OperationUpdate}:            d.updateAccount,
		{domain.KindGameSession, domain.OperationInsert}:        d.createGameSession,
		{domain.KindGameSession, domain.OperationUpdate}:        d.updateGameSession,
		{domain.KindCustomerCode, domain.OperationInsert}:       d.createCustomerCode,
		{domain.KindCustomerCode, domain.OperationUpdate}:       d.updateCustomerCode,
		{domain.KindNotificationLog, domain.OperationInsert}:    d.createNotificationLog,
	}
	return d
}

// Dispatch applies a single record against the CRM. The package is passed
// alongside because some handlers read sibling records off it.
func (d *Dispatcher) Dispatch(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error {
	handler, ok := d.routes[routeKey{rec.Kind, rec.Operation}]
	if !ok {
		d.log.Debug("record skipped",
			slog.String("kind", rec.Kind.String()),
			slog.Int("operation", int(rec.Operation)))
		return nil
	}
	if err := handler(ctx, pkg, rec); err != nil {
		d.log.Error("record failed",
			slog.String("kind", rec.Kind.String()),
			slog.Int("operation", int(rec.Operation)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// orNil keeps empty strings out of CRM payloads the way the upstream contract
// expects: absent values travel as JSON null, not "".
func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// campaignIDFromSiblings resolves the campaign attached to the package, read
// off the first game movement record carrying a campaign foreign key. Most
// packages have none, which is not an error.
func (d *Dispatcher) campaignIDFromSiblings(ctx context.Context, pkg *domain.Package) (string, error) {
	mov, ok := pkg.FindRecord(func(r domain.MutationRecord) bool {
		return r.Kind == domain.KindGameMovement && r.CampaignRef != nil
	})
	if !ok {
		return "", nil
	}
	return d.resolve.CampaignID(ctx, mov.CampaignRef.ForeignID)
}

// accruedTotals splits the first accrued-value entry into the account balance
// (stars) and session progress (points) the target modules store separately.
func accruedTotals(values []domain.AccruedValue) (stars, points float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return values[0].AccountBalance, values[0].SessionProgress
}
