package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// Outcome event types published after each invocation.
const (
	EventPackageReplicated = "crm.package.replicated"
	EventPackageDeferred   = "crm.package.deferred"
	EventPackageRecovered  = "crm.package.recovered"
	EventPackageStillFails = "crm.package.retry_failed"
)

// PackageExecutor is the orchestrator's view of the engine.
type PackageExecutor interface {
	Execute(ctx context.Context, pkg *domain.Package) (int, error)
}

// Dependencies wires an Orchestrator. Now and Sleep default to the clock and
// exist so tests can pin time and skip the redemption delay.
type Dependencies struct {
	Repo            ports.PendingPackageRepository
	Engine          PackageExecutor
	Publisher       ports.EventPublisher
	Logger          *slog.Logger
	RedemptionDelay time.Duration
	Now             func() time.Time
	Sleep           func(ctx context.Context, d time.Duration)
}

// Orchestrator drives one notification end to end: execute the package it
// carries, then replay whatever older failures are pending for the same scope.
// There is no timer anywhere; retries happen only because notifications keep
// arriving.
type Orchestrator struct {
	repo    ports.PendingPackageRepository
	engine  PackageExecutor
	pub     ports.EventPublisher
	log     *slog.Logger
	delay   time.Duration
	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration)
}

func NewOrchestrator(deps Dependencies) *Orchestrator {
	o := &Orchestrator{
		repo:    deps.Repo,
		engine:  deps.Engine,
		pub:     deps.Publisher,
		log:     deps.Logger,
		delay:   deps.RedemptionDelay,
		nowFn:   deps.Now,
		sleepFn: deps.Sleep,
	}
	if o.nowFn == nil {
		o.nowFn = time.Now
	}
	if o.sleepFn == nil {
		o.sleepFn = func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		}
	}
	return o
}

// HandleNotification processes one inbound notification payload.
//
// A replay-all notification carries no package of its own: every pending entry
// across all scopes is replayed. Any other notification executes its own
// package first; only a fully applied package unlocks the replay of the
// pending entries in its (client, business) scope, otherwise the remainder is
// persisted and the invocation short-circuits.
func (o *Orchestrator) HandleNotification(ctx context.Context, payload []byte) error {
	pkg, err := domain.DecodePackage(payload)
	if err != nil {
		return err
	}

	var pending []domain.PendingPackage
	if pkg.MessageType == domain.MessageTypeReplayAll {
		pending, err = o.repo.ScanAll(ctx)
		if err != nil {
			return fmt.Errorf("%w: scan pending packages: %v", domain.ErrStore, err)
		}
	} else {
		if execErr := o.executeCurrent(ctx, pkg, payload); execErr != nil {
			return execErr
		}
		pending, err = o.repo.GetByScope(ctx, pkg.ClientID, pkg.BusinessID)
		if err != nil {
			return fmt.Errorf("%w: read pending packages: %v", domain.ErrStore, err)
		}
	}

	if len(pending) == 0 {
		return nil
	}
	o.log.Info("replaying pending packages",
		slog.Int64("client_id", pkg.ClientID),
		slog.Int64("business_id", pkg.BusinessID),
		slog.Int("count", len(pending)))

	failed := 0
	for _, entry := range pending {
		if !o.replayEntry(ctx, entry) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d pending packages still failing", domain.ErrPackageFailed, failed, len(pending))
	}
	return nil
}

// executeCurrent runs the notification's own package. On failure the
// unapplied remainder is persisted for later replay and the error is
// propagated so pending replay never runs behind a fresh failure.
func (o *Orchestrator) executeCurrent(ctx context.Context, pkg *domain.Package, payload []byte) error {
	o.awaitRedemptionSettle(ctx, pkg)

	applied, err := o.engine.Execute(ctx, pkg)
	if err == nil {
		o.publish(ctx, EventPackageReplicated, pkg)
		return nil
	}

	o.persistRemainder(ctx, pkg.Remainder(applied), err)
	o.publish(ctx, EventPackageDeferred, pkg)
	return fmt.Errorf("%w: %v", domain.ErrPackageFailed, err)
}

// replayEntry re-executes one stored package. Success removes the entry;
// failure replaces it with the new, possibly smaller, remainder. Either way
// the loop continues with the next entry.
func (o *Orchestrator) replayEntry(ctx context.Context, entry domain.PendingPackage) bool {
	pkg, err := domain.DecodePackage(entry.Payload)
	if err != nil {
		o.log.Error("pending package payload undecodable, leaving entry in place",
			slog.Int64("client_id", entry.ClientID),
			slog.String("sort_key", entry.SortKey),
			slog.String("error", err.Error()))
		return false
	}

	o.awaitRedemptionSettle(ctx, pkg)
	applied, err := o.engine.Execute(ctx, pkg)
	if err == nil {
		if delErr := o.repo.Delete(ctx, entry.ClientID, entry.SortKey); delErr != nil {
			o.log.Error("pending package applied but entry not deleted",
				slog.Int64("client_id", entry.ClientID),
				slog.String("sort_key", entry.SortKey),
				slog.String("error", delErr.Error()))
		}
		o.publish(ctx, EventPackageRecovered, pkg)
		return true
	}

	// Replace the entry: the new remainder under a fresh sort key, keeping
	// the original message date so scope ordering is preserved.
	o.persistRemainder(ctx, pkg.Remainder(applied), err)
	if delErr := o.repo.Delete(ctx, entry.ClientID, entry.SortKey); delErr != nil {
		o.log.Error("stale pending entry not deleted",
			slog.Int64("client_id", entry.ClientID),
			slog.String("sort_key", entry.SortKey),
			slog.String("error", delErr.Error()))
	}
	o.publish(ctx, EventPackageStillFails, pkg)
	return false
}

// persistRemainder persists a package remainder for later replay. Persistence failures
// are logged, never propagated: losing the entry is preferable to failing the
// invocation twice over.
func (o *Orchestrator) persistRemainder(ctx context.Context, remainder *domain.Package, cause error) {
	payload, err := remainder.Encode()
	if err != nil {
		o.log.Error("remainder not encodable, package dropped",
			slog.Int64("client_id", remainder.ClientID),
			slog.Int64("business_id", remainder.BusinessID),
			slog.String("error", err.Error()))
		return
	}
	entry := domain.NewPendingPackage(remainder, payload, o.nowFn(), cause)
	if err := o.repo.Put(ctx, entry); err != nil {
		o.log.Error("pending package not persisted",
			slog.Int64("client_id", remainder.ClientID),
			slog.String("sort_key", entry.SortKey),
			slog.String("error", err.Error()))
		return
	}
	o.log.Info("package deferred",
		slog.Int64("client_id", remainder.ClientID),
		slog.String("sort_key", entry.SortKey),
		slog.Int("records", len(remainder.Records)))
}

// awaitRedemptionSettle pauses before packages that carry a redemption. The
// redemption handler looks up the sibling account in the CRM, and the account
// write from the same upstream transaction may still be settling.
func (o *Orchestrator) awaitRedemptionSettle(ctx context.Context, pkg *domain.Package) {
	if o.delay <= 0 || !pkg.HasKind(domain.KindRedemption) {
		return
	}
	o.sleepFn(ctx, o.delay)
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, pkg *domain.Package) {
	if o.pub == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"IdCliente": pkg.ClientID,
		"IdNegocio": pkg.BusinessID,
		"Fecha":     o.nowFn().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := o.pub.Publish(ctx, eventType, payload, strconv.FormatInt(pkg.ClientID, 10)); err != nil {
		o.log.Warn("outcome event not published",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
