package application

import (
	"context"
	"fmt"
	"time"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// Resolver turns source-system foreign keys and unique codes into CRM record
// ids. Remote ids are immutable once assigned, so results are memoized in the
// lookup cache; a cold or unavailable cache only costs extra CRM round trips.
type Resolver struct {
	crm   ports.CRMClient
	cache ports.LookupCache
	ttl   time.Duration
}

func NewResolver(crm ports.CRMClient, cache ports.LookupCache, ttl time.Duration) *Resolver {
	return &Resolver{crm: crm, cache: cache, ttl: ttl}
}

func idCacheKey(module string, foreignID int64) string {
	return fmt.Sprintf("crm:id:%s:%d", module, foreignID)
}

func codeCacheKey(module, code string) string {
	return fmt.Sprintf("crm:code:%s:%s", module, code)
}

func (r *Resolver) cached(ctx context.Context, key string, load func() (string, error)) (string, error) {
	if r.cache != nil {
		if id, err := r.cache.Get(ctx, key); err == nil && id != "" {
			return id, nil
		}
	}
	id, err := load()
	if err != nil {
		return "", err
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, key, id, r.ttl)
	}
	return id, nil
}

// ByForeignID resolves a module record id from the source-system id stored in
// the module's custom id field.
func (r *Resolver) ByForeignID(ctx context.Context, module string, foreignID int64) (string, error) {
	return r.cached(ctx, idCacheKey(module, foreignID), func() (string, error) {
		rec, err := r.crm.LookupByForeignID(ctx, module, foreignID)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	})
}

// ByUniqueCode resolves a module record id from its unique code or number.
func (r *Resolver) ByUniqueCode(ctx context.Context, module, code string) (string, error) {
	return r.cached(ctx, codeCacheKey(module, code), func() (string, error) {
		rec, err := r.crm.LookupByUniqueCode(ctx, module, code)
		if err != nil {
			return "", err
		}
		return rec.ID, nil
	})
}

func (r *Resolver) ContactID(ctx context.Context, ref *domain.ForeignKey) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: record carries no client reference", domain.ErrNotFound)
	}
	return r.ByForeignID(ctx, moduleContacts, ref.ForeignID)
}

func (r *Resolver) LocationID(ctx context.Context, ref *domain.ForeignKey) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: record carries no location reference", domain.ErrNotFound)
	}
	return r.ByForeignID(ctx, moduleLocation, ref.ForeignID)
}

func (r *Resolver) BusinessID(ctx context.Context, ref *domain.ForeignKey) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: record carries no business reference", domain.ErrNotFound)
	}
	return r.ByForeignID(ctx, moduleBusiness, ref.ForeignID)
}

// BusinessIDByLocation walks the business-location relationship from an
// already-resolved location record. Events carry only a location key.
func (r *Resolver) BusinessIDByLocation(ctx context.Context, locationID string) (string, error) {
	return r.cached(ctx, codeCacheKey(moduleBusiness, "loc:"+locationID), func() (string, error) {
		return r.crm.RelatedEntityID(ctx, moduleLocation, locationID, relBusinessOfLocation)
	})
}

func (r *Resolver) EventTypeID(ctx context.Context, ref *domain.ForeignKey) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: record carries no event type reference", domain.ErrNotFound)
	}
	return r.ByForeignID(ctx, moduleEventType, ref.ForeignID)
}

func (r *Resolver) UserID(ctx context.Context, ref *domain.ForeignKey) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("%w: record carries no responsible user reference", domain.ErrNotFound)
	}
	return r.ByForeignID(ctx, moduleUsers, ref.ForeignID)
}

func (r *Resolver) CampaignID(ctx context.Context, foreignID int64) (string, error) {
	return r.ByForeignID(ctx, moduleCampaign, foreignID)
}

func (r *Resolver) PrizeID(ctx context.Context, foreignID int64) (string, error) {
	return r.ByForeignID(ctx, modulePrize, foreignID)
}

func (r *Resolver) CustomerCodeID(ctx context.Context, code string) (string, error) {
	return r.ByUniqueCode(ctx, moduleCustomerCode, code)
}
