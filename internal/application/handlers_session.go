package application

import (
	"context"
	"fmt"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// createGameSession reads the session's location off the package's event
// sibling: session records do not carry one themselves.
func (d *Dispatcher) createGameSession(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.GameSessionAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	event, ok := pkg.FindRecord(func(r domain.MutationRecord) bool {
		return r.Kind == domain.KindEvent
	})
	if !ok {
		return fmt.Errorf("%w: game session %s has no event in its package", domain.ErrNotFound, attrs.UniqueNumber)
	}
	var eventAttrs domain.EventAttributes
	if err := event.Decode(&eventAttrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	locationID, err := d.resolve.LocationID(ctx, eventAttrs.Location)
	if err != nil {
		return err
	}
	businessID, err := d.resolve.BusinessIDByLocation(ctx, locationID)
	if err != nil {
		return err
	}
	campaignID, err := d.campaignIDFromSiblings(ctx, pkg)
	if err != nil {
		return err
	}

	recordID, err := d.crm.CreateEntity(ctx, moduleGameSession, map[string]any{
		"name":              attrs.UniqueNumber,
		"numero_unico_c":    attrs.UniqueNumber,
		"qtk_campania_id_c": orNil(campaignID),
		"qtk_negocio_id_c":  businessID,
		"valor_alcanzado_c": attrs.ReachedValue,
		"progreso_c":        attrs.Progress,
		"valor_cliente_c":   attrs.ClientValue,
		"fecha_creacion_c":  orNil(crmDateTime(attrs.CreatedAt)),
		"fecha_fin_c":       orNil(crmDateTime(attrs.EndedAt)),
		"estado_c":          attrs.State,
		"repeticion_c":      attrs.Repetition,
	})
	if err != nil {
		return err
	}

	return d.crm.LinkEntities(ctx, moduleContacts, contactID, moduleGameSession, recordID)
}

func (d *Dispatcher) updateGameSession(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.GameSessionAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	sessionID, err := d.resolve.ByUniqueCode(ctx, moduleGameSession, attrs.UniqueNumber)
	if err != nil {
		return err
	}

	return d.crm.UpdateEntity(ctx, moduleGameSession, sessionID, map[string]any{
		"valor_alcanzado_c": attrs.ReachedValue,
		"progreso_c":        attrs.Progress,
		"valor_cliente_c":   attrs.ClientValue,
		"fecha_fin_c":       orNil(crmDateTime(attrs.EndedAt)),
		"estado_c":          attrs.State,
		"repeticion_c":      attrs.Repetition,
	})
}
