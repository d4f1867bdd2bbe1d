package application

import (
	"context"
	"fmt"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// createEvent fans out on the event subtype. Redemption-subtype events are a
// deliberate no-op here: the redemption record in the same package owns the
// CRM write and reads this event as a sibling.
func (d *Dispatcher) createEvent(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error {
	switch rec.EventType() {
	case domain.EventTypeAccrual:
		return d.createAccrualOrAffiliation(ctx, pkg, rec, moduleAccrual, "fecha_acumulacion_c")
	case domain.EventTypeAffiliation:
		return d.createAccrualOrAffiliation(ctx, pkg, rec, moduleAffiliation, "fecha_afiliacion_c")
	case domain.EventTypeReversal:
		return d.createReversal(ctx, pkg, rec)
	case domain.EventTypeGameVoucher:
		return d.createGameVoucher(ctx, pkg, rec)
	default:
		return nil
	}
}

func (d *Dispatcher) createAccrualOrAffiliation(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord, module, dateField string) error {
	var attrs domain.EventAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	locationID, err := d.resolve.LocationID(ctx, attrs.Location)
	if err != nil {
		return err
	}
	businessID, err := d.resolve.BusinessIDByLocation(ctx, locationID)
	if err != nil {
		return err
	}
	eventTypeID, err := d.resolve.EventTypeID(ctx, attrs.EventType)
	if err != nil {
		return err
	}
	userID, err := d.resolve.UserID(ctx, attrs.ResponsibleUser)
	if err != nil {
		return err
	}
	codeID, err := d.customerCodeID(ctx, attrs)
	if err != nil {
		return err
	}
	campaignID, err := d.campaignIDFromSiblings(ctx, pkg)
	if err != nil {
		return err
	}

	stars, points := accruedTotals(attrs.AccruedValues)
	recordID, err := d.crm.CreateEntity(ctx, module, map[string]any{
		"name":                  attrs.UniqueNumber,
		"numero_unico_c":        attrs.UniqueNumber,
		"qtk_tipo_evento_id_c":  eventTypeID,
		dateField:               orNil(crmDateTime(attrs.CreatedAt)),
		"valor_c":               attrs.Value,
		"user_id_c":             userID,
		"estado_c":              attrs.State,
		"tipo_codigo_cliente_c": attrs.CustomerCodeType,
		"codigo_cliente_c":      attrs.CustomerCode,
		"qtk_campania_id_c":     orNil(campaignID),
		"puntos_ganados_c":      points,
		"estrellas_ganados_c":   stars,
	})
	if err != nil {
		return err
	}

	return d.linkEventRecord(ctx, module, recordID, contactID, locationID, businessID, codeID)
}

func (d *Dispatcher) createGameVoucher(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.EventAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	locationID, err := d.resolve.LocationID(ctx, attrs.Location)
	if err != nil {
		return err
	}
	businessID, err := d.resolve.BusinessIDByLocation(ctx, locationID)
	if err != nil {
		return err
	}
	eventTypeID, err := d.resolve.EventTypeID(ctx, attrs.EventType)
	if err != nil {
		return err
	}
	userID, err := d.resolve.UserID(ctx, attrs.ResponsibleUser)
	if err != nil {
		return err
	}

	stars, points := accruedTotals(attrs.AccruedValues)
	recordID, err := d.crm.CreateEntity(ctx, moduleGameVoucher, map[string]any{
		"name":                  attrs.UniqueNumber,
		"numero_unico_c":        attrs.UniqueNumber,
		"qtk_tipo_evento_id_c":  eventTypeID,
		"fecha_canje_cupon_c":   orNil(crmDateTime(attrs.CreatedAt)),
		"valor_c":               attrs.Value,
		"user_id_c":             userID,
		"estado_c":              attrs.State,
		"tipo_codigo_cliente_c": attrs.CustomerCodeType,
		"codigo_cliente_c":      attrs.CustomerCode,
		"cupon_canjeado_c":      attrs.VoucherCode,
		"puntos_ganados_c":      points,
		"estrellas_ganados_c":   stars,
	})
	if err != nil {
		return err
	}

	return d.linkEventRecord(ctx, moduleGameVoucher, recordID, contactID, locationID, businessID, "")
}

// createReversal builds the reversal record off the event it undoes. Value and
// date fall back to the reversed module's stored fields when the record itself
// does not carry them.
func (d *Dispatcher) createReversal(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.EventAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	reversed, ok := pkg.FindRecord(func(r domain.MutationRecord) bool {
		return r.Kind == domain.KindEvent && r.EventType() != domain.EventTypeReversal
	})
	if !ok {
		return fmt.Errorf("%w: reversal %s has no reversed event in its package", domain.ErrNotFound, attrs.UniqueNumber)
	}
	var reversedAttrs domain.EventAttributes
	if err := reversed.Decode(&reversedAttrs); err != nil {
		return err
	}
	reversedModule, reversedDateField, ok := eventModule(reversed.EventType())
	if !ok {
		return fmt.Errorf("%w: reversal %s targets unsupported event subtype %d",
			domain.ErrNotFound, attrs.UniqueNumber, reversed.EventType())
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	locationID, err := d.resolve.LocationID(ctx, attrs.Location)
	if err != nil {
		return err
	}
	businessID, err := d.resolve.BusinessIDByLocation(ctx, locationID)
	if err != nil {
		return err
	}
	eventTypeID, err := d.resolve.EventTypeID(ctx, attrs.EventType)
	if err != nil {
		return err
	}
	reversedTypeID, err := d.resolve.EventTypeID(ctx, reversedAttrs.EventType)
	if err != nil {
		return err
	}
	userID, err := d.resolve.UserID(ctx, attrs.ResponsibleUser)
	if err != nil {
		return err
	}

	stored, err := d.crm.LookupByUniqueCode(ctx, reversedModule, reversedAttrs.UniqueNumber, reversedDateField, "valor_c")
	if err != nil {
		return err
	}

	var prizeID any
	if reversed.EventType() == domain.EventTypeRedemption {
		id, err := d.crm.RelatedEntityID(ctx, reversedModule, stored.ID, relPrizeOfRedemption)
		if err != nil {
			return err
		}
		prizeID = id
	} else if attrs.ReversedPrizeID != nil {
		id, err := d.resolve.PrizeID(ctx, *attrs.ReversedPrizeID)
		if err != nil {
			return err
		}
		prizeID = id
	}

	var reversedValue any = stored.Fields["valor_c"]
	if attrs.ReversedValue != nil {
		reversedValue = *attrs.ReversedValue
	}
	reversedDate := crmDateTime(stored.Fields[reversedDateField])
	if attrs.ReversedEventDate != "" {
		reversedDate = crmDateTime(attrs.ReversedEventDate)
	}

	recordID, err := d.crm.CreateEntity(ctx, moduleReversal, map[string]any{
		"name":                  attrs.UniqueNumber,
		"numero_unico_c":        attrs.UniqueNumber,
		"qtk_tipo_evento_id_c":  eventTypeID,
		"fecha_reverso_c":       orNil(crmDateTime(attrs.CreatedAt)),
		"user_id_c":             userID,
		"estado_c":              attrs.State,
		"qtk_tipo_evento_id1_c": reversedTypeID,
		"reverso_valor_c":       reversedValue,
		"reverso_fecha_c":       orNil(reversedDate),
		"reverso_numero_c":      reversedAttrs.UniqueNumber,
		"qtk_premio_id_c":       prizeID,
	})
	if err != nil {
		return err
	}

	return d.linkEventRecord(ctx, moduleReversal, recordID, contactID, locationID, businessID, "")
}

// deleteEvent removes the CRM record backing an event, located by subtype
// module and unique number. Subtypes without a module are a no-op.
func (d *Dispatcher) deleteEvent(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.EventAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}
	module, _, ok := eventModule(rec.EventType())
	if !ok {
		return nil
	}
	stored, err := d.crm.LookupByUniqueCode(ctx, module, attrs.UniqueNumber)
	if err != nil {
		return err
	}
	return d.crm.DeleteEntity(ctx, module, stored.ID)
}

// customerCodeID resolves the customer code relationship target, present only
// when the event was driven by a card-type code.
func (d *Dispatcher) customerCodeID(ctx context.Context, attrs domain.EventAttributes) (string, error) {
	if attrs.CustomerCodeType != "C" || attrs.CustomerCode == "" {
		return "", nil
	}
	return d.resolve.CustomerCodeID(ctx, attrs.CustomerCode)
}

// linkEventRecord attaches the standard relationship fan of an event record:
// contact, location, business, and optionally the customer code.
func (d *Dispatcher) linkEventRecord(ctx context.Context, module, recordID, contactID, locationID, businessID, codeID string) error {
	if err := d.crm.LinkEntities(ctx, moduleContacts, contactID, module, recordID); err != nil {
		return err
	}
	if err := d.crm.LinkEntities(ctx, moduleLocation, locationID, module, recordID); err != nil {
		return err
	}
	if err := d.crm.LinkEntities(ctx, moduleBusiness, businessID, module, recordID); err != nil {
		return err
	}
	if codeID != "" {
		return d.crm.LinkEntities(ctx, moduleCustomerCode, codeID, module, recordID)
	}
	return nil
}
