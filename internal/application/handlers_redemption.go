package application

import (
	"context"
	"fmt"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// createRedemption joins the redemption record with its sibling event and
// account records: the event carries the acting user and customer code, the
// account carries the unique number the CRM account record is filed under.
func (d *Dispatcher) createRedemption(ctx context.Context, pkg *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.RedemptionAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	event, ok := pkg.FindRecord(func(r domain.MutationRecord) bool {
		return r.Kind == domain.KindEvent && r.EventType() == domain.EventTypeRedemption
	})
	if !ok {
		return fmt.Errorf("%w: redemption has no redemption event in its package", domain.ErrNotFound)
	}
	var eventAttrs domain.EventAttributes
	if err := event.Decode(&eventAttrs); err != nil {
		return err
	}

	if attrs.Account == nil {
		return fmt.Errorf("%w: redemption carries no account reference", domain.ErrNotFound)
	}
	account, ok := pkg.FindRecord(func(r domain.MutationRecord) bool {
		return r.Kind == domain.KindAccount && r.EntityID == attrs.Account.EntityID
	})
	if !ok {
		return fmt.Errorf("%w: redemption references account entity %d absent from its package",
			domain.ErrNotFound, attrs.Account.EntityID)
	}
	var accountAttrs domain.AccountAttributes
	if err := account.Decode(&accountAttrs); err != nil {
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
	businessID, err := d.resolve.BusinessID(ctx, attrs.Business)
	if err != nil {
		return err
	}
	eventTypeID, err := d.resolve.EventTypeID(ctx, eventAttrs.EventType)
	if err != nil {
		return err
	}
	userID, err := d.resolve.UserID(ctx, eventAttrs.ResponsibleUser)
	if err != nil {
		return err
	}
	codeID, err := d.customerCodeID(ctx, eventAttrs)
	if err != nil {
		return err
	}
	if attrs.Prize == nil {
		return fmt.Errorf("%w: redemption carries no prize reference", domain.ErrNotFound)
	}
	prizeID, err := d.resolve.PrizeID(ctx, attrs.Prize.ForeignID)
	if err != nil {
		return err
	}
	accountID, err := d.resolve.ByUniqueCode(ctx, moduleAccount, accountAttrs.UniqueNumber)
	if err != nil {
		return err
	}

	recordID, err := d.crm.CreateEntity(ctx, moduleRedemption, map[string]any{
		"name":                  eventAttrs.UniqueNumber,
		"numero_unico_c":        eventAttrs.UniqueNumber,
		"qtk_tipo_evento_id_c":  eventTypeID,
		"fecha_redencion_c":     orNil(crmDateTime(attrs.RedeemedAt)),
		"valor_c":               attrs.Value,
		"user_id_c":             userID,
		"estado_c":              eventAttrs.State,
		"tipo_codigo_cliente_c": eventAttrs.CustomerCodeType,
		"monto_referencial_c":   attrs.ReferenceAmount,
		"qtk_cuenta_id_c":       accountID,
		"codigo_cliente_c":      eventAttrs.CustomerCode,
	})
	if err != nil {
		return err
	}

	if err := d.linkEventRecord(ctx, moduleRedemption, recordID, contactID, locationID, businessID, ""); err != nil {
		return err
	}
	if err := d.crm.LinkEntities(ctx, modulePrize, prizeID, moduleRedemption, recordID); err != nil {
		return err
	}
	if codeID != "" {
		return d.crm.LinkEntities(ctx, moduleCustomerCode, codeID, moduleRedemption, recordID)
	}
	return nil
}
