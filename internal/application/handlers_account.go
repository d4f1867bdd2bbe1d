package application

import (
	"context"

	"github.com/vinco360/crm-replicator/internal/domain"
)

func (d *Dispatcher) createAccount(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.AccountAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	businessID, err := d.resolve.BusinessID(ctx, attrs.Business)
	if err != nil {
		return err
	}

	recordID, err := d.crm.CreateEntity(ctx, moduleAccount, map[string]any{
		"name":                    attrs.UniqueNumber,
		"numero_unico_c":          attrs.UniqueNumber,
		"saldo_disponible_c":      attrs.AvailableBalance,
		"saldo_disponible_base_c": attrs.AvailableBalanceBase,
		"saldo_contable_c":        attrs.LedgerBalance,
		"saldo_contable_base_c":   attrs.LedgerBalanceBase,
		"fecha_apertura_c":        orNil(crmDateTime(attrs.OpenedAt)),
		"fecha_vigencia_c":        orNil(crmDateTime(attrs.EffectiveAt)),
		"fecha_expiracion_c":      orNil(crmDateTime(attrs.ExpiresAt)),
		"estado_c":                attrs.State,
	})
	if err != nil {
		return err
	}

	if err := d.crm.LinkEntities(ctx, moduleContacts, contactID, moduleAccount, recordID); err != nil {
		return err
	}
	return d.crm.LinkEntities(ctx, moduleBusiness, businessID, moduleAccount, recordID)
}

func (d *Dispatcher) updateAccount(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.AccountAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	accountID, err := d.resolve.ByUniqueCode(ctx, moduleAccount, attrs.UniqueNumber)
	if err != nil {
		return err
	}

	return d.crm.UpdateEntity(ctx, moduleAccount, accountID, map[string]any{
		"saldo_disponible_c":      attrs.AvailableBalance,
		"saldo_disponible_base_c": attrs.AvailableBalanceBase,
		"saldo_contable_c":        attrs.LedgerBalance,
		"saldo_contable_base_c":   attrs.LedgerBalanceBase,
	})
}
