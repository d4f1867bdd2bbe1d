package application

import (
	"context"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// createCustomerCode registers a physical customer code and ties it to the
// issuing business and location. Those two relationships are only reachable
// through named link fields, hence the legacy relationship calls.
func (d *Dispatcher) createCustomerCode(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.CustomerCodeAttributes
	if err := rec.Decode(&attrs); err != nil {
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

	recordID, err := d.crm.CreateEntity(ctx, moduleCustomerCode, map[string]any{
		"name":             attrs.Code,
		"codigo_c":         attrs.Code,
		"fecha_creacion_c": orNil(crmDateTime(attrs.CreatedAt)),
		"estado_c":         attrs.State,
	})
	if err != nil {
		return err
	}

	if err := d.crm.LinkByRelationship(ctx, moduleCustomerCode, recordID, relCodeBusiness, businessID); err != nil {
		return err
	}
	return d.crm.LinkByRelationship(ctx, moduleCustomerCode, recordID, relCodeLocation, locationID)
}

// updateCustomerCode patches the code's state and, on activation, attaches
// the activating contact, business, and location.
func (d *Dispatcher) updateCustomerCode(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.CustomerCodeAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	recordID, err := d.resolve.CustomerCodeID(ctx, attrs.Code)
	if err != nil {
		return err
	}

	if err := d.crm.UpdateEntity(ctx, moduleCustomerCode, recordID, map[string]any{
		"fecha_activacion_c": orNil(crmDateTime(attrs.ActivatedAt)),
		"estado_c":           attrs.State,
	}); err != nil {
		return err
	}

	if attrs.State != "A" || attrs.ActivatedAt == "" {
		return nil
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

	if err := d.crm.LinkEntities(ctx, moduleContacts, contactID, moduleCustomerCode, recordID); err != nil {
		return err
	}
	if err := d.crm.LinkByRelationship(ctx, moduleCustomerCode, recordID, relCodeActivationBusiness, businessID); err != nil {
		return err
	}
	return d.crm.LinkByRelationship(ctx, moduleCustomerCode, recordID, relCodeActivationLocation, locationID)
}
