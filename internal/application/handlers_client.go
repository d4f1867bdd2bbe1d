package application

import (
	"context"
	"fmt"

	"github.com/vinco360/crm-replicator/internal/domain"
)

func (d *Dispatcher) createClient(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.ClientAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	firstName := attrs.FirstName
	if firstName == "" {
		firstName = attrs.Email
	}
	var app any
	if attrs.RegistrationApp != "" {
		app = attrs.RegistrationApp[:1]
	}

	_, err := d.crm.CreateEntity(ctx, moduleContacts, map[string]any{
		"nombre_unico_c":              attrs.UniqueName,
		"id_cliente_c":                attrs.SourceID,
		"first_name":                  firstName,
		"last_name":                   attrs.LastName,
		"sexo_c":                      attrs.GenderCode,
		"birthdate":                   orNil(crmDate(attrs.BirthDate)),
		"ciudad_c":                    attrs.CityCode,
		"pais_c":                      attrs.CountryCode,
		"direccion_c":                 attrs.Address,
		"phone_mobile":                attrs.MobilePhone,
		"email1":                      attrs.Email,
		"fecha_creacion_vinco_c":      orNil(crmDateTime(attrs.CreatedAt)),
		"fecha_actualizacion_vinco_c": orNil(crmDateTime(attrs.UpdatedAt)),
		"fecha_registro_vinco_c":      orNil(crmDateTime(attrs.RegisteredAt)),
		"app_registro_vinco_c":        app,
		"tipo_login_c":                attrs.LoginType,
		"estado_vinco_c":              attrs.State,
	})
	return err
}

func (d *Dispatcher) updateClient(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.ClientAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ByForeignID(ctx, moduleContacts, attrs.SourceID)
	if err != nil {
		return err
	}

	name := attrs.Email
	if attrs.FirstName != "" {
		name = fmt.Sprintf("%s %s", attrs.FirstName, attrs.LastName)
	}

	return d.crm.UpdateEntity(ctx, moduleContacts, contactID, map[string]any{
		"name":                        name,
		"first_name":                  attrs.FirstName,
		"last_name":                   attrs.LastName,
		"sexo_c":                      attrs.GenderCode,
		"birthdate":                   orNil(crmDate(attrs.BirthDate)),
		"ciudad_c":                    attrs.CityCode,
		"pais_c":                      attrs.CountryCode,
		"direccion_c":                 attrs.Address,
		"phone_mobile":                attrs.MobilePhone,
		"email1":                      attrs.Email,
		"fecha_actualizacion_vinco_c": orNil(crmDateTime(attrs.UpdatedAt)),
	})
}

func (d *Dispatcher) createClientBusinessLink(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	return d.createClientBusinessRecord(ctx, rec, moduleClientBusiness, nil)
}

// createBusinessRating runs on ClientBusinessLink updates; only updates
// carrying a rating produce a CRM record.
func (d *Dispatcher) createBusinessRating(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.ClientBusinessAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}
	if attrs.Rating == nil {
		return nil
	}
	return d.createClientBusinessRecord(ctx, rec, moduleBusinessRating, attrs.Rating)
}

// createClientBusinessRecord creates the client-business record named after
// the business and relates it to both the contact and the business.
func (d *Dispatcher) createClientBusinessRecord(ctx context.Context, rec domain.MutationRecord, module string, rating *float64) error {
	var attrs domain.ClientBusinessAttributes
	if err := rec.Decode(&attrs); err != nil {
		return err
	}

	contactID, err := d.resolve.ContactID(ctx, attrs.Client)
	if err != nil {
		return err
	}
	if attrs.Business == nil {
		return fmt.Errorf("%w: client-business record carries no business reference", domain.ErrNotFound)
	}
	business, err := d.crm.LookupByForeignID(ctx, moduleBusiness, attrs.Business.ForeignID, "name")
	if err != nil {
		return err
	}

	fields := map[string]any{
		"name": business.Fields["name"],
	}
	if rating != nil {
		fields["calificacion_c"] = *rating
		fields["fecha_calificacion_c"] = orNil(crmDateTime(attrs.CreatedAt))
	} else {
		fields["fecha_creacion_c"] = orNil(crmDateTime(attrs.CreatedAt))
	}

	recordID, err := d.crm.CreateEntity(ctx, module, fields)
	if err != nil {
		return err
	}
	if err := d.crm.LinkEntities(ctx, moduleContacts, contactID, module, recordID); err != nil {
		return err
	}
	return d.crm.LinkEntities(ctx, moduleBusiness, business.ID, module, recordID)
}
