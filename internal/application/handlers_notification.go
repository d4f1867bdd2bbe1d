package application

import (
	"context"

	"github.com/vinco360/crm-replicator/internal/domain"
)

func (d *Dispatcher) createNotificationLog(ctx context.Context, _ *domain.Package, rec domain.MutationRecord) error {
	var attrs domain.NotificationLogAttributes
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

	// Untitled notifications fall back to the group's unique name.
	title := attrs.Title
	if title == "" {
		title = attrs.GroupUniqueName
	}

	recordID, err := d.crm.CreateEntity(ctx, moduleNotificationLog, map[string]any{
		"name":                 title,
		"fecha_notificacion_c": orNil(crmDateTime(attrs.SentAt)),
		"titulo_c":             title,
		"mensaje_c":            attrs.Message,
		"nombre_unico_grupo_c": attrs.GroupUniqueName,
		"error_c":              attrs.Error,
		"canal_c":              attrs.Channel,
		"estado_c":             attrs.State,
	})
	if err != nil {
		return err
	}

	if err := d.crm.LinkEntities(ctx, moduleContacts, contactID, moduleNotificationLog, recordID); err != nil {
		return err
	}
	return d.crm.LinkEntities(ctx, moduleBusiness, businessID, moduleNotificationLog, recordID)
}
