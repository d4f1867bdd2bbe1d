package application

import (
	"github.com/vinco360/crm-replicator/internal/domain"
)

// Target CRM module names.
const (
	moduleContacts        = "Contacts"
	moduleUsers           = "Users"
	moduleBusiness        = "qtk_negocio"
	moduleLocation        = "qtk_local"
	moduleEventType       = "qtk_tipo_evento"
	moduleCampaign        = "qtk_campania"
	modulePrize           = "qtk_premio"
	moduleAccrual         = "qtk_acumulacion"
	moduleAffiliation     = "qtk_afiliacion"
	moduleRedemption      = "qtk_redencion"
	moduleReversal        = "qtk_reverso"
	moduleGameVoucher     = "qtk_cupon_juego"
	moduleAccount         = "qtk_cuenta"
	moduleGameSession     = "qtk_partida"
	moduleCustomerCode    = "qtk_codigo_cliente"
	moduleClientBusiness  = "qtk_cliente_negocio"
	moduleBusinessRating  = "qtk_cliente_negocio_calificacion"
	moduleNotificationLog = "qtk_log_notificacion_cliente"
)

// Named link fields only reachable through the legacy relationship API.
const (
	relBusinessOfLocation     = "qtk_negocio_qtk_local_1"
	relPrizeOfRedemption      = "qtk_premio_qtk_redencion_1"
	relCodeBusiness           = "qtk_negocio_qtk_codigo_cliente_1"
	relCodeLocation           = "qtk_local_qtk_codigo_cliente_1"
	relCodeActivationBusiness = "qtk_negocio_qtk_codigo_cliente_2"
	relCodeActivationLocation = "qtk_local_qtk_codigo_cliente_2"
)

// eventModule maps an event subtype to the CRM module its records live in.
func eventModule(et domain.EventType) (module, dateField string, ok bool) {
	switch et {
	case domain.EventTypeAccrual:
		return moduleAccrual, "fecha_acumulacion_c", true
	case domain.EventTypeRedemption:
		return moduleRedemption, "fecha_redencion_c", true
	case domain.EventTypeAffiliation:
		return moduleAffiliation, "fecha_afiliacion_c", true
	case domain.EventTypeGameVoucher:
		return moduleGameVoucher, "fecha_canje_cupon_c", true
	default:
		return "", "", false
	}
}

const (
	crmDateTimeLayout = "2006-01-02 15:04:05"
	crmDateLayout     = "2006-01-02"
)

// crmDateTime renders a source timestamp in the CRM's expected spelling;
// unparseable or empty input renders empty.
func crmDateTime(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := domain.ParseDate(raw)
	if !ok {
		return ""
	}
	return t.UTC().Format(crmDateTimeLayout)
}

func crmDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := domain.ParseDate(raw)
	if !ok {
		return ""
	}
	return t.UTC().Format(crmDateLayout)
}
