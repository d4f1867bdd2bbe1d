package domain

import "strings"

// EntityKind identifies which downstream CRM entity a mutation record maps to.
// It is assigned exactly once, while decoding the notification payload, so the
// rest of the pipeline never inspects the raw type tag again.
type EntityKind int

const (
	KindUnknown EntityKind = iota
	KindClient
	KindClientBusinessLink
	KindEvent
	KindRedemption
	KindAccount
	KindGameSession
	KindGameMovement
	KindCustomerCode
	KindNotificationLog
)

var kindNames = map[EntityKind]string{
	KindUnknown:            "unknown",
	KindClient:             "client",
	KindClientBusinessLink: "client_business_link",
	KindEvent:              "event",
	KindRedemption:         "redemption",
	KindAccount:            "account",
	KindGameSession:        "game_session",
	KindGameMovement:       "game_movement",
	KindCustomerCode:       "customer_code",
	KindNotificationLog:    "notification_log",
}

func (k EntityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// kindByTypeName maps the exact source-system type name to its kind. Exact
// matching matters: RdsClienteNegocio and RdsCodigoCliente both contain
// "RdsCliente" as a substring and must not collapse into KindClient.
var kindByTypeName = map[string]EntityKind{
	"RdsCliente":                KindClient,
	"RdsClienteNegocio":         KindClientBusinessLink,
	"RdsEvento":                 KindEvent,
	"RdsRedencion":              KindRedemption,
	"RdsCuenta":                 KindAccount,
	"RdsPartida":                KindGameSession,
	"RdsMovPartida":             KindGameMovement,
	"RdsCodigoCliente":          KindCustomerCode,
	"RdsLogNotificacionCliente": KindNotificationLog,
}

// KindFromTypeTag resolves an EntityKind from the serializer type tag carried
// on each inbound record, e.g. "Vinco.Mensajeria.RDS.RdsCliente, Vinco.Mensajeria".
// Unrecognized tags map to KindUnknown, which dispatches as a no-op.
func KindFromTypeTag(tag string) EntityKind {
	name := tag
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if kind, ok := kindByTypeName[name]; ok {
		return kind
	}
	return KindUnknown
}

// OperationType is the mutation verb carried on each record.
type OperationType int

const (
	OperationInsert OperationType = 1
	OperationUpdate OperationType = 2
	OperationDelete OperationType = 3
	OperationNone   OperationType = 4
)

// Event subtypes, as carried on the IdTipoEvento foreign key of KindEvent
// records. The values are source-system identifiers.
type EventType int64

const (
	EventTypeAccrual     EventType = 1
	EventTypeRedemption  EventType = 2
	EventTypeAffiliation EventType = 3
	EventTypeReversal    EventType = 4
	EventTypeGameVoucher EventType = 5
)

// MessageTypeReplayAll marks a notification that only requests replay of every
// stored pending package; it carries no package of its own to execute.
const MessageTypeReplayAll = 1
