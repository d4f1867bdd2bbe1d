package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ForeignKey is a weak reference to a related entity, identified by its
// source-system id. It never carries ownership; resolving it to a CRM id is
// always an explicit lookup.
type ForeignKey struct {
	ForeignID int64 `json:"IdClaveForanea"`
	EntityID  int64 `json:"IdEntidad,omitempty"`
}

// MutationRecord is one entity-level mutation inside a package. The common
// envelope (kind, operation, routing references) is decoded eagerly; the
// entity-specific attributes stay in Raw and are decoded by the handler that
// owns the (kind, operation) pair.
type MutationRecord struct {
	Kind      EntityKind
	Operation OperationType
	EntityID  int64

	EventTypeRef *ForeignKey
	CampaignRef  *ForeignKey
	AccountRef   *ForeignKey

	Raw json.RawMessage
}

type recordEnvelope struct {
	TypeTag   string      `json:"$type"`
	Operation int         `json:"TipoOperacion"`
	EntityID  int64       `json:"IdEntidad"`
	EventType *ForeignKey `json:"IdTipoEvento"`
	Campaign  *ForeignKey `json:"IdCampania"`
	Account   *ForeignKey `json:"IdCuenta"`
}

func (r *MutationRecord) UnmarshalJSON(data []byte) error {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	r.Kind = KindFromTypeTag(env.TypeTag)
	r.Operation = OperationType(env.Operation)
	r.EntityID = env.EntityID
	r.EventTypeRef = env.EventType
	r.CampaignRef = env.Campaign
	r.AccountRef = env.Account
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the record exactly as received, so a persisted
// remainder round-trips through the wire format without loss.
func (r MutationRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(recordEnvelope{
		Operation: int(r.Operation),
		EntityID:  r.EntityID,
		EventType: r.EventTypeRef,
		Campaign:  r.CampaignRef,
		Account:   r.AccountRef,
	})
}

// Decode unmarshals the record's attributes into an entity-specific struct.
func (r MutationRecord) Decode(v any) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("%w: record %s has no payload", ErrParse, r.Kind)
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("%w: decode %s attributes: %v", ErrParse, r.Kind, err)
	}
	return nil
}

// EventType returns the subtype of a KindEvent record, or 0 when the record
// carries no event-type reference.
func (r MutationRecord) EventType() EventType {
	if r.EventTypeRef == nil {
		return 0
	}
	return EventType(r.EventTypeRef.ForeignID)
}

// Package is one notification's batch of mutation records. All records share
// the client/business causal scope used for retry partitioning.
type Package struct {
	ClientID    int64
	BusinessID  int64
	MessageType int
	MessageDate time.Time
	Records     []MutationRecord
}

type packageWire struct {
	MessageType int              `json:"TipoMensaje"`
	ClientID    int64            `json:"IdCliente"`
	BusinessID  int64            `json:"IdNegocio"`
	Date        string           `json:"Fecha"`
	Records     []MutationRecord `json:"ListaRegistros"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts the date spellings the source system is known to emit.
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DecodePackage decodes an inbound notification payload. Any structural
// failure is a ParseError: the invocation fails and nothing is persisted.
func DecodePackage(payload []byte) (*Package, error) {
	var wire packageWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	pkg := &Package{
		ClientID:    wire.ClientID,
		BusinessID:  wire.BusinessID,
		MessageType: wire.MessageType,
		Records:     wire.Records,
	}
	if wire.Date != "" {
		t, ok := ParseDate(wire.Date)
		if !ok {
			return nil, fmt.Errorf("%w: message date %q", ErrParse, wire.Date)
		}
		pkg.MessageDate = t
	}
	return pkg, nil
}

// Encode serializes the package back into the wire format. Records are emitted
// verbatim, in their current order.
func (p *Package) Encode() ([]byte, error) {
	wire := packageWire{
		MessageType: p.MessageType,
		ClientID:    p.ClientID,
		BusinessID:  p.BusinessID,
		Records:     p.Records,
	}
	if !p.MessageDate.IsZero() {
		wire.Date = p.MessageDate.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode package: %w", err)
	}
	return data, nil
}

// FindRecord returns the first record matching pred. Packages are bounded by
// one upstream transaction, so the linear scan stays small.
func (p *Package) FindRecord(pred func(MutationRecord) bool) (MutationRecord, bool) {
	for _, rec := range p.Records {
		if pred(rec) {
			return rec, true
		}
	}
	return MutationRecord{}, false
}

// HasKind reports whether any record in the package has the given kind.
func (p *Package) HasKind(kind EntityKind) bool {
	_, ok := p.FindRecord(func(r MutationRecord) bool { return r.Kind == kind })
	return ok
}

// Remainder returns a copy of the package holding only the records from index
// applied onward, preserving the original message date for retry ordering.
func (p *Package) Remainder(applied int) *Package {
	if applied < 0 {
		applied = 0
	}
	if applied > len(p.Records) {
		applied = len(p.Records)
	}
	rest := make([]MutationRecord, len(p.Records)-applied)
	copy(rest, p.Records[applied:])
	return &Package{
		ClientID:    p.ClientID,
		BusinessID:  p.BusinessID,
		MessageType: p.MessageType,
		MessageDate: p.MessageDate,
		Records:     rest,
	}
}
