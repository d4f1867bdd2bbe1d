package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

type createdRecord struct {
	module string
	fields map[string]any
}

type linkCall struct {
	module, id, relatedModule, relatedID string
}

// fakeCRM is a programmable in-memory stand-in for the SuiteCRM client.
type fakeCRM struct {
	byForeign map[string]map[int64]ports.RemoteRecord
	byCode    map[string]map[string]ports.RemoteRecord
	related   map[string]string

	created  []createdRecord
	updated  []createdRecord
	deleted  []string
	links    []linkCall
	relLinks []linkCall
	nextID   int
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		byForeign: map[string]map[int64]ports.RemoteRecord{},
		byCode:    map[string]map[string]ports.RemoteRecord{},
		related:   map[string]string{},
	}
}

func (f *fakeCRM) seedForeign(module string, foreignID int64, rec ports.RemoteRecord) {
	if f.byForeign[module] == nil {
		f.byForeign[module] = map[int64]ports.RemoteRecord{}
	}
	f.byForeign[module][foreignID] = rec
}

func (f *fakeCRM) seedCode(module, code string, rec ports.RemoteRecord) {
	if f.byCode[module] == nil {
		f.byCode[module] = map[string]ports.RemoteRecord{}
	}
	f.byCode[module][code] = rec
}

func (f *fakeCRM) CreateEntity(_ context.Context, kind string, attributes map[string]any) (string, error) {
	f.nextID++
	f.created = append(f.created, createdRecord{module: kind, fields: attributes})
	return fmt.Sprintf("crm-%d", f.nextID), nil
}

func (f *fakeCRM) UpdateEntity(_ context.Context, kind, remoteID string, attributes map[string]any) error {
	f.updated = append(f.updated, createdRecord{module: kind + "/" + remoteID, fields: attributes})
	return nil
}

func (f *fakeCRM) DeleteEntity(_ context.Context, kind, remoteID string) error {
	f.deleted = append(f.deleted, kind+"/"+remoteID)
	return nil
}

func (f *fakeCRM) LinkEntities(_ context.Context, kind, remoteID, relatedKind, relatedID string) error {
	f.links = append(f.links, linkCall{kind, remoteID, relatedKind, relatedID})
	return nil
}

func (f *fakeCRM) LinkByRelationship(_ context.Context, kind, remoteID, relationship, relatedID string) error {
	f.relLinks = append(f.relLinks, linkCall{kind, remoteID, relationship, relatedID})
	return nil
}

func (f *fakeCRM) LookupByForeignID(_ context.Context, kind string, foreignID int64, _ ...string) (ports.RemoteRecord, error) {
	if rec, ok := f.byForeign[kind][foreignID]; ok {
		return rec, nil
	}
	return ports.RemoteRecord{}, fmt.Errorf("%w: %s %d", domain.ErrNotFound, kind, foreignID)
}

func (f *fakeCRM) LookupByUniqueCode(_ context.Context, kind, code string, _ ...string) (ports.RemoteRecord, error) {
	if rec, ok := f.byCode[kind][code]; ok {
		return rec, nil
	}
	return ports.RemoteRecord{}, fmt.Errorf("%w: %s %q", domain.ErrNotFound, kind, code)
}

func (f *fakeCRM) RelatedEntityID(_ context.Context, kind, remoteID, relationship string) (string, error) {
	if id, ok := f.related[kind+"/"+remoteID+"/"+relationship]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: no %s related to %s/%s", domain.ErrNotFound, relationship, kind, remoteID)
}

func newTestDispatcher(crm *fakeCRM) *Dispatcher {
	return NewDispatcher(crm, NewResolver(crm, nil, 0), testLogger())
}

func makeRecord(t *testing.T, typeName string, op domain.OperationType, body map[string]any) domain.MutationRecord {
	t.Helper()
	body["$type"] = fmt.Sprintf("Vinco.Mensajeria.RDS.%s, Vinco.Mensajeria", typeName)
	body["TipoOperacion"] = int(op)
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var rec domain.MutationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return rec
}

func foreignRef(id int64) map[string]any {
	return map[string]any{"IdClaveForanea": id}
}

func TestDispatch_UnmappedPairsAreNoOps(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	d := newTestDispatcher(crm)
	pkg := &domain.Package{}

	records := []domain.MutationRecord{
		{Kind: domain.KindUnknown, Operation: domain.OperationInsert},
		{Kind: domain.KindClient, Operation: domain.OperationNone},
		{Kind: domain.KindGameMovement, Operation: domain.OperationInsert},
		{Kind: domain.KindRedemption, Operation: domain.OperationDelete},
	}
	for _, rec := range records {
		if err := d.Dispatch(context.Background(), pkg, rec); err != nil {
			t.Fatalf("Dispatch(%v/%v) error: %v", rec.Kind, rec.Operation, err)
		}
	}
	if len(crm.created)+len(crm.updated)+len(crm.deleted)+len(crm.links) != 0 {
		t.Fatalf("no CRM traffic expected for unmapped pairs")
	}
}

func TestCreateClient_FallsBackToEmail(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	d := newTestDispatcher(crm)
	rec := makeRecord(t, "RdsCliente", domain.OperationInsert, map[string]any{
		"NomUnicoCliente":   "cli-9",
		"IdRdsRegistro":     9,
		"CorreoElectronico": "jane@example.com",
		"AppRegistro":       "Android",
		"Estado":            "A",
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, rec); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 1 || crm.created[0].module != "Contacts" {
		t.Fatalf("expected one Contacts create, got %+v", crm.created)
	}
	fields := crm.created[0].fields
	if fields["first_name"] != "jane@example.com" {
		t.Fatalf("first name must fall back to the email, got %v", fields["first_name"])
	}
	if fields["app_registro_vinco_c"] != any("A") {
		t.Fatalf("registration app must shorten to its first letter, got %v", fields["app_registro_vinco_c"])
	}
	if fields["birthdate"] != nil {
		t.Fatalf("empty birthdate must travel as null, got %v", fields["birthdate"])
	}
}

func TestCreateBusinessRating_OnlyWhenRated(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	crm.seedForeign("Contacts", 9, ports.RemoteRecord{ID: "contact-1"})
	crm.seedForeign("qtk_negocio", 4, ports.RemoteRecord{ID: "biz-1", Fields: map[string]string{"name": "Acme Market"}})
	d := newTestDispatcher(crm)

	unrated := makeRecord(t, "RdsClienteNegocio", domain.OperationUpdate, map[string]any{
		"IdCliente": foreignRef(9),
		"IdNegocio": foreignRef(4),
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, unrated); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 0 {
		t.Fatalf("updates without a rating must not create records")
	}

	rated := makeRecord(t, "RdsClienteNegocio", domain.OperationUpdate, map[string]any{
		"IdCliente":     foreignRef(9),
		"IdNegocio":     foreignRef(4),
		"Rating":        4.5,
		"FechaCreacion": "2024-04-01T10:00:00",
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, rated); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 1 || crm.created[0].module != "qtk_cliente_negocio_calificacion" {
		t.Fatalf("expected one rating create, got %+v", crm.created)
	}
	fields := crm.created[0].fields
	if fields["name"] != "Acme Market" || fields["calificacion_c"] != 4.5 {
		t.Fatalf("unexpected rating fields: %+v", fields)
	}
	if len(crm.links) != 2 {
		t.Fatalf("rating must relate to contact and business, got %+v", crm.links)
	}
}

func TestCreateAccrualEvent(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	crm.seedForeign("Contacts", 9, ports.RemoteRecord{ID: "contact-1"})
	crm.seedForeign("qtk_local", 12, ports.RemoteRecord{ID: "loc-1"})
	crm.seedForeign("qtk_tipo_evento", 1, ports.RemoteRecord{ID: "type-accrual"})
	crm.seedForeign("Users", 3, ports.RemoteRecord{ID: "user-1"})
	crm.related["qtk_local/loc-1/qtk_negocio_qtk_local_1"] = "biz-1"
	d := newTestDispatcher(crm)

	rec := makeRecord(t, "RdsEvento", domain.OperationInsert, map[string]any{
		"NumeroUnico":          "EV-100",
		"IdCliente":            foreignRef(9),
		"IdLocal":              foreignRef(12),
		"IdTipoEvento":         foreignRef(1),
		"IdUsuarioResponsable": foreignRef(3),
		"FechaCreacion":        "2024-04-01T10:00:00",
		"Valor":                25.0,
		"Estado":               "A",
		"ValoresAcumulados":    []map[string]any{{"SaldoCuenta": 40.0, "AvancePartida": 15.0}},
	})
	if err := d.Dispatch(context.Background(), &domain.Package{Records: []domain.MutationRecord{rec}}, rec); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 1 || crm.created[0].module != "qtk_acumulacion" {
		t.Fatalf("expected one accrual create, got %+v", crm.created)
	}
	fields := crm.created[0].fields
	if fields["numero_unico_c"] != "EV-100" || fields["qtk_tipo_evento_id_c"] != "type-accrual" {
		t.Fatalf("unexpected accrual fields: %+v", fields)
	}
	if fields["estrellas_ganados_c"] != 40.0 || fields["puntos_ganados_c"] != 15.0 {
		t.Fatalf("accrued totals must split into stars and points: %+v", fields)
	}
	if fields["fecha_acumulacion_c"] != "2024-04-01 10:00:00" {
		t.Fatalf("unexpected accrual date: %v", fields["fecha_acumulacion_c"])
	}
	want := []linkCall{
		{"Contacts", "contact-1", "qtk_acumulacion", "crm-1"},
		{"qtk_local", "loc-1", "qtk_acumulacion", "crm-1"},
		{"qtk_negocio", "biz-1", "qtk_acumulacion", "crm-1"},
	}
	if len(crm.links) != len(want) {
		t.Fatalf("unexpected links: %+v", crm.links)
	}
	for i := range want {
		if crm.links[i] != want[i] {
			t.Fatalf("link %d: got %+v, want %+v", i, crm.links[i], want[i])
		}
	}
}

func TestCreateRedemption_JoinsSiblingRecords(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	crm.seedForeign("Contacts", 9, ports.RemoteRecord{ID: "contact-1"})
	crm.seedForeign("qtk_local", 12, ports.RemoteRecord{ID: "loc-1"})
	crm.seedForeign("qtk_negocio", 4, ports.RemoteRecord{ID: "biz-1"})
	crm.seedForeign("qtk_tipo_evento", 2, ports.RemoteRecord{ID: "type-redemption"})
	crm.seedForeign("Users", 3, ports.RemoteRecord{ID: "user-1"})
	crm.seedForeign("qtk_premio", 77, ports.RemoteRecord{ID: "prize-1"})
	crm.seedCode("qtk_cuenta", "AC-55", ports.RemoteRecord{ID: "account-1"})
	d := newTestDispatcher(crm)

	event := makeRecord(t, "RdsEvento", domain.OperationInsert, map[string]any{
		"NumeroUnico":          "EV-200",
		"IdTipoEvento":         foreignRef(2),
		"IdUsuarioResponsable": foreignRef(3),
		"Estado":               "A",
	})
	account := makeRecord(t, "RdsCuenta", domain.OperationUpdate, map[string]any{
		"IdEntidad":   31,
		"NumeroUnico": "AC-55",
	})
	redemption := makeRecord(t, "RdsRedencion", domain.OperationInsert, map[string]any{
		"IdCliente":       foreignRef(9),
		"IdNegocio":       foreignRef(4),
		"IdLocal":         foreignRef(12),
		"IdCuenta":        map[string]any{"IdClaveForanea": 31, "IdEntidad": 31},
		"IdPremio":        foreignRef(77),
		"FechaRedencion":  "2024-04-02T16:00:00",
		"Valor":           120.0,
		"MontoReferncial": 9.5,
	})
	pkg := &domain.Package{Records: []domain.MutationRecord{redemption, event, account}}

	if err := d.Dispatch(context.Background(), pkg, redemption); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 1 || crm.created[0].module != "qtk_redencion" {
		t.Fatalf("expected one redemption create, got %+v", crm.created)
	}
	fields := crm.created[0].fields
	if fields["numero_unico_c"] != "EV-200" || fields["qtk_cuenta_id_c"] != "account-1" {
		t.Fatalf("redemption must borrow sibling identifiers: %+v", fields)
	}
	if fields["monto_referencial_c"] != 9.5 {
		t.Fatalf("unexpected reference amount: %v", fields["monto_referencial_c"])
	}
	lastLink := crm.links[len(crm.links)-1]
	if lastLink.module != "qtk_premio" || lastLink.id != "prize-1" {
		t.Fatalf("redemption must relate to the prize, got %+v", crm.links)
	}

	// Redemption-subtype events stay silent: the redemption record owns the write.
	if err := d.Dispatch(context.Background(), pkg, event); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.created) != 1 {
		t.Fatalf("redemption event must not create a second record, got %+v", crm.created)
	}
}

func TestCreateRedemption_MissingSiblingEvent(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	d := newTestDispatcher(crm)
	redemption := makeRecord(t, "RdsRedencion", domain.OperationInsert, map[string]any{
		"IdCliente": foreignRef(9),
		"IdCuenta":  map[string]any{"IdClaveForanea": 31, "IdEntidad": 31},
	})
	pkg := &domain.Package{Records: []domain.MutationRecord{redemption}}
	err := d.Dispatch(context.Background(), pkg, redemption)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateAccount_PatchesBalances(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	crm.seedCode("qtk_cuenta", "AC-55", ports.RemoteRecord{ID: "account-1"})
	d := newTestDispatcher(crm)

	rec := makeRecord(t, "RdsCuenta", domain.OperationUpdate, map[string]any{
		"NumeroUnico":         "AC-55",
		"SaldoDisponible":     80.0,
		"SaldoDisponibleBase": 75.0,
		"SaldoContable":       90.0,
		"SaldoContableBase":   85.0,
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, rec); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.updated) != 1 || crm.updated[0].module != "qtk_cuenta/account-1" {
		t.Fatalf("expected one account patch, got %+v", crm.updated)
	}
	if crm.updated[0].fields["saldo_disponible_c"] != 80.0 {
		t.Fatalf("unexpected patch fields: %+v", crm.updated[0].fields)
	}
}

func TestDeleteEvent(t *testing.T) {
	t.Parallel()

	crm := newFakeCRM()
	crm.seedCode("qtk_acumulacion", "EV-100", ports.RemoteRecord{ID: "acc-rec-1"})
	d := newTestDispatcher(crm)

	rec := makeRecord(t, "RdsEvento", domain.OperationDelete, map[string]any{
		"NumeroUnico":  "EV-100",
		"IdTipoEvento": foreignRef(1),
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, rec); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.deleted) != 1 || crm.deleted[0] != "qtk_acumulacion/acc-rec-1" {
		t.Fatalf("unexpected deletes: %+v", crm.deleted)
	}

	// Subtypes without a target module delete nothing.
	noModule := makeRecord(t, "RdsEvento", domain.OperationDelete, map[string]any{
		"NumeroUnico":  "EV-101",
		"IdTipoEvento": foreignRef(4),
	})
	if err := d.Dispatch(context.Background(), &domain.Package{}, noModule); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(crm.deleted) != 1 {
		t.Fatalf("reversal subtype must be a delete no-op, got %+v", crm.deleted)
	}
}
