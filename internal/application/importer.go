package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vinco360/crm-replicator/internal/domain"
	"github.com/vinco360/crm-replicator/internal/ports"
)

// Importer backfills the CRM from the source transactional store. It reads
// source rows, reshapes them into the same wire records the live notification
// path carries, and pushes them through the same dispatcher, so backfilled and
// replicated data take one code path into the CRM.
type Importer struct {
	src        ports.SourceQueryService
	dispatcher RecordDispatcher
	log        *slog.Logger
}

func NewImporter(src ports.SourceQueryService, dispatcher RecordDispatcher, log *slog.Logger) *Importer {
	return &Importer{src: src, dispatcher: dispatcher, log: log}
}

// Run backfills every client matched by clientQuery (a query returning an
// IdCliente column), one client at a time. Per-client failures are logged and
// skipped; the import keeps going.
func (im *Importer) Run(ctx context.Context, clientQuery string) error {
	rows, err := im.src.Query(ctx, clientQuery)
	if err != nil {
		return fmt.Errorf("list clients to import: %w", err)
	}
	im.log.Info("import started", slog.Int("clients", len(rows)))

	for _, row := range rows {
		clientID := rowInt64(row, "IdCliente")
		if err := im.ImportClient(ctx, clientID); err != nil {
			im.log.Error("client import failed",
				slog.Int64("client_id", clientID),
				slog.String("error", err.Error()))
			continue
		}
		im.log.Info("client imported", slog.Int64("client_id", clientID))
	}
	return nil
}

// ImportClient imports one client and everything hanging off it.
func (im *Importer) ImportClient(ctx context.Context, clientID int64) error {
	if err := im.importClientRecord(ctx, clientID); err != nil {
		return err
	}
	if err := im.importCustomerCodes(ctx, clientID); err != nil {
		return err
	}
	if err := im.importEvents(ctx, clientID, domain.EventTypeAffiliation); err != nil {
		return err
	}
	if err := im.importEvents(ctx, clientID, domain.EventTypeAccrual); err != nil {
		return err
	}
	return im.importRedemptions(ctx, clientID)
}

func (im *Importer) importClientRecord(ctx context.Context, clientID int64) error {
	rows, err := im.src.Query(ctx, "select * from VC_Cliente where IdCliente = ?", clientID)
	if err != nil {
		return fmt.Errorf("read client %d: %w", clientID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("client %d not found in source store", clientID)
	}
	row := rows[0]

	rec, err := buildWireRecord("RdsCliente", map[string]any{
		"TipoOperacion":           int(domain.OperationInsert),
		"NomUnicoCliente":         rowString(row, "sNombreUnico"),
		"IdRdsRegistro":           clientID,
		"Nombre":                  rowString(row, "sNombre"),
		"Apellido":                rowString(row, "sApellido"),
		"CodigoSexo":              rowString(row, "sSexo"),
		"FechaNacimiento":         rowString(row, "dFechaNacimiento"),
		"CodigoCiudad":            rowString(row, "sCiudad"),
		"CodigoPais":              rowString(row, "sPais"),
		"Direccion":               rowString(row, "sDireccion"),
		"TelefonoMovil":           rowString(row, "sTelefonoMovil"),
		"CorreoElectronico":       rowString(row, "sCorreoElectronico"),
		"FechaCreacion":           rowString(row, "dFechaCreacion"),
		"FechaUltimaModificacion": rowString(row, "dFechaUltimaActualizacion"),
		"FechaRegistro":           rowString(row, "dFechaRegistroCliente"),
		"AppRegistro":             rowString(row, "sAppRegistro"),
		"TipoLogin":               rowString(row, "sTipoLogin"),
		"Estado":                  rowString(row, "sEstado"),
	})
	if err != nil {
		return err
	}
	return im.dispatch(ctx, rec)
}

// importCustomerCodes replays each code as a create followed by the activation
// update, reproducing the code's full lifecycle.
func (im *Importer) importCustomerCodes(ctx context.Context, clientID int64) error {
	rows, err := im.src.Query(ctx, "select * from VC_CodigoCliente where IdCliente = ?", clientID)
	if err != nil {
		return fmt.Errorf("read customer codes of client %d: %w", clientID, err)
	}
	for _, row := range rows {
		create, err := buildWireRecord("RdsCodigoCliente", map[string]any{
			"TipoOperacion": int(domain.OperationInsert),
			"Codigo":        rowString(row, "sCodigo"),
			"FechaCreacion": rowString(row, "dFechaCreacion"),
			"Estado":        rowString(row, "sEstado"),
			"IdLocal":       foreignKey(rowInt64(row, "IdLocal")),
			"IdNegocio":     foreignKey(rowInt64(row, "IdNegocio")),
		})
		if err != nil {
			return err
		}
		if err := im.dispatch(ctx, create); err != nil {
			return err
		}

		activate, err := buildWireRecord("RdsCodigoCliente", map[string]any{
			"TipoOperacion":   int(domain.OperationUpdate),
			"Codigo":          rowString(row, "sCodigo"),
			"FechaActivacion": rowString(row, "dFechaActivacion"),
			"Estado":          rowString(row, "sEstado"),
			"IdCliente":       foreignKey(clientID),
			"IdLocal":         foreignKey(rowInt64(row, "IdLocalAct")),
			"IdNegocio":       foreignKey(rowInt64(row, "IdNegocioAct")),
		})
		if err != nil {
			return err
		}
		if err := im.dispatch(ctx, activate); err != nil {
			return err
		}
	}
	return nil
}

const eventImportQuery = `select
  E.dFechaCreacion, E.IdCliente, E.IdLocal, E.IdTipoEvento, E.IdUsuarioResponsable,
  E.mValor, E.sCodigoCliente, E.sEstado, E.sNumeroUnico, E.sTipoCodigoCliente,
  max(J.IdCampania) as IdCampania,
  sum(M.mValorCuenta) as SaldoCuenta,
  sum(M.mValor) as AvancePartida
from VC_Evento E
inner join VC_MovPartida M on M.IdEvento = E.IdEvento
inner join VC_Partida P on P.IdPartida = M.IdPartida
inner join VC_Juego J on J.IdJuego = P.IdJuego
where E.IdTipoEvento = ? and E.IdCliente = ?
group by
  E.dFechaCreacion, E.IdCliente, E.IdLocal, E.IdTipoEvento, E.IdUsuarioResponsable,
  E.mValor, E.sCodigoCliente, E.sEstado, E.sNumeroUnico, E.sTipoCodigoCliente`

// importEvents backfills accrual or affiliation events, with the accrued
// totals and the campaign aggregated off the game movement join.
func (im *Importer) importEvents(ctx context.Context, clientID int64, eventType domain.EventType) error {
	rows, err := im.src.Query(ctx, eventImportQuery, int64(eventType), clientID)
	if err != nil {
		return fmt.Errorf("read events of client %d: %w", clientID, err)
	}
	for _, row := range rows {
		event, err := buildWireRecord("RdsEvento", map[string]any{
			"TipoOperacion":        int(domain.OperationInsert),
			"NumeroUnico":          rowString(row, "sNumeroUnico"),
			"IdTipoEvento":         foreignKey(rowInt64(row, "IdTipoEvento")),
			"FechaCreacion":        rowString(row, "dFechaCreacion"),
			"Valor":                rowFloat(row, "mValor"),
			"IdUsuarioResponsable": foreignKey(rowInt64(row, "IdUsuarioResponsable")),
			"Estado":               rowString(row, "sEstado"),
			"TipoCodigoCliente":    rowString(row, "sTipoCodigoCliente"),
			"CodigoCliente":        rowString(row, "sCodigoCliente"),
			"IdCliente":            foreignKey(clientID),
			"IdLocal":              foreignKey(rowInt64(row, "IdLocal")),
			"ValoresAcumulados": []map[string]any{{
				"SaldoCuenta":   rowFloat(row, "SaldoCuenta"),
				"AvancePartida": rowFloat(row, "AvancePartida"),
			}},
		})
		if err != nil {
			return err
		}

		pkg := &domain.Package{ClientID: clientID, Records: []domain.MutationRecord{event}}
		if campaignID := rowInt64(row, "IdCampania"); campaignID != 0 {
			movement, err := buildWireRecord("RdsMovPartida", map[string]any{
				"TipoOperacion": int(domain.OperationNone),
				"IdCampania":    foreignKey(campaignID),
			})
			if err != nil {
				return err
			}
			pkg.Records = append(pkg.Records, movement)
		}
		if err := im.dispatcher.Dispatch(ctx, pkg, event); err != nil {
			return err
		}
	}
	return nil
}

const redemptionImportQuery = `select
  R.IdCliente, R.IdNegocio, R.IdLocal, R.IdCuenta, R.IdPremio,
  R.dFechaRedencion, R.mValor, R.mMontoReferencial,
  E.IdTipoEvento, E.IdUsuarioResponsable, E.sTipoCodigoCliente,
  E.sCodigoCliente, E.sNumeroUnico, E.sEstado,
  C.sNumeroUnico as cuentaNumeroUnico
from VC_Redencion R
inner join VC_Evento E on E.IdEvento = R.IdEvento
inner join VC_Cuenta C on C.IdCuenta = R.IdCuenta
where R.IdCliente = ?`

// importRedemptions rebuilds per redemption the record triple the live path
// dispatches together: the redemption, its event, and its account.
func (im *Importer) importRedemptions(ctx context.Context, clientID int64) error {
	rows, err := im.src.Query(ctx, redemptionImportQuery, clientID)
	if err != nil {
		return fmt.Errorf("read redemptions of client %d: %w", clientID, err)
	}
	for _, row := range rows {
		accountEntityID := rowInt64(row, "IdCuenta")
		event, err := buildWireRecord("RdsEvento", map[string]any{
			"TipoOperacion":        int(domain.OperationNone),
			"NumeroUnico":          rowString(row, "sNumeroUnico"),
			"IdTipoEvento":         foreignKey(rowInt64(row, "IdTipoEvento")),
			"IdUsuarioResponsable": foreignKey(rowInt64(row, "IdUsuarioResponsable")),
			"TipoCodigoCliente":    rowString(row, "sTipoCodigoCliente"),
			"CodigoCliente":        rowString(row, "sCodigoCliente"),
			"Estado":               rowString(row, "sEstado"),
		})
		if err != nil {
			return err
		}
		account, err := buildWireRecord("RdsCuenta", map[string]any{
			"TipoOperacion": int(domain.OperationNone),
			"IdEntidad":     accountEntityID,
			"NumeroUnico":   rowString(row, "cuentaNumeroUnico"),
		})
		if err != nil {
			return err
		}
		redemption, err := buildWireRecord("RdsRedencion", map[string]any{
			"TipoOperacion":   int(domain.OperationInsert),
			"FechaRedencion":  rowString(row, "dFechaRedencion"),
			"Valor":           rowFloat(row, "mValor"),
			"MontoReferncial": rowFloat(row, "mMontoReferencial"),
			"IdCliente":       foreignKey(clientID),
			"IdNegocio":       foreignKey(rowInt64(row, "IdNegocio")),
			"IdLocal":         foreignKey(rowInt64(row, "IdLocal")),
			"IdPremio":        foreignKey(rowInt64(row, "IdPremio")),
			"IdCuenta":        map[string]any{"IdEntidad": accountEntityID},
		})
		if err != nil {
			return err
		}

		pkg := &domain.Package{ClientID: clientID, Records: []domain.MutationRecord{event, account, redemption}}
		if err := im.dispatcher.Dispatch(ctx, pkg, redemption); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) dispatch(ctx context.Context, rec domain.MutationRecord) error {
	pkg := &domain.Package{Records: []domain.MutationRecord{rec}}
	return im.dispatcher.Dispatch(ctx, pkg, rec)
}

// buildWireRecord assembles a mutation record byte-identical to what the live
// notification path would decode for the same data.
func buildWireRecord(typeName string, fields map[string]any) (domain.MutationRecord, error) {
	fields["$type"] = fmt.Sprintf("Vinco.Mensajeria.RDS.%s, Vinco.Mensajeria", typeName)
	payload, err := json.Marshal(fields)
	if err != nil {
		return domain.MutationRecord{}, fmt.Errorf("build %s record: %w", typeName, err)
	}
	var rec domain.MutationRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.MutationRecord{}, fmt.Errorf("build %s record: %w", typeName, err)
	}
	return rec, nil
}

func foreignKey(id int64) map[string]any {
	return map[string]any{"IdClaveForanea": id}
}

func rowString(row map[string]any, col string) string {
	switch v := row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func rowInt64(row map[string]any, col string) int64 {
	switch v := row[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func rowFloat(row map[string]any, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
