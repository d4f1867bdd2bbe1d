package crm

// foreignIDFields maps each module to the custom field holding the source
// system's id for its records.
var foreignIDFields = map[string]string{
	"Contacts":        "id_cliente_c",
	"Users":           "id_usuario_c",
	"qtk_negocio":     "id_negocio_c",
	"qtk_local":       "id_local_c",
	"qtk_tipo_evento": "id_tipo_evento_c",
	"qtk_campania":    "id_campania_c",
	"qtk_premio":      "id_premio_c",
}

// uniqueCodeFields maps each module to its unique code field. Everything not
// listed uses numero_unico_c.
var uniqueCodeFields = map[string]string{
	"qtk_codigo_cliente": "codigo_c",
}

const defaultUniqueCodeField = "numero_unico_c"

func foreignIDField(module string) (string, bool) {
	f, ok := foreignIDFields[module]
	return f, ok
}

func uniqueCodeField(module string) string {
	if f, ok := uniqueCodeFields[module]; ok {
		return f
	}
	return defaultUniqueCodeField
}
