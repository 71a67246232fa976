package cache

import "strconv"

// Tags shared by the query and write paths.
const (
	TagRegistros     = "registros"
	TagEstadisticas  = "estadisticas"
	TagHistorial     = "historial"
	TagValoresUnicos = "valores_unicos"
)

// RegistroTag returns the tag of a single record's cached lookups.
func RegistroTag(id int64) string {
	return "registro:" + strconv.FormatInt(id, 10)
}

// HistorialTag returns the tag of one inspector's cached history.
func HistorialTag(numeroInspector int64) string {
	return "historial:" + strconv.FormatInt(numeroInspector, 10)
}
