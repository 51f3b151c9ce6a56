package api

import (
	"net/http"
	"strconv"
)

// Listagens de pacientes, sessões do dashboard, auditoria e erros paginam igual.
const (
	pageSize    = 20
	maxPageSize = 100
)

// ParseLimitOffset lê ?limit e ?offset. Valor ausente, inválido ou negativo vira o
// padrão; limit acima de maxPageSize é cortado.
func ParseLimitOffset(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = queryInt(q.Get("limit"), pageSize, 1)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = queryInt(q.Get("offset"), 0, 0)
	return limit, offset
}

func queryInt(s string, def, min int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return def
	}
	return n
}
