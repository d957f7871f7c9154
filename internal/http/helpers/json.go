// Package helpers tiene utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/bundlekeeper/internal/http/errors"
)

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// QueryBool lee un flag booleano de la query string. Ausente = def. Si el valor no es
// booleano escribe un 400 y devuelve ok=false.
func QueryBool(w http.ResponseWriter, r *http.Request, name string, def bool) (v, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		errors.WriteError(w, errors.ErrInvalidParameter.WithDetail(name+" must be a boolean"))
		return false, false
	}
	return b, true
}
