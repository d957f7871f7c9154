package replication

import (
	"encoding/json"
	"strings"
)

// Call es el envelope de una llamada replicada. Los argumentos viajan como JSON crudo,
// uno por parámetro, y se decodifican en el receptor según el handler registrado.
type Call struct {
	ID     string            `json:"id"`
	Origin string            `json:"origin"`
	Target string            `json:"target"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
	TsUnix int64             `json:"tsUnix"`
}

// Arity devuelve la cantidad de argumentos.
func (c Call) Arity() int { return len(c.Args) }

// SetterPrefix es el prefijo de los mutadores replicados por defecto.
const SetterPrefix = "Set"

// IsSetter es el predicado de replicación por defecto: replica los métodos "Set*".
func IsSetter(method string) bool {
	return strings.HasPrefix(method, SetterPrefix)
}
