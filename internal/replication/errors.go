package replication

import (
	"errors"
	"fmt"
)

// ErrReplicationSkipped indica que una llamada se aplicó localmente pero no se difundió.
// Nunca se propaga al llamador original; solo se loguea.
var ErrReplicationSkipped = errors.New("replication skipped")

// ErrClosed indica que el dispatcher o transporte ya fue cerrado.
var ErrClosed = errors.New("replication: closed")

// TransportError envuelve fallas de broadcast o entrega.
type TransportError struct {
	Op   string
	Peer string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("replication transport %s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("replication transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ArgumentError indica que un argumento remoto no se pudo decodificar al tipo del
// parámetro del handler.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %d: %v", e.Method, e.Index, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
