package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Handler aplica una llamada remota ya validada en aridad. Los argumentos llegan en JSON
// crudo; los helpers Bind* los decodifican a tipos concretos.
type Handler func(ctx context.Context, args []json.RawMessage) error

type handlerKey struct {
	method string
	arity  int
}

// Registry mapea (target, método, aridad) a un handler. Se puebla al arrancar.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]map[handlerKey]Handler
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]map[handlerKey]Handler{}}
}

// Register asocia un handler. Registrar dos veces la misma clave reemplaza el anterior.
func (r *Registry) Register(target, method string, arity int, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.handlers[target]
	if !ok {
		m = map[handlerKey]Handler{}
		r.handlers[target] = m
	}
	m[handlerKey{method: method, arity: arity}] = h
}

// Lookup busca el handler para una llamada.
func (r *Registry) Lookup(target, method string, arity int) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[target][handlerKey{method: method, arity: arity}]
	return h, ok
}

// HasTarget reporta si hay handlers para target.
func (r *Registry) HasTarget(target string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[target]
	return ok
}

// Methods lista "método/aridad" registrados para target.
func (r *Registry) Methods(target string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers[target]))
	for k := range r.handlers[target] {
		out = append(out, fmt.Sprintf("%s/%d", k.method, k.arity))
	}
	return out
}

// ─── Binders tipados ───

func Bind0(r *Registry, target, method string, fn func()) {
	r.Register(target, method, 0, func(context.Context, []json.RawMessage) error {
		fn()
		return nil
	})
}

func Bind1[A any](r *Registry, target, method string, fn func(A)) {
	r.Register(target, method, 1, func(_ context.Context, args []json.RawMessage) error {
		a, err := decodeArg[A](method, 0, args[0])
		if err != nil {
			return err
		}
		fn(a)
		return nil
	})
}

func Bind2[A, B any](r *Registry, target, method string, fn func(A, B)) {
	r.Register(target, method, 2, func(_ context.Context, args []json.RawMessage) error {
		a, err := decodeArg[A](method, 0, args[0])
		if err != nil {
			return err
		}
		b, err := decodeArg[B](method, 1, args[1])
		if err != nil {
			return err
		}
		fn(a, b)
		return nil
	})
}

func Bind3[A, B, C any](r *Registry, target, method string, fn func(A, B, C)) {
	r.Register(target, method, 3, func(_ context.Context, args []json.RawMessage) error {
		a, err := decodeArg[A](method, 0, args[0])
		if err != nil {
			return err
		}
		b, err := decodeArg[B](method, 1, args[1])
		if err != nil {
			return err
		}
		c, err := decodeArg[C](method, 2, args[2])
		if err != nil {
			return err
		}
		fn(a, b, c)
		return nil
	})
}

var errNullNotAllowed = errors.New("null not allowed for parameter type")

// decodeArg decodifica un argumento en T. null solo se acepta si T admite nil
// (puntero, map, slice, interface) o es string, y produce el zero value.
func decodeArg[T any](method string, idx int, raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if !nullable(reflect.TypeOf((*T)(nil)).Elem()) {
			return v, &ArgumentError{Method: method, Index: idx, Err: errNullNotAllowed}
		}
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, &ArgumentError{Method: method, Index: idx, Err: err}
	}
	return v, nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.String:
		return true
	}
	return false
}
