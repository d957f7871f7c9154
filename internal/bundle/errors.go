package bundle

import "fmt"

// NotFoundError indica que un path de bundle no existe.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bundle not found: %s", e.Path)
}

// ParseError indica un descriptor ausente o ilegible en una carga estricta.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid bundle descriptor %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
