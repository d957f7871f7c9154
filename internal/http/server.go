// Package http contiene el servidor HTTP del servicio.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server envuelve http.Server con arranque en background y shutdown ordenado.
type Server struct {
	srv *http.Server
}

// NewServer crea el servidor.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start escucha en addr y sirve en background. Errores posteriores al bind van a errc.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	errc := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return errc, nil
}

// Shutdown espera a que terminen los requests en curso o a que ctx expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
