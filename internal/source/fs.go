// Package source implementa el origen de bundles sobre el filesystem: un directorio
// con el bundle aplicado y otro donde un agente externo deja versiones nuevas.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/util/atomicwrite"
)

// FS es un BundleSource sobre dos directorios.
type FS struct {
	currentDir  string
	incomingDir string
	log         *zap.Logger

	mu sync.Mutex
}

// NewFS crea el source. currentDir debe existir al primer LoadCurrent.
func NewFS(currentDir, incomingDir string, log *zap.Logger) *FS {
	return &FS{currentDir: currentDir, incomingDir: incomingDir, log: logger.OrDefault(log, "source")}
}

// CurrentDir devuelve el directorio del bundle aplicado.
func (s *FS) CurrentDir() string { return s.currentDir }

// LoadCurrent carga el bundle aplicado.
func (s *FS) LoadCurrent(_ context.Context) (*bundle.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bundle.Load(s.currentDir)
}

// LoadCandidate devuelve el bundle del directorio entrante, o nil si no hay ninguno
// completo (sin descriptor). Un descriptor inválido se devuelve igual para que la
// validación lo reporte.
func (s *FS) LoadCandidate(_ context.Context) (*bundle.Bundle, error) {
	if _, err := os.Stat(filepath.Join(s.incomingDir, bundle.DescriptorFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("source: stat incoming: %w", err)
	}
	b, err := bundle.Open(s.incomingDir)
	if err != nil {
		var nf *bundle.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Promote reemplaza el bundle aplicado por b. Copia b a un directorio temporal junto
// al actual y hace el swap con renames.
func (s *FS) Promote(ctx context.Context, b *bundle.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	staging := s.currentDir + ".staging-" + stamp
	if err := copyBundle(ctx, b, staging); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}

	old := s.currentDir + ".old-" + stamp
	hadCurrent := true
	if err := os.Rename(s.currentDir, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("source: move current aside: %w", err)
		}
		hadCurrent = false
	}
	if err := os.Rename(staging, s.currentDir); err != nil {
		if hadCurrent {
			_ = os.Rename(old, s.currentDir)
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("source: install promoted bundle: %w", err)
	}
	if hadCurrent {
		if err := os.RemoveAll(old); err != nil {
			s.log.Warn("cannot remove previous bundle", logger.BundlePath(old), logger.Err(err))
		}
	}

	v, _ := b.Version()
	s.log.Info("bundle promoted", logger.BundleID(v.ID), logger.BundleVersion(v.Version), logger.BundlePath(s.currentDir))
	return nil
}

func copyBundle(ctx context.Context, b *bundle.Bundle, dst string) error {
	for _, name := range b.AllFiles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := b.FilePath(name)
		if err != nil {
			return err
		}
		if err := atomicwrite.CopyFile(src, filepath.Join(dst, filepath.FromSlash(name)), 0o644); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("source: copy %s: %w", name, err)
		}
	}
	return os.MkdirAll(dst, 0o755)
}
