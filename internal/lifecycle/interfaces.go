package lifecycle

import (
	"context"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// BundleSource entrega el bundle aplicado y el último descargado, y promueve candidatos.
type BundleSource interface {
	LoadCurrent(ctx context.Context) (*bundle.Bundle, error)
	// LoadCandidate devuelve nil, nil si no hay bundle descargado.
	LoadCandidate(ctx context.Context) (*bundle.Bundle, error)
	Promote(ctx context.Context, b *bundle.Bundle) error
}

// ValidationPipeline valida un bundle en disco.
type ValidationPipeline interface {
	Run(ctx context.Context, bundlePath string) ([]validation.Result, error)
}

// ApplyMechanism aplica el bundle vigente.
type ApplyMechanism interface {
	Reload(ctx context.Context, b *bundle.Bundle, diff *compare.Result) error
	Restart(ctx context.Context) error
}

// HotReloadChecker es opcional en un ApplyMechanism. Sin él se usa apply.HotReloadable.
type HotReloadChecker interface {
	HotReloadable(b *bundle.Bundle, diff *compare.Result) bool
}

// CandidateLog persiste los candidatos (ver updatelog.Store).
type CandidateLog interface {
	Record(b *bundle.Bundle, results []validation.Result, invalid bool) (*updatelog.Candidate, error)
	Latest() (*updatelog.Candidate, error)
	MarkSkipped(folder string) (*updatelog.Candidate, error)
	MarkPromoted(folder string) (*updatelog.Candidate, error)
	BundlePath(folder string) string
	Report() (updatelog.Report, error)
}

// DiffCache recibe los diffs calculados localmente para que la resolución por paths
// del estado los reutilice.
type DiffCache interface {
	Put(r *compare.Result)
}

var _ CandidateLog = (*updatelog.Store)(nil)
var _ DiffCache = (*compare.Cache)(nil)
