package validation

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// Validator valida un bundle ya cargado y devuelve sus mensajes. Codes lista los
// códigos que puede emitir; un resultado con otro código es un error del validador.
type Validator interface {
	Name() string
	Codes() []string
	Validate(ctx context.Context, b *bundle.Bundle) []Result
}

// Description describe un validador disponible.
type Description struct {
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

// Pipeline ejecuta validadores en orden sobre un bundle en disco.
type Pipeline struct {
	validators []Validator
	log        *zap.Logger
}

// NewPipeline crea un pipeline con los validadores dados.
func NewPipeline(log *zap.Logger, vs ...Validator) *Pipeline {
	return &Pipeline{validators: vs, log: logger.OrDefault(log, "validation")}
}

// DefaultPipeline incluye los validadores estructurales del paquete.
func DefaultPipeline(log *zap.Logger) *Pipeline {
	return NewPipeline(log, DescriptorValidator{}, FilesValidator{}, YAMLValidator{}, CatalogValidator{})
}

// Describe lista los validadores del pipeline, en orden de ejecución.
func (p *Pipeline) Describe() []Description {
	out := make([]Description, 0, len(p.validators))
	for _, v := range p.validators {
		out = append(out, Description{Name: v.Name(), Codes: append([]string(nil), v.Codes()...)})
	}
	return out
}

// Run carga el bundle en bundlePath y ejecuta cada validador. Un descriptor inválido
// produce un resultado ERROR (no un error). Solo devuelve error si el bundle no existe
// o el contexto se cancela.
func (p *Pipeline) Run(ctx context.Context, bundlePath string) ([]Result, error) {
	b, err := bundle.Load(bundlePath)
	if err != nil {
		var pe *bundle.ParseError
		if errors.As(err, &pe) {
			return []Result{Error(CodeDescriptor, "%v", pe.Err)}, nil
		}
		return nil, err
	}

	var out []Result
	for _, v := range p.validators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs := p.runOne(ctx, v, b)
		out = append(out, rs...)
	}
	p.log.Debug("bundle validated",
		logger.BundlePath(bundlePath),
		logger.Count(len(out)),
		logger.Bool("rejected", HasErrors(out)),
	)
	return out, nil
}

// runOne aísla el panic de un validador en un resultado ERROR. Lo mismo si emite un
// código mal formado o que no declaró.
func (p *Pipeline) runOne(ctx context.Context, v Validator, b *bundle.Bundle) (rs []Result) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("validator panicked", logger.Component(v.Name()), logger.Any("panic", rec))
			rs = []Result{Error(CodeInternal, "validator %s failed: %v", v.Name(), rec)}
		}
	}()
	rs = v.Validate(ctx, b)
	declared := v.Codes()
	for _, r := range rs {
		if !ValidCode(r.Code) || !slices.Contains(declared, r.Code) {
			p.log.Error("validator emitted an unknown code", logger.Component(v.Name()), logger.String("code", r.Code))
			return []Result{Error(CodeInternal, "validator %s emitted invalid code %q", v.Name(), r.Code)}
		}
	}
	return rs
}

// ─── Validadores por defecto ───

// DescriptorValidator exige id y versión; apiVersion ausente es un warning.
type DescriptorValidator struct{}

func (DescriptorValidator) Name() string    { return "descriptor" }
func (DescriptorValidator) Codes() []string { return []string{CodeDescriptor} }

func (DescriptorValidator) Validate(_ context.Context, b *bundle.Bundle) []Result {
	d := b.Descriptor()
	var rs []Result
	if d.ID == "" {
		rs = append(rs, Error(CodeDescriptor, "bundle id is missing"))
	}
	if d.Version == "" {
		rs = append(rs, Error(CodeDescriptor, "bundle version is missing"))
	}
	if d.APIVersion == "" {
		rs = append(rs, Warning(CodeDescriptor, "apiVersion is missing"))
	}
	if len(rs) == 0 {
		rs = append(rs, Info(CodeDescriptor, "descriptor %s is valid", bundle.Info(d.ID, d.Version, "")))
	}
	return rs
}

// FilesValidator exige que cada archivo declarado exista dentro del bundle.
type FilesValidator struct{}

func (FilesValidator) Name() string    { return "files" }
func (FilesValidator) Codes() []string { return []string{CodeFiles} }

func (FilesValidator) Validate(_ context.Context, b *bundle.Bundle) []Result {
	var rs []Result
	for _, s := range bundle.DiffSections {
		for _, f := range b.Files(s) {
			if _, err := b.ReadFile(f); err != nil {
				rs = append(rs, Error(CodeFiles, "file %s declared in section %s cannot be read", f, s))
			}
		}
	}
	if len(rs) == 0 {
		rs = append(rs, Info(CodeFiles, "all declared files are present"))
	}
	return rs
}

// YAMLValidator exige que cada archivo declarado sea YAML válido.
type YAMLValidator struct{}

func (YAMLValidator) Name() string    { return "yaml" }
func (YAMLValidator) Codes() []string { return []string{CodeYAML} }

func (YAMLValidator) Validate(_ context.Context, b *bundle.Bundle) []Result {
	var rs []Result
	for _, s := range bundle.DiffSections {
		for _, f := range b.Files(s) {
			data, err := b.ReadFile(f)
			if err != nil {
				continue
			}
			var v any
			if err := yaml.Unmarshal(data, &v); err != nil {
				rs = append(rs, Error(CodeYAML, "%s: %v", f, err))
			}
		}
	}
	return rs
}

// CatalogValidator advierte si hay más de un catálogo de plugins.
type CatalogValidator struct{}

func (CatalogValidator) Name() string    { return "catalog" }
func (CatalogValidator) Codes() []string { return []string{CodeCatalog} }

func (CatalogValidator) Validate(_ context.Context, b *bundle.Bundle) []Result {
	if files := b.Files(bundle.SectionCatalog); len(files) > 1 {
		return []Result{Warning(CodeCatalog, "%d plugin catalog files declared, only one is supported", len(files))}
	}
	return nil
}

