// Package apply aplica un bundle promovido: reload en caliente (total o por secciones)
// o restart, delegando en comandos externos configurables.
package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// Plan describe qué recargar.
type Plan struct {
	Full     bool
	Sections []bundle.Section
}

// Mode devuelve "full" o "partial".
func (p Plan) Mode() string {
	if p.Full {
		return "full"
	}
	return "partial"
}

// PlanReload decide entre reload total o parcial. Sin diff, o con cambios en
// variables, el reload es total; si no, solo las secciones con cambios.
func PlanReload(diff *compare.Result) Plan {
	if diff == nil || diff.Section(bundle.SectionVariables).WithChanges() {
		return Plan{Full: true}
	}
	var secs []bundle.Section
	for _, s := range bundle.DiffSections {
		if diff.Section(s).WithChanges() {
			secs = append(secs, s)
		}
	}
	return Plan{Sections: secs}
}

// HotReloadable reporta si b puede aplicarse sin restart: un bundle sin plugins
// siempre puede; con plugins, solo si se conoce el diff y ni plugins ni catálogo cambian.
func HotReloadable(b *bundle.Bundle, diff *compare.Result) bool {
	if b == nil {
		return false
	}
	if len(b.Files(bundle.SectionPlugins)) == 0 {
		return true
	}
	if diff == nil {
		return false
	}
	return !diff.Section(bundle.SectionPlugins).WithChanges() &&
		!diff.Section(bundle.SectionCatalog).WithChanges()
}

// CommandConfig configura CommandApplier.
type CommandConfig struct {
	ReloadCommand  []string
	RestartCommand []string
	Timeout        time.Duration
}

// CommandApplier ejecuta comandos externos. El comando de reload recibe el bundle en
// BUNDLE_PATH, BUNDLE_ID, BUNDLE_VERSION, RELOAD_MODE y RELOAD_SECTIONS.
type CommandApplier struct {
	cfg CommandConfig
	log *zap.Logger
}

// NewCommand crea el applier.
func NewCommand(cfg CommandConfig, log *zap.Logger) *CommandApplier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &CommandApplier{cfg: cfg, log: logger.OrDefault(log, "apply")}
}

// ErrNoCommand indica que no hay comando configurado para la operación.
var ErrNoCommand = errors.New("apply: no command configured")

func (a *CommandApplier) Reload(ctx context.Context, b *bundle.Bundle, diff *compare.Result) error {
	plan := PlanReload(diff)
	v, _ := b.Version()
	secs := make([]string, len(plan.Sections))
	for i, s := range plan.Sections {
		secs[i] = string(s)
	}
	env := []string{
		"BUNDLE_PATH=" + b.Path(),
		"BUNDLE_ID=" + v.ID,
		"BUNDLE_VERSION=" + v.Version,
		"RELOAD_MODE=" + plan.Mode(),
		"RELOAD_SECTIONS=" + strings.Join(secs, ","),
	}
	a.log.Info("reloading bundle", logger.BundleVersion(v.Version), logger.String("mode", plan.Mode()),
		logger.String("sections", strings.Join(secs, ",")))
	return a.run(ctx, "reload", a.cfg.ReloadCommand, env)
}

func (a *CommandApplier) Restart(ctx context.Context) error {
	a.log.Info("restarting instance")
	return a.run(ctx, "restart", a.cfg.RestartCommand, nil)
}

func (a *CommandApplier) HotReloadable(b *bundle.Bundle, diff *compare.Result) bool {
	return HotReloadable(b, diff)
}

func (a *CommandApplier) run(ctx context.Context, op string, argv []string, env []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCommand, op)
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	log := a.log.With(logger.Op(op), logger.Duration(time.Since(start)))
	if out.Len() > 0 {
		log.Debug("command output", logger.String("output", truncate(out.String(), 4096)))
	}
	if err != nil {
		log.Error("command failed", logger.Err(err))
		return fmt.Errorf("apply %s: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Noop no aplica nada; solo loguea. Útil en desarrollo.
type Noop struct {
	Log *zap.Logger
}

func (n Noop) Reload(_ context.Context, b *bundle.Bundle, diff *compare.Result) error {
	logger.OrDefault(n.Log, "apply").Info("noop reload", logger.BundlePath(b.Path()),
		logger.String("mode", PlanReload(diff).Mode()))
	return nil
}

func (n Noop) Restart(context.Context) error {
	logger.OrDefault(n.Log, "apply").Info("noop restart")
	return nil
}

func (Noop) HotReloadable(b *bundle.Bundle, diff *compare.Result) bool {
	return HotReloadable(b, diff)
}
