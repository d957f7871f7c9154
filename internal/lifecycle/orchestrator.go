// Package lifecycle orquesta el ciclo de actualización de bundles: detecta versiones
// nuevas, las valida y registra como candidatas, y las promueve con reload o restart.
// Todo cambio visible del estado pasa por un status.Mutator (normalmente replicado).
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/bundlekeeper/internal/apply"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/metrics"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/status"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// Deps agrupa los colaboradores del orquestador.
type Deps struct {
	Source   BundleSource
	Pipeline ValidationPipeline
	Apply    ApplyMechanism
	Log      CandidateLog
	// State se usa para lecturas. Mutator para escrituras; si es nil se escribe
	// directo en State (sin replicación).
	State   *status.State
	Mutator status.Mutator
	Cache   DiffCache
	Logger  *zap.Logger
}

type autoAction int

const (
	autoNone autoAction = iota
	autoSkip
	autoReload
	autoRestart
)

// view es lo que leen los endpoints de consulta sin tomar mu.
type view struct {
	candidate          *updatelog.Candidate
	hotReloadable      bool
	currentValidations []validation.Result
}

// Orchestrator implementa el ciclo de actualización.
type Orchestrator struct {
	source   BundleSource
	pipeline ValidationPipeline
	applier  ApplyMechanism
	clog     CandidateLog
	state    *status.State
	mut      status.Mutator
	cache    DiffCache
	log      *zap.Logger
	timing   Timing

	sf singleflight.Group

	// mu serializa check, promote, skip y restart.
	mu                 sync.Mutex
	candidate          *updatelog.Candidate
	candidateBundle    *bundle.Bundle
	diff               *compare.Result
	published          bundle.Version
	currentValidations []validation.Result

	reloading        atomic.Bool
	restartScheduled atomic.Bool
	view             atomic.Pointer[view]

	phaseMu sync.Mutex
	phase   Phase

	now func() time.Time
}

// New crea el orquestador y recupera el último candidato pendiente del update log.
func New(d Deps, t Timing) (*Orchestrator, error) {
	switch {
	case d.Source == nil:
		return nil, errors.New("lifecycle: source is required")
	case d.Pipeline == nil:
		return nil, errors.New("lifecycle: validation pipeline is required")
	case d.Apply == nil:
		return nil, errors.New("lifecycle: apply mechanism is required")
	case d.Log == nil:
		return nil, errors.New("lifecycle: candidate log is required")
	case d.State == nil:
		return nil, errors.New("lifecycle: status is required")
	}
	o := &Orchestrator{
		source:   d.Source,
		pipeline: d.Pipeline,
		applier:  d.Apply,
		clog:     d.Log,
		state:    d.State,
		mut:      d.Mutator,
		cache:    d.Cache,
		log:      logger.OrDefault(d.Logger, "lifecycle"),
		timing:   t,
		phase:    PhaseIdle,
		now:      time.Now,
	}
	if o.mut == nil {
		o.mut = d.State
	}
	o.restore()
	return o, nil
}

// restore carga el candidato más reciente. El estado replicado se publica en el
// primer chequeo.
func (o *Orchestrator) restore() {
	c, err := o.clog.Latest()
	if err != nil {
		if !errors.Is(err, updatelog.ErrNoCandidate) {
			o.log.Warn("cannot read update log", logger.Err(err))
		}
		o.refreshView()
		return
	}
	o.published = c.Version
	if c.Promoted {
		o.currentValidations = c.Validations
		o.refreshView()
		return
	}
	o.candidate = c
	if b, err := bundle.Open(o.clog.BundlePath(c.Folder)); err == nil {
		o.candidateBundle = b
		if cur, err := o.source.LoadCurrent(context.Background()); err == nil {
			o.diff = compare.CompareBundles(cur, b)
			o.putDiff(o.diff)
		}
	} else {
		o.log.Warn("cannot open stored candidate", logger.Folder(c.Folder), logger.Err(err))
	}
	o.log.Info("pending candidate restored", logger.Folder(c.Folder),
		logger.BundleVersion(c.Version.Version), logger.Bool("skipped", c.Skipped))
	o.refreshView()
}

// ─── Check ───

// CheckForUpdate busca una versión nueva y, si la hay, la valida y registra como
// candidata. Llamadas concurrentes comparten una única ejecución. Los errores de
// I/O o parseo quedan en el estado (errorInNewVersion); el error devuelto solo
// refleja la cancelación de ctx.
func (o *Orchestrator) CheckForUpdate(ctx context.Context) (bool, error) {
	ch := o.sf.DoChan("check", func() (any, error) {
		return o.check(context.WithoutCancel(ctx)), nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		return r.Val.(bool), r.Err
	}
}

func (o *Orchestrator) check(ctx context.Context) bool {
	start := time.Now()
	available, result, action := o.checkLocked(ctx)
	metrics.BundleChecks.WithLabelValues(result).Inc()
	metrics.BundleCheckDuration.Observe(float64(time.Since(start).Milliseconds()))
	o.log.Debug("update check finished", logger.String("result", result),
		logger.Bool("update_available", available), logger.Duration(time.Since(start)))

	switch action {
	case autoSkip:
		if err := o.skip(ctx); err != nil {
			o.log.Warn("automatic skip failed", logger.Err(err))
		}
		return o.state.IsUpdateAvailable()
	case autoReload:
		if ok, reason, err := o.reload(ctx, true, false, true); !ok {
			o.log.Warn("automatic reload not started", logger.String("reason", reason), logger.Err(err))
		}
	case autoRestart:
		if err := o.Restart(ctx); err != nil {
			o.log.Error("automatic restart failed", logger.Err(err))
		}
	}
	return available
}

func (o *Orchestrator) checkLocked(ctx context.Context) (bool, string, autoAction) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.reloading.Load() {
		o.log.Info("reload in progress, skipping update check")
		return o.state.IsUpdateAvailable(), "skipped", autoNone
	}

	o.setPhase(PhaseChecking)
	o.mut.SetLastCheckForUpdate(o.now())

	current, err := o.source.LoadCurrent(ctx)
	if err != nil {
		return o.failLocked("load current bundle", err), "error", autoNone
	}
	curV, err := current.Version()
	if err != nil {
		return o.failLocked("read current bundle", err), "error", autoNone
	}
	incoming, err := o.source.LoadCandidate(ctx)
	if err != nil {
		return o.failLocked("load incoming bundle", err), "error", autoNone
	}
	if incoming == nil {
		o.syncPendingLocked(current, curV)
		o.setPhase(o.restingPhaseLocked())
		return o.pendingLocked(), "no_update", autoNone
	}
	inV, err := incoming.Version()
	if err != nil {
		return o.failLocked("read incoming bundle", err), "error", autoNone
	}

	switch {
	case inV.Same(curV):
		o.setPhase(PhaseNoUpdate)
		o.resetLocked()
		o.setPhase(PhaseIdle)
		return false, "no_update", autoNone

	case o.candidate != nil && inV.Same(o.candidate.Version):
		o.syncPendingLocked(current, curV)
		o.setPhase(o.restingPhaseLocked())
		return o.pendingLocked(), "no_update", autoNone

	case inV.Older(curV) || (!o.published.IsZero() && inV.Older(o.published)):
		o.log.Warn("incoming bundle is older than a known version, ignoring",
			logger.BundleVersion(inV.Version), logger.String("current", curV.Version),
			logger.String("published", o.published.Version))
		o.setPhase(PhaseNoUpdate)
		o.setPhase(PhaseIdle)
		return o.pendingLocked(), "ignored", autoNone
	}

	o.setPhase(PhaseUpdateFound)
	o.log.Info("new bundle version found", logger.BundleID(inV.ID),
		logger.BundleVersion(inV.Version), logger.Checksum(inV.Checksum))

	o.setPhase(PhaseValidating)
	results, err := o.pipeline.Run(ctx, incoming.Path())
	if err != nil {
		return o.failLocked("validate incoming bundle", err), "error", autoNone
	}

	again, err := o.source.LoadCandidate(ctx)
	if err == nil && again != nil {
		if v, verr := again.Version(); verr == nil && !v.Same(inV) {
			o.log.Info("incoming bundle changed during validation, discarding",
				logger.BundleVersion(inV.Version), logger.String("newer", v.Version))
			o.setPhase(PhaseIdle)
			return o.pendingLocked(), "superseded", autoNone
		}
	}

	invalid := validation.ShouldBeRejected(results, o.timing.RejectWarnings)
	c, err := o.clog.Record(incoming, results, invalid)
	if err != nil {
		return o.failLocked("record candidate", err), "error", autoNone
	}
	stored, err := bundle.Open(o.clog.BundlePath(c.Folder))
	if err != nil {
		return o.failLocked("open stored candidate", err), "error", autoNone
	}

	o.candidate = c
	o.candidateBundle = stored
	o.published = c.Version
	o.diff = compare.CompareBundles(current, stored)
	o.putDiff(o.diff)

	o.mut.SetErrorInNewVersion(false)
	o.mut.SetErrorMessage("")
	if o.state.OutdatedVersion() == "" {
		o.mut.SetOutdatedVersion(curV.Version)
		o.mut.SetOutdatedBundle(curV.ID, curV.Version, curV.Checksum)
	}
	o.mut.SetChangesInNewVersion(&status.DiffRef{Origin: current.Path(), Other: stored.Path()})
	o.mut.SetUpdateAvailable(true)
	o.mut.SetCandidateAvailable(!invalid)
	o.refreshView()

	if invalid {
		o.log.Warn("new bundle version rejected by validations", logger.BundleVersion(c.Version.Version),
			logger.Folder(c.Folder), logger.Count(len(results)))
		o.setPhase(PhaseCandidateInvalid)
		o.setPhase(PhaseIdle)
		return true, "invalid", autoNone
	}
	o.setPhase(PhaseCandidateValid)
	o.setPhase(PhasePromotable)
	return true, "update", o.automaticActionLocked()
}

func (o *Orchestrator) automaticActionLocked() autoAction {
	switch {
	case o.timing.SkipNewVersions:
		return autoSkip
	case o.timing.AutomaticReload && o.hotReloadable(o.candidateBundle, o.diff):
		return autoReload
	case o.timing.AutomaticRestart:
		return autoRestart
	}
	return autoNone
}

// failLocked deja el error en el estado y devuelve la disponibilidad vigente.
func (o *Orchestrator) failLocked(op string, err error) bool {
	o.log.Error("update check failed", logger.Op(op), logger.Err(err))
	o.mut.SetErrorInNewVersion(true)
	o.mut.SetErrorMessage(fmt.Sprintf("%s: %v", op, err))
	o.setPhase(PhaseIdle)
	return o.state.IsUpdateAvailable()
}

// resetLocked descarta el candidato: el bundle descargado es el aplicado.
func (o *Orchestrator) resetLocked() {
	if o.candidate != nil && !o.candidate.Promoted {
		o.log.Info("incoming bundle matches the current one, dropping candidate", logger.Folder(o.candidate.Folder))
	}
	o.candidate, o.candidateBundle, o.diff = nil, nil, nil
	o.refreshView()

	s := o.state
	if s.IsUpdateAvailable() || s.IsCandidateAvailable() {
		o.mut.SetUpdateAvailable(false)
		o.mut.SetCandidateAvailable(false)
	}
	if s.Snapshot().ChangesInNewVersion != nil {
		o.mut.SetChangesInNewVersion(nil)
	}
	if s.OutdatedVersion() != "" || s.OutdatedBundleInformation() != "" {
		o.mut.SetOutdatedVersion("")
		o.mut.SetOutdatedBundleInformation("")
	}
	if s.IsErrorInNewVersion() {
		o.mut.SetErrorInNewVersion(false)
		o.mut.SetErrorMessage("")
	}
}

// syncPendingLocked publica el candidato conocido solo en lo que difiera del estado.
// Cubre el candidato recuperado al arrancar.
func (o *Orchestrator) syncPendingLocked(current *bundle.Bundle, curV bundle.Version) {
	s := o.state
	if s.IsErrorInNewVersion() {
		o.mut.SetErrorInNewVersion(false)
		o.mut.SetErrorMessage("")
	}
	pending := o.pendingLocked()
	if s.IsUpdateAvailable() != pending {
		o.mut.SetUpdateAvailable(pending)
	}
	valid := pending && !o.candidate.Invalid
	if s.IsCandidateAvailable() != valid {
		o.mut.SetCandidateAvailable(valid)
	}
	if !pending || o.candidateBundle == nil {
		return
	}
	if s.OutdatedVersion() == "" {
		o.mut.SetOutdatedVersion(curV.Version)
		o.mut.SetOutdatedBundle(curV.ID, curV.Version, curV.Checksum)
	}
	if s.Snapshot().ChangesInNewVersion == nil {
		o.mut.SetChangesInNewVersion(&status.DiffRef{Origin: current.Path(), Other: o.candidateBundle.Path()})
	}
}

func (o *Orchestrator) pendingLocked() bool {
	c := o.candidate
	return c != nil && !c.Skipped && !c.Promoted
}

func (o *Orchestrator) restingPhaseLocked() Phase {
	if o.pendingLocked() && !o.candidate.Invalid {
		return PhasePromotable
	}
	return PhaseIdle
}

func (o *Orchestrator) putDiff(r *compare.Result) {
	if o.cache != nil && r != nil {
		o.cache.Put(r)
	}
}

func (o *Orchestrator) hotReloadable(b *bundle.Bundle, diff *compare.Result) bool {
	if hc, ok := o.applier.(HotReloadChecker); ok {
		return hc.HotReloadable(b, diff)
	}
	return apply.HotReloadable(b, diff)
}

// refreshView copia los datos de consulta. Se llama con mu tomado (o en New).
func (o *Orchestrator) refreshView() {
	v := &view{currentValidations: o.currentValidations}
	if o.candidate != nil {
		cp := *o.candidate
		v.candidate = &cp
		v.hotReloadable = o.hotReloadable(o.candidateBundle, o.diff)
	}
	o.view.Store(v)
}

// ─── Promote ───

// Promote convierte el candidato pendiente en el bundle aplicado, sin recargar.
// Devuelve false si no hay candidato.
func (o *Orchestrator) Promote(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.candidate == nil || o.candidate.Promoted {
		return false, nil
	}
	if o.candidate.Skipped {
		return false, illegal("promote", "the candidate was skipped")
	}
	if o.candidate.Invalid {
		return false, ErrValidationRejected
	}
	if _, err := o.promoteLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// promoteLocked promueve el candidato y devuelve su diff contra el bundle anterior.
func (o *Orchestrator) promoteLocked(ctx context.Context) (*compare.Result, error) {
	c := o.candidate
	if o.candidateBundle == nil {
		return nil, fmt.Errorf("lifecycle: stored candidate %s is not readable", c.Folder)
	}
	if err := o.source.Promote(ctx, o.candidateBundle); err != nil {
		o.log.Error("promote failed", logger.Folder(c.Folder), logger.Err(err))
		return nil, err
	}
	if _, err := o.clog.MarkPromoted(c.Folder); err != nil {
		o.log.Warn("cannot mark candidate as promoted", logger.Folder(c.Folder), logger.Err(err))
	}
	o.log.Info("candidate promoted", logger.Folder(c.Folder), logger.BundleVersion(c.Version.Version))

	diff := o.diff
	o.currentValidations = c.Validations
	o.candidate, o.candidateBundle, o.diff = nil, nil, nil
	o.refreshView()

	o.mut.SetUpdateAvailable(false)
	o.mut.SetCandidateAvailable(false)
	o.mut.SetOutdatedVersion("")
	o.mut.SetOutdatedBundleInformation("")
	o.mut.SetChangesInNewVersion(nil)
	return diff, nil
}

// ─── Reload / Restart ───

// Reload promueve el candidato (si hay) y lo aplica en caliente. Sin candidato vuelve
// a aplicar el bundle vigente. Con async el apply corre en background y se devuelve
// true apenas arranca. Si no recarga, reason explica por qué.
func (o *Orchestrator) Reload(ctx context.Context, async bool) (bool, string, error) {
	return o.reload(ctx, async, false, false)
}

// ForceReload es Reload síncrono que ignora si el bundle es recargable en caliente.
func (o *Orchestrator) ForceReload(ctx context.Context) (bool, string, error) {
	return o.reload(ctx, false, true, false)
}

func (o *Orchestrator) reload(ctx context.Context, async, force, automatic bool) (bool, string, error) {
	if !o.reloading.CompareAndSwap(false, true) {
		return false, ReasonReloadInProgress, nil
	}
	handedOff := false
	defer func() {
		if !handedOff {
			o.reloading.Store(false)
		}
	}()

	if o.timing.AutomaticReload && !automatic {
		return false, ReasonAutomaticReload, nil
	}

	b, diff, reason, err := o.prepareReload(ctx, force)
	if err != nil || reason != "" {
		return false, reason, err
	}

	handedOff = true
	if async {
		go func() { _ = o.runApply(context.WithoutCancel(ctx), b, diff) }()
		return true, "", nil
	}
	if err := o.runApply(ctx, b, diff); err != nil {
		return false, ReasonReloadFailed, nil
	}
	return true, "", nil
}

func (o *Orchestrator) prepareReload(ctx context.Context, force bool) (*bundle.Bundle, *compare.Result, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var diff *compare.Result
	if o.pendingLocked() {
		if o.candidate.Invalid {
			return nil, nil, "", ErrValidationRejected
		}
		if !force && !o.hotReloadable(o.candidateBundle, o.diff) {
			return nil, nil, ReasonNotHotReloadable, nil
		}
		d, err := o.promoteLocked(ctx)
		if err != nil {
			return nil, nil, ReasonNotPromoted, nil
		}
		diff = d
	}
	b, err := o.source.LoadCurrent(ctx)
	if err != nil {
		o.log.Error("cannot load current bundle for reload", logger.Err(err))
		return nil, nil, ReasonReloadFailed, nil
	}
	return b, diff, "", nil
}

// runApply aplica b. Libera el flag de reload al terminar.
func (o *Orchestrator) runApply(ctx context.Context, b *bundle.Bundle, diff *compare.Result) (err error) {
	start := time.Now()
	o.setPhase(PhaseReloading)
	o.mut.SetCurrentlyReloading(true)
	o.mut.SetErrorInReload(false)
	o.mut.SetShowSuccessfulInstallMonitor(false)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lifecycle: reload panicked: %v", r)
		}
		if err != nil {
			o.log.Error("bundle reload failed", logger.BundlePath(b.Path()), logger.Err(err),
				logger.Duration(time.Since(start)))
			o.mut.SetErrorInReload(true)
			o.setPhase(PhaseReloadError)
			metrics.BundleReloads.WithLabelValues("reload", "error").Inc()
		} else {
			o.log.Info("bundle reloaded", logger.BundlePath(b.Path()), logger.Duration(time.Since(start)))
			o.mut.SetShowSuccessfulInstallMonitor(true)
			o.setPhase(PhaseReloadOK)
			metrics.BundleReloads.WithLabelValues("reload", "ok").Inc()
		}
		o.mut.SetCurrentlyReloading(false)
		o.setPhase(PhaseIdle)
		o.reloading.Store(false)
	}()

	return o.applier.Reload(ctx, b, diff)
}

// Restart promueve el candidato válido (si hay) y pide un restart.
func (o *Orchestrator) Restart(ctx context.Context) error {
	if o.reloading.Load() {
		return illegal("restart", "a reload is in progress")
	}
	o.mu.Lock()
	if o.pendingLocked() {
		if o.candidate.Invalid {
			o.mu.Unlock()
			return ErrValidationRejected
		}
		if _, err := o.promoteLocked(ctx); err != nil {
			o.mu.Unlock()
			return err
		}
	}
	o.restartScheduled.Store(true)
	o.setPhase(PhaseIdle)
	o.mu.Unlock()

	if err := o.applier.Restart(ctx); err != nil {
		o.restartScheduled.Store(false)
		metrics.BundleReloads.WithLabelValues("restart", "error").Inc()
		o.log.Error("restart failed", logger.Err(err))
		return err
	}
	metrics.BundleReloads.WithLabelValues("restart", "ok").Inc()
	o.log.Info("restart requested")
	return nil
}

// ─── Skip ───

// Skip omite el candidato pendiente. El bundle aplicado no cambia.
func (o *Orchestrator) Skip(ctx context.Context) error {
	if !o.timing.CanSkip {
		return illegal("skip", "skipping new versions is disabled")
	}
	return o.skip(ctx)
}

func (o *Orchestrator) skip(_ context.Context) error {
	if err := o.skipBlocked(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	// Un reload o restart pudo empezar mientras esperábamos mu.
	if err := o.skipBlocked(); err != nil {
		return err
	}

	c := o.candidate
	switch {
	case c == nil || c.Promoted:
		return illegal("skip", "there is no new version to skip")
	case c.Skipped:
		return illegal("skip", "the new version was already skipped")
	}
	if _, err := o.clog.MarkSkipped(c.Folder); err != nil {
		return err
	}
	c.Skipped = true
	o.diff = nil
	o.refreshView()

	o.mut.SetUpdateAvailable(false)
	o.mut.SetCandidateAvailable(false)
	o.mut.SetOutdatedVersion("")
	o.mut.SetOutdatedBundleInformation("")
	o.mut.SetChangesInNewVersion(nil)

	o.setPhase(PhaseSkipped)
	o.setPhase(PhaseIdle)
	o.log.Info("new bundle version skipped", logger.Folder(c.Folder), logger.BundleVersion(c.Version.Version))
	return nil
}

func (o *Orchestrator) skipBlocked() error {
	if o.restartScheduled.Load() {
		return illegal("skip", "a restart is scheduled")
	}
	if o.reloading.Load() {
		return illegal("skip", "a reload is in progress")
	}
	return nil
}

// ─── Consultas ───

// Phase devuelve la fase local.
func (o *Orchestrator) Phase() Phase {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	if !CanTransition(o.phase, p) {
		o.log.Warn("unexpected lifecycle transition", logger.Phase(string(o.phase)), logger.String("to", string(p)))
	}
	o.phase = p
}

// IsReloading reporta si hay un reload en curso en esta réplica.
func (o *Orchestrator) IsReloading() bool { return o.reloading.Load() }

// GetDiff devuelve el diff entre el bundle aplicado y el candidato, o nil.
func (o *Orchestrator) GetDiff() *compare.Result { return o.state.ChangesInNewVersion() }

// Candidate devuelve una copia del último candidato conocido, o nil.
func (o *Orchestrator) Candidate() *updatelog.Candidate {
	v := o.view.Load()
	if v == nil || v.candidate == nil {
		return nil
	}
	cp := *v.candidate
	return &cp
}

// Status es la vista completa del ciclo en esta réplica.
type Status struct {
	status.Snapshot
	Phase      Phase                `json:"phase"`
	UpdateType UpdateType           `json:"updateType"`
	Candidate  *updatelog.Candidate `json:"candidate,omitempty"`
}

// GetStatus devuelve el estado replicado junto con la fase y el candidato locales.
func (o *Orchestrator) GetStatus() Status {
	return Status{
		Snapshot:   o.state.Snapshot(),
		Phase:      o.Phase(),
		UpdateType: o.UpdateType(),
		Candidate:  o.Candidate(),
	}
}

// UpdateLog devuelve el reporte del update log.
func (o *Orchestrator) UpdateLog() (updatelog.Report, error) { return o.clog.Report() }

// UpdateType devuelve la acción disponible para la versión nueva.
func (o *Orchestrator) UpdateType() UpdateType {
	t := o.timing
	if t.AutomaticReload && o.state.IsCurrentlyReloading() {
		return UpdateAutomaticReload
	}
	v := o.view.Load()
	if v == nil || v.candidate == nil || v.candidate.Promoted {
		switch {
		case o.restartScheduled.Load() && t.AutomaticRestart:
			return UpdateAutomaticRestart
		case o.restartScheduled.Load():
			return UpdateRestart
		case t.AutomaticReload:
			return UpdateAutomaticReload
		case t.AutomaticRestart:
			return UpdateAutomaticRestart
		}
		return UpdateUnknown
	}
	c := v.candidate
	switch {
	case c.Skipped || t.SkipNewVersions:
		return UpdateSkipped
	case c.Invalid:
		return UpdateUnknown
	case t.AutomaticReload && v.hotReloadable:
		return UpdateAutomaticReload
	case t.AutomaticRestart:
		return UpdateAutomaticRestart
	case t.CanSkip && v.hotReloadable && !t.AutomaticReload:
		return UpdateReloadOrSkip
	case t.CanSkip:
		return UpdateRestartOrSkip
	case v.hotReloadable && !t.AutomaticReload:
		return UpdateReload
	}
	return UpdateRestart
}
