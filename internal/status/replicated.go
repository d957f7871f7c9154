package status

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/replication"
)

// Invoker difunde una llamada ya aplicada localmente.
type Invoker interface {
	Invoke(target, method string, args ...any) error
}

// Replicated envuelve un Mutator: cada setter se aplica primero en local y luego se
// difunde. Si el setter local hace panic no se difunde nada.
type Replicated struct {
	local Mutator
	inv   Invoker
	log   *zap.Logger
}

// NewReplicated crea el forwarding type sobre local.
func NewReplicated(local Mutator, inv Invoker, log *zap.Logger) *Replicated {
	return &Replicated{local: local, inv: inv, log: logger.OrDefault(log, "status.replicated")}
}

func (r *Replicated) publish(method string, args ...any) {
	if r.inv == nil {
		return
	}
	if err := r.inv.Invoke(Target, method, args...); err != nil {
		lvl := r.log.Warn
		if errors.Is(err, replication.ErrClosed) {
			lvl = r.log.Debug
		}
		lvl("state change not replicated", logger.Method(method), logger.Err(err))
	}
}

func (r *Replicated) SetUpdateAvailable(v bool) {
	r.local.SetUpdateAvailable(v)
	r.publish("SetUpdateAvailable", v)
}

func (r *Replicated) SetCandidateAvailable(v bool) {
	r.local.SetCandidateAvailable(v)
	r.publish("SetCandidateAvailable", v)
}

func (r *Replicated) SetLastCheckForUpdate(t time.Time) {
	r.local.SetLastCheckForUpdate(t)
	r.publish("SetLastCheckForUpdate", t)
}

func (r *Replicated) SetOutdatedVersion(v string) {
	r.local.SetOutdatedVersion(v)
	r.publish("SetOutdatedVersion", v)
}

func (r *Replicated) SetOutdatedBundleInformation(info string) {
	r.local.SetOutdatedBundleInformation(info)
	r.publish("SetOutdatedBundleInformation", info)
}

func (r *Replicated) SetOutdatedBundle(id, version, checksum string) {
	r.local.SetOutdatedBundle(id, version, checksum)
	r.publish("SetOutdatedBundle", id, version, checksum)
}

func (r *Replicated) SetErrorInNewVersion(v bool) {
	r.local.SetErrorInNewVersion(v)
	r.publish("SetErrorInNewVersion", v)
}

func (r *Replicated) SetErrorMessage(msg string) {
	r.local.SetErrorMessage(msg)
	r.publish("SetErrorMessage", msg)
}

func (r *Replicated) SetChangesInNewVersion(ref *DiffRef) {
	r.local.SetChangesInNewVersion(ref)
	r.publish("SetChangesInNewVersion", ref)
}

func (r *Replicated) SetCurrentlyReloading(v bool) {
	r.local.SetCurrentlyReloading(v)
	r.publish("SetCurrentlyReloading", v)
}

func (r *Replicated) SetErrorInReload(v bool) {
	r.local.SetErrorInReload(v)
	r.publish("SetErrorInReload", v)
}

func (r *Replicated) SetShowSuccessfulInstallMonitor(v bool) {
	r.local.SetShowSuccessfulInstallMonitor(v)
	r.publish("SetShowSuccessfulInstallMonitor", v)
}

// RegisterHandlers expone los setters de m a las llamadas remotas.
func RegisterHandlers(reg *replication.Registry, m Mutator) {
	replication.Bind1(reg, Target, "SetUpdateAvailable", m.SetUpdateAvailable)
	replication.Bind1(reg, Target, "SetCandidateAvailable", m.SetCandidateAvailable)
	replication.Bind1(reg, Target, "SetLastCheckForUpdate", m.SetLastCheckForUpdate)
	replication.Bind1(reg, Target, "SetOutdatedVersion", m.SetOutdatedVersion)
	replication.Bind1(reg, Target, "SetOutdatedBundleInformation", m.SetOutdatedBundleInformation)
	replication.Bind3(reg, Target, "SetOutdatedBundle", m.SetOutdatedBundle)
	replication.Bind1(reg, Target, "SetErrorInNewVersion", m.SetErrorInNewVersion)
	replication.Bind1(reg, Target, "SetErrorMessage", m.SetErrorMessage)
	replication.Bind1(reg, Target, "SetChangesInNewVersion", m.SetChangesInNewVersion)
	replication.Bind1(reg, Target, "SetCurrentlyReloading", m.SetCurrentlyReloading)
	replication.Bind1(reg, Target, "SetErrorInReload", m.SetErrorInReload)
	replication.Bind1(reg, Target, "SetShowSuccessfulInstallMonitor", m.SetShowSuccessfulInstallMonitor)
}
