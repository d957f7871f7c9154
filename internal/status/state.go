// Package status es el registro mutable del ciclo de vida del bundle que se replica
// entre réplicas: disponibilidad de update y candidato, errores, reload en curso, y
// la referencia al diff contra la versión aplicada.
package status

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

// Target es la identidad del estado en los mensajes de replicación.
const Target = "bundle-lifecycle-status"

// DefaultErrorMessage se reporta cuando hay error en la nueva versión sin detalle.
const DefaultErrorMessage = "Please check the logs for further information."

// DiffRef referencia un diff por los paths de sus dos bundles. Es lo único que se
// replica del diff.
type DiffRef struct {
	Origin string `json:"origin"`
	Other  string `json:"other"`
}

// DiffResolver obtiene el resultado de comparación a partir de los paths.
type DiffResolver interface {
	Resolve(origin, other string) (*compare.Result, error)
}

// State es el registro de estado. Todas las lecturas y escrituras pasan por mu; ningún
// método hace I/O de red con mu tomado.
type State struct {
	mu sync.RWMutex

	updateAvailable              bool
	candidateAvailable           bool
	lastCheckForUpdate           time.Time
	outdatedVersion              string
	outdatedBundleInformation    string
	errorInNewVersion            bool
	errorMessage                 string
	diffRef                      *DiffRef
	comparison                   *compare.Result
	currentlyReloading           bool
	errorInReload                bool
	showSuccessfulInstallMonitor bool

	resolver DiffResolver
	log      *zap.Logger
}

// New crea el estado con todos los flags en false. resolver puede ser nil (sin diff).
func New(resolver DiffResolver, log *zap.Logger) *State {
	return &State{resolver: resolver, log: logger.OrDefault(log, "status")}
}

// ─── Getters ───

func (s *State) IsUpdateAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateAvailable
}

func (s *State) IsCandidateAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidateAvailable
}

func (s *State) LastCheckForUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCheckForUpdate
}

func (s *State) OutdatedVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outdatedVersion
}

func (s *State) OutdatedBundleInformation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outdatedBundleInformation
}

func (s *State) IsErrorInNewVersion() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorInNewVersion
}

// ErrorMessage devuelve "" si no hay error en la nueva versión, el mensaje registrado,
// o DefaultErrorMessage si el error no tiene texto.
func (s *State) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorMessageLocked()
}

func (s *State) errorMessageLocked() string {
	if !s.errorInNewVersion {
		return ""
	}
	if s.errorMessage == "" {
		return DefaultErrorMessage
	}
	return s.errorMessage
}

// ChangesInNewVersion devuelve el diff contra la versión nueva, o nil.
func (s *State) ChangesInNewVersion() *compare.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comparison
}

func (s *State) IsCurrentlyReloading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentlyReloading
}

func (s *State) IsErrorInReload() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorInReload
}

func (s *State) IsShowSuccessfulInstallMonitor() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showSuccessfulInstallMonitor
}

// ─── Setters ───

func (s *State) SetUpdateAvailable(v bool) {
	s.mu.Lock()
	s.updateAvailable = v
	s.mu.Unlock()
}

func (s *State) SetCandidateAvailable(v bool) {
	s.mu.Lock()
	s.candidateAvailable = v
	s.mu.Unlock()
}

func (s *State) SetLastCheckForUpdate(t time.Time) {
	s.mu.Lock()
	s.lastCheckForUpdate = t
	s.mu.Unlock()
}

func (s *State) SetOutdatedVersion(v string) {
	s.mu.Lock()
	s.outdatedVersion = v
	s.mu.Unlock()
}

func (s *State) SetOutdatedBundleInformation(info string) {
	s.mu.Lock()
	s.outdatedBundleInformation = info
	s.mu.Unlock()
}

// SetOutdatedBundle guarda la identidad del bundle que quedó desactualizado.
func (s *State) SetOutdatedBundle(id, version, checksum string) {
	info := bundle.Info(id, version, checksum)
	s.mu.Lock()
	s.outdatedBundleInformation = info
	s.mu.Unlock()
}

func (s *State) SetErrorInNewVersion(v bool) {
	s.mu.Lock()
	s.errorInNewVersion = v
	s.mu.Unlock()
}

func (s *State) SetErrorMessage(msg string) {
	s.mu.Lock()
	s.errorMessage = msg
	s.mu.Unlock()
}

// SetChangesInNewVersion guarda la referencia al diff y lo resuelve localmente; nil lo
// limpia. La resolución (lectura de disco) ocurre antes de tomar el mutex. Si no se
// puede resolver, se conserva la referencia sin resultado.
func (s *State) SetChangesInNewVersion(ref *DiffRef) {
	var res *compare.Result
	if ref != nil && s.resolver != nil {
		r, err := s.resolver.Resolve(ref.Origin, ref.Other)
		if err != nil {
			s.log.Warn("cannot resolve bundle comparison",
				logger.String("origin", ref.Origin), logger.String("other", ref.Other), logger.Err(err))
		} else {
			res = r
		}
	}
	s.mu.Lock()
	if ref == nil {
		s.diffRef = nil
	} else {
		cp := *ref
		s.diffRef = &cp
	}
	s.comparison = res
	s.mu.Unlock()
}

func (s *State) SetCurrentlyReloading(v bool) {
	s.mu.Lock()
	s.currentlyReloading = v
	s.mu.Unlock()
}

func (s *State) SetErrorInReload(v bool) {
	s.mu.Lock()
	s.errorInReload = v
	s.mu.Unlock()
}

func (s *State) SetShowSuccessfulInstallMonitor(v bool) {
	s.mu.Lock()
	s.showSuccessfulInstallMonitor = v
	s.mu.Unlock()
}

// ─── Snapshot ───

// Snapshot es una copia de solo lectura del estado, serializable.
type Snapshot struct {
	UpdateAvailable              bool       `json:"updateAvailable"`
	CandidateAvailable           bool       `json:"candidateAvailable"`
	LastCheckForUpdate           *time.Time `json:"lastCheckForUpdate,omitempty"`
	OutdatedVersion              string     `json:"outdatedVersion,omitempty"`
	OutdatedBundleInformation    string     `json:"outdatedBundleInformation,omitempty"`
	ErrorInNewVersion            bool       `json:"errorInNewVersion"`
	ErrorMessage                 string     `json:"errorMessage,omitempty"`
	ChangesInNewVersion          *DiffRef   `json:"changesInNewVersion,omitempty"`
	CurrentlyReloading           bool       `json:"currentlyReloading"`
	ErrorInReload                bool       `json:"errorInReload"`
	ShowSuccessfulInstallMonitor bool       `json:"showSuccessfulInstallMonitor"`
}

// Snapshot copia el estado bajo un único lock.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		UpdateAvailable:              s.updateAvailable,
		CandidateAvailable:           s.candidateAvailable,
		OutdatedVersion:              s.outdatedVersion,
		OutdatedBundleInformation:    s.outdatedBundleInformation,
		ErrorInNewVersion:            s.errorInNewVersion,
		ErrorMessage:                 s.errorMessageLocked(),
		CurrentlyReloading:           s.currentlyReloading,
		ErrorInReload:                s.errorInReload,
		ShowSuccessfulInstallMonitor: s.showSuccessfulInstallMonitor,
	}
	if !s.lastCheckForUpdate.IsZero() {
		t := s.lastCheckForUpdate
		snap.LastCheckForUpdate = &t
	}
	if s.diffRef != nil {
		ref := *s.diffRef
		snap.ChangesInNewVersion = &ref
	}
	return snap
}
