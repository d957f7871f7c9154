package status

import "time"

// Mutator son los setters del estado. Todos sobrescriben un campo, por lo que
// reaplicarlos es idempotente.
type Mutator interface {
	SetUpdateAvailable(v bool)
	SetCandidateAvailable(v bool)
	SetLastCheckForUpdate(t time.Time)
	SetOutdatedVersion(v string)
	SetOutdatedBundleInformation(info string)
	SetOutdatedBundle(id, version, checksum string)
	SetErrorInNewVersion(v bool)
	SetErrorMessage(msg string)
	SetChangesInNewVersion(ref *DiffRef)
	SetCurrentlyReloading(v bool)
	SetErrorInReload(v bool)
	SetShowSuccessfulInstallMonitor(v bool)
}

var _ Mutator = (*State)(nil)
var _ Mutator = (*Replicated)(nil)
