package lifecycle

// Timing controla qué hace el orquestador cuando encuentra una versión nueva.
type Timing struct {
	// AutomaticReload recarga en caliente un candidato válido apenas se detecta.
	// Deshabilita el reload manual.
	AutomaticReload bool
	// AutomaticRestart reinicia con un candidato válido que no es recargable en caliente.
	AutomaticRestart bool
	// SkipNewVersions omite automáticamente toda versión nueva.
	SkipNewVersions bool
	// RejectWarnings invalida candidatos con WARNINGs.
	RejectWarnings bool
	// CanSkip permite a un operador omitir un candidato.
	CanSkip bool
}

// DefaultTiming: todo manual, skip permitido.
func DefaultTiming() Timing {
	return Timing{CanSkip: true}
}

// UpdateType es la acción disponible tras detectar una versión nueva.
type UpdateType string

const (
	UpdateRestart          UpdateType = "RESTART"
	UpdateReload           UpdateType = "RELOAD"
	UpdateAutomaticReload  UpdateType = "AUTOMATIC RELOAD"
	UpdateAutomaticRestart UpdateType = "AUTOMATIC RESTART"
	UpdateSkipped          UpdateType = "SKIPPED"
	UpdateReloadOrSkip     UpdateType = "RELOAD/RESTART/SKIP"
	UpdateRestartOrSkip    UpdateType = "RESTART/SKIP"
	UpdateUnknown          UpdateType = "UNKNOWN"
)

// Motivos devueltos por Reload cuando no recarga.
const (
	ReasonReloadInProgress = "A reload is already in progress, please wait for it to complete"
	ReasonAutomaticReload  = "Automatic reload configured. It's not possible to manually reload the bundle. If there is any issue, proceed with a restart"
	ReasonNotPromoted      = "Bundle could not be promoted. Proceed with a restart"
	ReasonNotHotReloadable = "Bundle is not hot reloadable"
	ReasonReloadFailed     = "Error while reloading the bundle. Please check the logs for further information."
)
