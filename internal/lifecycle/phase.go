package lifecycle

// Phase es la fase del ciclo de actualización en esta réplica.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseChecking         Phase = "CHECKING"
	PhaseNoUpdate         Phase = "NO_UPDATE"
	PhaseUpdateFound      Phase = "UPDATE_FOUND"
	PhaseValidating       Phase = "VALIDATING"
	PhaseCandidateValid   Phase = "CANDIDATE_VALID"
	PhaseCandidateInvalid Phase = "CANDIDATE_INVALID"
	PhasePromotable       Phase = "PROMOTABLE"
	PhaseReloading        Phase = "RELOADING"
	PhaseReloadOK         Phase = "RELOAD_OK"
	PhaseReloadError      Phase = "RELOAD_ERROR"
	PhaseSkipped          Phase = "SKIPPED"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:             {PhaseChecking, PhaseReloading, PhaseSkipped},
	PhaseChecking:         {PhaseNoUpdate, PhaseUpdateFound, PhaseIdle, PhasePromotable},
	PhaseNoUpdate:         {PhaseIdle},
	PhaseUpdateFound:      {PhaseValidating, PhaseSkipped, PhaseIdle},
	PhaseValidating:       {PhaseCandidateValid, PhaseCandidateInvalid, PhaseIdle},
	PhaseCandidateValid:   {PhasePromotable, PhaseSkipped},
	PhaseCandidateInvalid: {PhaseIdle},
	PhasePromotable:       {PhaseChecking, PhaseReloading, PhaseSkipped, PhaseIdle},
	PhaseReloading:        {PhaseReloadOK, PhaseReloadError},
	PhaseReloadOK:         {PhaseIdle},
	PhaseReloadError:      {PhaseIdle},
	PhaseSkipped:          {PhaseIdle},
}

// CanTransition reporta si from → to está permitido.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
