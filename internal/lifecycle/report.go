package lifecycle

import (
	"context"

	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// VersionReport describe el bundle aplicado.
type VersionReport struct {
	Version     string   `json:"version"`
	Validations []string `json:"validations"`
}

// NewVersionReport describe el candidato.
type NewVersionReport struct {
	Version     string   `json:"version"`
	Valid       bool     `json:"valid"`
	Validations []string `json:"validations"`
}

// Versions agrupa ambas versiones del reporte.
type Versions struct {
	Current VersionReport     `json:"current-bundle"`
	New     *NewVersionReport `json:"new-version,omitempty"`
}

// CheckReport es la respuesta de un chequeo de actualización para CLI y API.
type CheckReport struct {
	UpdateAvailable bool       `json:"update-available"`
	Versions        Versions   `json:"versions"`
	UpdateType      UpdateType `json:"update-type,omitempty"`
}

// UpdateCheckReport arma el reporte. Con update primero busca una versión nueva; con
// quiet las validaciones INFO se omiten.
func (o *Orchestrator) UpdateCheckReport(ctx context.Context, update, quiet bool) (CheckReport, error) {
	if update {
		if _, err := o.CheckForUpdate(ctx); err != nil {
			return CheckReport{}, err
		}
	}

	var rep CheckReport
	cur, err := o.source.LoadCurrent(ctx)
	if err != nil {
		return CheckReport{}, err
	}
	if v, err := cur.Version(); err == nil {
		rep.Versions.Current.Version = v.Info()
	}

	v := o.view.Load()
	rep.Versions.Current.Validations = []string{}
	if v != nil {
		rep.Versions.Current.Validations = validation.Messages(v.currentValidations, quiet)
	}

	rep.UpdateAvailable = o.state.IsUpdateAvailable()
	if v != nil && v.candidate != nil && !v.candidate.Promoted && !v.candidate.Skipped {
		c := v.candidate
		rep.Versions.New = &NewVersionReport{
			Version:     c.Version.Info(),
			Valid:       !c.Invalid,
			Validations: validation.Messages(c.Validations, quiet),
		}
	}
	if rep.UpdateAvailable {
		rep.UpdateType = o.UpdateType()
	}
	return rep, nil
}
