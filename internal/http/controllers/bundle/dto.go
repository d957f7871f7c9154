package bundle

import "github.com/dropDatabas3/bundlekeeper/internal/validation"

type SkipResponse struct {
	Skipped bool `json:"skipped"`
}

type ReloadResponse struct {
	Reloaded bool `json:"reloaded"`
	Async    bool `json:"async,omitempty"`
}

type RestartResponse struct {
	Scheduled bool `json:"scheduled"`
}

type ReloadRunningResponse struct {
	Running bool `json:"running"`
}

type ValidateRequest struct {
	Path string `json:"path"`
}

type ValidateResponse struct {
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Messages []string `json:"validation-messages"`
}

type ValidationsResponse struct {
	Validations []validation.Description `json:"validations"`
}
