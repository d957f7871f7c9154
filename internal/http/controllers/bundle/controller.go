// Package bundle expone el ciclo de actualización del bundle por HTTP.
package bundle

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/http/errors"
	"github.com/dropDatabas3/bundlekeeper/internal/http/helpers"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// Service es lo que el controller necesita del orquestador.
type Service interface {
	GetStatus() lifecycle.Status
	UpdateCheckReport(ctx context.Context, update, quiet bool) (lifecycle.CheckReport, error)
	GetDiff() *compare.Result
	Skip(ctx context.Context) error
	Reload(ctx context.Context, async bool) (bool, string, error)
	ForceReload(ctx context.Context) (bool, string, error)
	Restart(ctx context.Context) error
	IsReloading() bool
	UpdateLog() (updatelog.Report, error)
}

var _ Service = (*lifecycle.Orchestrator)(nil)

// Validator valida bundles arbitrarios en disco, fuera del ciclo de actualización.
type Validator interface {
	Run(ctx context.Context, bundlePath string) ([]validation.Result, error)
	Describe() []validation.Description
}

var _ Validator = (*validation.Pipeline)(nil)

// Controller maneja /v1/bundle/*.
type Controller struct {
	svc       Service
	validator Validator
}

// NewController crea el controller. validator puede ser nil: las rutas de
// validación responden 503.
func NewController(svc Service, validator Validator) *Controller {
	return &Controller{svc: svc, validator: validator}
}

// Register monta las rutas. Se espera que r ya tenga la autenticación aplicada.
func (c *Controller) Register(r chi.Router) {
	r.Route("/v1/bundle", func(r chi.Router) {
		r.Get("/status", c.Status)
		r.Get("/check", c.Check)
		r.Post("/check", c.Check)
		r.Get("/diff", c.Diff)
		r.Post("/skip", c.Skip)
		r.Post("/reload", c.Reload)
		r.Post("/force-reload", c.ForceReload)
		r.Post("/restart", c.Restart)
		r.Get("/reload-running", c.ReloadRunning)
		r.Get("/update-log", c.UpdateLog)
		r.Post("/validate", c.Validate)
		r.Get("/validations", c.Validations)
	})
}

// Status maneja GET /v1/bundle/status.
func (c *Controller) Status(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.svc.GetStatus())
}

// Check maneja POST /v1/bundle/check (busca una versión nueva) y GET /v1/bundle/check
// (solo reporta). ?quiet=true omite las validaciones INFO.
func (c *Controller) Check(w http.ResponseWriter, r *http.Request) {
	quiet, ok := helpers.QueryBool(w, r, "quiet", false)
	if !ok {
		return
	}
	rep, err := c.svc.UpdateCheckReport(r.Context(), r.Method == http.MethodPost, quiet)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rep)
}

// Diff maneja GET /v1/bundle/diff.
func (c *Controller) Diff(w http.ResponseWriter, _ *http.Request) {
	diff := c.svc.GetDiff()
	if diff == nil {
		errors.WriteError(w, errors.ErrNotFound.WithDetail("there are no changes in a new version"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, diff.Summary())
}

// Skip maneja POST /v1/bundle/skip.
func (c *Controller) Skip(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Skip(r.Context()); err != nil {
		errors.WriteError(w, err)
		return
	}
	logger.From(r.Context()).Info("new bundle version skipped through the API")
	helpers.WriteJSON(w, http.StatusOK, SkipResponse{Skipped: true})
}

// Reload maneja POST /v1/bundle/reload. ?async=true responde 202 apenas arranca.
func (c *Controller) Reload(w http.ResponseWriter, r *http.Request) {
	async, ok := helpers.QueryBool(w, r, "async", false)
	if !ok {
		return
	}
	reloaded, reason, err := c.svc.Reload(r.Context(), async)
	c.writeReload(w, reloaded, async, reason, err)
}

// ForceReload maneja POST /v1/bundle/force-reload.
func (c *Controller) ForceReload(w http.ResponseWriter, r *http.Request) {
	reloaded, reason, err := c.svc.ForceReload(r.Context())
	c.writeReload(w, reloaded, false, reason, err)
}

func (c *Controller) writeReload(w http.ResponseWriter, reloaded, async bool, reason string, err error) {
	switch {
	case err != nil:
		errors.WriteError(w, err)
	case !reloaded:
		errors.WriteError(w, errors.ErrReloadRefused.WithDetail(reason))
	case async:
		helpers.WriteJSON(w, http.StatusAccepted, ReloadResponse{Reloaded: true, Async: true})
	default:
		helpers.WriteJSON(w, http.StatusOK, ReloadResponse{Reloaded: true})
	}
}

// Restart maneja POST /v1/bundle/restart.
func (c *Controller) Restart(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Restart(r.Context()); err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusAccepted, RestartResponse{Scheduled: true})
}

// ReloadRunning maneja GET /v1/bundle/reload-running.
func (c *Controller) ReloadRunning(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, ReloadRunningResponse{Running: c.svc.IsReloading()})
}

// UpdateLog maneja GET /v1/bundle/update-log.
func (c *Controller) UpdateLog(w http.ResponseWriter, _ *http.Request) {
	rep, err := c.svc.UpdateLog()
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rep)
}

// Validate maneja POST /v1/bundle/validate con {"path": "..."}: corre el pipeline
// sobre ese directorio sin registrarlo como candidato. ?quiet=true omite los INFO.
func (c *Controller) Validate(w http.ResponseWriter, r *http.Request) {
	if c.validator == nil {
		errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail("validation is not configured"))
		return
	}
	quiet, ok := helpers.QueryBool(w, r, "quiet", false)
	if !ok {
		return
	}
	var req ValidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("invalid JSON body"))
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("path is required"))
		return
	}
	path = filepath.Clean(path)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("path must be a bundle directory"))
		return
	}

	rs, err := c.validator.Run(r.Context(), path)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	logger.From(r.Context()).Info("bundle validated through the API", logger.BundlePath(path),
		logger.Bool("valid", !validation.HasErrors(rs)))
	helpers.WriteJSON(w, http.StatusOK, ValidateResponse{
		Path:     path,
		Valid:    !validation.HasErrors(rs),
		Messages: validation.Messages(rs, quiet),
	})
}

// Validations maneja GET /v1/bundle/validations.
func (c *Controller) Validations(w http.ResponseWriter, _ *http.Request) {
	if c.validator == nil {
		errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail("validation is not configured"))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ValidationsResponse{Validations: c.validator.Describe()})
}
