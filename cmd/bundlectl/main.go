package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	bundleapi "github.com/dropDatabas3/bundlekeeper/internal/http/controllers/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
)

const apiBase = "/v1/bundle"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cl := &client{
		BaseURL:   envOr("BUNDLEKEEPER_URL", "http://localhost:8080"),
		APIKey:    envOr("BUNDLEKEEPER_KEY", ""),
		OutFormat: envOr("BUNDLEKEEPER_OUT", "text"),
	}
	timeout := 30 * time.Second

	root := &cobra.Command{
		Use:           "bundlectl",
		Short:         "CLI para operar bundled (vía /v1/bundle)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cl.OutFormat != "json" && cl.OutFormat != "text" {
				return fmt.Errorf("--out inválido %q (json|text)", cl.OutFormat)
			}
			cl.HTTP = &http.Client{Timeout: timeout}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base de bundled (env BUNDLEKEEPER_URL)")
	root.PersistentFlags().StringVar(&cl.APIKey, "api-key", cl.APIKey, "API key de admin (env BUNDLEKEEPER_KEY)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text (env BUNDLEKEEPER_OUT)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Timeout por request")

	root.AddCommand(
		statusCmd(cl),
		checkCmd(cl),
		diffCmd(cl),
		skipCmd(cl),
		reloadCmd(cl),
		forceReloadCmd(cl),
		restartCmd(cl),
		reloadRunningCmd(cl),
		updateLogCmd(cl),
		validateCmd(cl),
		validationsCmd(cl),
	)
	return root
}

func statusCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Estado del ciclo de actualización",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s lifecycle.Status
			body, err := cl.call(http.MethodGet, apiBase+"/status", &s)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
				return nil
			}
			renderStatus(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func checkCmd(cl *client) *cobra.Command {
	var quiet, noUpdate bool
	c := &cobra.Command{
		Use:   "check",
		Short: "Busca un bundle nuevo y reporta ambas versiones",
		RunE: func(cmd *cobra.Command, args []string) error {
			method := http.MethodPost
			if noUpdate {
				method = http.MethodGet
			}
			var r lifecycle.CheckReport
			body, err := cl.call(method, fmt.Sprintf("%s/check?quiet=%t", apiBase, quiet), &r)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
				return nil
			}
			renderCheck(cmd.OutOrStdout(), r)
			return nil
		},
	}
	c.Flags().BoolVar(&quiet, "quiet", false, "Omitir validaciones INFO")
	c.Flags().BoolVar(&noUpdate, "no-update", false, "Solo reportar, sin buscar versión nueva")
	return c
}

func diffCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Diferencias entre el bundle actual y el candidato",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s compare.Summary
			body, err := cl.call(http.MethodGet, apiBase+"/diff", &s)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
				return nil
			}
			renderDiff(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

// simpleCmd arma un comando POST/GET cuya respuesta es un objeto chico.
func simpleCmd(cl *client, use, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call(method, apiBase+path, nil)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), body)
			return nil
		},
	}
}

func skipCmd(cl *client) *cobra.Command {
	return simpleCmd(cl, "skip", "Omitir el candidato actual", http.MethodPost, "/skip")
}

func reloadCmd(cl *client) *cobra.Command {
	var async bool
	c := &cobra.Command{
		Use:   "reload",
		Short: "Promover y recargar el candidato en caliente",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.call(http.MethodPost, fmt.Sprintf("%s/reload?async=%t", apiBase, async), nil)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), body)
			return nil
		},
	}
	c.Flags().BoolVar(&async, "async", false, "No esperar a que termine el reload")
	return c
}

func forceReloadCmd(cl *client) *cobra.Command {
	return simpleCmd(cl, "force-reload", "Recargar aunque el bundle no admita reload en caliente", http.MethodPost, "/force-reload")
}

func restartCmd(cl *client) *cobra.Command {
	return simpleCmd(cl, "restart", "Promover el candidato y reiniciar la instancia", http.MethodPost, "/restart")
}

func reloadRunningCmd(cl *client) *cobra.Command {
	return simpleCmd(cl, "reload-running", "Indica si hay un reload en curso", http.MethodGet, "/reload-running")
}

func updateLogCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "update-log",
		Short: "Historial de candidatos",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r updatelog.Report
			body, err := cl.call(http.MethodGet, apiBase+"/update-log", &r)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
				return nil
			}
			renderUpdateLog(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func validateCmd(cl *client) *cobra.Command {
	var quiet bool
	c := &cobra.Command{
		Use:   "validate <bundle-dir>",
		Short: "Validar un bundle en disco del servidor sin registrarlo como candidato",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			var r bundleapi.ValidateResponse
			body, err := cl.send(http.MethodPost, fmt.Sprintf("%s/validate?quiet=%t", apiBase, quiet),
				bundleapi.ValidateRequest{Path: path}, &r)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
			} else {
				renderValidate(cmd.OutOrStdout(), r)
			}
			if !r.Valid {
				return fmt.Errorf("bundle %s no es válido", r.Path)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&quiet, "quiet", false, "Omitir validaciones INFO")
	return c
}

func validationsCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "validations",
		Short: "Validadores disponibles y sus códigos",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r bundleapi.ValidationsResponse
			body, err := cl.call(http.MethodGet, apiBase+"/validations", &r)
			if err != nil {
				return err
			}
			if cl.OutFormat == "json" {
				printJSON(cmd.OutOrStdout(), body)
				return nil
			}
			renderValidations(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
