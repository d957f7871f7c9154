package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BUNDLEKEEPER_URL", srv.URL)
	t.Setenv("BUNDLEKEEPER_KEY", "secret")
	t.Setenv("BUNDLEKEEPER_OUT", "text")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusRendersTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bundle/status", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Admin-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"phase":"PROMOTABLE","updateType":"RELOAD/RESTART/SKIP","updateAvailable":true,"candidateAvailable":true,"outdatedVersion":"1"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "PROMOTABLE")
	assert.Contains(t, out, "RELOAD/RESTART/SKIP")
}

func TestCheckNoUpdateUsesGET(t *testing.T) {
	var method, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, query = r.Method, r.URL.RawQuery
		_, _ = w.Write([]byte(`{"update-available":false,"versions":{"current-bundle":{"version":"3","validations":[]}}}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "check", "--no-update", "--quiet")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "quiet=true", query)
	assert.Contains(t, out, "update available: false")
}

func TestReloadConflictReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "async=true", r.URL.RawQuery)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"RELOAD_REFUSED","message":"reload refused","detail":"A reload is already in progress"}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, srv, "reload", "--async")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELOAD_REFUSED")
	assert.Contains(t, err.Error(), "status=409")
}

func TestUpdateLogDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"update-log-status":"DISABLED"}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "update-log")
	require.NoError(t, err)
	assert.Contains(t, out, "update log disabled")
}

func TestInvalidOutFormat(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := runCLI(t, srv, "status", "--out", "yaml")
	require.Error(t, err)
}

func TestValidateSendsPathAndRendersMessages(t *testing.T) {
	var req map[string]string
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/bundle/validate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		query = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"path":"/srv/b","valid":false,"validation-messages":["ERROR - [FILES] - file a.yaml declared in section jcasc cannot be read"]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "validate", "/srv/b", "--quiet")
	require.Error(t, err, "an invalid bundle exits non-zero")
	assert.Equal(t, "/srv/b", req["path"])
	assert.Equal(t, "quiet=true", query)
	assert.Contains(t, out, "valid: false")
	assert.Contains(t, out, "FILES")
	assert.Contains(t, out, "a.yaml declared in section jcasc")
}

func TestValidateValidBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"path":"/srv/b","valid":true,"validation-messages":[]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "validate", "/srv/b")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: true")

	_, err = runCLI(t, srv, "validate")
	require.Error(t, err, "path argument is required")
}

func TestValidationsRendersTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/bundle/validations", r.URL.Path)
		_, _ = w.Write([]byte(`{"validations":[{"name":"descriptor","codes":["DESCRIPTOR"]},{"name":"catalog","codes":["CATALOG"]}]}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "validations")
	require.NoError(t, err)
	assert.Contains(t, out, "descriptor")
	assert.Contains(t, out, "DESCRIPTOR")
	assert.Contains(t, out, "CATALOG")
}
