package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
)

func TestFromErrorMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&lifecycle.IllegalStateError{Op: "skip", Reason: "nothing to skip"}, http.StatusConflict, "ILLEGAL_STATE"},
		{fmt.Errorf("reload: %w", lifecycle.ErrValidationRejected), http.StatusUnprocessableEntity, "VALIDATION_REJECTED"},
		{&bundle.NotFoundError{Path: "/b"}, http.StatusNotFound, "NOT_FOUND"},
		{updatelog.ErrNoCandidate, http.StatusNotFound, "NOT_FOUND"},
		{context.Canceled, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.status, got.HTTPStatus, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
}

func TestWithDetailCopies(t *testing.T) {
	e := ErrConflict.WithDetail("x")
	assert.Equal(t, "x", e.Detail)
	assert.Empty(t, ErrConflict.Detail)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, &lifecycle.IllegalStateError{Op: "skip", Reason: "already skipped"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ILLEGAL_STATE", body["code"])
	assert.Equal(t, "already skipped", body["detail"])
}
