package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreResponder(t *testing.T) {
	t.Helper()
	original := httpErrorResponder
	t.Cleanup(func() { httpErrorResponder = original })
}

func TestRespondWithError_DefaultEnvelope(t *testing.T) {
	restoreResponder(t)
	ResetHTTPErrorResponder()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/status", nil)
	respondWithError(rec, req, errors.New("systemctl probe failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeResponse(t, rec, &resp)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "systemctl probe failed", resp.Error.Message)
}

func TestSetHTTPErrorResponder_Custom(t *testing.T) {
	restoreResponder(t)

	var captured error
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		captured = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	respondWithError(rec, httptest.NewRequest("GET", "/api/instances", nil), assert.AnError)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, assert.AnError, captured)
}

func TestSetHTTPErrorResponder_NilRestoresDefault(t *testing.T) {
	restoreResponder(t)

	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	})
	SetHTTPErrorResponder(nil)

	rec := httptest.NewRecorder()
	respondWithError(rec, httptest.NewRequest("GET", "/", nil), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResetHTTPErrorResponder(t *testing.T) {
	restoreResponder(t)

	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
	})
	ResetHTTPErrorResponder()

	rec := httptest.NewRecorder()
	respondWithError(rec, httptest.NewRequest("GET", "/", nil), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
