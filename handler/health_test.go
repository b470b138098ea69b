package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	h := NewHealthHandler(db, &fakePaymentService{})
	router := chi.NewRouter()
	router.Get("/health", h.Check)

	rec := doRequest(t, router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), "ecpay")
}

func TestHealthHandler_Check_NoDatabase(t *testing.T) {
	h := NewHealthHandler(nil, &fakePaymentService{})
	router := chi.NewRouter()
	router.Get("/health", h.Check)

	rec := doRequest(t, router, "GET", "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	router := chi.NewRouter()
	router.Get("/health/live", h.Liveness)

	rec := doRequest(t, router, "GET", "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
