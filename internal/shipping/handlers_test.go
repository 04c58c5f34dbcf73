package shipping

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetHandlerRendersNumbers(t *testing.T) {
	svc, _ := newService(t)
	h := &Handler{Svc: svc}

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/shipping/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 40.0, body["standardShippingCost"])
	require.Equal(t, 500.0, body["freeShippingThreshold"])
	require.Equal(t, 0.18, body["taxRate"])
	require.Equal(t, true, body["freeShippingEnabled"])
	require.Equal(t, false, body["expressShippingEnabled"])
}

func TestUpdateHandlerPartialBody(t *testing.T) {
	svc, _ := newService(t)
	h := &Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodPut, "/shipping/config", strings.NewReader(`{"taxRate":0.05,"expressShippingEnabled":true}`))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 0.05, body["taxRate"])
	require.Equal(t, true, body["expressShippingEnabled"])
	require.Equal(t, 40.0, body["standardShippingCost"])
}

func TestUpdateHandlerValidation(t *testing.T) {
	svc, _ := newService(t)
	h := &Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodPut, "/shipping/config", strings.NewReader(`{"taxRate":2}`))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"VALIDATION"`)
}

func TestUpdateHandlerRejectsTaxRateBeyondFourPlaces(t *testing.T) {
	svc, store := newService(t)
	h := &Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodPut, "/shipping/config", strings.NewReader(`{"taxRate":0.12345}`))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"VALIDATION"`)
	require.Contains(t, rec.Body.String(), "decimal places")
	require.Nil(t, store.cfg)
}

func TestUpdateHandlerKeepsExactTaxRate(t *testing.T) {
	svc, _ := newService(t)
	h := &Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodPut, "/shipping/config", strings.NewReader(`{"taxRate":"0.1825"}`))
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"taxRate":0.1825`)

	req = httptest.NewRequest(http.MethodPut, "/shipping/config", strings.NewReader(`{"taxRate":0.12000}`))
	rec = httptest.NewRecorder()
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"taxRate":0.12`)
}
