package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itamcore/gateway/internal/routing"
)

func TestRoutesList(t *testing.T) {
	table, err := routing.NewTable(map[string]string{
		"equipment": "http://equipment-service:8001",
		"reports":   "http://report-service:8004",
	})
	require.NoError(t, err)

	h := NewRoutesHandler(table)

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int `json:"count"`
		Routes []struct {
			Service string `json:"service"`
			BaseURL string `json:"base_url"`
		} `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Routes, 2)
	assert.Equal(t, "equipment", body.Routes[0].Service)
	assert.Equal(t, "http://equipment-service:8001", body.Routes[0].BaseURL)
	assert.Equal(t, "reports", body.Routes[1].Service)
}
