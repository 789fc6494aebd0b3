package handler

import (
	"encoding/json"
	"net/http"

	"github.com/itamcore/gateway/internal/routing"
)

// RoutesHandler exposes the resolved routing table for operators. The table
// is immutable for the process lifetime, so this is read-only.
type RoutesHandler struct {
	table *routing.Table
}

// NewRoutesHandler creates a new routes handler
func NewRoutesHandler(table *routing.Table) *RoutesHandler {
	return &RoutesHandler{table: table}
}

// List returns all configured service routes
func (h *RoutesHandler) List(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"count":  h.table.Len(),
		"routes": h.table.Routes(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
