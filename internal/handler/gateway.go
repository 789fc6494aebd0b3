package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/itamcore/gateway/internal/domain"
	gwerrors "github.com/itamcore/gateway/internal/errors"
	"github.com/itamcore/gateway/internal/proxy"
	"github.com/itamcore/gateway/internal/routing"
	"github.com/itamcore/gateway/pkg/logger"
)

// GatewayHandler intercepts inbound requests, resolves the target backend
// from the routing table and relays the dispatcher's result. Requests whose
// first path segment matches no configured service fall through to the
// fallback handler unmodified.
type GatewayHandler struct {
	table      *routing.Table
	dispatcher *proxy.Dispatcher
	fallback   http.Handler
	logger     *logger.Logger
}

// NewGatewayHandler creates a new gateway handler. A nil fallback defaults
// to the standard 404 handler.
func NewGatewayHandler(
	table *routing.Table,
	dispatcher *proxy.Dispatcher,
	fallback http.Handler,
	log *logger.Logger,
) *GatewayHandler {
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}

	return &GatewayHandler{
		table:      table,
		dispatcher: dispatcher,
		fallback:   fallback,
		logger:     log,
	}
}

// ServeHTTP handles incoming HTTP requests
func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := h.table.Resolve(r.URL.Path)
	if !ok {
		// Not a gateway route; not an error either.
		h.fallback.ServeHTTP(w, r)
		return
	}

	requestCtx, ok := domain.RequestContextFrom(r.Context())
	if !ok {
		requestCtx = domain.NewRequestContext(r)
	}
	requestCtx.Service = route.Service

	log := h.logger.RequestLogger(
		requestCtx.RequestID,
		requestCtx.Method,
		requestCtx.Path,
		requestCtx.RemoteAddr,
	).WithField("service", route.Service)

	result, err := h.dispatcher.Dispatch(r, route)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	h.writeResult(w, log, result)
}

// writeResult relays a classified backend response to the original caller.
// The status code is relayed unchanged; hop-by-hop headers were already
// stripped by the dispatcher.
func (h *GatewayHandler) writeResult(w http.ResponseWriter, log *logger.Logger, result *proxy.Result) {
	for key, values := range result.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	switch result.Kind {
	case proxy.ResultStructuredJSON:
		body, err := json.Marshal(result.JSON)
		if err != nil {
			h.writeError(w, log, gwerrors.NewErrorWithCause(
				gwerrors.ErrCodeInternalError, "failed to encode response", err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.StatusCode)
		if _, err := w.Write(body); err != nil {
			log.WithError(err).Debug("Failed to write response body")
		}

	case proxy.ResultOpaqueBytes:
		w.Header().Set("Content-Type", result.MediaType)
		w.WriteHeader(result.StatusCode)
		if _, err := w.Write(result.Body); err != nil {
			log.WithError(err).Debug("Failed to write response body")
		}
	}
}

// errorResponse is the wire shape of a gateway-originated error
type errorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Service   string    `json:"service,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError translates an error into a wire-level status and body exactly
// once, at the dispatch boundary.
func (h *GatewayHandler) writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := gwerrors.GetHTTPStatusCode(err)

	resp := errorResponse{
		Code:      string(gwerrors.GetErrorCode(err)),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	var gwErr *gwerrors.GatewayError
	if errors.As(err, &gwErr) {
		resp.Message = gwErr.Message
		resp.Service = gwErr.Service
	}

	if status >= 500 {
		log.WithError(err).WithField("status_code", status).Error("Dispatch failed")
	} else {
		log.WithError(err).WithField("status_code", status).Warn("Dispatch rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		log.WithError(encodeErr).Debug("Failed to write error response")
	}
}
