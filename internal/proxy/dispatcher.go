// Package proxy implements the gateway dispatcher: it forwards an in-scope
// request to the backend resolved from the routing table and classifies the
// backend's response for relay.
package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/itamcore/gateway/internal/config"
	gwerrors "github.com/itamcore/gateway/internal/errors"
	"github.com/itamcore/gateway/internal/metrics"
	"github.com/itamcore/gateway/internal/routing"
	"github.com/itamcore/gateway/pkg/logger"
)

// ResultKind discriminates the two variants of a classified backend response
type ResultKind int

const (
	// ResultStructuredJSON means the backend declared a JSON-family media
	// type and its body was decoded; the response writer re-encodes it.
	ResultStructuredJSON ResultKind = iota
	// ResultOpaqueBytes means the body is relayed byte-for-byte with the
	// original media type.
	ResultOpaqueBytes
)

// Result is the classified backend response. Exactly one of JSON or Body is
// meaningful, selected by Kind. Header is already stripped of hop-by-hop
// headers and safe to relay.
type Result struct {
	Kind       ResultKind
	StatusCode int
	Header     http.Header
	JSON       interface{}
	Body       []byte
	MediaType  string
}

// hopByHopHeaders must not be relayed across the proxy boundary: the local
// transport sets its own framing and encoding for the outbound hop.
// Content-Length is recomputed after JSON re-encoding.
var hopByHopHeaders = []string{
	"Content-Encoding",
	"Transfer-Encoding",
	"Connection",
	"Content-Length",
}

// Dispatcher forwards requests to backend services over a shared pooled
// client. It is stateless per call and safe for concurrent use.
type Dispatcher struct {
	client *http.Client
	logger *logger.Logger
	m      *metrics.Metrics
}

// NewDispatcher creates a dispatcher with a pooled outbound transport. The
// client lives for the process lifetime and is shared by all in-flight
// requests.
func NewDispatcher(upstream config.UpstreamConfig, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        upstream.MaxIdleConns,
				MaxIdleConnsPerHost: upstream.MaxIdleConnsPerHost,
				IdleConnTimeout:     upstream.IdleConnTimeout,
			},
		},
		logger: log.DispatcherLogger(),
		m:      m,
	}
}

// Close releases idle connections held by the outbound pool
func (d *Dispatcher) Close() {
	d.client.CloseIdleConnections()
}

// Dispatch performs exactly one outbound call for the given request: same
// method, full original path (the matched prefix is NOT stripped; backends
// declare the same path layout), query and body as received, with the Host
// header overwritten to the backend's own authority. Transport failures are
// translated into a ServiceUnavailable error naming the service; the raw
// transport error never crosses this boundary.
func (d *Dispatcher) Dispatch(r *http.Request, route routing.Route) (*Result, error) {
	target := route.BaseURL + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		// Raw query is appended verbatim: key order and repeated keys
		// reach the backend exactly as received.
		target += "?" + r.URL.RawQuery
	}

	log := d.logger.ServiceLogger(route.Service, target)

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, gwerrors.NewErrorWithCause(gwerrors.ErrCodeInvalidRequest,
			"failed to build upstream request", err)
	}
	req.Header = r.Header.Clone()
	req.Host = route.Host
	req.ContentLength = r.ContentLength

	start := time.Now()
	resp, err := d.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		log.WithError(err).WithField("duration_ms", duration.Milliseconds()).
			Warn("Upstream request failed")
		d.m.IncrementUpstreamError(route.Service, "transport")
		return nil, gwerrors.NewServiceUnavailableError(route.Service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Warn("Failed to read upstream response body")
		d.m.IncrementUpstreamError(route.Service, "transport")
		return nil, gwerrors.NewServiceUnavailableError(route.Service, err)
	}

	d.m.ObserveRequest(route.Service, r.Method, strconv.Itoa(resp.StatusCode), duration)

	log.WithField("status_code", resp.StatusCode).
		WithField("duration_ms", duration.Milliseconds()).
		Debug("Upstream request completed")

	return d.classify(route, resp, body)
}

// classify turns the raw backend response into the two-variant result that
// the response writer consumes uniformly.
func (d *Dispatcher) classify(route routing.Route, resp *http.Response, body []byte) (*Result, error) {
	header := resp.Header.Clone()
	for _, h := range hopByHopHeaders {
		header.Del(h)
	}

	result := &Result{
		StatusCode: resp.StatusCode,
		Header:     header,
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSONMediaType(contentType) {
		value, err := decodeJSON(body)
		if err != nil {
			d.m.IncrementUpstreamError(route.Service, "decode")
			return nil, gwerrors.NewBadUpstreamPayloadError(route.Service, err)
		}
		result.Kind = ResultStructuredJSON
		result.JSON = value
		return result, nil
	}

	result.Kind = ResultOpaqueBytes
	result.Body = body
	result.MediaType = contentType
	if result.MediaType == "" {
		result.MediaType = "application/octet-stream"
	}
	return result, nil
}

// decodeJSON decodes a backend body into a structured value. Numbers are
// kept as json.Number so integer literals beyond float64 precision survive
// the re-encode unchanged.
func decodeJSON(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	// A decoder accepts trailing garbage that Unmarshal would reject
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}

	return value, nil
}

// isJSONMediaType reports whether the declared content type is in the JSON
// family the gateway round-trips through a structured representation.
func isJSONMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	return mediaType == "application/json" || mediaType == "application/problem+json"
}
