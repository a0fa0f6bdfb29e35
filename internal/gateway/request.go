package gateway

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/streamfabric/gateway/internal/auth"
)

// Request wraps the inbound net/http.Request with the gateway's own
// access patterns: path parameters, case-insensitive header lookup, a
// parsed body, the resolved client IP, and an attached auth principal.
type Request struct {
	Raw       *http.Request
	params    map[string]string
	principal auth.Principal
	body      []byte
	bodyRead  bool
}

func newRequest(r *http.Request) *Request {
	return &Request{Raw: r}
}

// Method returns the HTTP verb.
func (r *Request) Method() string { return r.Raw.Method }

// Path returns the request's URL path.
func (r *Request) Path() string { return r.Raw.URL.Path }

// Param returns a bound path parameter, or "" if absent.
func (r *Request) Param(name string) string { return r.params[name] }

// Query returns a query-string value.
func (r *Request) Query(name string) string { return r.Raw.URL.Query().Get(name) }

// Header performs a case-insensitive header lookup (net/http already
// canonicalizes header keys; this just documents the contract).
func (r *Request) Header(name string) string { return r.Raw.Header.Get(name) }

// Principal returns the auth principal attached by the auth middleware.
func (r *Request) Principal() auth.Principal { return r.principal }

// SetPrincipal attaches the resolved principal; called by auth middleware.
func (r *Request) SetPrincipal(p auth.Principal) { r.principal = p }

// ClientIP resolves the caller's address: X-Forwarded-For (first entry),
// then X-Real-IP, then the socket's remote address.
func (r *Request) ClientIP() string {
	if fwd := r.Raw.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Raw.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.Raw.RemoteAddr)
	if err != nil {
		return r.Raw.RemoteAddr
	}
	return host
}

// bodyMethodsParse reports whether a request method carries a body by
// convention — GET/HEAD/OPTIONS never do, per §4.12.
func bodyMethodsParse(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// RawBody reads and caches the raw request body, bounded by maxBodySize.
// Returns io.ErrUnexpectedEOF-wrapped error semantics are not attempted
// here; callers get a plain error on overflow that the handler maps to a
// 413-equivalent apperror.
func (r *Request) RawBody(maxBodySize int64) ([]byte, error) {
	if r.bodyRead {
		return r.body, nil
	}
	if !bodyMethodsParse(r.Raw.Method) {
		r.bodyRead = true
		return nil, nil
	}
	limited := io.LimitReader(r.Raw.Body, maxBodySize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBodySize {
		return nil, errBodyTooLarge
	}
	r.body = data
	r.bodyRead = true
	return data, nil
}

// JSON parses the body as JSON into dest, honouring Content-Type per §4.12:
// only application/json is parsed this way, anything else should be read
// via RawBody instead.
func (r *Request) JSON(maxBodySize int64, dest any) error {
	data, err := r.RawBody(maxBodySize)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// ContentType reports the parsed media type of the Content-Type header.
func (r *Request) ContentType() string {
	ct := r.Raw.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
