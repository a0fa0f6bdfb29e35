package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/streamfabric/gateway/internal/apperror"
)

// Response wraps net/http.ResponseWriter and enforces "send at most once":
// any method past the first is a no-op, matching §4.12.
type Response struct {
	w      http.ResponseWriter
	r      *http.Request
	mu     sync.Mutex
	sent   bool
	status int
}

func newResponse(w http.ResponseWriter, r *http.Request) *Response {
	return &Response{w: w, r: r}
}

// Sent reports whether a response has already been written.
func (resp *Response) Sent() bool {
	resp.mu.Lock()
	defer resp.mu.Unlock()
	return resp.sent
}

func (resp *Response) markSent() bool {
	resp.mu.Lock()
	defer resp.mu.Unlock()
	if resp.sent {
		return false
	}
	resp.sent = true
	return true
}

// Status reports the status code of the response that was written, or 0 if
// nothing has been sent yet.
func (resp *Response) Status() int {
	resp.mu.Lock()
	defer resp.mu.Unlock()
	return resp.status
}

func (resp *Response) recordStatus(status int) {
	resp.mu.Lock()
	resp.status = status
	resp.mu.Unlock()
}

// Header exposes the underlying header map for pre-send mutation (e.g. CORS
// middleware setting Access-Control-* headers before the route handler
// sends the body).
func (resp *Response) Header() http.Header { return resp.w.Header() }

// RawWriter exposes the underlying http.ResponseWriter for middleware that
// must adapt a standard net/http.Handler (e.g. the rs/cors middleware).
func (resp *Response) RawWriter() http.ResponseWriter { return resp.w }

// JSON writes status and v as the JSON body. Subsequent calls are no-ops.
func (resp *Response) JSON(status int, v any) {
	if !resp.markSent() {
		return
	}
	resp.recordStatus(status)
	resp.w.Header().Set("Content-Type", "application/json")
	resp.w.WriteHeader(status)
	_ = json.NewEncoder(resp.w).Encode(v)
}

// Error writes err as the standard {error:{code,message,details?}}
// envelope with err's mapped HTTP status.
func (resp *Response) Error(err error) {
	ae := apperror.As(err)
	resp.JSON(ae.Status(), ae.ToEnvelope())
}

// Text writes status and a plain-text body.
func (resp *Response) Text(status int, body string) {
	if !resp.markSent() {
		return
	}
	resp.recordStatus(status)
	resp.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	resp.w.WriteHeader(status)
	_, _ = io.WriteString(resp.w, body)
}

// Redirect writes a redirect response.
func (resp *Response) Redirect(status int, location string) {
	if !resp.markSent() {
		return
	}
	resp.recordStatus(status)
	resp.w.Header().Set("Location", location)
	resp.w.WriteHeader(status)
}

// Send writes status with an optional raw body and no content-type
// inference.
func (resp *Response) Send(status int, body []byte) {
	if !resp.markSent() {
		return
	}
	resp.recordStatus(status)
	resp.w.WriteHeader(status)
	if body != nil {
		_, _ = resp.w.Write(body)
	}
}

// Stream pipes src to the client with the given status and content type,
// without buffering the whole body in memory.
func (resp *Response) Stream(status int, contentType string, src io.Reader) {
	if !resp.markSent() {
		return
	}
	resp.recordStatus(status)
	if contentType != "" {
		resp.w.Header().Set("Content-Type", contentType)
	}
	resp.w.WriteHeader(status)
	_, _ = io.Copy(resp.w, src)
}

// SSE upgrades the response to a Server-Sent Events stream per §4.12/§4.13:
// it preserves already-set headers (e.g. CORS), writes the SSE framing
// headers, and marks the response sent. It does not start a keep-alive
// heartbeat; SSEWriter.KeepAlive is not run by this method. Returns nil if the underlying ResponseWriter doesn't support flushing.
func (resp *Response) SSE() *SSEWriter {
	if !resp.markSent() {
		return nil
	}
	flusher, ok := resp.w.(http.Flusher)
	if !ok {
		return nil
	}
	h := resp.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	resp.recordStatus(http.StatusOK)
	resp.w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return newSSEWriter(resp.w, flusher, resp.r.Context())
}

func writeProtocolError(resp *Response, status int, code apperror.Code, message string) {
	resp.JSON(status, apperror.New(code, message).ToEnvelope())
}
