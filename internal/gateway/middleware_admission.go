package gateway

import (
	"sync/atomic"

	"github.com/streamfabric/gateway/internal/apperror"
)

var httpConnSeq int64

// AdmissionMiddleware enforces the per-request slice of §4.15: plain HTTP
// requests occupy a table slot only for the lifetime of the request
// (SSE/WebSocket handlers register their own longer-lived slot
// separately, since the table's job is capping *concurrent* connections,
// not request throughput).
func AdmissionMiddleware(table *ConnTable) Middleware {
	return func(req *Request, resp *Response, next func()) {
		id := atomic.AddInt64(&httpConnSeq, 1)
		ip := req.ClientIP()
		if !table.TryAccept(id, ip) {
			resp.Error(apperror.New(apperror.ConnectionLimit, "too many connections"))
			return
		}
		defer table.Remove(id)
		next()
	}
}
