package gateway

import "time"

// LoggingMiddleware times the downstream chain and submits one LogEntry per
// request to async. Of config.LoggingConfig's toggles only requests is
// read, by the caller, to decide whether to install this middleware at
// all; the responses and errors toggles are not consulted. The timing and
// buffer recording here always run once installed.
func LoggingMiddleware(async *AsyncLogger) Middleware {
	return func(req *Request, resp *Response, next func()) {
		start := time.Now()
		next()
		async.Submit(LogEntry{
			Time:       start,
			Method:     req.Method(),
			Path:       req.Path(),
			Status:     resp.Status(),
			DurationMs: time.Since(start).Milliseconds(),
		})
	}
}
