package gateway

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/streamfabric/gateway/internal/config"
)

// CORSMiddleware adapts github.com/rs/cors onto the gateway's Middleware
// shape. rs/cors answers OPTIONS preflights itself (never calling the
// wrapped handler); for any other method it sets the response headers and
// calls through, which here means invoking next().
func CORSMiddleware(cfg config.CORSConfig) Middleware {
	if !cfg.Enabled {
		return func(req *Request, resp *Response, next func()) { next() }
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   cfg.Methods,
		AllowedHeaders:   cfg.Headers,
		AllowCredentials: cfg.Credentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(req *Request, resp *Response, next func()) {
		handler := c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next()
		}))
		handler.ServeHTTP(resp.RawWriter(), req.Raw)
	}
}
