package gateway

import (
	"github.com/streamfabric/gateway/internal/apperror"
	"github.com/streamfabric/gateway/internal/auth"
)

// AuthMiddleware runs validator against every request and attaches the
// resulting Principal. If required is false, any validation failure
// (missing or invalid credential) falls through as auth.Anonymous rather
// than rejecting the request — this is how the default stack's
// "optional-auth" stage (CORS → optional-auth → admission → request
// logging, then enforced-auth on /api) is expressed: the same validator
// runs twice in the chain, first optionally, then enforced just for /api.
// The stack has no rate-limit or static-file stage.
func AuthMiddleware(validator auth.Validator, required bool) Middleware {
	return func(req *Request, resp *Response, next func()) {
		principal, err := validator.Validate(req.Raw.Context(), req.Raw)
		switch {
		case err == nil:
			req.SetPrincipal(principal)
			next()
		case !required:
			req.SetPrincipal(auth.Anonymous)
			next()
		default:
			resp.Error(apperror.New(apperror.AuthenticationError, "authentication required"))
		}
	}
}
