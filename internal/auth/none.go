package auth

import (
	"context"
	"net/http"
)

// NoneValidator implements auth.mode=none: every request is the anonymous
// principal with full permissions, used in local development and the
// bundled demo.
type NoneValidator struct{}

func (NoneValidator) Validate(ctx context.Context, r *http.Request) (Principal, error) {
	return Principal{ID: "anonymous", Permissions: []string{"*"}}, nil
}
