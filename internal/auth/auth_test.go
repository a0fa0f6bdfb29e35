package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, header, headerVal, query string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodGet, "http://example.test/?"+query, nil)
	require.NoError(t, err)
	if header != "" {
		r.Header.Set(header, headerVal)
	}
	return r
}

func TestNoneValidator_AlwaysSucceeds(t *testing.T) {
	p, err := NoneValidator{}.Validate(context.Background(), newRequest(t, "", "", ""))
	require.NoError(t, err)
	assert.True(t, p.HasPermission("anything"))
}

func TestTokenValidator_ValidatesBearerHeader(t *testing.T) {
	v := NewTokenValidator(map[string]Principal{"secret": {ID: "svc-1"}})

	r := newRequest(t, "Authorization", "Bearer secret", "")
	p, err := v.Validate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "svc-1", p.ID)
}

func TestTokenValidator_FallsBackToQueryParam(t *testing.T) {
	v := NewTokenValidator(map[string]Principal{"secret": {ID: "svc-1"}})
	r := newRequest(t, "", "", url.Values{"token": {"secret"}}.Encode())
	p, err := v.Validate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "svc-1", p.ID)
}

func TestTokenValidator_NoCredential(t *testing.T) {
	v := NewTokenValidator(map[string]Principal{})
	_, err := v.Validate(context.Background(), newRequest(t, "", "", ""))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestTokenValidator_InvalidCredential(t *testing.T) {
	v := NewTokenValidator(map[string]Principal{"real": {ID: "x"}})
	r := newRequest(t, "Authorization", "Bearer wrong", "")
	_, err := v.Validate(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAPIKeyValidator_HeaderAndQueryFallback(t *testing.T) {
	v := NewAPIKeyValidator(map[string]Principal{"k1": {ID: "client-1"}})

	r := newRequest(t, "X-API-Key", "k1", "")
	p, err := v.Validate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "client-1", p.ID)

	r2 := newRequest(t, "", "", url.Values{"apiKey": {"k1"}}.Encode())
	p2, err := v.Validate(context.Background(), r2)
	require.NoError(t, err)
	assert.Equal(t, "client-1", p2.ID)
}

func TestMultiValidator_FallsThroughToNextStrategy(t *testing.T) {
	tokenV := NewTokenValidator(map[string]Principal{"secret": {ID: "tok"}})
	apiV := NewAPIKeyValidator(map[string]Principal{"k1": {ID: "key"}})
	multi := NewMultiValidator(tokenV, apiV)

	r := newRequest(t, "X-API-Key", "k1", "")
	p, err := multi.Validate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "key", p.ID)
}

func TestMultiValidator_NoCredentialWhenNoneApply(t *testing.T) {
	multi := NewMultiValidator(NewTokenValidator(nil), NewAPIKeyValidator(nil))
	_, err := multi.Validate(context.Background(), newRequest(t, "", "", ""))
	assert.True(t, errors.Is(err, ErrNoCredential))
}

func TestPrincipal_HasPermission_Wildcard(t *testing.T) {
	p := Principal{Permissions: []string{"*"}}
	assert.True(t, p.HasPermission("admin:write"))

	p2 := Principal{Permissions: []string{"read"}}
	assert.False(t, p2.HasPermission("write"))
}
