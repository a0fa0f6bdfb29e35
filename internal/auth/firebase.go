package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwk"
)

// firebaseJWKSURL is Google's public JWKS endpoint for Firebase-issued ID
// tokens (RS256, rotated keys identified by the token's "kid" header).
const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// FirebaseValidator validates Firebase ID tokens against Google's published
// JWKS, refreshed on an interval via jwx's auto-refreshing cache.
//
// Grounded on the teacher's internal/auth middleware's bearer-token
// extraction and WS query-param fallback, with the Firebase Admin SDK
// token-verification call it used replaced by an explicit JWKS validator
// so the dependency surface stays within what's already in the module
// (golang-jwt/jwt + lestrrat-go/jwx) rather than pulling in
// firebase.google.com/go's separate auth client for this one check.
type FirebaseValidator struct {
	ProjectID string
	cache     *jwk.Cache
	jwksURL   string
}

// NewFirebaseValidator starts the background JWKS refresh and returns a
// ready-to-use validator.
func NewFirebaseValidator(ctx context.Context, projectID string) (*FirebaseValidator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(firebaseJWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("auth: register jwks cache: %w", err)
	}
	if _, err := cache.Refresh(ctx, firebaseJWKSURL); err != nil {
		return nil, fmt.Errorf("auth: initial jwks fetch: %w", err)
	}
	return &FirebaseValidator{ProjectID: projectID, cache: cache, jwksURL: firebaseJWKSURL}, nil
}

func (v *FirebaseValidator) Validate(ctx context.Context, r *http.Request) (Principal, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Principal{}, ErrNoCredential
	}

	keyset, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: jwks unavailable: %w", err)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keyset.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("auth: unknown kid %q", kid)
		}
		var pub any
		if err := key.Raw(&pub); err != nil {
			return nil, err
		}
		return pub, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if v.ProjectID != "" {
		if aud, _ := claims["aud"].(string); aud != v.ProjectID {
			return Principal{}, ErrInvalidCredential
		}
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, ErrInvalidCredential
	}

	return Principal{ID: sub, Permissions: []string{"user"}}, nil
}
