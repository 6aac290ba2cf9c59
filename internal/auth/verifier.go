// Package auth provides bearer-token verification for the API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// Verifier validates bearer tokens and extracts tenant/role claims.
// Modes: dev (token is "tenant:role", no verification) and hmac
// (HS256-signed JWT with a shared secret).
type Verifier struct {
	Mode        string
	HMACSecret  []byte
	TenantClaim string
	RoleClaim   string
}

type Principal struct {
	Tenant string
	Role   string
}

func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{
		Mode:        mode,
		HMACSecret:  []byte(os.Getenv("AUTH_HMAC_SECRET")),
		TenantClaim: envOr("AUTH_TENANT_CLAIM", "tenant"),
		RoleClaim:   envOr("AUTH_ROLE_CLAIM", "role"),
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

var errInvalidToken = errors.New("auth: invalid token")

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		parts := strings.SplitN(token, ":", 2)
		p := Principal{Tenant: parts[0], Role: "admin"}
		if len(parts) == 2 {
			p.Role = parts[1]
		}
		return p, nil
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Principal{}, errInvalidToken
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || !hmac.Equal(mac.Sum(nil), sig) {
		return Principal{}, errInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Principal{}, errInvalidToken
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Principal{}, errInvalidToken
	}
	p := Principal{}
	if t, ok := claims[v.TenantClaim].(string); ok {
		p.Tenant = t
	}
	if r, ok := claims[v.RoleClaim].(string); ok {
		p.Role = r
	}
	if p.Tenant == "" {
		return Principal{}, errInvalidToken
	}
	return p, nil
}
