// Package jwks verifies RS256 access tokens against a JSON Web Key Set
// published by the identity provider. Keys are cached with a short TTL;
// an unknown kid forces a refresh so key rotation is picked up without a
// restart.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
)

// Default configuration values.
const (
	DefaultCacheTTL = 5 * time.Minute
	DefaultTimeout  = 10 * time.Second
)

// Ensure Verifier implements the interface.
var _ driven.TokenVerifier = (*Verifier)(nil)

// Config holds configuration for the token verifier.
type Config struct {
	// JWKSURL is where the provider publishes its key set (required).
	JWKSURL string

	// Issuer is the expected iss claim (required).
	Issuer string

	// ClientID is the expected client_id claim (required).
	ClientID string

	// CacheTTL bounds how long fetched keys are reused (default: 5m).
	CacheTTL time.Duration

	// Timeout is the JWKS fetch timeout (default: 10s).
	Timeout time.Duration
}

// Verifier validates bearer tokens and maps their claims to a principal.
type Verifier struct {
	cfg        Config
	httpClient *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier creates a verifier from the config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.JWKSURL == "" || cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: jwks_url, issuer and client_id are required", domain.ErrInvalidConfig)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Verifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		keys:       map[string]*rsa.PublicKey{},
	}, nil
}

// Verify parses and validates the access token and returns the principal it
// represents. All failures map to domain.ErrAuthInvalid.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (domain.Principal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrAuthInvalid, err)
	}

	if use, _ := claims["token_use"].(string); use != "access" {
		return domain.Principal{}, fmt.Errorf("%w: token_use is %q, want access", domain.ErrAuthInvalid, use)
	}
	if clientID, _ := claims["client_id"].(string); clientID != v.cfg.ClientID {
		return domain.Principal{}, fmt.Errorf("%w: token issued for a different client", domain.ErrAuthInvalid)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domain.Principal{}, fmt.Errorf("%w: token has no sub claim", domain.ErrAuthInvalid)
	}

	username, _ := claims["username"].(string)
	principal := domain.Principal{
		Sub:      sub,
		Username: username,
		Groups:   stringClaim(claims, "cognito:groups", "groups"),
		Scopes:   scopeClaim(claims),
		Claims:   claims,
	}
	return principal, nil
}

// key returns the public key for kid, refreshing the cached key set when it
// is stale or the kid is unknown.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := time.Since(v.fetchedAt) < v.cfg.CacheTTL
	if key, ok := v.keys[kid]; ok && fresh {
		return key, nil
	}
	if !fresh || v.keys[kid] == nil {
		if err := v.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key with kid %q in key set", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return fmt.Errorf("create JWKS request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		key, err := parseRSAKey(k.N, k.E)
		if err != nil {
			return fmt.Errorf("parse key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = key
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// stringClaim extracts the first present string-list claim among names.
func stringClaim(claims jwt.MapClaims, names ...string) []string {
	for _, name := range names {
		raw, ok := claims[name].([]any)
		if !ok {
			continue
		}
		values := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
		return values
	}
	return nil
}

// scopeClaim splits the space-separated scope claim.
func scopeClaim(claims jwt.MapClaims) []string {
	scope, _ := claims["scope"].(string)
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
