package vonage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrCredential marks failures to load or parse the application signing key.
var ErrCredential = errors.New("vonage credential unavailable")

// refreshSkew renews the token slightly before its hard expiry so a token
// handed to a request cannot lapse mid-flight.
const refreshSkew = 30 * time.Second

// TokenSource caches one RS256-signed bearer token for the call-control API
// and re-signs it only after expiry. The refresh path is mutex-serialized, so
// concurrent callers arriving at expiry produce exactly one new signature.
type TokenSource struct {
	appID   string
	keyPath string
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenSource(applicationID, privateKeyPath string, ttl time.Duration) *TokenSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenSource{
		appID:   applicationID,
		keyPath: privateKeyPath,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Token returns the cached bearer token, signing a fresh one when the cached
// value is absent or expired.
func (t *TokenSource) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.token != "" && now.Before(t.expiry.Add(-refreshSkew)) {
		return t.token, nil
	}

	pemBytes, err := os.ReadFile(t.keyPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrCredential, t.keyPath, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", fmt.Errorf("%w: parse private key: %v", ErrCredential, err)
	}

	expiry := now.Add(t.ttl)
	claims := jwt.MapClaims{
		"application_id": t.appID,
		"iat":            now.Unix(),
		"exp":            expiry.Unix(),
		"jti":            uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrCredential, err)
	}

	t.token = signed
	t.expiry = expiry
	return signed, nil
}
