// Package auth verifies and issues the HS256 bearer tokens that identify
// registry callers.
package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/mutation-registry/internal/platform/config"
	apperrors "github.com/louisbranch/mutation-registry/internal/platform/errors"
)

// MinKeyBytes is the shortest accepted HMAC key.
const MinKeyBytes = 32

// authEnv holds raw env values before post-parse validation.
type authEnv struct {
	HMACKey  string `env:"MUTATION_REGISTRY_AUTH_HMAC_KEY"`
	Issuer   string `env:"MUTATION_REGISTRY_AUTH_ISSUER"`
	Audience string `env:"MUTATION_REGISTRY_AUTH_AUDIENCE"`
}

// Config defines how caller tokens are signed and verified.
type Config struct {
	Key      []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// Claims captures validated token claims.
type Claims struct {
	AccountID string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// LoadConfigFromEnv reads token configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw authEnv
	if err := config.ParseEnv(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	key := strings.TrimSpace(raw.HMACKey)
	if key == "" {
		return Config{}, fmt.Errorf("MUTATION_REGISTRY_AUTH_HMAC_KEY is required")
	}
	keyBytes, err := DecodeKey(key)
	if err != nil {
		return Config{}, err
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Key:      keyBytes,
		Issuer:   strings.TrimSpace(raw.Issuer),
		Audience: strings.TrimSpace(raw.Audience),
		Now:      now,
	}, nil
}

// DecodeKey parses a hex HMAC key and enforces the minimum length.
func DecodeKey(value string) ([]byte, error) {
	keyBytes, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode hmac key: %w", err)
	}
	if len(keyBytes) < MinKeyBytes {
		return nil, fmt.Errorf("hmac key must be at least %d bytes", MinKeyBytes)
	}
	return keyBytes, nil
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Issue signs a token for accountID valid for ttl. A zero ttl omits exp.
func Issue(cfg Config, accountID string, ttl time.Duration) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", errors.New("account id is required")
	}
	if len(cfg.Key) == 0 {
		return "", errors.New("token signer is not configured")
	}
	now := cfg.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:  accountID,
		Issuer:   cfg.Issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and claims and returns the caller.
// Surrounding whitespace in the subject is dropped.
func Verify(token string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "token is required")
	}
	if len(cfg.Key) == 0 {
		return Claims{}, errors.New("token verifier is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return cfg.Key, nil
	}, opts...)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	accountID := strings.TrimSpace(parsed.Subject)
	if accountID == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "token subject is required")
	}

	claims := Claims{
		AccountID: accountID,
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token issuer or audience mismatch", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token alg is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token is invalid", err)
	}
}
