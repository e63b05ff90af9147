package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignerConfig configures a Signer.
type SignerConfig struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	Issuer        string
	Audience      string
	TTL           time.Duration
	KeyID         string
}

// Signer issues access tokens the way the review backend does. It exists for
// development backends, the CLI and tests; production tokens come from the
// backend.
type Signer struct {
	config  SignerConfig
	signKey interface{}
	now     func() time.Time
}

func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	s := &Signer{config: cfg, now: time.Now}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		s.signKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		s.signKey = priv
	default:
		return nil, errors.New("unsupported signing method")
	}
	return s, nil
}

// SetClock replaces the time source. Intended for tests.
func (s *Signer) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Sign issues a token for subject carrying the role claim.
func (s *Signer) Sign(subject, role string) (string, error) {
	now := s.now()
	claims := roleClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	tok := jwt.NewWithClaims(s.config.SigningMethod.jwtMethod(), claims)
	if s.config.KeyID != "" {
		tok.Header["kid"] = s.config.KeyID
	}
	return tok.SignedString(s.signKey)
}
