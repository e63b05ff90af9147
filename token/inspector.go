package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT is returned for opaque tokens. Opaque tokens cannot be checked
	// locally and are left to the backend.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrMalformed is returned for JWT-shaped tokens that do not parse.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalid is returned when signature, issuer or audience checks fail.
	ErrInvalid = errors.New("token invalid")
)

// Config controls inspection. With MethodNone the signature is not checked;
// the client never holds the backend's verification key in the default setup.
type Config struct {
	Leeway        time.Duration
	SigningMethod SigningMethod
	VerifyKey     []byte
	Issuer        string
	Audience      string
}

// Claims are the registered claims the control plane cares about.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Expired   bool
}

type roleClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspector reads bearer tokens.
type Inspector struct {
	config    Config
	verifyKey interface{}
	now       func() time.Time
}

// NewInspector validates cfg. Leeway is capped at two minutes.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	i := &Inspector{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.VerifyKey) == 0 {
			return nil, errors.New("hs256 requires verify key")
		}
		i.verifyKey = cfg.VerifyKey
	case MethodEd25519:
		pub, err := parseEdPublicKey(cfg.VerifyKey)
		if err != nil {
			return nil, err
		}
		i.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}
	return i, nil
}

// SetClock replaces the time source. Intended for tests.
func (i *Inspector) SetClock(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

// Inspect parses raw. Expiry is reported through Claims.Expired rather than
// an error so callers can tell "expired" apart from "unreadable".
func (i *Inspector) Inspect(raw string) (Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return Claims{}, ErrNotJWT
	}
	if i.config.SigningMethod == MethodNone {
		return i.inspectUnverified(raw)
	}
	return i.inspectVerified(raw)
}

// Expired reports whether raw is a JWT whose exp lies beyond the leeway.
// Opaque tokens and tokens without exp are never expired.
func (i *Inspector) Expired(raw string) (bool, error) {
	c, err := i.Inspect(raw)
	if err != nil {
		if errors.Is(err, ErrNotJWT) {
			return false, nil
		}
		return false, err
	}
	return c.Expired, nil
}

func (i *Inspector) inspectUnverified(raw string) (Claims, error) {
	var rc roleClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c := toClaims(rc)
	if !c.ExpiresAt.IsZero() && i.now().After(c.ExpiresAt.Add(i.config.Leeway)) {
		c.Expired = true
	}
	return c, nil
}

func (i *Inspector) inspectVerified(raw string) (Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.config.SigningMethod.jwtMethod().Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	var rc roleClaims
	parser := jwt.NewParser(options...)
	_, err := parser.ParseWithClaims(raw, &rc, func(t *jwt.Token) (interface{}, error) {
		return i.verifyKey, nil
	})
	switch {
	case err == nil:
		return toClaims(rc), nil
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		c := toClaims(rc)
		c.Expired = true
		return c, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

func toClaims(rc roleClaims) Claims {
	c := Claims{Subject: rc.Subject, Role: rc.Role}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c
}
