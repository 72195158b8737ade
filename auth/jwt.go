package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod defines supported JWT signing algorithms.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

// JWTConfig configures a JWTSource.
type JWTConfig struct {
	// Secret is the HMAC signing key (required for HS* methods).
	Secret string `mapstructure:"secret"`

	// PrivateKey is the RSA or ECDSA private key (required for RS*/ES* methods).
	PrivateKey any `mapstructure:"-"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	Issuer   string   `mapstructure:"issuer"`
	Subject  string   `mapstructure:"subject"`
	Audience []string `mapstructure:"audience"`

	// TTL is the lifetime of each signed token (default: 5m).
	TTL time.Duration `mapstructure:"ttl"`

	// Claims are added to every token.
	Claims map[string]any `mapstructure:"claims"`
}

// ApplyDefaults fills in zero-value fields.
func (c *JWTConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// Validate checks required fields based on the signing method.
func (c *JWTConfig) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return errors.New("secret is required for HMAC signing methods")
		}
	case RS256, RS384, RS512:
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return errors.New("private key must be *rsa.PrivateKey for RSA signing methods")
		}
	case ES256, ES384, ES512:
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return errors.New("private key must be *ecdsa.PrivateKey for ECDSA signing methods")
		}
	default:
		return fmt.Errorf("unsupported signing method: %s", c.Method)
	}
	return nil
}

func (c *JWTConfig) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	case RS256:
		return gojwt.SigningMethodRS256
	case RS384:
		return gojwt.SigningMethodRS384
	case RS512:
		return gojwt.SigningMethodRS512
	case ES256:
		return gojwt.SigningMethodES256
	case ES384:
		return gojwt.SigningMethodES384
	case ES512:
		return gojwt.SigningMethodES512
	default:
		return gojwt.SigningMethodHS256
	}
}

func (c *JWTConfig) signKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}

// JWTSource signs a fresh service token on every call. Wrap it with Cache
// to reuse tokens until they near expiry.
type JWTSource struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTSource creates a signing source.
func NewJWTSource(cfg *JWTConfig) (*JWTSource, error) {
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return &JWTSource{cfg: c, now: time.Now}, nil
}

// Token implements TokenSource.
func (s *JWTSource) Token(ctx context.Context) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	exp := now.Add(s.cfg.TTL)

	claims := gojwt.MapClaims{
		"iat": gojwt.NewNumericDate(now),
		"nbf": gojwt.NewNumericDate(now),
		"exp": gojwt.NewNumericDate(exp),
		"jti": uuid.NewString(),
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if s.cfg.Subject != "" {
		claims["sub"] = s.cfg.Subject
	}
	if len(s.cfg.Audience) > 0 {
		claims["aud"] = gojwt.ClaimStrings(s.cfg.Audience)
	}
	for k, v := range s.cfg.Claims {
		if _, reserved := claims[k]; !reserved {
			claims[k] = v
		}
	}

	signed, err := gojwt.NewWithClaims(s.cfg.signingMethod(), claims).SignedString(s.cfg.signKey())
	if err != nil {
		return nil, fmt.Errorf("jwt: sign token: %w", err)
	}
	return &Token{Value: signed, Type: "Bearer", ExpiresAt: exp}, nil
}
