package auth

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Config configures API token signing.
type Config struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Secret   string        `yaml:"secret" mapstructure:"secret"`
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "voicenotes"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Enabled && c.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth is enabled")
	}
	return nil
}

// Claims carries the registered claims plus the client name the token was
// issued for.
type Claims struct {
	gojwt.RegisteredClaims
	Client string `json:"client,omitempty"`
}

// Manager signs and validates HS256 bearer tokens.
type Manager struct {
	cfg Config
}

// NewManager creates a token manager. The secret is required regardless of
// the Enabled flag, since a manager without a key can neither sign nor verify.
func NewManager(cfg Config) (*Manager, error) {
	cfg.ApplyDefaults()
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: secret is required")
	}
	return &Manager{cfg: cfg}, nil
}

// Generate issues a signed token for the named client.
func (m *Manager) Generate(client string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   client,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(m.cfg.TokenTTL)),
		},
		Client: client,
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(m.cfg.Issuer))
	}

	token, err := gojwt.ParseWithClaims(tokenString, claims, m.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	return claims, nil
}

// keyFunc is the jwt.Keyfunc used during token parsing.
func (m *Manager) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("auth: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(m.cfg.Secret), nil
}

// ValidatorFunc bridges the manager into middleware that stores claims in
// the request context.
func (m *Manager) ValidatorFunc() func(string) (map[string]interface{}, error) {
	return func(token string) (map[string]interface{}, error) {
		claims, err := m.Validate(token)
		if err != nil {
			return nil, err
		}
		out := map[string]interface{}{}
		if claims.Client != "" {
			out["client"] = claims.Client
		}
		if claims.Subject != "" {
			out["sub"] = claims.Subject
		}
		return out, nil
	}
}
