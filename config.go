package goGate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/MrEthical07/goGate/role"
	"github.com/MrEthical07/goGate/token"
	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration. Start from [DefaultConfig] or
// [LoadConfigFile]; the builder validates it on Build.
type Config struct {
	Session       SessionConfig       `yaml:"session"`
	Client        ClientConfig        `yaml:"client"`
	Cache         CacheConfig         `yaml:"cache"`
	Routes        RoutesConfig        `yaml:"routes"`
	Roles         []role.Definition   `yaml:"roles"`
	Impersonation ImpersonationConfig `yaml:"impersonation"`
	Token         TokenConfig         `yaml:"token"`
	Audit         AuditConfig         `yaml:"audit"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// Storage backends understood by the builder when no kv.Store is supplied.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

// SessionConfig selects where the session keys live.
type SessionConfig struct {
	Prefix    string `yaml:"prefix"`
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	BoltPath  string `yaml:"bolt_path"`
}

/*
====================================
CLIENT CONFIG
====================================
*/

// ClientConfig configures the request client and the backend endpoints the
// engine calls itself.
//
// BaseURL wins over BaseURLs[Environment].
type ClientConfig struct {
	BaseURL      string            `yaml:"base_url"`
	Environment  string            `yaml:"environment"`
	BaseURLs     map[string]string `yaml:"base_urls"`
	Timeout      time.Duration     `yaml:"timeout"`
	UserAgent    string            `yaml:"user_agent"`
	LoginPath    string            `yaml:"login_path"`
	IdentityPath string            `yaml:"identity_path"`
}

// ResolveBaseURL returns the base URL for the configured environment.
func (c ClientConfig) ResolveBaseURL() (string, error) {
	if strings.TrimSpace(c.BaseURL) != "" {
		return strings.TrimSpace(c.BaseURL), nil
	}
	env := c.Environment
	if env == "" {
		env = EnvDevelopment
	}
	u, ok := c.BaseURLs[env]
	if !ok || strings.TrimSpace(u) == "" {
		return "", fmt.Errorf("no base url for environment %q", env)
	}
	return strings.TrimSpace(u), nil
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// CacheConfig controls the GET response cache.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Size     int           `yaml:"size"`
	Disabled bool          `yaml:"disabled"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the gate's fixed destinations. TableFile, when set, is a
// YAML route table loaded instead of the built-in one.
type RoutesConfig struct {
	TableFile        string   `yaml:"table_file"`
	LoginPath        string   `yaml:"login_path"`
	UnauthorizedPath string   `yaml:"unauthorized_path"`
	LandingPaths     []string `yaml:"landing_paths"`
}

// ImpersonationConfig controls who may impersonate and where exits land.
//
// An empty ExitRedirect resolves to RequiredRole's home.
type ImpersonationConfig struct {
	RequiredRole     string `yaml:"required_role"`
	SuperAdminPrefix string `yaml:"super_admin_prefix"`
	ExitRedirect     string `yaml:"exit_redirect"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls local bearer-token inspection. Without a signing
// method only the exp claim is read.
type TokenConfig struct {
	Leeway        time.Duration `yaml:"leeway"`
	SigningMethod string        `yaml:"signing_method"`
	VerifyKey     string        `yaml:"verify_key"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
}

func (c TokenConfig) inspectorConfig() token.Config {
	return token.Config{
		Leeway:        c.Leeway,
		SigningMethod: token.SigningMethod(strings.ToLower(c.SigningMethod)),
		VerifyKey:     []byte(c.VerifyKey),
		Issuer:        c.Issuer,
		Audience:      c.Audience,
	}
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled      bool          `yaml:"enabled"`
	BufferSize   int           `yaml:"buffer_size"`
	DropIfFull   bool          `yaml:"drop_if_full"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LoggingConfig selects level ("debug", "info", "warn", "error", "off") and
// format ("json", "text").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c LoggingConfig) logging(w io.Writer) logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format, Output: w}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the review application's configuration.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Prefix:  "gg",
			Backend: BackendMemory,
		},
		Client: ClientConfig{
			Environment: EnvDevelopment,
			BaseURLs: map[string]string{
				EnvDevelopment: "http://localhost:8080/api",
				EnvProduction:  "https://reviews.example.com/api",
			},
			Timeout:      15 * time.Second,
			UserAgent:    "gogate/1",
			LoginPath:    "/auth/login",
			IdentityPath: "/super-admin/impersonate/{id}",
		},
		Cache: CacheConfig{
			TTL:  5 * time.Minute,
			Size: 1024,
		},
		Routes: RoutesConfig{
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
			LandingPaths:     []string{"/", "/dashboard"},
		},
		Roles: role.DefaultDefinitions(),
		Impersonation: ImpersonationConfig{
			RequiredRole:     role.SuperAdmin,
			SuperAdminPrefix: "/super-admin",
		},
		Token: TokenConfig{
			Leeway: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Client.BaseURLs != nil {
		out.Client.BaseURLs = make(map[string]string, len(cfg.Client.BaseURLs))
		for k, v := range cfg.Client.BaseURLs {
			out.Client.BaseURLs[k] = v
		}
	}
	out.Routes.LandingPaths = append([]string(nil), cfg.Routes.LandingPaths...)
	out.Roles = append([]role.Definition(nil), cfg.Roles...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cross-field consistency. Errors wrap [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Session
	if strings.ContainsAny(c.Session.Prefix, " :") {
		return errors.New("Session Prefix must not contain spaces or ':'")
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("Session RedisAddr required for redis backend")
		}
	case BackendBolt:
		if c.Session.BoltPath == "" {
			return errors.New("Session BoltPath required for bolt backend")
		}
	default:
		return fmt.Errorf("unsupported Session Backend %q", c.Session.Backend)
	}

	// Client
	base, err := c.Client.ResolveBaseURL()
	if err != nil {
		return err
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("Client base url %q must be an absolute http(s) url", base)
	}
	if c.Client.Timeout < 0 {
		return errors.New("Client Timeout must be >= 0")
	}
	if !strings.HasPrefix(c.Client.LoginPath, "/") {
		return errors.New("Client LoginPath must start with '/'")
	}
	if !strings.Contains(c.Client.IdentityPath, "{id}") {
		return errors.New("Client IdentityPath must contain {id}")
	}

	// Cache
	if !c.Cache.Disabled {
		if c.Cache.TTL <= 0 {
			return errors.New("Cache TTL must be > 0")
		}
		if c.Cache.Size <= 0 {
			return errors.New("Cache Size must be > 0")
		}
	}

	// Routes
	if !strings.HasPrefix(c.Routes.LoginPath, "/") {
		return errors.New("Routes LoginPath must start with '/'")
	}
	if !strings.HasPrefix(c.Routes.UnauthorizedPath, "/") {
		return errors.New("Routes UnauthorizedPath must start with '/'")
	}
	for _, p := range c.Routes.LandingPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("Routes landing path %q must start with '/'", p)
		}
	}

	// Roles
	if len(c.Roles) == 0 {
		return errors.New("at least one role must be configured")
	}
	reg, err := role.NewRegistryFrom(c.Roles)
	if err != nil {
		return err
	}

	// Impersonation
	if _, err := reg.Parse(c.Impersonation.RequiredRole); err != nil {
		return fmt.Errorf("Impersonation RequiredRole: %v", err)
	}
	if !strings.HasPrefix(c.Impersonation.SuperAdminPrefix, "/") {
		return errors.New("Impersonation SuperAdminPrefix must start with '/'")
	}
	if c.Impersonation.ExitRedirect == "" {
		if _, ok := reg.Home(c.Impersonation.RequiredRole); !ok {
			return errors.New("Impersonation ExitRedirect required when the required role has no home")
		}
	} else if !strings.HasPrefix(c.Impersonation.ExitRedirect, "/") {
		return errors.New("Impersonation ExitRedirect must start with '/'")
	}

	// Token
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}
	switch token.SigningMethod(strings.ToLower(c.Token.SigningMethod)) {
	case token.MethodNone:
	case token.MethodEd25519, token.MethodHS256:
		if c.Token.VerifyKey == "" {
			return errors.New("Token VerifyKey required when SigningMethod is set")
		}
	default:
		return fmt.Errorf("unsupported Token SigningMethod %q", c.Token.SigningMethod)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.BlockTimeout < 0 {
		return errors.New("Audit BlockTimeout must be >= 0")
	}

	// Logging
	if _, _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return err
	}

	return nil
}

/*
====================================
LOADING
====================================
*/

// LoadConfigFile reads a YAML document onto [DefaultConfig]. Unknown keys are
// rejected. The result is validated.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(bytes.NewReader(data))
}

// LoadConfig is LoadConfigFile for an io.Reader.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
