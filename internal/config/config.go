package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid_config")

const (
	ProductionHost = "api.push.apple.com"
	SandboxHost    = "api.sandbox.push.apple.com"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	// Servidor de operación (/healthz, /readyz, /metrics)
	Ops struct {
		Addr string `yaml:"addr"`
	} `yaml:"ops"`

	Gateway Gateway `yaml:"gateway"`

	Credentials struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"credentials"`
}

// Gateway agrupa lo necesario para autenticarse contra el gateway de push.
// Se usa signing_key_file (token) o identity_file (mTLS), nunca ambos.
type Gateway struct {
	KeyID              string `yaml:"key_id"`
	TeamID             string `yaml:"team_id"`
	SigningKeyFile     string `yaml:"signing_key_file"`
	IdentityFile       string `yaml:"identity_file"`
	IdentityPassphrase string `yaml:"identity_passphrase"`
	Production         bool   `yaml:"production"`
}

// Host devuelve el host del gateway según el entorno.
func (g Gateway) Host() string {
	if g.Production {
		return ProductionHost
	}
	return SandboxHost
}

// UsesToken indica autenticación por bearer token (clave .p8).
func (g Gateway) UsesToken() bool { return strings.TrimSpace(g.SigningKeyFile) != "" }

// UsesIdentity indica autenticación por certificado de cliente (.p12).
func (g Gateway) UsesIdentity() bool { return strings.TrimSpace(g.IdentityFile) != "" }

// CredentialCacheTTL devuelve el TTL ya parseado (validado en Load).
func (c *Config) CredentialCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Credentials.CacheTTL)
	return d
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// Rutas relativas del YAML se resuelven contra su directorio; las que
	// vienen por env quedan relativas al directorio de trabajo.
	base := filepath.Dir(path)
	c.Gateway.SigningKeyFile = resolvePath(base, c.Gateway.SigningKeyFile)
	c.Gateway.IdentityFile = resolvePath(base, c.Gateway.IdentityFile)

	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromEnv arma la configuración sólo con variables de entorno.
func FromEnv() (*Config, error) {
	var c Config
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) finish() error {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Ops.Addr == "" {
		c.Ops.Addr = ":9090"
	}
	if c.Credentials.CacheTTL == "" {
		c.Credentials.CacheTTL = "10m"
	}

	c.applyEnvOverrides()

	return c.Validate()
}

func resolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("OPS_ADDR"); ok {
		c.Ops.Addr = v
	}

	// GATEWAY
	if v, ok := getEnvStr("PUSH_KEY_ID"); ok {
		c.Gateway.KeyID = strings.TrimSpace(v)
	}
	if v, ok := getEnvStr("PUSH_TEAM_ID"); ok {
		c.Gateway.TeamID = strings.TrimSpace(v)
	}
	if v, ok := getEnvStr("PUSH_SIGNING_KEY_FILE"); ok {
		c.Gateway.SigningKeyFile = v
	}
	if v, ok := getEnvStr("PUSH_IDENTITY_FILE"); ok {
		c.Gateway.IdentityFile = v
	}
	// la passphrase no se trimea: los espacios son parte del secreto
	if v, ok := getEnvStr("PUSH_IDENTITY_PASSPHRASE"); ok {
		c.Gateway.IdentityPassphrase = v
	}
	if v, ok := getEnvBool("PUSH_PRODUCTION"); ok {
		c.Gateway.Production = v
	}

	// CREDENTIALS
	if v, ok := getEnvStr("CREDENTIAL_CACHE_TTL"); ok {
		c.Credentials.CacheTTL = strings.TrimSpace(v)
	}
}

func (c *Config) Validate() error {
	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("%w: app_env %q (dev|staging|prod)", ErrInvalidConfig, c.App.Env)
	}
	if d, err := time.ParseDuration(c.Credentials.CacheTTL); err != nil || d <= 0 {
		return fmt.Errorf("%w: credentials.cache_ttl %q", ErrInvalidConfig, c.Credentials.CacheTTL)
	}

	g := c.Gateway
	if g.UsesToken() && g.UsesIdentity() {
		return fmt.Errorf("%w: gateway.signing_key_file and gateway.identity_file are mutually exclusive", ErrInvalidConfig)
	}
	if g.UsesToken() && (g.KeyID == "" || g.TeamID == "") {
		return fmt.Errorf("%w: gateway.key_id and gateway.team_id are required with signing_key_file", ErrInvalidConfig)
	}
	return nil
}
