package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opinionlab/studyctl/pkg/bslog"
	"github.com/opinionlab/studyctl/pkg/loaders"
	"github.com/spf13/pflag"
)

const (
	DEFAULT_BASE_URL    = "http://127.0.0.1:8000"
	DEFAULT_MOCK_SECRET = "studyctl-mock-secret"
	CREDENTIALS_FILE    = "credentials.json"
)

type Config struct {
	Server  Server
	API     API
	Auth    Auth
	Storage Storage
	Mock    Mock
}

// Server configuration
type Server struct {
	Env      string `env:"SRV_ENV" flag:"env"`
	LogLevel string `env:"SRV_LOG_LEVEL" flag:"log-level"`
}

// API configuration
type API struct {
	BaseURL   string        `env:"API_BASE_URL" flag:"base-url"`
	Timeout   time.Duration `env:"API_TIMEOUT" flag:"timeout"`
	RateLimit float64       `env:"API_RATE_LIMIT" flag:"rate-limit"`
	Retries   int           `env:"API_RETRIES" flag:"retries"`
}

// Auth configuration
type Auth struct {
	RefreshTimeout time.Duration `env:"AUTH_REFRESH_TIMEOUT" flag:"refresh-timeout"`
}

// Storage configuration
type Storage struct {
	Dir       string `env:"STORAGE_DIR" flag:"storage-dir"`
	Key       string `env:"STORAGE_KEY"`
	RedisAddr string `env:"STORAGE_REDIS_ADDR" flag:"redis-addr"`
}

// EncryptionKey decodes the base64 key, nil when none is configured.
func (s *Storage) EncryptionKey() ([]byte, error) {
	if s.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.Key)
	if err != nil {
		return nil, fmt.Errorf("STORAGE_KEY is not valid base64: %s", err.Error())
	}
	return key, nil
}

func (s *Storage) CredentialsPath() string {
	return filepath.Join(s.Dir, CREDENTIALS_FILE)
}

// Mock backend configuration
type Mock struct {
	ListenAddr string `env:"MOCK_LISTEN_ADDR" flag:"listen"`
	JWTSecret  string `env:"MOCK_JWT_SECRET"`
}

// Defaults returns the configuration used before any loader runs.
func Defaults() Config {
	dir := ".studyctl"
	if userDir, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(userDir, "studyctl")
	}

	return Config{
		Server: Server{
			Env:      bslog.ENV_PROD,
			LogLevel: "warn",
		},
		API: API{
			BaseURL:   DEFAULT_BASE_URL,
			Timeout:   30 * time.Second,
			RateLimit: 0,
			Retries:   2,
		},
		Auth: Auth{
			RefreshTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Dir: dir,
		},
		Mock: Mock{
			ListenAddr: "127.0.0.1:8000",
			JWTSecret:  DEFAULT_MOCK_SECRET,
		},
	}
}

// RegisterFlags adds the flags Load reads to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("env", d.Server.Env, "runtime environment (dev|prod)")
	fs.String("log-level", d.Server.LogLevel, "log level (debug|info|warn|error)")
	fs.String("base-url", d.API.BaseURL, "platform API base url")
	fs.Duration("timeout", d.API.Timeout, "per request timeout")
	fs.Float64("rate-limit", d.API.RateLimit, "max requests per second, 0 disables limiting")
	fs.Int("retries", d.API.Retries, "retries for transient failures")
	fs.Duration("refresh-timeout", d.Auth.RefreshTimeout, "timeout of a credential refresh")
	fs.String("storage-dir", d.Storage.Dir, "directory holding the credential file")
	fs.String("redis-addr", d.Storage.RedisAddr, "redis address of the credential mirror")
}

// Load applies the environment, then a .env file in the working directory,
// then flags set on fs.
func Load(fs *pflag.FlagSet, dotEnvFiles ...string) (*Config, error) {
	if len(dotEnvFiles) == 0 {
		dotEnvFiles = []string{".env"}
	}

	loader := loaders.NewChainLoader(
		loaders.NewEnvloader(),
		loaders.NewFileLoader(dotEnvFiles...),
		loaders.NewFlagLoader(fs),
	)

	cfg := Defaults()
	sections := []any{
		&cfg.Server,
		&cfg.API,
		&cfg.Auth,
		&cfg.Storage,
		&cfg.Mock,
	}

	for _, section := range sections {
		if err := loader.Load(section); err != nil {
			return nil, err
		}
	}

	if _, err := bslog.ParseLevel(cfg.Server.LogLevel); err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}
	if cfg.API.Retries < 0 {
		return nil, fmt.Errorf("unable to load config: API_RETRIES must not be negative")
	}

	return &cfg, nil
}
