package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is passed to envconfig; variable names are spelled out in full
// on each field, so the prefix itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App   AppConfig
	API   APIConfig
	Alert AlertConfig
	Login LoginConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validateBaseURL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RECORDSTORE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"RECORDSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECORDSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig locates the remote storefront API. BaseURL is the single
// externally visible parameter the clients consume.
type APIConfig struct {
	BaseURL       string        `envconfig:"RECORDSTORE_API_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"RECORDSTORE_API_TIMEOUT" default:"10s"`
	UploadTimeout time.Duration `envconfig:"RECORDSTORE_API_UPLOAD_TIMEOUT" default:"60s"`
}

type AlertConfig struct {
	DisplayDuration time.Duration `envconfig:"RECORDSTORE_ALERT_DISPLAY_DURATION" default:"5s"`
}

// LoginConfig carries optional bootstrap credentials for the smoke binary.
type LoginConfig struct {
	Email    string `envconfig:"RECORDSTORE_LOGIN_EMAIL"`
	Password string `envconfig:"RECORDSTORE_LOGIN_PASSWORD"`
}

func (a *APIConfig) validateBaseURL() error {
	trimmed := strings.TrimSpace(a.BaseURL)
	if trimmed == "" {
		return fmt.Errorf("RECORDSTORE_API_BASE_URL is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("RECORDSTORE_API_BASE_URL must be an absolute URL, got %q", a.BaseURL)
	}
	a.BaseURL = strings.TrimRight(trimmed, "/")
	return nil
}
