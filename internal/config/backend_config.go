package config

import "time"

// BackendConfig describes the backend user store's create-user endpoint.
type BackendConfig interface {
	GetBackendBaseURL() string
	GetBackendAPIToken() string
	GetBackendTimeout() time.Duration
}

type Backend struct {
	BaseURL  string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8082"`
	APIToken string        `env:"BACKEND_API_TOKEN"`
	Timeout  time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendBaseURL() string {
	return b.BaseURL
}

func (b Backend) GetBackendAPIToken() string {
	return b.APIToken
}

func (b Backend) GetBackendTimeout() time.Duration {
	return b.Timeout
}
