package config

import "time"

// ProviderConfig describes how to reach the identity provider's frontend API.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderPublishableKey() string
	GetProviderTimeout() time.Duration
}

type Provider struct {
	BaseURL        string        `env:"PROVIDER_BASE_URL" envDefault:"http://localhost:9090"`
	PublishableKey string        `env:"PROVIDER_PUBLISHABLE_KEY"`
	Timeout        time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
}

var _ ProviderConfig = Provider{}

func (p Provider) GetProviderBaseURL() string {
	return p.BaseURL
}

func (p Provider) GetProviderPublishableKey() string {
	return p.PublishableKey
}

func (p Provider) GetProviderTimeout() time.Duration {
	return p.Timeout
}
