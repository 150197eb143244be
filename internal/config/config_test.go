package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 10*time.Second, c.GetProviderTimeout())
	require.Equal(t, 10*time.Second, c.GetBackendTimeout())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://localhost:8081"))
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("ENV", "PROD")
	t.Setenv("PROVIDER_BASE_URL", "https://clerk.example.com")
	t.Setenv("PROVIDER_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")
	t.Setenv("BACKEND_API_TOKEN", "backend-token")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, "https://clerk.example.com", c.GetProviderBaseURL())
	require.Equal(t, "pk_test_123", c.GetProviderPublishableKey())
	require.Equal(t, 3*time.Second, c.GetProviderTimeout())
	require.Equal(t, "https://api.example.com", c.GetBackendBaseURL())
	require.Equal(t, "backend-token", c.GetBackendAPIToken())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.Equal(t, "https://a.example.com, https://b.example.com", origins.String())
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "soon")

	_, err := config.New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env")
}
