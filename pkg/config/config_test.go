package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NDVI_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultAPIURL, cfg.Backend.BaseURL)
	require.Equal(t, 3*time.Minute, cfg.Backend.SubmitTimeout)
	require.Equal(t, 50, cfg.Backend.GalleryLimit)
	require.Equal(t, "ndvi_user_id", cfg.Identity.CookieName)
	require.Equal(t, 5, cfg.Preview.MaxAttempts)
}

func TestLoadFallsBackToFrontendVariable(t *testing.T) {
	t.Setenv("NDVI_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://ndvi.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://ndvi.example.com", cfg.Backend.BaseURL)
}

func TestLoadPrefersExplicitBackendURL(t *testing.T) {
	t.Setenv("NDVI_API_URL", "http://backend:9000")
	t.Setenv("NEXT_PUBLIC_API_URL", "https://ndvi.example.com")
	t.Setenv("NDVI_SUBMIT_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://backend:9000", cfg.Backend.BaseURL)
	require.Equal(t, 3*time.Minute, cfg.Backend.SubmitTimeout)
}

func TestSplitAndTrim(t *testing.T) {
	require.Nil(t, splitAndTrim(""))
	require.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b "))
}
