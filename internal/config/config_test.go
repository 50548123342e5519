package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "EXP", cfg.TrackingPrefix)
	require.Equal(t, "2.5", cfg.RateMin.String())
	require.Equal(t, "5", cfg.RateMax.String())
	require.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
jwt_secret: file-secret
token_ttl: 2h
tracking_prefix: OPS
rate_min: "3.0"
rate_max: "4.2"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "file-secret", cfg.JWTSecret)
	require.Equal(t, 2*time.Hour, cfg.TokenTTL)
	require.Equal(t, "OPS", cfg.TrackingPrefix)
	require.Equal(t, "3", cfg.RateMin.String())
	require.Equal(t, "4.2", cfg.RateMax.String())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-wins")
	t.Setenv("TRADINGDESK_ADDR", ":7070")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: file-secret\nlisten_addr: \":9090\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-wins", cfg.JWTSecret)
	require.Equal(t, ":7070", cfg.ListenAddr)
}

func TestInvalidBandRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("RATE_MIN", "5.0")
	t.Setenv("RATE_MAX", "2.5")

	_, err := Load("")
	require.Error(t, err)
}
