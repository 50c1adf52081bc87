package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxprima/internal/config"
	"github.com/jonathan/luxprima/internal/server"
)

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/luxprima")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("SEARCH_PROVIDER", "")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/luxprima", cfg.DatabaseURL)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, config.DefaultSearchProvider, cfg.SearchProvider)
}

func TestLoadConfig_FileOverridesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/luxprima")
	t.Setenv("LLM_PROVIDER", "openai")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"llm_provider":"local","port":9100}`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.LLMProvider)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "postgres://env/luxprima", cfg.DatabaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	_, err := loadConfig("")
	assert.ErrorContains(t, err, "unknown llm_provider")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret-for-luxprima-tokens")

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	tokenSubject = "ops"
	require.NoError(t, runToken(tokenCmd, nil))

	jwtCfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtCfg).ValidateToken(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Error(t, runToken(tokenCmd, nil))
}

func TestStatusCommand_RequiresRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LLM_PROVIDER", "openai")
	assert.ErrorContains(t, runStatus(statusCmd, nil), "REDIS_ADDR")
}

func TestWire_RequiresDatabase(t *testing.T) {
	cfg := &config.Config{}
	_, err := wire(t.Context(), cfg, wireOptions{})
	assert.ErrorContains(t, err, "DATABASE_URL")
}
