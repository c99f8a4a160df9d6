package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "PORT", "ADMIN_EMAIL", "ENCRYPTION_KEY", "FRONTEND_ORIGINS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, DefaultAdminEmail, cfg.AdminEmail)
	assert.Len(t, cfg.EncryptionKey, 32)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.FrontendOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_EMAIL", "support@example.com")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef")
	t.Setenv("FRONTEND_ORIGINS", "https://shop.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "support@example.com", cfg.AdminEmail)
	assert.Equal(t, []byte("0123456789abcdef"), cfg.EncryptionKey)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.FrontendOrigins)
}

func TestLoadRejectsBadKeyLength(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
}
