package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "ALLOWED_ORIGINS", "STORE_BACKEND", "ADMIN_AUTH", "ADMIN_TOKEN", "SMTP_USER", "MAIL_FROM"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "smtp.qq.com", cfg.Mail.Host)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "info@huanbo-logistics.com", cfg.Mail.From)
	assert.Equal(t, 15*time.Second, cfg.Mail.SendTimeout)
	assert.Equal(t, "static", cfg.Admin.Mode)
	assert.Equal(t, DevAdminToken, cfg.Admin.Token)
	assert.Equal(t, 30*time.Second, cfg.Mail.DrainWindow)
	assert.Empty(t, cfg.Server.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORE_BACKEND", "badger")
	t.Setenv("MAIL_SEND_TIMEOUT", "3s")
	t.Setenv("NOTIFY_DRAIN_WINDOW", "5s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg := FromEnv()

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 3*time.Second, cfg.Mail.SendTimeout)
	assert.Equal(t, 5*time.Second, cfg.Mail.DrainWindow)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "")
	base := FromEnv()

	cfg := base
	cfg.Storage.Backend = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Admin.Mode = "jwt"
	cfg.Admin.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Mail.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "not-a-proxy"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDevAdminTokenInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_AUTH", "static")
	t.Setenv("ADMIN_TOKEN", "")

	cfg := FromEnv()
	require.Equal(t, DevAdminToken, cfg.Admin.Token)
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_TOKEN")

	cfg.Admin.Token = "a-real-production-token"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Environment = EnvDevelopment
	cfg.Admin.Token = DevAdminToken
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsDotEnv(t *testing.T) {
	// godotenv never overrides variables that are already present, even empty ones.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=4321\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4321, cfg.Server.Port)
}

func TestLoadMissingDotEnvIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
