package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, "sqlite3", s.Database.Driver)
	assert.Equal(t, 30*time.Second, s.Rate.Every)
	assert.Equal(t, DefaultRateLimitBurst, s.Rate.Burst)
	assert.Equal(t, 168*time.Hour, s.Session.TTL)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "port: \"9090\"\ndatabase:\n  driver: postgres\n  dsn: postgres://localhost/sixchan\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("SIXCHAN_SESSION_SECRET", "from-env")
	t.Setenv("SIXCHAN_S3_ENABLED", "true")
	t.Setenv("SIXCHAN_S3_ENDPOINT", "s3.example.com")
	t.Setenv("SIXCHAN_S3_BUCKET", "backups")
	t.Setenv("SIXCHAN_S3_ACCESS_KEY", "access")
	t.Setenv("SIXCHAN_S3_SECRET_KEY", "secret")
	t.Setenv("SIXCHAN_S3_PUBLIC_URL", "https://cdn.example.com")
	t.Setenv("SIXCHAN_MAIL_USERNAME", "mailer")
	t.Setenv("SIXCHAN_MAIL_PASSWORD", "hunter2")

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, "postgres", s.Database.Driver)
	assert.Equal(t, "postgres://localhost/sixchan", s.Database.DSN)
	assert.Equal(t, "from-env", s.Session.Secret)
	assert.True(t, s.S3.Enabled)
	assert.Equal(t, "s3.example.com", s.S3.Endpoint)
	assert.Equal(t, "backups", s.S3.Bucket)
	assert.Equal(t, "access", s.S3.AccessKey)
	assert.Equal(t, "secret", s.S3.SecretKey)
	assert.Equal(t, "https://cdn.example.com", s.S3.PublicURL)
	assert.Equal(t, "mailer", s.Mail.Username)
	assert.Equal(t, "hunter2", s.Mail.Password)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SIXCHAN_DATABASE_DRIVER", "mysql")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
