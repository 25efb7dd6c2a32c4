package config

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 16, cfg.Share.TokenBytes)
	assert.Equal(t, 10, cfg.Share.MaxPasswordAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Share.LockoutWindow)
	assert.Equal(t, "./data/app.db", cfg.GetDSN())
}

func TestLoad_LegacyEnv(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_USERNAME", "share")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DATABASE", "shares")
	t.Setenv("BASE_URL", "https://files.example.com")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("SHARE_MAX_PASSWORD_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://files.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Address)
	assert.Equal(t, 3, cfg.Share.MaxPasswordAttempts)
	assert.Equal(t, "host=db.internal port=6543 user=share password=pw dbname=shares sslmode=disable", cfg.GetDSN())
}

func TestLoad_RejectsUnknownTypes(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "ftp")
	_, err := Load()
	assert.ErrorContains(t, err, "storage type")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Auth:     AuthConfig{JWTSecret: "s"},
		Storage:  StorageConfig{Type: "minio"},
		Database: DatabaseConfig{Type: "postgres"},
		Cache:    CacheConfig{Type: "redis"},
		Share:    ShareConfig{TokenBytes: 32},
	}
	assert.NoError(t, valid.Validate())

	short := valid
	short.Share.TokenBytes = 8
	assert.Error(t, short.Validate())

	noSecret := valid
	noSecret.Auth.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	badDB := valid
	badDB.Database.Type = "mysql"
	assert.Error(t, badDB.Validate())
}

func TestGetGINMode(t *testing.T) {
	for mode, want := range map[string]string{
		"debug":      gin.DebugMode,
		"release":    gin.ReleaseMode,
		"production": gin.ReleaseMode,
		"test":       gin.TestMode,
		"":           gin.DebugMode,
	} {
		cfg := Config{Server: ServerConfig{Mode: mode}}
		assert.Equal(t, want, cfg.GetGINMode(), mode)
		assert.Equal(t, mode == "release" || mode == "production", cfg.IsProduction(), mode)
	}
}
