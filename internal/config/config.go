package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Share    ShareConfig    `mapstructure:"share"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Mode         string        `mapstructure:"mode"`
	BaseURL      string        `mapstructure:"base_url"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	MinIO MinIOConfig `mapstructure:"minio"`
	S3    S3Config    `mapstructure:"s3"`
	Local LocalConfig `mapstructure:"local"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	BucketPrefix string `mapstructure:"bucket_prefix"`
}

// S3Config S3配置
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	RootPath string `mapstructure:"root_path"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// PostgresConfig PostgreSQL配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ShareConfig 分享配置
type ShareConfig struct {
	TokenBytes          int           `mapstructure:"token_bytes"`
	BcryptCost          int           `mapstructure:"bcrypt_cost"`
	MaxPasswordAttempts int           `mapstructure:"max_password_attempts"`
	LockoutWindow       time.Duration `mapstructure:"lockout_window"`
}

// envBindings 兼容旧的环境变量名
var envBindings = map[string]string{
	"server.address":               "SERVER_ADDRESS",
	"server.mode":                  "SERVER_MODE",
	"server.base_url":              "BASE_URL",
	"auth.jwt_secret":              "JWT_SECRET",
	"database.type":                "DATABASE_TYPE",
	"database.postgres.host":       "POSTGRES_HOST",
	"database.postgres.port":       "POSTGRES_PORT",
	"database.postgres.username":   "POSTGRES_USERNAME",
	"database.postgres.password":   "POSTGRES_PASSWORD",
	"database.postgres.database":   "POSTGRES_DATABASE",
	"database.postgres.ssl_mode":   "POSTGRES_SSL_MODE",
	"database.sqlite.path":         "SQLITE_PATH",
	"storage.type":                 "STORAGE_TYPE",
	"storage.minio.endpoint":       "MINIO_ENDPOINT",
	"storage.minio.access_key":     "MINIO_ACCESS_KEY",
	"storage.minio.secret_key":     "MINIO_SECRET_KEY",
	"storage.minio.bucket_prefix":  "MINIO_BUCKET_PREFIX",
	"storage.s3.endpoint":          "S3_ENDPOINT",
	"storage.s3.region":            "S3_REGION",
	"storage.s3.bucket":            "S3_BUCKET",
	"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"storage.local.root_path":      "LOCAL_STORAGE_ROOT",
	"cache.type":                   "CACHE_TYPE",
	"cache.redis.address":          "REDIS_ADDRESS",
	"cache.redis.password":         "REDIS_PASSWORD",
	"cache.redis.db":               "REDIS_DB",
	"logging.level":                "LOG_LEVEL",
	"share.max_password_attempts":  "SHARE_MAX_PASSWORD_ATTEMPTS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.read_timeout", 15*time.Minute)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("auth.jwt_secret", "your-secret-key")
	v.SetDefault("auth.token_expiry", 24*time.Hour)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.bucket_prefix", "user-")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.local.root_path", "./data/storage")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.sqlite.path", "./data/app.db")
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("share.token_bytes", 16)
	v.SetDefault("share.bcrypt_cost", 10)
	v.SetDefault("share.max_password_attempts", 10)
	v.SetDefault("share.lockout_window", 15*time.Minute)
}

// Load 加载配置
func Load() (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/share-gateway")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	switch c.Storage.Type {
	case "minio", "s3", "local":
	default:
		return fmt.Errorf("unsupported storage type %q", c.Storage.Type)
	}
	switch c.Cache.Type {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported cache type %q", c.Cache.Type)
	}
	if c.Share.TokenBytes < 16 {
		return fmt.Errorf("share.token_bytes must be at least 16, got %d", c.Share.TokenBytes)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "postgres":
		return buildPostgresDSN(c.Database.Postgres)
	case "sqlite":
		return c.Database.SQLite.Path
	default:
		return ""
	}
}

// buildPostgresDSN 构建PostgreSQL DSN
func buildPostgresDSN(config PostgresConfig) string {
	dsn := "host=" + config.Host
	dsn += " port=" + strconv.Itoa(config.Port)
	dsn += " user=" + config.Username
	dsn += " password=" + config.Password
	dsn += " dbname=" + config.Database
	dsn += " sslmode=" + config.SSLMode
	return dsn
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production" || c.Server.Mode == "release"
}

// GetGINMode 获取Gin模式
func (c *Config) GetGINMode() string {
	switch c.Server.Mode {
	case "debug":
		return gin.DebugMode
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
