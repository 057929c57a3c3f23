package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the runtime configuration, read once at startup.
type Settings struct {
	Port    string `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`

	Database struct {
		Driver    string `mapstructure:"driver"`
		DSN       string `mapstructure:"dsn"`
		BackupDir string `mapstructure:"backup_dir"`
	} `mapstructure:"database"`

	Session struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`

	Mail struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"mail"`

	S3 struct {
		Enabled   bool   `mapstructure:"enabled"`
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		PublicURL string `mapstructure:"public_url"`
		UseSSL    bool   `mapstructure:"use_ssl"`
	} `mapstructure:"s3"`

	Rate struct {
		Every  time.Duration `mapstructure:"every"`
		Burst  int           `mapstructure:"burst"`
		Prune  time.Duration `mapstructure:"prune"`
		Expire time.Duration `mapstructure:"expire"`
	} `mapstructure:"rate"`
}

// SetDefaults registers the default value of every setting on v. Unmarshal
// only reads environment variables for keys viper knows, so every key needs
// an entry here, even an empty one.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./sixchan.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	v.SetDefault("database.backup_dir", "./backups")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 11025)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "sixchan@example.com")
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.public_url", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("rate.every", DefaultRateLimitEvery)
	v.SetDefault("rate.burst", DefaultRateLimitBurst)
	v.SetDefault("rate.prune", DefaultRateLimitPrune)
	v.SetDefault("rate.expire", DefaultRateLimitExpire)
}

// Load reads config.yaml (if present) from the given paths and overlays
// SIXCHAN_* environment variables, e.g. SIXCHAN_DATABASE_DSN.
func Load(paths ...string) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("SIXCHAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if s.Database.Driver != "sqlite3" && s.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	return &s, nil
}
