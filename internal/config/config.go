package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "PORTFOLIO"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabasePath       = "portfolio.db"
	defaultLogLevel           = "info"
	defaultCookieName         = "portfolio_session"
	defaultSessionTTLMinutes  = 720
	defaultEditorIdleMinutes  = 60
	defaultBlobDriver         = "fs"
	defaultBlobRoot           = "uploads"
	defaultCacheTTLMinutes    = 720
	defaultSMTPPort           = 587
	defaultPublicBaseURL      = "http://localhost:8080"
	defaultCORSAllowedOrigins = "http://localhost:3000"
)

// BlobConfig selects and configures the blob store driver.
type BlobConfig struct {
	Driver          string
	FSRoot          string
	PublicBaseURL   string
	S3Region        string
	S3Bucket        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3PublicBaseURL string
}

// SMTPConfig configures outbound mail; an empty host logs mail instead.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress          string
	DatabasePath         string
	LogLevel             string
	SessionSigningSecret string
	SessionCookieName    string
	SessionCookieSecure  bool
	SessionTTL           time.Duration
	EditorIdleTTL        time.Duration
	AdminEmails          []string
	OwnerEmail           string
	Blob                 BlobConfig
	CacheTTL             time.Duration
	SMTP                 SMTPConfig
	CORSAllowedOrigins   []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.cookie_secure", false)
	configViper.SetDefault("session.ttl_minutes", defaultSessionTTLMinutes)
	configViper.SetDefault("editor.idle_minutes", defaultEditorIdleMinutes)
	configViper.SetDefault("admin.emails", "")
	configViper.SetDefault("contact.owner_email", "")
	configViper.SetDefault("blob.driver", defaultBlobDriver)
	configViper.SetDefault("blob.fs_root", defaultBlobRoot)
	configViper.SetDefault("blob.public_base_url", defaultPublicBaseURL)
	configViper.SetDefault("blob.s3_region", "")
	configViper.SetDefault("blob.s3_bucket", "")
	configViper.SetDefault("blob.s3_endpoint", "")
	configViper.SetDefault("blob.s3_access_key_id", "")
	configViper.SetDefault("blob.s3_secret_access_key", "")
	configViper.SetDefault("blob.s3_use_path_style", false)
	configViper.SetDefault("blob.s3_public_base_url", "")
	configViper.SetDefault("cache.ttl_minutes", defaultCacheTTLMinutes)
	configViper.SetDefault("smtp.host", "")
	configViper.SetDefault("smtp.port", defaultSMTPPort)
	configViper.SetDefault("smtp.username", "")
	configViper.SetDefault("smtp.password", "")
	configViper.SetDefault("smtp.from", "")
	configViper.SetDefault("cors.allowed_origins", defaultCORSAllowedOrigins)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		DatabasePath:         configViper.GetString("database.path"),
		LogLevel:             configViper.GetString("log.level"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		SessionCookieName:    configViper.GetString("session.cookie_name"),
		SessionCookieSecure:  configViper.GetBool("session.cookie_secure"),
		SessionTTL:           time.Duration(configViper.GetInt("session.ttl_minutes")) * time.Minute,
		EditorIdleTTL:        time.Duration(configViper.GetInt("editor.idle_minutes")) * time.Minute,
		AdminEmails:          splitList(configViper.GetString("admin.emails")),
		OwnerEmail:           strings.TrimSpace(configViper.GetString("contact.owner_email")),
		Blob: BlobConfig{
			Driver:          strings.ToLower(strings.TrimSpace(configViper.GetString("blob.driver"))),
			FSRoot:          configViper.GetString("blob.fs_root"),
			PublicBaseURL:   configViper.GetString("blob.public_base_url"),
			S3Region:        configViper.GetString("blob.s3_region"),
			S3Bucket:        configViper.GetString("blob.s3_bucket"),
			S3Endpoint:      configViper.GetString("blob.s3_endpoint"),
			S3AccessKeyID:   configViper.GetString("blob.s3_access_key_id"),
			S3SecretKey:     configViper.GetString("blob.s3_secret_access_key"),
			S3UsePathStyle:  configViper.GetBool("blob.s3_use_path_style"),
			S3PublicBaseURL: configViper.GetString("blob.s3_public_base_url"),
		},
		CacheTTL: time.Duration(configViper.GetInt("cache.ttl_minutes")) * time.Minute,
		SMTP: SMTPConfig{
			Host:     configViper.GetString("smtp.host"),
			Port:     configViper.GetInt("smtp.port"),
			Username: configViper.GetString("smtp.username"),
			Password: configViper.GetString("smtp.password"),
			From:     configViper.GetString("smtp.from"),
		},
		CORSAllowedOrigins: splitList(configViper.GetString("cors.allowed_origins")),
	}
	if cfg.OwnerEmail == "" && len(cfg.AdminEmails) > 0 {
		cfg.OwnerEmail = cfg.AdminEmails[0]
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningSecret) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if len(c.AdminEmails) == 0 {
		return fmt.Errorf("admin.emails is required")
	}
	switch c.Blob.Driver {
	case "fs":
		if strings.TrimSpace(c.Blob.FSRoot) == "" {
			return fmt.Errorf("blob.fs_root is required for the fs driver")
		}
	case "s3":
		if strings.TrimSpace(c.Blob.S3Bucket) == "" {
			return fmt.Errorf("blob.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("blob.driver must be fs or s3, got %q", c.Blob.Driver)
	}
	if c.SMTP.Host != "" && strings.TrimSpace(c.SMTP.From) == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}

// LoadSeed parses only the settings the seed command needs.
func LoadSeed(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		DatabasePath: configViper.GetString("database.path"),
		LogLevel:     configViper.GetString("log.level"),
		CacheTTL:     time.Duration(configViper.GetInt("cache.ttl_minutes")) * time.Minute,
	}
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return AppConfig{}, fmt.Errorf("database.path is required")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
