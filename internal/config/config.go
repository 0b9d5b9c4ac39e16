package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	JWTSecret     string
	SessionTTL    time.Duration
	CORSOrigin    string
	// Admin identity. The password is checked against AdminPasswordHash or the
	// admin_accounts table when a database is configured.
	AdminEmail        string
	AdminPasswordHash string
	// Image CDN
	CDNProvider            string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string
	UploadFolder           string
	MaxUploadBytes         int64
	MaxImagePixels         int64
	// S3-compatible image storage, used when CDNProvider is "s3"
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3PublicURL string
	// Search
	MeiliURL       string
	MeiliMasterKey string
	// Revision history
	HistoryDir string
	// SMTP Configuration
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	ContactRecipient string
	// Redis - admin sessions fall back to process memory when empty
	RedisURL string
}

// Load reads configuration from the environment. When COGNETEX_CONFIG names a
// YAML file, its keys supply values for variables that are not set.
func Load() (Config, error) {
	file, err := readFile(os.Getenv("COGNETEX_CONFIG"))
	if err != nil {
		return Config{}, err
	}
	return load(lookup(file)), nil
}

// MustLoad is Load for callers that cannot continue without configuration.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func load(get func(string) string) Config {
	return Config{
		Addr:          getenv(get, "API_ADDR", ":8787"),
		DatabaseURL:   getenv(get, "DATABASE_URL", ""),
		MigrationsDir: getenv(get, "COGNETEX_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:     getenv(get, "COGNETEX_JWT_SECRET", "cognetex-dev-secret"),
		SessionTTL:    time.Duration(getenvInt(get, "COGNETEX_SESSION_TTL_SECONDS", 43200)) * time.Second,
		CORSOrigin:    getenv(get, "COGNETEX_CORS_ORIGIN", "*"),

		AdminEmail:        getenv(get, "ADMIN_EMAIL", ""),
		AdminPasswordHash: getenv(get, "ADMIN_PASSWORD_HASH", ""),

		CDNProvider:            strings.ToLower(getenv(get, "CDN_PROVIDER", "cloudinary")),
		CloudinaryCloudName:    getenv(get, "CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:       getenv(get, "CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:    getenv(get, "CLOUDINARY_API_SECRET", ""),
		CloudinaryUploadPreset: getenv(get, "CLOUDINARY_UPLOAD_PRESET", ""),
		UploadFolder:           getenv(get, "CLOUDINARY_UPLOAD_FOLDER", "cognetex/team"),
		MaxUploadBytes:         int64(getenvInt(get, "COGNETEX_MAX_UPLOAD_BYTES", 10<<20)),
		MaxImagePixels:         int64(getenvInt(get, "COGNETEX_MAX_IMAGE_PIXELS", 40_000_000)),

		S3Endpoint:  getenv(get, "S3_ENDPOINT", ""),
		S3AccessKey: getenv(get, "S3_ACCESS_KEY", ""),
		S3SecretKey: getenv(get, "S3_SECRET_KEY", ""),
		S3Bucket:    getenv(get, "S3_BUCKET", ""),
		S3UseSSL:    getenvBool(get, "S3_USE_SSL", true),
		S3PublicURL: getenv(get, "S3_PUBLIC_URL", ""),

		MeiliURL:       getenv(get, "MEILI_URL", ""),
		MeiliMasterKey: getenv(get, "MEILI_MASTER_KEY", ""),

		HistoryDir: getenv(get, "COGNETEX_HISTORY_DIR", ""),

		// SMTP - empty by default, email disabled if not configured
		SMTPHost:         getenv(get, "SMTP_HOST", ""),
		SMTPPort:         getenv(get, "SMTP_PORT", "587"),
		SMTPUsername:     getenv(get, "SMTP_USERNAME", ""),
		SMTPPassword:     getenv(get, "SMTP_PASSWORD", ""),
		SMTPFrom:         getenv(get, "SMTP_FROM", ""),
		SMTPFromName:     getenv(get, "SMTP_FROM_NAME", "Cognetex"),
		ContactRecipient: getenv(get, "CONTACT_RECIPIENT", ""),

		RedisURL: getenv(get, "REDIS_URL", ""),
	}
}

// CloudinaryConfigured reports whether signed or preset uploads are possible.
func (c Config) CloudinaryConfigured() bool {
	if c.CloudinaryCloudName == "" {
		return false
	}
	if c.CloudinaryUploadPreset != "" {
		return true
	}
	return c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		out[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return out, nil
}

func lookup(file map[string]string) func(string) string {
	return func(key string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return file[key]
	}
}

func getenv(get func(string) string, key, fallback string) string {
	value := get(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(get func(string) string, key string, fallback int) int {
	value := get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(get func(string) string, key string, fallback bool) bool {
	value := get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
