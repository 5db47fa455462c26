// Package config reads VisiGuard's environment variables into typed values.
package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/romariotrain/visiguard/internal/classifier"
	"github.com/romariotrain/visiguard/internal/video/domain"
)

const (
	MetadataJSON     = "json"
	MetadataSQLite   = "sqlite"
	MetadataPostgres = "postgres"

	BlobFS     = "fs"
	BlobMemory = "memory"
	BlobS3     = "s3"

	PacingTimed = "timed"
	PacingNone  = "none"
)

type Config struct {
	Address   string
	PublicURL string
	LogLevel  string
	LogFormat string
	DataDir   string

	MetadataBackend string
	DatabaseURL     string

	BlobBackend   string
	S3            S3
	PlaybackTTL   time.Duration
	SigningSecret []byte

	GeminiAPIKey     string
	GeminiModel      string
	ClassifierPolicy classifier.Policy
	ClassifyTimeout  time.Duration

	RecoveryPolicy domain.RecoveryPolicy
	Pacing         string
	ThumbnailURL   string
	MaxUploadBytes int64

	JWTSecret []byte
	TokenTTL  time.Duration

	KafkaBrokers   []string
	KafkaTopic     string
	RelayInterval  time.Duration
	RelayBatchSize int
}

type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

const (
	defaultAddress         = ":8080"
	defaultDataDir         = "data"
	defaultPlaybackTTL     = 15 * time.Minute
	defaultClassifyTimeout = 30 * time.Second
	defaultTokenTTL        = 24 * time.Hour
	defaultRelayInterval   = time.Second
	defaultRelayBatchSize  = 100
	defaultMaxUploadBytes  = 500 << 20 // 500 MiB
)

// Load reads configuration from VISIGUARD_* variables. Malformed numbers and
// durations fall back to defaults; unknown backend or policy names are errors.
func Load() (*Config, error) {
	cfg := &Config{
		Address:   readEnv("VISIGUARD_ADDRESS", defaultAddress),
		PublicURL: readEnv("VISIGUARD_PUBLIC_URL", ""),
		LogLevel:  readEnv("VISIGUARD_LOG_LEVEL", "info"),
		LogFormat: readEnv("VISIGUARD_LOG_FORMAT", "auto"),
		DataDir:   readEnv("VISIGUARD_DATA_DIR", defaultDataDir),

		MetadataBackend: strings.ToLower(readEnv("VISIGUARD_METADATA_BACKEND", MetadataJSON)),
		DatabaseURL:     readEnv("VISIGUARD_DATABASE_URL", readEnv("DATABASE_URL", "")),

		BlobBackend: strings.ToLower(readEnv("VISIGUARD_BLOB_BACKEND", BlobFS)),
		S3: S3{
			Endpoint:  readEnv("VISIGUARD_S3_ENDPOINT", ""),
			AccessKey: readEnv("VISIGUARD_S3_ACCESS_KEY", ""),
			SecretKey: readEnv("VISIGUARD_S3_SECRET_KEY", ""),
			Bucket:    readEnv("VISIGUARD_S3_BUCKET", "videos"),
			Region:    readEnv("VISIGUARD_S3_REGION", ""),
			UseSSL:    parseBool("VISIGUARD_S3_USE_SSL", false),
		},
		PlaybackTTL:   parseDuration("VISIGUARD_PLAYBACK_TTL", defaultPlaybackTTL),
		SigningSecret: parseSecret("VISIGUARD_SIGNING_SECRET"),

		GeminiAPIKey:    readEnv("VISIGUARD_GEMINI_API_KEY", readEnv("GEMINI_API_KEY", "")),
		GeminiModel:     readEnv("VISIGUARD_GEMINI_MODEL", classifier.DefaultGeminiModel),
		ClassifyTimeout: parseDuration("VISIGUARD_CLASSIFY_TIMEOUT", defaultClassifyTimeout),

		Pacing:         strings.ToLower(readEnv("VISIGUARD_PACING", PacingTimed)),
		ThumbnailURL:   readEnv("VISIGUARD_THUMBNAIL_URL", ""),
		MaxUploadBytes: parseInt64("VISIGUARD_MAX_UPLOAD_BYTES", defaultMaxUploadBytes),

		JWTSecret: parseSecret("VISIGUARD_JWT_SECRET"),
		TokenTTL:  parseDuration("VISIGUARD_TOKEN_TTL", defaultTokenTTL),

		KafkaBrokers:   parseList("VISIGUARD_KAFKA_BROKERS"),
		KafkaTopic:     readEnv("VISIGUARD_KAFKA_TOPIC", "visiguard.video-updates"),
		RelayInterval:  parseDuration("VISIGUARD_RELAY_INTERVAL", defaultRelayInterval),
		RelayBatchSize: parseInt("VISIGUARD_RELAY_BATCH_SIZE", defaultRelayBatchSize),
	}

	var err error
	if cfg.ClassifierPolicy, err = classifier.ParsePolicy(readEnv("VISIGUARD_CLASSIFIER_POLICY", "")); err != nil {
		return nil, err
	}
	if cfg.RecoveryPolicy, err = domain.ParseRecoveryPolicy(readEnv("VISIGUARD_RECOVERY_POLICY", "")); err != nil {
		return nil, err
	}

	switch cfg.MetadataBackend {
	case MetadataJSON, MetadataSQLite:
	case MetadataPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("VISIGUARD_DATABASE_URL is required for the postgres metadata backend")
		}
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
	}

	switch cfg.BlobBackend {
	case BlobFS, BlobMemory:
	case BlobS3:
		if cfg.S3.Endpoint == "" {
			return nil, fmt.Errorf("VISIGUARD_S3_ENDPOINT is required for the s3 blob backend")
		}
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}

	switch cfg.Pacing {
	case PacingTimed, PacingNone:
	default:
		return nil, fmt.Errorf("unknown pacing %q", cfg.Pacing)
	}

	if cfg.SigningSecret == nil {
		cfg.SigningSecret = randomSecret()
	}
	if cfg.JWTSecret == nil {
		cfg.JWTSecret = randomSecret()
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost" + listenPort(cfg.Address)
	}
	if cfg.PlaybackTTL <= 0 {
		cfg.PlaybackTTL = defaultPlaybackTTL
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = defaultClassifyTimeout
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.RelayInterval <= 0 {
		cfg.RelayInterval = defaultRelayInterval
	}
	if cfg.RelayBatchSize <= 0 {
		cfg.RelayBatchSize = defaultRelayBatchSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return cfg, nil
}

// MetadataPath is the JSON document or SQLite file under DataDir.
func (c *Config) MetadataPath() string {
	if c.MetadataBackend == MetadataSQLite {
		return filepath.Join(c.DataDir, "videos.db")
	}
	return filepath.Join(c.DataDir, "videos.json")
}

func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

func listenPort(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key string) []string {
	var out []string
	for _, part := range strings.Split(readEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

// randomSecret makes signatures and tokens valid for this process only.
func randomSecret() []byte {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return buf
}
