// Package config centralizes environment-variable loading for all three
// binaries (gateway, apiserver, worker). Each binary reads only the subset
// it needs, following the same env/default pattern throughout.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func Str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func List(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ObjectStoreSecure resolves the single "use TLS" flag for the object store
// adapter. MINIO_SECURE and MINIO_USE_SSL are both referenced across the
// deployment history of this system; this is the one place that reconciles
// them so the rest of the codebase only ever sees one boolean.
func ObjectStoreSecure(def bool) bool {
	if v := os.Getenv("MINIO_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

// Auth holds the signing configuration shared by every component that
// mints or verifies bearer tokens.
type Auth struct {
	Secret          string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	BcryptCost      int
}

func LoadAuth() Auth {
	return Auth{
		Secret:     Str("AUTH_SIGNING_SECRET", "dev-secret-change-in-production"),
		AccessTTL:  Duration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTTL: Duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost: Int("BCRYPT_COST", 12),
	}
}

// Database holds the metadata store's connection pool tuning. Defaults
// mirror a single apiserver replica; deployments running several replicas
// behind one Postgres instance should shrink MaxConns per process.
type Database struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func LoadDatabase() Database {
	return Database{
		URL:               Str("DATABASE_URL", ""),
		MaxConns:          int32(Int("DATABASE_MAX_CONNS", 20)),
		MinConns:          int32(Int("DATABASE_MIN_CONNS", 2)),
		MaxConnLifetime:   Duration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
		MaxConnIdleTime:   Duration("DATABASE_MAX_CONN_IDLE_TIME", 30*time.Minute),
		HealthCheckPeriod: Duration("DATABASE_HEALTH_CHECK_PERIOD", time.Minute),
	}
}

// ObjectStore holds MinIO/S3-compatible connection details, split into the
// in-cluster endpoint and the browser-reachable one.
type ObjectStore struct {
	Endpoint    string
	ExternalURL string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Secure      bool
}

func LoadObjectStore() ObjectStore {
	return ObjectStore{
		Endpoint:    Str("MINIO_ENDPOINT", "minio:9000"),
		ExternalURL: Str("MINIO_EXTERNAL_URL", "http://localhost:9000"),
		AccessKey:   Str("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:   Str("MINIO_SECRET_KEY", "minioadmin123"),
		Bucket:      Str("MINIO_BUCKET", "zimage-images"),
		Secure:      ObjectStoreSecure(false),
	}
}

// Queue holds the broker connection used by the asynq-backed queue adapter.
type Queue struct {
	RedisAddr     string
	RedisDB       int
	RedisPassword string
	Lane          string
}

func LoadQueue() Queue {
	return Queue{
		RedisAddr:     Str("QUEUE_REDIS_ADDR", "redis:6379"),
		RedisDB:       Int("QUEUE_REDIS_DB", 3),
		RedisPassword: Str("QUEUE_REDIS_PASSWORD", ""),
		Lane:          Str("QUEUE_LANE", "image_generation"),
	}
}

// KV holds the connection for the shared ephemeral cache (GPU telemetry,
// rate-limit counters).
type KV struct {
	RedisAddr     string
	RedisDB       int
	RedisPassword string
}

func LoadKV() KV {
	return KV{
		RedisAddr:     Str("KV_REDIS_ADDR", "redis:6379"),
		RedisDB:       Int("KV_REDIS_DB", 5),
		RedisPassword: Str("KV_REDIS_PASSWORD", ""),
	}
}

// RateLimit holds the edge router's fixed-window configuration.
type RateLimit struct {
	WindowSeconds int
	Limit         int
}

func LoadRateLimit() RateLimit {
	return RateLimit{
		WindowSeconds: Int("RATE_LIMIT_WINDOW_SECONDS", 60),
		Limit:         Int("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// Worker holds the dispatcher's own tuning knobs: how many jobs run
// concurrently in this process and whether the translation side-pass is
// enabled at all (some deployments run without a translator pipeline).
type Worker struct {
	Concurrency      int
	TranslateEnabled bool
}

func LoadWorker() Worker {
	return Worker{
		Concurrency:      Int("WORKER_CONCURRENCY", 1),
		TranslateEnabled: Bool("WORKER_TRANSLATE_ENABLED", true),
	}
}

// Edge holds the gateway's own configuration: the CORS allowlist and the
// upstream base URL the submission API lives behind.
type Edge struct {
	CORSAllowedOrigins []string
	UpstreamBaseURL    string
	UpstreamTimeout    time.Duration
}

func LoadEdge() Edge {
	return Edge{
		CORSAllowedOrigins: List("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		UpstreamBaseURL:    Str("API_UPSTREAM_URL", "http://apiserver:8080"),
		UpstreamTimeout:    Duration("UPSTREAM_TIMEOUT", 30*time.Second),
	}
}
