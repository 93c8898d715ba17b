package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	JWTSigningKey string
	JWTIssuer     string
	JWTTTL        time.Duration

	Database Database
	Redis    RedisConfig

	// KVBackend selects the key-value overlay: "postgres", "redis" or "none".
	KVBackend string

	// MetricsToken guards /metrics when set.
	MetricsToken string

	BootstrapAdmin BootstrapAdmin
}

// Database configures the relational entity store. An empty DSN selects the
// in-memory store.
type Database struct {
	DSN          string
	MaxOpenConns int
	AutoMigrate  bool
}

// RedisConfig configures the optional Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BootstrapAdmin is created at startup when both fields are set and no user
// with that username exists.
type BootstrapAdmin struct {
	Username string
	Password string
}

// UsesDevSigningKey reports whether no signing key was configured.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == defaultDevSigningKey
}

func (b BootstrapAdmin) Enabled() bool {
	return strings.TrimSpace(b.Username) != "" && b.Password != ""
}

const (
	KVBackendPostgres = "postgres"
	KVBackendRedis    = "redis"
	KVBackendNone     = "none"

	defaultDevSigningKey = "dev-secret-change-me"
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          getEnv("RECENSEMENT_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		JWTIssuer:     getEnv("JWT_ISSUER", "recensement"),
		MetricsToken:  os.Getenv("METRICS_TOKEN"),
		JWTSigningKey: firstEnv("JWT_SIGNING_KEY", "JWT_SECRET_KEY", "SECRET_KEY"),
		BootstrapAdmin: BootstrapAdmin{
			Username: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}
	if cfg.JWTSigningKey == "" {
		// Development default; override in any shared environment.
		cfg.JWTSigningKey = defaultDevSigningKey
	}

	var err error
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 12*time.Hour); err != nil {
		return Server{}, err
	}

	cfg.Database.DSN = DSNFromEnv()
	if cfg.Database.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 10); err != nil {
		return Server{}, err
	}
	if cfg.Database.AutoMigrate, err = boolEnv("DB_AUTO_MIGRATE", true); err != nil {
		return Server{}, err
	}

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	if cfg.Redis.PoolSize, err = intEnv("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = durationEnv("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}

	cfg.KVBackend = strings.ToLower(os.Getenv("KV_BACKEND"))
	if cfg.KVBackend == "" {
		cfg.KVBackend = defaultKVBackend(cfg)
	}
	switch cfg.KVBackend {
	case KVBackendPostgres, KVBackendRedis, KVBackendNone:
	default:
		return Server{}, fmt.Errorf("KV_BACKEND must be postgres, redis or none, got %q", cfg.KVBackend)
	}
	return cfg, nil
}

// DSNFromEnv resolves the Postgres connection string. A URL in DATABASE_URL,
// POSTGRES_URL or PGDATABASE_URL wins; otherwise the discrete PG* variables
// are combined, and all of host, database, user and password must be present.
// Returns "" when Postgres is not configured.
func DSNFromEnv() string {
	sslmode := os.Getenv("PGSSLMODE")
	rootCert := os.Getenv("PGSSLROOTCERT")

	if raw := firstEnv("DATABASE_URL", "POSTGRES_URL", "PGDATABASE_URL"); raw != "" {
		if sslmode == "" && rootCert == "" {
			return raw
		}
		return withURLSSL(raw, sslmode, rootCert)
	}

	host := os.Getenv("PGHOST")
	port := getEnv("PGPORT", "5432")
	dbname := firstEnv("PGDATABASE", "PGDB", "DB_NAME")
	user := firstEnv("PGUSER", "DB_USER")
	password := firstEnv("PGPASSWORD", "DB_PASSWORD")
	if host == "" || dbname == "" || user == "" || password == "" {
		return ""
	}

	if sslmode == "" {
		sslmode = "require"
	}
	parts := []string{
		"host=" + quoteDSN(host),
		"port=" + quoteDSN(port),
		"dbname=" + quoteDSN(dbname),
		"user=" + quoteDSN(user),
		"password=" + quoteDSN(password),
		"sslmode=" + quoteDSN(sslmode),
	}
	if rootCert != "" {
		parts = append(parts, "sslrootcert="+quoteDSN(rootCert))
	}
	return strings.Join(parts, " ")
}

// withURLSSL adds ssl parameters to a URL DSN unless it already carries them.
func withURLSSL(raw, sslmode, rootCert string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if sslmode != "" && q.Get("sslmode") == "" {
		q.Set("sslmode", sslmode)
	}
	if rootCert != "" && q.Get("sslrootcert") == "" {
		q.Set("sslrootcert", rootCert)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// defaultKVBackend follows the entity store: Postgres when a DSN is set, else
// Redis when a URL is set, else none.
func defaultKVBackend(cfg Server) string {
	switch {
	case cfg.Database.DSN != "":
		return KVBackendPostgres
	case cfg.Redis.URL != "":
		return KVBackendRedis
	default:
		return KVBackendNone
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}
