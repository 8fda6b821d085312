package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr             string
	PostgresDSN      string
	JWTSigningKey    string
	TokenTTL         time.Duration
	BootstrapAdmin   string
	BootstrapSecret  string
	LedgerName       string
	LedgerSymbol     string
	RegistryRef      string
	InitialLogicRef  string
	Redis            RedisConfig
	Kafka            KafkaConfig
	ShutdownTimeout  time.Duration
	IssuerCacheTTL   time.Duration
}

// RedisConfig carries connection settings for the issuer authorization cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig carries settings for the audit relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:            envOr("ATTESTOR_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("ATTESTOR_POSTGRES_DSN"),
		JWTSigningKey:   envOr("ATTESTOR_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:        envDurationOr("ATTESTOR_TOKEN_TTL", 15*time.Minute),
		BootstrapAdmin:  os.Getenv("ATTESTOR_BOOTSTRAP_ADMIN"),
		BootstrapSecret: os.Getenv("ATTESTOR_BOOTSTRAP_SECRET"),
		LedgerName:      envOr("ATTESTOR_LEDGER_NAME", "Attestor Credentials"),
		LedgerSymbol:    envOr("ATTESTOR_LEDGER_SYMBOL", "ATTC"),
		RegistryRef:     os.Getenv("ATTESTOR_REGISTRY_REF"),
		InitialLogicRef: envOr("ATTESTOR_LOGIC_REF", "v1"),
		Redis: RedisConfig{
			URL:          os.Getenv("ATTESTOR_REDIS_URL"),
			PoolSize:     envIntOr("ATTESTOR_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("ATTESTOR_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("ATTESTOR_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("ATTESTOR_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("ATTESTOR_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("ATTESTOR_KAFKA_BROKERS")),
			Topic:   envOr("ATTESTOR_AUDIT_TOPIC", "attestor.audit.events"),
		},
		ShutdownTimeout: envDurationOr("ATTESTOR_SHUTDOWN_TIMEOUT", 10*time.Second),
		IssuerCacheTTL:  envDurationOr("ATTESTOR_ISSUER_CACHE_TTL", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if part := csv[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
