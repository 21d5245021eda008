// Package config builds the process configuration once from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/ferag-backend/internal/platform/envutil"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BusRedis  = "redis"
	BusNATS   = "nats"
	BusMemory = "memory"

	QueueTemporal = "temporal"
	QueueLocal    = "local"
)

type Database struct {
	Driver string
	// URL wins over the discrete POSTGRES_* fields when set.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// SQLitePath is a file path or ":memory:".
	SQLitePath string
}

// DSN returns the postgres connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type Fuseki struct {
	URL          string
	User         string
	Password     string
	AdminTimeout time.Duration
	QueryTimeout time.Duration
	LoadTimeout  time.Duration
}

type LLM struct {
	APIURL string
	APIKey string
	Model  string
}

type Temporal struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout           time.Duration
	DialMaxWait           time.Duration
	AutoRegisterNamespace bool
}

type Tracing struct {
	Enabled     bool
	ServiceName string
	Environment string
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type Config struct {
	HTTPAddr    string
	LogMode     string
	CORSOrigins []string

	Database Database

	RedisAddr     string
	RedisPassword string
	StatusBus     string
	NATSURL       string

	Fuseki Fuseki
	LLM    LLM

	WorkDir             string
	GraphRAGTemplateDir string
	GraphRAGBin         string

	PipelineQueue     string
	WorkerConcurrency int
	StageTimeout      time.Duration

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	Temporal Temporal
	Tracing  Tracing
}

// Load reads every setting from the environment. The result is never
// mutated afterwards.
func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080", log),
		LogMode:     envutil.String("LOG_MODE", "development", log),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000", log)),

		Database: Database{
			Driver:     strings.ToLower(envutil.String("DATABASE_DRIVER", DriverPostgres, log)),
			URL:        envutil.String("DATABASE_URL", "", log),
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "ferag", log),
			SQLitePath: envutil.String("SQLITE_PATH", "ferag.db", log),
		},

		RedisAddr:     envutil.String("REDIS_ADDR", "localhost:6379", log),
		RedisPassword: envutil.String("REDIS_PASSWORD", "", log),
		StatusBus:     strings.ToLower(envutil.String("STATUS_BUS", BusRedis, log)),
		NATSURL:       envutil.String("NATS_URL", "nats://localhost:4222", log),

		Fuseki: Fuseki{
			URL:          envutil.String("FUSEKI_URL", "http://localhost:3030", log),
			User:         envutil.String("FUSEKI_USER", "admin", log),
			Password:     envutil.String("FUSEKI_PASSWORD", "", log),
			AdminTimeout: envutil.Seconds("FUSEKI_ADMIN_TIMEOUT_SECONDS", 30, log),
			QueryTimeout: envutil.Seconds("FUSEKI_QUERY_TIMEOUT_SECONDS", 120, log),
			LoadTimeout:  envutil.Seconds("FUSEKI_LOAD_TIMEOUT_SECONDS", 300, log),
		},

		LLM: LLM{
			APIURL: envutil.String("LLM_API_URL", "http://localhost:1234/v1", log),
			APIKey: envutil.String("LLM_API_KEY", "lm-studio", log),
			Model:  envutil.String("LLM_MODEL", "llama-3.3-70b-instruct", log),
		},

		WorkDir:             envutil.String("WORK_DIR", "/tmp/ferag", log),
		GraphRAGTemplateDir: envutil.String("GRAPHRAG_TEMPLATE_DIR", "", log),
		GraphRAGBin:         envutil.String("GRAPHRAG_BIN", "graphrag", log),

		PipelineQueue:     strings.ToLower(envutil.String("PIPELINE_QUEUE", QueueTemporal, log)),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4, log),
		StageTimeout:      envutil.Seconds("STAGE_TIMEOUT_SECONDS", 3600, log),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "", log),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", 86400, log),

		Temporal: Temporal{
			Address:               envutil.String("TEMPORAL_ADDRESS", "", log),
			Namespace:             envutil.String("TEMPORAL_NAMESPACE", "ferag", log),
			TaskQueue:             envutil.String("TEMPORAL_TASK_QUEUE", "ferag-cycles", log),
			ClientCertPath:        envutil.String("TEMPORAL_CLIENT_CERT_PATH", "", log),
			ClientKeyPath:         envutil.String("TEMPORAL_CLIENT_KEY_PATH", "", log),
			ClientCAPath:          envutil.String("TEMPORAL_CLIENT_CA_PATH", "", log),
			DialTimeout:           envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5, log),
			DialMaxWait:           envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60, log),
			AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		},

		Tracing: Tracing{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "ferag", log),
			Environment: envutil.String("APP_ENV", "development", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLER_PERCENT", 10, log)) / 100,
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown DATABASE_DRIVER %q", c.Database.Driver)
	}
	switch c.StatusBus {
	case BusRedis, BusNATS, BusMemory:
	default:
		return fmt.Errorf("config: unknown STATUS_BUS %q", c.StatusBus)
	}
	switch c.PipelineQueue {
	case QueueTemporal, QueueLocal:
	default:
		return fmt.Errorf("config: unknown PIPELINE_QUEUE %q", c.PipelineQueue)
	}
	if c.PipelineQueue == QueueTemporal && c.Temporal.Address == "" {
		return fmt.Errorf("config: PIPELINE_QUEUE=temporal requires TEMPORAL_ADDRESS")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("config: WORKER_CONCURRENCY must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
