package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BRENDONIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BRENDONIA_DB_DSN"
	EnvDBHost = "BRENDONIA_DB_HOST"
	EnvDBUser = "BRENDONIA_DB_USER"
	EnvDBName = "BRENDONIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payevo       PayevoConfig
	OpenAI       OpenAIConfig
	Transcript   TranscriptConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Worker       WorkerConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRENDONIA_APP_ENV" required:"true"`
	Port         string `envconfig:"BRENDONIA_APP_PORT" default:"3001"`
	LogLevel     string `envconfig:"BRENDONIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRENDONIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRENDONIA_DB_DSN"`
	Driver string `envconfig:"BRENDONIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRENDONIA_DB_HOST"`
	LegacyPort     int    `envconfig:"BRENDONIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRENDONIA_DB_USER"`
	LegacyPassword string `envconfig:"BRENDONIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRENDONIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRENDONIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRENDONIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRENDONIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRENDONIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRENDONIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRENDONIA_REDIS_URL"`
	Address      string        `envconfig:"BRENDONIA_REDIS_ADDR"`
	Password     string        `envconfig:"BRENDONIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRENDONIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRENDONIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRENDONIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRENDONIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRENDONIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRENDONIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens issued by the identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"BRENDONIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BRENDONIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BRENDONIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PayevoConfig holds the payment gateway wiring. Checkout is link-based:
// links are created in the PayEvo dashboard and looked up per pack here.
type PayevoConfig struct {
	WebhookSecret string `envconfig:"BRENDONIA_PAYEVO_WEBHOOK_SECRET"`
	LinkP150      string `envconfig:"BRENDONIA_PAYEVO_LINK_P150"`
	LinkP300      string `envconfig:"BRENDONIA_PAYEVO_LINK_P300"`
	LinkP500      string `envconfig:"BRENDONIA_PAYEVO_LINK_P500"`
	LinkPro       string `envconfig:"BRENDONIA_PAYEVO_LINK_PRO"`
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"BRENDONIA_OPENAI_API_KEY"`
	Model   string        `envconfig:"BRENDONIA_OPENAI_MODEL" default:"gpt-4.1"`
	BaseURL string        `envconfig:"BRENDONIA_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout time.Duration `envconfig:"BRENDONIA_OPENAI_TIMEOUT" default:"120s"`
}

type TranscriptConfig struct {
	BaseURL  string        `envconfig:"BRENDONIA_TRANSCRIPT_BASE_URL" default:"https://www.youtube.com"`
	Language string        `envconfig:"BRENDONIA_TRANSCRIPT_LANGUAGE" default:"pt"`
	Timeout  time.Duration `envconfig:"BRENDONIA_TRANSCRIPT_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRENDONIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BRENDONIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRENDONIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	VideoTopic        string `envconfig:"BRENDONIA_PUBSUB_VIDEO_TOPIC" default:"brendonia-video-events"`
	VideoSubscription string `envconfig:"BRENDONIA_PUBSUB_VIDEO_SUBSCRIPTION"`
}

type WorkerConfig struct {
	RescanInterval time.Duration `envconfig:"BRENDONIA_WORKER_RESCAN_INTERVAL" default:"1m"`
	StaleAfter     time.Duration `envconfig:"BRENDONIA_WORKER_STALE_AFTER" default:"5m"`
	RescanBatch    int           `envconfig:"BRENDONIA_WORKER_RESCAN_BATCH" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BRENDONIA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
