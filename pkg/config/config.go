package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Shopify ShopifyConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Queue   QueueConfig
	Sync    SyncConfig
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
	Env          string `envconfig:"SHOPSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSYNC_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SHOPSYNC_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSYNC_DB_DSN"`
	Driver string `envconfig:"SHOPSYNC_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPSYNC_DB_HOST"`
	Port     int    `envconfig:"SHOPSYNC_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPSYNC_DB_USER"`
	Password string `envconfig:"SHOPSYNC_DB_PASSWORD"`
	Name     string `envconfig:"SHOPSYNC_DB_NAME"`
	SSLMode  string `envconfig:"SHOPSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSYNC_REDIS_URL"`
	Address      string        `envconfig:"SHOPSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ShopifyConfig struct {
	ShopDomain  string        `envconfig:"SHOPSYNC_SHOPIFY_SHOP_DOMAIN" required:"true"`
	AccessToken string        `envconfig:"SHOPSYNC_SHOPIFY_ACCESS_TOKEN" required:"true"`
	APIVersion  string        `envconfig:"SHOPSYNC_SHOPIFY_API_VERSION" default:"2024-10"`
	LocationID  int64         `envconfig:"SHOPSYNC_SHOPIFY_LOCATION_ID"`
	Timeout     time.Duration `envconfig:"SHOPSYNC_SHOPIFY_TIMEOUT" default:"30s"`
}

// BaseURL returns the Admin REST root for the configured shop.
func (s ShopifyConfig) BaseURL() string {
	domain := strings.TrimSpace(s.ShopDomain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimSuffix(domain, "/")
	return fmt.Sprintf("https://%s/admin/api/%s", domain, s.APIVersion)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOPSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SHOPSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOPSYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SyncTopic        string `envconfig:"SHOPSYNC_PUBSUB_SYNC_TOPIC" default:"shopify-sync-jobs"`
	SyncSubscription string `envconfig:"SHOPSYNC_PUBSUB_SYNC_SUBSCRIPTION" default:"shopify-sync-jobs-worker"`
}

// Configured reports whether a broker is configured at all. When false the
// scheduler never attempts queued mode.
func (p PubSubConfig) Configured(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" &&
		strings.TrimSpace(p.SyncTopic) != "" &&
		strings.TrimSpace(p.SyncSubscription) != ""
}

type QueueConfig struct {
	MaxAttempts   int           `envconfig:"SHOPSYNC_QUEUE_MAX_ATTEMPTS" default:"3"`
	BackoffBase   time.Duration `envconfig:"SHOPSYNC_QUEUE_BACKOFF_BASE" default:"5s"`
	BackoffMax    time.Duration `envconfig:"SHOPSYNC_QUEUE_BACKOFF_MAX" default:"10m"`
	RetentionDays int           `envconfig:"SHOPSYNC_QUEUE_RETENTION_DAYS" default:"7"`
	FailedKeep    int           `envconfig:"SHOPSYNC_QUEUE_FAILED_KEEP" default:"500"`
}

type SyncConfig struct {
	BatchSize          int           `envconfig:"SHOPSYNC_SYNC_BATCH_SIZE" default:"10"`
	BatchDelay         time.Duration `envconfig:"SHOPSYNC_SYNC_BATCH_DELAY" default:"1s"`
	DefaultImportLimit int           `envconfig:"SHOPSYNC_SYNC_IMPORT_LIMIT" default:"250"`
	LeaseTTL           time.Duration `envconfig:"SHOPSYNC_SYNC_LEASE_TTL" default:"15m"`
	InventoryCron      string        `envconfig:"SHOPSYNC_SYNC_INVENTORY_CRON" default:"0 */6 * * *"`
	ProductCron        string        `envconfig:"SHOPSYNC_SYNC_PRODUCT_CRON" default:"30 2 * * *"`
	// RecurringBidirectional opts the scheduled inventory runs into pushing
	// internal stock back out. Off by default: unattended runs stay pull-only.
	RecurringBidirectional bool `envconfig:"SHOPSYNC_SYNC_RECURRING_BIDIRECTIONAL" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
