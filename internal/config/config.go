package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// Webhook delivery service - Configuration with Environment Overrides
// =============================================================================

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Worker    WorkerConfig    `yaml:"worker"`
	Retention RetentionConfig `yaml:"retention"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Backend            string `yaml:"backend"` // postgres | supabase | spanner
	PostgresURL        string `yaml:"postgres_url"`
	SupabaseURL        string `yaml:"supabase_url"`
	SupabaseServiceKey string `yaml:"supabase_service_key"`
	SpannerProject     string `yaml:"spanner_project"`
	SpannerInstance    string `yaml:"spanner_instance"`
	SpannerDatabase    string `yaml:"spanner_database"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

type QueueConfig struct {
	Backend    string           `yaml:"backend"` // redis | cloudtasks
	CloudTasks CloudTasksConfig `yaml:"cloud_tasks"`
}

type CloudTasksConfig struct {
	ProjectID    string `yaml:"project_id"`
	LocationID   string `yaml:"location_id"`
	QueueID      string `yaml:"queue_id"`
	TargetURL    string `yaml:"target_url"`
	CallbackAddr string `yaml:"callback_addr"` // address cmd/worker listens on for the Cloud Tasks callback
}

type WorkerConfig struct {
	HTTPTimeoutSec     int   `yaml:"http_timeout_sec"`
	MaxAttempts        int   `yaml:"max_attempts"`
	BackoffScheduleSec []int `yaml:"backoff_schedule_sec"`
	PoolSize           int   `yaml:"pool_size"`
}

type RetentionConfig struct {
	HorizonHours         int `yaml:"horizon_hours"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

type EventsConfig struct {
	PubSubProjectID string `yaml:"pubsub_project_id"`
	PubSubTopicID   string `yaml:"pubsub_topic_id"`
	Enabled         bool   `yaml:"enabled"`
}

// =============================================================================
// Singleton Pattern with Environment Overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton config instance, mirroring the teacher's
// config.Get(): load once from CONFIG_PATH (default config.yaml), apply env
// overrides, then fall back to the built-in defaults for anything unset.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		cfg.applyDefaults()
		instance = cfg
	})
	return instance
}

// LoadConfig loads config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies OCX_WEBHOOKS_<PATH> environment overrides,
// mirroring the teacher's getEnv/override pattern.
func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("OCX_WEBHOOKS_SERVER_PORT", c.Server.Port)

	c.Database.Backend = getEnv("OCX_WEBHOOKS_DATABASE_BACKEND", c.Database.Backend)
	c.Database.PostgresURL = getEnv("OCX_WEBHOOKS_DATABASE_POSTGRES_URL", c.Database.PostgresURL)
	c.Database.SupabaseURL = getEnv("OCX_WEBHOOKS_DATABASE_SUPABASE_URL", c.Database.SupabaseURL)
	c.Database.SupabaseServiceKey = getEnv("OCX_WEBHOOKS_DATABASE_SUPABASE_SERVICE_KEY", c.Database.SupabaseServiceKey)
	c.Database.SpannerProject = getEnv("OCX_WEBHOOKS_DATABASE_SPANNER_PROJECT", c.Database.SpannerProject)
	c.Database.SpannerInstance = getEnv("OCX_WEBHOOKS_DATABASE_SPANNER_INSTANCE", c.Database.SpannerInstance)
	c.Database.SpannerDatabase = getEnv("OCX_WEBHOOKS_DATABASE_SPANNER_DATABASE", c.Database.SpannerDatabase)

	c.Redis.Addr = getEnv("OCX_WEBHOOKS_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Enabled = getEnvBool("OCX_WEBHOOKS_REDIS_ENABLED", c.Redis.Enabled)

	c.Queue.Backend = getEnv("OCX_WEBHOOKS_QUEUE_BACKEND", c.Queue.Backend)
	c.Queue.CloudTasks.ProjectID = getEnv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_PROJECT", c.Queue.CloudTasks.ProjectID)
	c.Queue.CloudTasks.LocationID = getEnv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_LOCATION", c.Queue.CloudTasks.LocationID)
	c.Queue.CloudTasks.QueueID = getEnv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_QUEUE", c.Queue.CloudTasks.QueueID)
	c.Queue.CloudTasks.TargetURL = getEnv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_TARGET_URL", c.Queue.CloudTasks.TargetURL)
	c.Queue.CloudTasks.CallbackAddr = getEnv("OCX_WEBHOOKS_QUEUE_CLOUDTASKS_CALLBACK_ADDR", c.Queue.CloudTasks.CallbackAddr)

	if v := getEnvInt("OCX_WEBHOOKS_WORKER_HTTP_TIMEOUT_SEC", 0); v > 0 {
		c.Worker.HTTPTimeoutSec = v
	}
	if v := getEnvInt("OCX_WEBHOOKS_WORKER_MAX_ATTEMPTS", 0); v > 0 {
		c.Worker.MaxAttempts = v
	}
	if v := getEnvInt("OCX_WEBHOOKS_WORKER_POOL_SIZE", 0); v > 0 {
		c.Worker.PoolSize = v
	}
	if v := os.Getenv("OCX_WEBHOOKS_WORKER_BACKOFF_SCHEDULE_SEC"); v != "" {
		var schedule []int
		for _, part := range strings.Split(v, ",") {
			secs, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || secs < 0 {
				schedule = nil
				break
			}
			schedule = append(schedule, secs)
		}
		if len(schedule) > 0 {
			c.Worker.BackoffScheduleSec = schedule
		}
	}

	if v := getEnvInt("OCX_WEBHOOKS_RETENTION_HORIZON_HOURS", 0); v > 0 {
		c.Retention.HorizonHours = v
	}
	if v := getEnvInt("OCX_WEBHOOKS_RETENTION_SWEEP_INTERVAL_MINUTES", 0); v > 0 {
		c.Retention.SweepIntervalMinutes = v
	}

	c.Events.PubSubProjectID = getEnv("OCX_WEBHOOKS_EVENTS_PUBSUB_PROJECT_ID", c.Events.PubSubProjectID)
	c.Events.PubSubTopicID = getEnv("OCX_WEBHOOKS_EVENTS_PUBSUB_TOPIC_ID", c.Events.PubSubTopicID)
	c.Events.Enabled = getEnvBool("OCX_WEBHOOKS_EVENTS_ENABLED", c.Events.Enabled)
}

// applyDefaults fills in the defaults named in SPEC_FULL.md §6.4 for any
// zero-valued field.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Backend == "" {
		c.Database.Backend = "postgres"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = "redis"
	}
	if c.Queue.CloudTasks.CallbackAddr == "" {
		c.Queue.CloudTasks.CallbackAddr = ":8081"
	}
	if c.Worker.HTTPTimeoutSec == 0 {
		c.Worker.HTTPTimeoutSec = 5
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 5
	}
	if len(c.Worker.BackoffScheduleSec) == 0 {
		c.Worker.BackoffScheduleSec = []int{10, 30, 60, 300, 900}
	}
	if c.Worker.PoolSize == 0 {
		c.Worker.PoolSize = 8
	}
	if c.Retention.HorizonHours == 0 {
		c.Retention.HorizonHours = 72
	}
	if c.Retention.SweepIntervalMinutes == 0 {
		c.Retention.SweepIntervalMinutes = 60
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
