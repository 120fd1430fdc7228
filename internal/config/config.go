package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort               = 3000
	defaultEnv                = "development"
	defaultStoreDriver        = StoreMemory
	defaultMongoURI           = "mongodb://localhost:27017"
	defaultMongoDatabase      = "doorlock"
	defaultCollection         = "devices"
	defaultRedisURL           = "redis://localhost:6379/0"
	defaultPushDriver         = PushNone
	defaultBarkServer         = "https://api.day.app"
	defaultReconcileInterval  = time.Second
	defaultPingInterval       = 30 * time.Second
	defaultTokenLength        = 10
	defaultRateLimitPerSecond = 20
	envPort                   = "PORT"
	envMongoURI               = "DOORLOCK_MONGO_URI"
	envRedisURL               = "DOORLOCK_REDIS_URL"
)

// Store drivers.
const (
	StoreMemory    = "memory"
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
)

// Push drivers.
const (
	PushNone = "none"
	PushFCM  = "fcm"
	PushBark = "bark"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	AllowedOrigins []string
	Paths          RuntimePathsConfig
	Store          StoreConfig
	Redis          RedisConfig
	Push           PushConfig
	Gateway        GatewayConfig
	RateLimit      RateLimitConfig
}

type RuntimePathsConfig struct {
	Logs string
}

type StoreConfig struct {
	Driver    string
	Mongo     MongoConfig
	Firestore FirestoreConfig
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
}

type RedisConfig struct {
	Enable bool
	URL    string
}

type PushConfig struct {
	Driver string
	FCM    FCMConfig
	Bark   BarkConfig
}

type FCMConfig struct {
	CredentialsFile string
}

type BarkConfig struct {
	ServerURL string
	Key       string
}

type GatewayConfig struct {
	ReconcileInterval time.Duration
	PingInterval      time.Duration
	TokenLength       int
}

// RateLimitConfig needs Redis; it is ignored when Redis is disabled.
type RateLimitConfig struct {
	Enable    bool
	PerSecond int
}

type rawAppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Paths          rawPathsConfig `yaml:"paths"`
	Store          rawStoreConfig `yaml:"store"`
	Redis          rawRedisConfig `yaml:"redis"`
	Push           rawPushConfig  `yaml:"push"`
	Gateway        rawGateway     `yaml:"gateway"`
	RateLimit      rawRateLimit   `yaml:"rate_limit"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawStoreConfig struct {
	Driver string `yaml:"driver"`
	Mongo  struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
	Firestore struct {
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
		Collection      string `yaml:"collection"`
	} `yaml:"firestore"`
}

type rawRedisConfig struct {
	Enable *bool  `yaml:"enable"`
	URL    string `yaml:"url"`
}

type rawPushConfig struct {
	Driver string `yaml:"driver"`
	FCM    struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"fcm"`
	Bark struct {
		ServerURL string `yaml:"server_url"`
		Key       string `yaml:"key"`
	} `yaml:"bark"`
}

type rawGateway struct {
	ReconcileInterval string `yaml:"reconcile_interval"`
	PingInterval      string `yaml:"ping_interval"`
	TokenLength       int    `yaml:"token_length"`
}

type rawRateLimit struct {
	Enable    *bool `yaml:"enable"`
	PerSecond int   `yaml:"per_second"`
}

// Load reads configPath over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawAppConfig{}
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		if err := applyRawAppConfig(&cfg, raw); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	normalizeAppConfig(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Store: StoreConfig{
			Driver: defaultStoreDriver,
			Mongo: MongoConfig{
				URI:        defaultMongoURI,
				Database:   defaultMongoDatabase,
				Collection: defaultCollection,
			},
			Firestore: FirestoreConfig{Collection: defaultCollection},
		},
		Redis: RedisConfig{URL: defaultRedisURL},
		Push: PushConfig{
			Driver: defaultPushDriver,
			Bark:   BarkConfig{ServerURL: defaultBarkServer},
		},
		Gateway: GatewayConfig{
			ReconcileInterval: defaultReconcileInterval,
			PingInterval:      defaultPingInterval,
			TokenLength:       defaultTokenLength,
		},
		RateLimit: RateLimitConfig{Enable: true, PerSecond: defaultRateLimitPerSecond},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}

	setString(&cfg.Store.Driver, raw.Store.Driver)
	setString(&cfg.Store.Mongo.URI, raw.Store.Mongo.URI)
	setString(&cfg.Store.Mongo.Database, raw.Store.Mongo.Database)
	setString(&cfg.Store.Mongo.Collection, raw.Store.Mongo.Collection)
	setString(&cfg.Store.Firestore.ProjectID, raw.Store.Firestore.ProjectID)
	setString(&cfg.Store.Firestore.CredentialsFile, raw.Store.Firestore.CredentialsFile)
	setString(&cfg.Store.Firestore.Collection, raw.Store.Firestore.Collection)

	if raw.Redis.Enable != nil {
		cfg.Redis.Enable = *raw.Redis.Enable
	}
	setString(&cfg.Redis.URL, raw.Redis.URL)

	setString(&cfg.Push.Driver, raw.Push.Driver)
	setString(&cfg.Push.FCM.CredentialsFile, raw.Push.FCM.CredentialsFile)
	setString(&cfg.Push.Bark.ServerURL, raw.Push.Bark.ServerURL)
	setString(&cfg.Push.Bark.Key, raw.Push.Bark.Key)

	if err := setDuration(&cfg.Gateway.ReconcileInterval, raw.Gateway.ReconcileInterval, "gateway.reconcile_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Gateway.PingInterval, raw.Gateway.PingInterval, "gateway.ping_interval"); err != nil {
		return err
	}
	if raw.Gateway.TokenLength != 0 {
		cfg.Gateway.TokenLength = raw.Gateway.TokenLength
	}

	if raw.RateLimit.Enable != nil {
		cfg.RateLimit.Enable = *raw.RateLimit.Enable
	}
	if raw.RateLimit.PerSecond != 0 {
		cfg.RateLimit.PerSecond = raw.RateLimit.PerSecond
	}
	return nil
}

// applyEnv lets deployment platforms override the listen port and the
// connection strings without editing the file.
func applyEnv(cfg *AppConfig, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(envPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envPort, v, err)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(getenv(envMongoURI)); v != "" {
		cfg.Store.Mongo.URI = v
	}
	if v := strings.TrimSpace(getenv(envRedisURL)); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enable = true
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New("store.mongo.uri is required for the mongo driver")
		}
	case StoreFirestore:
		if c.Store.Firestore.ProjectID == "" {
			return errors.New("store.firestore.project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Push.Driver {
	case PushNone, PushFCM:
	case PushBark:
		if c.Push.Bark.Key == "" {
			return errors.New("push.bark.key is required for the bark driver")
		}
	default:
		return fmt.Errorf("unknown push.driver %q", c.Push.Driver)
	}
	if c.Gateway.ReconcileInterval <= 0 {
		return fmt.Errorf("invalid gateway.reconcile_interval %s", c.Gateway.ReconcileInterval)
	}
	if c.Gateway.TokenLength < 1 {
		return fmt.Errorf("invalid gateway.token_length %d", c.Gateway.TokenLength)
	}
	if c.RateLimit.PerSecond < 1 {
		return fmt.Errorf("invalid rate_limit.per_second %d", c.RateLimit.PerSecond)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env != "production"
}

// LogDir is the resolved directory for the daily log file.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

// RateLimitActive reports whether the Redis-backed limiter should be mounted.
func (c *AppConfig) RateLimitActive() bool {
	return c.RateLimit.Enable && c.Redis.Enable
}
