// config реализует конфигурацию сервиса комментариев: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища контейнера.
const (
	DriverFile   = "file"
	DriverMongo  = "mongo"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Limits     LimitsConfig     `yaml:"limits"`
	Spam       SpamConfig       `yaml:"spam"`
	Notify     NotifyConfig     `yaml:"notify"`
	Moderation ModerationConfig `yaml:"moderation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера (API, health, metrics).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	// BasePath — префикс всех маршрутов API, например "/api".
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH"`
	// AllowedOrigins — CORS для публичных маршрутов.
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// StoreConfig — выбор и настройки хранилища контейнера.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"file"`
	// Scope — идентификатор сайта: один контейнер на scope.
	Scope string `yaml:"scope" env:"STORE_SCOPE" env-default:"default"`
	// MaxRetries — число повторов цикла load/modify/save при конфликте ревизий.
	MaxRetries int         `yaml:"max_retries" env:"STORE_MAX_RETRIES" env-default:"3"`
	File       FileConfig  `yaml:"file"`
	Mongo      MongoConfig `yaml:"mongo"`
	S3         S3Config    `yaml:"s3"`
}

// FileConfig — JSON-файл на локальном диске.
type FileConfig struct {
	Path string `yaml:"path" env:"STORE_FILE_PATH" env-default:"data/comments.json"`
}

// MongoConfig — один документ на scope в коллекции MongoDB.
type MongoConfig struct {
	URL        string `yaml:"url" env:"DATABASE_URL"`
	Collection string `yaml:"collection" env:"MONGO_COLLECTION" env-default:"comment_containers"`
}

// S3Config — один объект на scope в бакете MinIO/S3.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser     string `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket       string `yaml:"bucket" env:"S3_BUCKET" env-default:"comments"`
	Prefix       string `yaml:"prefix" env:"S3_PREFIX" env-default:"comments/"`
}

// LimitsConfig — ограничения на поля отправки.
type LimitsConfig struct {
	// MaxFieldLength — предел длины имени/сообщения после очистки (в символах).
	MaxFieldLength int `yaml:"max_field_length" env:"MAX_FIELD_LENGTH" env-default:"1000"`
}

// SpamConfig — словари эвристики спама.
type SpamConfig struct {
	SuspiciousTLDs []string `yaml:"suspicious_tlds" env:"SPAM_SUSPICIOUS_TLDS" env-separator:"," env-default:"tk,ml,ga,cf"`
	Keywords       []string `yaml:"keywords" env:"SPAM_KEYWORDS" env-separator:"," env-default:"viagra,casino,poker,loan,credit"`
}

// NotifyConfig — уведомление модератора о новых комментариях.
// Пустой ModeratorContact отключает уведомления; пустой NATSURL включает режим заглушки.
type NotifyConfig struct {
	ModeratorContact string `yaml:"moderator_contact" env:"MODERATOR_EMAIL"`
	NATSURL          string `yaml:"nats_url" env:"NATS_URL"`
	Subject          string `yaml:"subject" env:"NOTIFY_SUBJECT" env-default:"comments.submitted"`
	Stream           string `yaml:"stream" env:"NOTIFY_STREAM" env-default:"COMMENTS"`
}

// ModerationConfig — доступ к административным маршрутам.
type ModerationConfig struct {
	Token string `yaml:"token" env:"COMMENT_MODERATION_TOKEN"`
	// Moderator — имя, которое пишется в moderatedBy, если клиент его не передал.
	Moderator string `yaml:"moderator" env:"MODERATOR_NAME" env-default:"moderator"`
}

// RateLimitConfig — ограничение частоты отправки комментариев с одного IP.
// PerMinute <= 0 отключает ограничение.
type RateLimitConfig struct {
	PerMinute float64 `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"6"`
	Burst     int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"3"`

	// TrustProxy — ключ лимита берётся из X-Forwarded-For; включать только
	// за прокси, который перезаписывает этот заголовок.
	TrustProxy bool `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY"`
}

// TimeoutConfig — сервисные таймауты.
type TimeoutConfig struct {
	// Request — общий дедлайн обработки HTTP-запроса.
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
	// Notify — дедлайн фоновой отправки уведомления.
	Notify time.Duration `yaml:"notify" env:"NOTIFY_TIMEOUT" env-default:"5s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь, 2) CONFIG_PATH.
	for _, p := range []string{path, os.Getenv("CONFIG_PATH")} {
		if p == "" {
			continue
		}

		c, err := tryRead(p)
		if err != nil {
			return nil, err
		}

		if err := c.validate(); err != nil {
			return nil, err
		}

		return c, nil
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		c, err := tryRead("local.yaml")
		if err != nil {
			return nil, err
		}

		if err := c.validate(); err != nil {
			return nil, err
		}

		return c, nil
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.File.Path == "" {
			return fmt.Errorf("store.file.path is required")
		}
	case DriverMongo:
		if c.Store.Mongo.URL == "" {
			return fmt.Errorf("store.mongo.url is required for mongo driver")
		}
	case DriverMinio:
		if c.Store.S3.Endpoint == "" || c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.endpoint and store.s3.bucket are required for minio driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	if strings.TrimSpace(c.Store.Scope) == "" {
		return fmt.Errorf("store.scope is required")
	}

	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("store.max_retries must be >= 0")
	}

	if c.Limits.MaxFieldLength <= 0 {
		return fmt.Errorf("limits.max_field_length must be > 0")
	}

	if c.RateLimit.PerMinute > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be > 0 when rate limiting is enabled")
	}

	if c.Timeouts.Notify < 0 || c.Timeouts.Request < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}

	return nil
}
