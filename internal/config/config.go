// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"
	// Встроенная база часовых поясов для billing.timezone в минимальных образах.
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	GRPCAddress             string `yaml:"grpc_address" env:"GRPC_ADDRESS" env-default:":50051"`
	WebhookSecret           string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Billing                 `yaml:"billing"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	BeatTTL      time.Duration `yaml:"beat_ttl" env-default:"10m"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ структура для подключения к брокеру событий аналитики.
// Пустой URL отключает брокер: счётчик загрузок обновляется напрямую в базе.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Billing настройки учёта квот.
type Billing struct {
	// Timezone — зона, в которой считается календарный месяц. "Local" — зона процесса.
	Timezone string      `yaml:"timezone" env:"BILLING_TIMEZONE" env-default:"Local"`
	Tiers    []tier.Tier `yaml:"tiers"`
}

// Location возвращает зону учёта месячной квоты.
func (b Billing) Location() (*time.Location, error) {
	if b.Timezone == "" || b.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.Billing.Location: %w", err)
	}
	return loc, nil
}

// Catalog строит каталог тарифов из конфига либо возвращает тарифы по умолчанию.
func (b Billing) Catalog() (*tier.Catalog, error) {
	if len(b.Tiers) == 0 {
		return tier.NewCatalog(tier.Defaults())
	}
	return tier.NewCatalog(b.Tiers)
}

// MustLoad функция для загрузки конфига из файла CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"GRPCAddress: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  BeatTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"RabbitMQ enabled: %t\n"+
			"Billing timezone: %s\n",
		c.Env,
		c.MigrationsPath,
		c.GRPCAddress,
		c.AddressRedis,
		c.DB,
		c.BeatTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.RabbitMQ.URL != "",
		c.Timezone,
	)
}
