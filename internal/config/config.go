// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	FrontendURL             string `yaml:"frontend_url" env-default:"http://localhost:3000"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Password                `yaml:"password"`
	Notifications           `yaml:"notifications"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis  string        `yaml:"addressredis"`
	PasswordRedis string        `yaml:"password"`
	User          string        `yaml:"user"`
	DB            int           `yaml:"db"`
	MaxRetries    int           `yaml:"max_retries"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	TimeoutRedis  time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с подписанными токенами.
//
// Секрет читается один раз при старте и дальше не меняется.
type JWTToken struct {
	JWTSecretKey     string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	Issuer           string        `yaml:"issuer" env-default:"account-service"`
	TokenTTL         time.Duration `yaml:"token_ttl" env-default:"24h"`
	EmailVerifyTTL   time.Duration `yaml:"email_verify_ttl" env-default:"48h"`
	PasswordResetTTL time.Duration `yaml:"password_reset_ttl" env-default:"1h"`
}

// Password настройки хеширования паролей
type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env-default:"10"`
}

// Notifications включает или выключает отправку писем
type Notifications struct {
	Enabled bool `yaml:"enabled" env:"NOTIFICATIONS_ENABLED"`
}

// RabbitMQ настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// MustLoad функция для загрузки конфига из файла по пути CONFIG_PATH
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

// Load читает конфиг по указанному пути и проверяет обязательные поля.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwt_secret_key is required", op)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  Issuer: %s\n"+
			"  TokenTTL: %s\n"+
			"  EmailVerifyTTL: %s\n"+
			"  PasswordResetTTL: %s\n"+
			"Notifications:\n"+
			"  Enabled: %t\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Issuer,
		c.TokenTTL,
		c.EmailVerifyTTL,
		c.PasswordResetTTL,
		c.Enabled,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
