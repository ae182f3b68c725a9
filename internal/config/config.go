package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Префикс переменных окружения с DSN баз данных по странам:
// DB_DSN_KE, DB_DSN_NG и т.д.
const dsnPrefix = "DB_DSN_"

type Config struct {
	Environment string

	// DSN по коду страны (нижний регистр)
	DatabaseDSNs map[string]string

	RedisAddr     string
	RedisPassword string

	// Токен для уведомлений провайдерам, пустой - уведомления выключены
	TelegramToken string

	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// Load загружает конфигурацию из .env файла и переменных окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		Environment:   os.Getenv("ENV"),
		DatabaseDSNs:  parseCountryDSNs(os.Environ()),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}

	var err error
	cfg.SweepInterval, err = minutesEnv("SWEEP_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.SweepGrace, err = minutesEnv("SWEEP_GRACE_MINUTES", 5)
	if err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if len(cfg.DatabaseDSNs) == 0 {
		return nil, fmt.Errorf("at least one %s<COUNTRY> variable is required but none set", dsnPrefix)
	}

	return cfg, nil
}

// parseCountryDSNs собирает DSN по странам из переменных вида DB_DSN_<CC>
func parseCountryDSNs(environ []string) map[string]string {
	dsns := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, dsnPrefix) || value == "" {
			continue
		}
		country := strings.ToLower(strings.TrimPrefix(key, dsnPrefix))
		if country == "" {
			continue
		}
		dsns[country] = value
	}
	return dsns
}

func minutesEnv(key string, def int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Minute, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(minutes) * time.Minute, nil
}
