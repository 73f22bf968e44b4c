package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort     string
	PublicBaseURL  string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	RedisURL       string
	JWTSecret      string
	UploadDir      string
	MaxUploadMB    int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() *Config {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "parley"),
		DBPassword:     getEnv("DB_PASSWORD", "parley_dev_password"),
		DBName:         getEnv("DB_NAME", "parley"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		UploadDir:      getEnv("UPLOAD_DIR", "./data/attachments"),
		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 25),
		RateLimitRPS:   float64(getEnvInt("RATE_LIMIT_RPS", 20)),
		RateLimitBurst: int(getEnvInt("RATE_LIMIT_BURST", 40)),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
