package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	ServerPort string
	GinMode    string

	JWTSecret string
	JWTExpiry time.Duration

	RedisAddr     string
	RedisPassword string

	RateLimitPerMin int
	RateLimitBurst  int
	CORSOrigins     []string
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		DBDriver:        getEnv("DB_DRIVER", "postgres"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "taskpanel"),
		DBPassword:      getEnv("DB_PASSWORD", "taskpanel"),
		DBName:          getEnv("DB_NAME", "taskpanel"),
		DBPath:          getEnv("DB_PATH", "taskpanel.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		JWTSecret:       getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiry:       time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 30),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func (c *Config) PostgresDSN() string {
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser +
		" password=" + c.DBPassword + " dbname=" + c.DBName + " sslmode=disable"
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, raw, defaultVal)
		return defaultVal
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
