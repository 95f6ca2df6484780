package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	APIPort string
	AppEnv  string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SolveQueueName      string
	SolveLockPrefix     string
	SolveLockTTLSeconds int

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string
	AITemperature    float64
	AIMaxTokens      int
	AITimeout        time.Duration

	Judge0APIURL  string
	Judge0APIKey  string
	Judge0APIHost string

	ExecutionCPUTimeLimit  float64
	ExecutionMemoryLimitKb int
	ExecutionMaxPolls      int
	ExecutionPollInterval  time.Duration

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		AppEnv:              getEnv("APP_ENV", "development"),
		JWTKey:              []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:              time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "user"),
		DBPassword:          getEnv("DB_PASSWORD", "password"),
		DBName:              getEnv("DB_NAME", "problem_solver_db"),
		DBSslMode:           getEnv("DB_SSLMODE", "disable"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvAsInt("REDIS_DB", 0),
		SolveQueueName:      getEnv("SOLVE_QUEUE_NAME", "solve_jobs_queue"),
		SolveLockPrefix:     getEnv("SOLVE_LOCK_PREFIX", "solve_lock:"),
		SolveLockTTLSeconds: getEnvAsInt("SOLVE_LOCK_TTL_SECONDS", 300),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-sonnet-20240229"),
		AITemperature:    getEnvAsFloat("AI_TEMPERATURE", 0.7),
		AIMaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 2000),
		AITimeout:        time.Duration(getEnvAsInt("AI_TIMEOUT_SECONDS", 60)) * time.Second,

		Judge0APIURL:  getEnv("JUDGE0_API_URL", "https://judge0-ce.p.rapidapi.com"),
		Judge0APIKey:  getEnv("JUDGE0_API_KEY", ""),
		Judge0APIHost: getEnv("JUDGE0_API_HOST", "judge0-ce.p.rapidapi.com"),

		ExecutionCPUTimeLimit:  getEnvAsFloat("EXECUTION_CPU_TIME_LIMIT", 2),
		ExecutionMemoryLimitKb: getEnvAsInt("EXECUTION_MEMORY_LIMIT_KB", 128000),
		ExecutionMaxPolls:      getEnvAsInt("EXECUTION_MAX_POLLS", 10),
		ExecutionPollInterval:  time.Duration(getEnvAsInt("EXECUTION_POLL_INTERVAL_MS", 1000)) * time.Millisecond,

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
