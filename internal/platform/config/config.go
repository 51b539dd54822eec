package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	JWTSecret      string
	JWTIssuer      string

	SchedulerEnabled         bool
	SchedulerInterval        time.Duration
	SchedulerMaxRulesPerTick int

	// RateLimit is a ulule formatted rate such as "60-M", applied to manual rule execution.
	RateLimit          string
	CORSAllowedOrigins []string

	PosthogAPIKey   string
	PosthogEndpoint string
}

const (
	defaultSchedulerInterval = 5 * time.Minute
	defaultMaxRulesPerTick   = 100
)

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_INTERVAL", defaultSchedulerInterval.String())
	viper.SetDefault("SCHEDULER_MAX_RULES_PER_TICK", defaultMaxRulesPerTick)
	viper.SetDefault("RATE_LIMIT", "60-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.SchedulerEnabled = viper.GetBool("SCHEDULER_ENABLED")
	intervalStr := viper.GetString("SCHEDULER_INTERVAL")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		interval = defaultSchedulerInterval
		log.Printf("Warning: Invalid value for SCHEDULER_INTERVAL ('%s'). Defaulting to %s.\n", intervalStr, interval)
	}
	cfg.SchedulerInterval = interval

	cfg.SchedulerMaxRulesPerTick = viper.GetInt("SCHEDULER_MAX_RULES_PER_TICK")
	if cfg.SchedulerMaxRulesPerTick <= 0 {
		cfg.SchedulerMaxRulesPerTick = defaultMaxRulesPerTick
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
