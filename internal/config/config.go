package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string   `mapstructure:"REDIS_URL"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTIssuer         string   `mapstructure:"JWT_ISSUER"`
	TokenTTLMinutes   int      `mapstructure:"TOKEN_TTL_MINUTES"`
	WebhookURL        string   `mapstructure:"DIAGNOSIS_WEBHOOK_URL"`
	WebhookSecret     string   `mapstructure:"DIAGNOSIS_WEBHOOK_SECRET"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	InviteTTLHours    int      `mapstructure:"INVITE_TTL_HOURS"`
	ScopeTTLHours     int      `mapstructure:"SCOPE_TTL_HOURS"`
	LowStockThreshold int      `mapstructure:"LOW_STOCK_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_ISSUER", "mediq")
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("INVITE_TTL_HOURS", 168)
	v.SetDefault("SCOPE_TTL_HOURS", 720)
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("DIAGNOSIS_WEBHOOK_URL")
	v.BindEnv("DIAGNOSIS_WEBHOOK_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("INVITE_TTL_HOURS")
	v.BindEnv("SCOPE_TTL_HOURS")
	v.BindEnv("LOW_STOCK_THRESHOLD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET not set; using an insecure development secret.")
		log.Println("WARNING: Set JWT_SECRET before deploying outside development.")
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret is mandatory, and the diagnosis webhook must be
// configured so that diagnosis submission can reach the workflow endpoint.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" || c.JWTSecret == "dev-secret-do-not-use-in-production" {
			return fmt.Errorf("JWT_SECRET must be set when ENV=%q", c.Env)
		}
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.InviteTTLHours <= 0 {
		return fmt.Errorf("INVITE_TTL_HOURS must be positive, got %d", c.InviteTTLHours)
	}
	if c.IsProduction() && c.WebhookURL == "" {
		return fmt.Errorf("DIAGNOSIS_WEBHOOK_URL is required in production")
	}
	return nil
}
