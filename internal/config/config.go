// Package config loads process configuration via viper, following the
// teacher's internal/config structure (nested structs, SetDefault calls,
// explicit env-var overrides for secrets) with the UPTIME-prefixed knobs
// replaced by STATUSPULSE's own ambient and domain settings. A local .env
// is loaded with github.com/joho/godotenv before viper reads the
// environment, matching the retrieved kurihiro0119/github-activity-metrics
// example's config.Load() layering.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Keycloak   KeycloakConfig
	Executor   ExecutorConfig
	LLM        LLMConfig
	SMTP       SMTPConfig
	Credential CredentialConfig
	VCS        VCSConfig
}

type VCSConfig struct {
	GlobalToken string
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL string
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type ExecutorConfig struct {
	TickPeriod          time.Duration
	GraceWindow         time.Duration
	DefaultFetchWindow  time.Duration
	TriggerDedupWindow  time.Duration
}

type LLMConfig struct {
	APIKey          string
	Model           string
	MinInterval     time.Duration
	Instruction     string
}

type SMTPConfig struct {
	Provider string
	User     string
	Password string
}

type CredentialConfig struct {
	EncryptionKey string // base64, 32 bytes decoded
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("STATUSPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("executor.tickperiod", "60s")
	viper.SetDefault("executor.gracewindow", "5m")
	viper.SetDefault("executor.defaultfetchwindow", "24h")
	viper.SetDefault("executor.triggerdedupwindow", "10s")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.mininterval", "2s")
	viper.SetDefault("llm.instruction", "Summarize this contributor's recent pull request activity in a concise, friendly status update email.")
	viper.SetDefault("smtp.provider", "gmail")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("KEYCLOAK_URL"); v != "" {
		cfg.Keycloak.URL = v
	}
	if v := os.Getenv("STATUSPULSE_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("STATUSPULSE_SMTP_USER"); v != "" {
		cfg.SMTP.User = v
	}
	if v := os.Getenv("STATUSPULSE_SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("STATUSPULSE_CREDENTIAL_KEY"); v != "" {
		cfg.Credential.EncryptionKey = v
	}
	if v := os.Getenv("STATUSPULSE_VCS_TOKEN"); v != "" {
		cfg.VCS.GlobalToken = v
	}

	return &cfg, nil
}
