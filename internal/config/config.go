package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port        int      `mapstructure:"port"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"server"`

	Database struct {
		URI string `mapstructure:"uri"`
	} `mapstructure:"database"`

	Data struct {
		File string `mapstructure:"file"`
	} `mapstructure:"data"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	SMTP struct {
		Host   string `mapstructure:"host"`
		Port   int    `mapstructure:"port"`
		User   string `mapstructure:"user"`
		Pass   string `mapstructure:"pass"`
		Sender string `mapstructure:"sender"`
	} `mapstructure:"smtp"`

	Scheduler struct {
		FirstFireDelay   time.Duration `mapstructure:"first_fire_delay"`
		Interval         time.Duration `mapstructure:"interval"`
		MaxConcurrent    int           `mapstructure:"max_concurrent"`
		ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	} `mapstructure:"scheduler"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`

	Archive struct {
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		UseSSL    bool   `mapstructure:"use_ssl"`
	} `mapstructure:"archive"`

	Slack struct {
		Token   string `mapstructure:"token"`
		Channel string `mapstructure:"channel"`
	} `mapstructure:"slack"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Legacy environment names kept from the first deployment of the dashboard.
var envAliases = map[string]string{
	"database.uri":    "DASH_DB_URI",
	"auth.jwt_secret": "DASH_JWT_SECRET",
	"smtp.pass":       "DASH_SMTP_PASS",
	"smtp.sender":     "DASH_SENDER_EMAIL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.uri", "sqlite://data/dashboard.db")
	v.SetDefault("data.file", "data/sales_data.csv")
	v.SetDefault("auth.jwt_secret", "change_this_secret_in_prod")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.sender", "")
	v.SetDefault("scheduler.first_fire_delay", 10*time.Second)
	v.SetDefault("scheduler.interval", 7*24*time.Hour)
	v.SetDefault("scheduler.max_concurrent", 4)
	v.SetDefault("scheduler.execution_timeout", 5*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.ttl", time.Minute)
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.bucket", "dashboard-reports")
	v.SetDefault("archive.use_ssl", false)
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channel", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yaml from dir (if present), then .env and DASH_* environment
// variables. Values from the environment win over the file.
func LoadConfig(dir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.SetEnvPrefix("DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "DASH_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.SMTP.Sender == "" {
		config.SMTP.Sender = config.SMTP.User
	}

	return &config, nil
}
