package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Telegram
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN" validate:"required"`
	Channels         string `mapstructure:"TG_CHANNELS"`
	Admins           string `mapstructure:"ADMINS"`

	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"gte=0,lte=65535"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Worker pool
	DownloadWorkers  int           `mapstructure:"DOWNLOAD_WORKERS" validate:"gte=1,lte=64"`
	TaskTimeout      time.Duration `mapstructure:"TASK_TIMEOUT" validate:"gt=0"`
	RecheckAdmission bool          `mapstructure:"RECHECK_ADMISSION"`
	SpoolDir         string        `mapstructure:"SPOOL_DIR"`

	// Extraction
	YtdlpPath    string `mapstructure:"YTDLP_PATH"`
	YtdlpUpdate  bool   `mapstructure:"YTDLP_UPDATE"`
	RapidAPIKey  string `mapstructure:"RAPIDAPI_KEY"`
	RapidAPIHost string `mapstructure:"RAPIDAPI_HOST"`
	ProxyURL     string `mapstructure:"PROXY_URL" validate:"omitempty,url"`

	// Reporting
	StatsSchedule   string `mapstructure:"STATS_SCHEDULE" validate:"required"`
	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE" validate:"oneof=ru en"`
}

// ChannelList returns the configured subscription requirements, skipping blanks.
func (c Config) ChannelList() []string {
	return splitList(c.Channels)
}

// AdminIDs parses ADMINS into chat ids. Entries that are not integers are
// logged and skipped.
func (c Config) AdminIDs() []int64 {
	var ids []int64
	for _, raw := range splitList(c.Admins) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Warn("ignoring invalid admin id", "value", raw, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LogValue keeps secrets out of the structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("channels", c.Channels),
		slog.Int("admins", len(c.AdminIDs())),
		slog.Int("webserver_port", c.WebServerPort),
		slog.Int("database_retries", c.DatabaseRetries),
		slog.Int("download_workers", c.DownloadWorkers),
		slog.Duration("task_timeout", c.TaskTimeout),
		slog.Bool("recheck_admission", c.RecheckAdmission),
		slog.String("spool_dir", c.SpoolDir),
		slog.String("ytdlp_path", c.YtdlpPath),
		slog.Bool("rapidapi", c.RapidAPIKey != ""),
		slog.Bool("proxy", c.ProxyURL != ""),
		slog.String("stats_schedule", c.StatsSchedule),
		slog.String("default_language", c.DefaultLanguage),
	)
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			_ = viper.BindEnv(tag)
			continue
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct {
			bindEnv(field.Type)
		}
	}
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Values already present in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(reflect.TypeOf(Config{}))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("WEBSERVER_PORT", 8080)
	viper.SetDefault("DOWNLOAD_WORKERS", 5)
	viper.SetDefault("TASK_TIMEOUT", "3m")
	viper.SetDefault("RECHECK_ADMISSION", true)
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("RAPIDAPI_HOST", "instagram-reels-downloader-api.p.rapidapi.com")
	viper.SetDefault("STATS_SCHEDULE", "0 0 * * *")
	viper.SetDefault("DEFAULT_LANGUAGE", "ru")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.SpoolDir) == "" {
		cfg.SpoolDir = os.TempDir()
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
