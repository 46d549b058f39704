package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Empty means tasks run on the in-process queue.
	SQSTaskQueueURL string `mapstructure:"sqs_task_queue_url"`
	LPREnabled      bool   `mapstructure:"lpr_enabled"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueSize   int `mapstructure:"queue_size"`
}

type ReminderConfig struct {
	// Width of the window after the configured reminder time in which the daily job may fire.
	WindowMinutes int `mapstructure:"window_minutes"`
	DefaultHour   int `mapstructure:"default_hour"`
	DefaultMinute int `mapstructure:"default_minute"`
}

type ExportConfig struct {
	Dir          string `mapstructure:"dir"`
	RetentionHrs int    `mapstructure:"retention_hours"`
}

type CacheConfig struct {
	LotsTTLSeconds    int `mapstructure:"lots_ttl_seconds"`
	HistoryTTLSeconds int `mapstructure:"history_ttl_seconds"`
	SummaryTTLSeconds int `mapstructure:"summary_ttl_seconds"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"full_name"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Mail     MailConfig     `mapstructure:"mail"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Export   ExportConfig   `mapstructure:"export"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Admin    AdminConfig    `mapstructure:"admin"`
	// IANA zone used for human-readable timestamps and calendar-day boundaries.
	Timezone string `mapstructure:"timezone"`
}

func (c *Config) JWTExpiration() time.Duration {
	return time.Duration(c.JWT.ExpirationHours) * time.Hour
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// Load reads .env (if present), an optional config file and the environment.
// Environment keys are the upper-cased dotted paths with "_" separators, e.g. DATABASE_HOST.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("could not load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8080", "http://localhost:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "parkease")
	v.SetDefault("database.password", "parkease")
	v.SetDefault("database.name", "parkease")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.expiration_hours", 24)

	v.SetDefault("aws.region", "ap-south-1")
	v.SetDefault("aws.sqs_task_queue_url", "")
	v.SetDefault("aws.lpr_enabled", false)

	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "noreply@parkease.com")
	v.SetDefault("mail.use_tls", false)

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_size", 256)

	v.SetDefault("reminder.window_minutes", 5)
	v.SetDefault("reminder.default_hour", 18)
	v.SetDefault("reminder.default_minute", 0)

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.retention_hours", 24)

	v.SetDefault("cache.lots_ttl_seconds", 60)
	v.SetDefault("cache.history_ttl_seconds", 10)
	v.SetDefault("cache.summary_ttl_seconds", 30)

	v.SetDefault("admin.email", "superadmin@parkease.com")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("admin.full_name", "Super Admin")

	v.SetDefault("timezone", "Asia/Kolkata")
}

func (c *Config) validate() error {
	if c.Reminder.DefaultHour < 0 || c.Reminder.DefaultHour > 23 {
		return fmt.Errorf("reminder.default_hour out of range: %d", c.Reminder.DefaultHour)
	}
	if c.Reminder.DefaultMinute < 0 || c.Reminder.DefaultMinute > 59 {
		return fmt.Errorf("reminder.default_minute out of range: %d", c.Reminder.DefaultMinute)
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
