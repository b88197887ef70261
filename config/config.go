package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Kafka      KafkaConfig
	Scheduling SchedulingConfig
	Realtime   RealtimeConfig
	Retry      RetryConfig
}

type AppConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	TimeZone    string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// KafkaConfig is optional; with no brokers lifecycle events are not exported.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SchedulingConfig struct {
	// TimeZone is the clinic-local zone in which weekly windows are evaluated.
	TimeZone                   string
	SlotStepMinutes            int
	RescheduleLeadTime         time.Duration
	AverageConsultationMinutes int
	TxTimeout                  time.Duration
}

type RealtimeConfig struct {
	ChannelPrefix  string
	ClientBuffer   int
	AllowedOrigins []string
}

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Environment variables alone are enough outside local development.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASSWORD"),
			Name:        viper.GetString("DB_NAME"),
			TimeZone:    viper.GetString("DB_TIMEZONE"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: durationOr("JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_APPOINTMENT_TOPIC"),
		},
		Scheduling: SchedulingConfig{
			TimeZone:                   viper.GetString("SCHEDULING_TIMEZONE"),
			SlotStepMinutes:            viper.GetInt("SCHEDULING_SLOT_STEP_MINUTES"),
			RescheduleLeadTime:         durationOr("SCHEDULING_RESCHEDULE_LEAD_TIME", 2*time.Hour),
			AverageConsultationMinutes: viper.GetInt("SCHEDULING_AVG_CONSULTATION_MINUTES"),
			TxTimeout:                  durationOr("SCHEDULING_TX_TIMEOUT", 5*time.Second),
		},
		Realtime: RealtimeConfig{
			ChannelPrefix:  viper.GetString("REALTIME_CHANNEL_PREFIX"),
			ClientBuffer:   viper.GetInt("REALTIME_CLIENT_BUFFER"),
			AllowedOrigins: splitList(viper.GetString("REALTIME_ALLOWED_ORIGINS")),
		},
		Retry: RetryConfig{
			MaxAttempts:  viper.GetInt("RETRY_MAX_ATTEMPTS"),
			InitialDelay: durationOr("RETRY_INITIAL_DELAY", 100*time.Millisecond),
			MaxDelay:     durationOr("RETRY_MAX_DELAY", 2*time.Second),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_TIMEZONE", "Asia/Jakarta")
	viper.SetDefault("KAFKA_APPOINTMENT_TOPIC", "appointment-events")
	viper.SetDefault("SCHEDULING_TIMEZONE", "Asia/Jakarta")
	viper.SetDefault("SCHEDULING_SLOT_STEP_MINUTES", 30)
	viper.SetDefault("SCHEDULING_AVG_CONSULTATION_MINUTES", 15)
	viper.SetDefault("REALTIME_CHANNEL_PREFIX", "realtime:")
	viper.SetDefault("REALTIME_CLIENT_BUFFER", 64)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
