// Package config loads cagetrack settings from config.yaml and CAGETRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/cagetrack/internal/db"
	"github.com/rpattn/cagetrack/internal/divergence"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/notify"
	"github.com/rpattn/cagetrack/internal/scale"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CAGETRACK_DATABASE_HOST.
const EnvPrefix = "CAGETRACK"

// Config is the full application configuration.
type Config struct {
	Database      db.Config
	HTTP          HTTPConfig
	Tracking      TrackingConfig
	Notifications NotificationsConfig
	MQTT          MQTTConfig
	Log           LogConfig
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

type TrackingConfig struct {
	DivergenceThreshold float64
	CodePrefix          string
	PublicBaseURL       string
}

type NotificationsConfig struct {
	Capacity int
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

type LogConfig struct {
	Level string
}

// Scale converts the MQTT settings into listener settings.
func (c MQTTConfig) Scale() scale.Config {
	return scale.Config{
		Broker:   c.Broker,
		ClientID: c.ClientID,
		Username: c.Username,
		Password: c.Password,
		Topic:    c.Topic,
	}
}

func setDefaults(v *viper.Viper) {
	database := db.DefaultConfig()
	v.SetDefault("database.host", database.Host)
	v.SetDefault("database.port", database.Port)
	v.SetDefault("database.user", database.User)
	v.SetDefault("database.password", database.Password)
	v.SetDefault("database.dbname", database.DBName)
	v.SetDefault("database.sslmode", database.SSLMode)
	v.SetDefault("database.max_conns", database.MaxConns)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("tracking.divergence_threshold", divergence.DefaultThreshold)
	v.SetDefault("tracking.code_prefix", domain.DefaultCodePrefix)
	v.SetDefault("tracking.public_base_url", "http://localhost:8080")

	v.SetDefault("notifications.capacity", notify.DefaultCapacity)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "cagetrack")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", scale.DefaultTopic)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from configPath if present. A missing file is not an error.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			AllowedOrigins: splitList(v.GetStringSlice("http.allowed_origins")),
		},
		Tracking: TrackingConfig{
			DivergenceThreshold: v.GetFloat64("tracking.divergence_threshold"),
			CodePrefix:          v.GetString("tracking.code_prefix"),
			PublicBaseURL:       v.GetString("tracking.public_base_url"),
		},
		Notifications: NotificationsConfig{
			Capacity: v.GetInt("notifications.capacity"),
		},
		MQTT: MQTTConfig{
			Enabled:  v.GetBool("mqtt.enabled"),
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.client_id"),
			Username: v.GetString("mqtt.username"),
			Password: v.GetString("mqtt.password"),
			Topic:    v.GetString("mqtt.topic"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	if c.Tracking.DivergenceThreshold < 0 {
		return fmt.Errorf("tracking.divergence_threshold must be >= 0, got %v", c.Tracking.DivergenceThreshold)
	}
	if c.Notifications.Capacity <= 0 {
		return fmt.Errorf("notifications.capacity must be > 0, got %d", c.Notifications.Capacity)
	}
	if strings.TrimSpace(c.Tracking.CodePrefix) == "" {
		return errors.New("tracking.code_prefix is required")
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
