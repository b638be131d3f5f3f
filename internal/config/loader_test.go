package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rpattn/cagetrack/internal/notify"
	"github.com/rpattn/cagetrack/internal/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cagetrack", cfg.Database.DBName)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 5.0, cfg.Tracking.DivergenceThreshold)
	assert.Equal(t, "GAIOL", cfg.Tracking.CodePrefix)
	assert.Equal(t, notify.DefaultCapacity, cfg.Notifications.Capacity)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, scale.DefaultTopic, cfg.MQTT.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `database:
  host: db.internal
  port: 6543
http:
  allowed_origins:
    - https://laundry.example
tracking:
  divergence_threshold: 7.5
  code_prefix: CAGE
notifications:
  capacity: 20
mqtt:
  enabled: true
  broker: tcp://broker:1883
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("CAGETRACK_DATABASE_HOST", "override.internal")
	t.Setenv("CAGETRACK_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"https://laundry.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 7.5, cfg.Tracking.DivergenceThreshold)
	assert.Equal(t, "CAGE", cfg.Tracking.CodePrefix)
	assert.Equal(t, 20, cfg.Notifications.Capacity)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Scale().Broker)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative threshold", map[string]string{"CAGETRACK_TRACKING_DIVERGENCE_THRESHOLD": "-1"}},
		{"zero capacity", map[string]string{"CAGETRACK_NOTIFICATIONS_CAPACITY": "0"}},
		{"mqtt without broker", map[string]string{"CAGETRACK_MQTT_ENABLED": "true", "CAGETRACK_MQTT_BROKER": " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database: [unclosed"), 0o600))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ", "c"}))
	assert.Nil(t, splitList(nil))
}
