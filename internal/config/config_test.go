package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.PaymentWindow)
	assert.Equal(t, 60*time.Second, cfg.ReaperInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "log", cfg.NotifySink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYMENT_WINDOW_MIN", "5")
	t.Setenv("REAPER_INTERVAL_SEC", "10")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("NOTIFY_SINK", "kafka")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.PaymentWindow)
	assert.Equal(t, 10*time.Second, cfg.ReaperInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.NotifySink)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":     {"JWT_SECRET": ""},
		"zero window":        {"JWT_SECRET": "s", "PAYMENT_WINDOW_MIN": "0"},
		"non numeric":        {"JWT_SECRET": "s", "REAPER_INTERVAL_SEC": "abc"},
		"unknown sink":       {"JWT_SECRET": "s", "NOTIFY_SINK": "smtp"},
		"admin without pass": {"JWT_SECRET": "s", "ADMIN_EMAIL": "a@b.c"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadNotifierSkipsJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("NOTIFY_TOPIC", "mail")

	cfg, err := LoadNotifier()
	require.NoError(t, err)
	assert.Equal(t, "mail", cfg.NotifyTopic)
	assert.Equal(t, "ecommerce-notifier", cfg.NotifyGroupID)

	_, err = Load()
	assert.Error(t, err)
}
