package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
backend:
  base_url: http://backend:8000
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, DefaultSettleDelay, c.Session.SettleDelay)
	assert.Equal(t, 252, c.Session.TradingDaysPerYear)
	assert.Equal(t, "Balanced", c.Session.Persona)
	assert.Equal(t, 300, c.Session.TimelineWindow)
	assert.Equal(t, 5*time.Second, c.Backend.Timeout)
	assert.Equal(t, "/investor-guidance", c.Backend.GuidancePath)
	assert.Equal(t, "/regime-timeline", c.Backend.TimelinePath)
	assert.Equal(t, "/random-quote", c.Backend.QuotePath)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.Cache.Redis.Enabled)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing backend": `environment: test`,
		"bad scheme":      "backend:\n  base_url: ftp://x\n",
		"settle too long": "backend:\n  base_url: http://x\nsession:\n  settle_delay: 11s\n",
		"bad persona":     "backend:\n  base_url: http://x\nsession:\n  persona: Reckless\n",
		"kafka no broker": "backend:\n  base_url: http://x\nkafka:\n  enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"REGIMEDASH_BACKEND_URL":  "http://other:9000",
		"REGIMEDASH_SETTLE_DELAY": "0s",
		"REGIMEDASH_PERSONA":      "Aggressive",
		"REGIMEDASH_TRADING_DAYS": "365",
		"REDIS_ADDR":              "redis:6379",
		"KAFKA_BROKERS":           "k1:9092,k2:9092",
		"LOG_LEVEL":               "debug",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, c.Validate())

	assert.Equal(t, "http://other:9000", c.Backend.BaseURL)
	assert.Equal(t, time.Duration(0), c.Session.SettleDelay)
	assert.Equal(t, "Aggressive", c.Session.Persona)
	assert.Equal(t, 365, c.Session.TradingDaysPerYear)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestApplyEnvBadDuration(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	err = c.applyEnv(func(k string) string {
		if k == "REGIMEDASH_SETTLE_DELAY" {
			return "soon"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestLoadSampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample config not present")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, c.Session.SettleDelay)
	assert.Equal(t, "http://localhost:8000", c.Backend.BaseURL)
}
