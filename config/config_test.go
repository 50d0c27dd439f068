package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig()

	assert.Equal(t, "8080", AppConfig.AppPort)
	assert.Equal(t, "courtwise", AppConfig.DatabaseName)
	assert.Equal(t, 1, AppConfig.FreeDailyAllowance)
	assert.False(t, AppConfig.QuotaAtomicIncrement)
	assert.Equal(t, 30*time.Minute, AppConfig.SessionIdleTTL)
	assert.False(t, IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("FREE_DAILY_ALLOWANCE", "5")
	t.Setenv("QUOTA_ATOMIC_INCREMENT", "true")
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_IDLE_TTL", "5m")

	LoadConfig()

	assert.Equal(t, 5, AppConfig.FreeDailyAllowance)
	assert.True(t, AppConfig.QuotaAtomicIncrement)
	assert.True(t, IsProduction())
	assert.Equal(t, 5*time.Minute, AppConfig.SessionIdleTTL)
}

func TestLoadConfigClampsNegativeAllowance(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("FREE_DAILY_ALLOWANCE", "-3")

	LoadConfig()

	assert.Equal(t, 0, AppConfig.FreeDailyAllowance)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Nil(t, SplitList(""))
}
