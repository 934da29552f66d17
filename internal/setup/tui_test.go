package setup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/orderband/config"
	"github.com/vadiminshakov/orderband/internal/domain"
)

func TestWrite_RoundTripsThroughConfig(t *testing.T) {
	a := defaultAnswers()
	a.accounts = " acc-1, ,acc-2 "
	a.catalog = config.CatalogRedis
	a.redisAddr = "localhost:6379"
	a.windowDays = "60"

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Write(path, a.configTmp()))

	t.Setenv("ORDERBAND_ACCOUNT", "")
	t.Setenv("ORDERBAND_REDIS_ADDR", "")
	cfg, err := config.Get([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, []string{"acc-1", "acc-2"}, cfg.Accounts)
	assert.Equal(t, config.CatalogRedis, cfg.Catalog)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 60, cfg.Params.WindowDays)
	assert.Equal(t, domain.DefaultPeriodDays, cfg.Params.PeriodDays)
	assert.Equal(t, 4, cfg.Workers)
}

func TestConfigTmp_RedisFieldsOnlyForRedis(t *testing.T) {
	a := defaultAnswers()
	a.accounts = "acc-1"
	a.redisAddr = "localhost:6379"

	c := a.configTmp()
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.RedisKey)
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		in      string
		wantErr bool
	}{
		{"int ok", validatePositiveInt, "14", false},
		{"int zero", validatePositiveInt, "0", true},
		{"int text", validatePositiveInt, "ten", true},
		{"decimal ok", validatePositiveDecimal, "1.5", false},
		{"decimal negative", validatePositiveDecimal, "-2", true},
		{"decimal text", validatePositiveDecimal, "wide", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
