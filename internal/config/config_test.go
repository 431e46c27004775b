package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.HTTP.Port)
	assert.Equal(t, defaultReadTimeout, cfg.HTTP.ReadTimeout)
	assert.Equal(t, defaultReportTTL, cfg.Cache.ReportTTL)
	assert.Equal(t, int32(defaultLedgerMaxConns), cfg.Ledger.MaxConns)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
	assert.Equal(t, 10, cfg.Report.TopN)
	assert.Equal(t, 12, cfg.Report.TrendMonths)
	assert.Equal(t, "EUR", cfg.Report.Currency)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_REPORT_TTL", "45s")
	t.Setenv("CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("LEDGER_MAX_CONNS", "4")
	t.Setenv("LEDGER_MIN_CONNS", "2")
	t.Setenv("REPORT_TOP_N", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 45*time.Second, cfg.Cache.ReportTTL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.Equal(t, int32(4), cfg.Ledger.MaxConns)
	assert.Equal(t, 5, cfg.Report.TopN)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":         "70000",
		"SERVER_READ_TIMEOUT": "soon",
		"LEDGER_MIN_CONNS":    "50",
		"REPORT_TREND_MONTHS": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
