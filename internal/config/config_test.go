package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "-100500")
	t.Setenv("DB_NAME", "bot")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_PASS", "p@ss word")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, int64(-100500), cfg.AdminChatID)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 7, cfg.InactiveDays)
	assert.Equal(t, time.Duration(0), cfg.PendingTTL)
	assert.Equal(t, 30*time.Second, cfg.FireTimeout)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Contains(t, cfg.WebApp.CallbackURL, "request-callback.html")
}

func TestLoadRequiresAdminChat(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "")
	os.Unsetenv("ADMIN_CHAT_ID")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadTokenFromFile(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BOT_TOKEN", "")
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("456:def\n"), 0o600))
	t.Setenv("BOT_TOKEN_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "456:def", cfg.BotToken)
}

func TestDriverAliases(t *testing.T) {
	cases := map[string]string{
		"postgresql+asyncpg": DriverPostgres,
		"PGX":                DriverPostgres,
		"sqlite":             DriverSQLite,
		"sqlite3":            DriverSQLite,
	}
	for in, want := range cases {
		got, err := normaliseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := normaliseDriver("mysql")
	assert.Error(t, err)
}

func TestSQLiteNeedsNoCredentials(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "1")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "bot.db"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "bot", User: "u", Pass: "p@ss word", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%20word@db:5433/bot?sslmode=disable", d.URL())
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, uint(9), h)
	assert.Equal(t, uint(30), m)

	_, _, err = ParseClock("9.30")
	assert.Error(t, err)
}

func TestInvalidDigestTime(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INACTIVE_DIGEST_AT", "25:00")

	_, err := Load()
	assert.Error(t, err)
}
