package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GM_NOTE_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "guildmint", cfg.Database.DBName)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Audit.FlushInterval)
	assert.Equal(t, 100, cfg.Audit.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Note.LockTTL)
	assert.Equal(t, "guildmint", cfg.Note.Issuer)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GM_NOTE_SECRET", "test-secret")
	t.Setenv("GM_DATABASE_HOST", "db.internal")
	t.Setenv("GM_AUDIT_BATCH_SIZE", "25")
	t.Setenv("GM_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Audit.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingNoteSecret(t *testing.T) {
	t.Setenv("GM_NOTE_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "note.secret")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "gm", Password: "pw", DBName: "guildmint", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://gm:pw@localhost:5432/guildmint?sslmode=disable", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
