package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Archive.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Pipeline.FailureLimit)
	assert.Equal(t, 4096, cfg.Pipeline.MemoCacheSize)
	assert.False(t, cfg.Cache.Enabled)
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()

	cfg.Server.Port = -1
	assert.Error(t, m.Validate())
	cfg.Server.Port = 8080

	cfg.Archive.Backend = "csv"
	assert.Error(t, m.Validate())
	cfg.Archive.Backend = "sqlite"

	cfg.Logging.Level = "loud"
	assert.Error(t, m.Validate())
	cfg.Logging.Level = "debug"

	assert.NoError(t, m.Validate())
}

func TestConnectionStrings(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	dsn := m.GetDatabaseConnectionString()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "/ophtha_harmonizer")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, m.GetRedisConnectionString(), "redis://")
}
