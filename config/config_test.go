package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 150*time.Millisecond, cfg.CoalesceWindow)
	assert.Equal(t, "* * * * *", cfg.ReminderSchedule)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, []byte("medicnote_dev_secret"), cfg.Secret())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/medicnote")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REFRESH_COALESCE_WINDOW", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://localhost/medicnote", cfg.DatabaseURL)
	assert.Equal(t, time.Second, cfg.CoalesceWindow)
	assert.Equal(t, []byte("s3cret"), cfg.Secret())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"postgres without url", Config{DBDriver: "postgres", Env: "development", CoalesceWindow: time.Second}, true},
		{"unknown driver", Config{DBDriver: "sqlite", Env: "development", CoalesceWindow: time.Second}, true},
		{"production without secret", Config{DBDriver: "memory", Env: "production", CoalesceWindow: time.Second}, true},
		{"zero window", Config{DBDriver: "memory", Env: "development"}, true},
		{"memory in development", Config{DBDriver: "memory", Env: "development", CoalesceWindow: time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
