package entrypoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Backend: config.Backend{URL: "http://127.0.0.1:1", AnonKey: "anon"},
		Library: config.Library{ReconcileMode: config.ReconcileBestEffort},
		Session: config.Session{
			DatabasePath:    filepath.Join(t.TempDir(), "readshelf.db"),
			Passphrase:      "test",
			RefreshSchedule: "*/5 * * * *",
			RefreshMargin:   time.Minute,
		},
		Tasks: config.Tasks{Enabled: true, Workers: 1},
	}
}

func TestNewComponents_InvalidConfig(t *testing.T) {
	_, err := NewComponents(&config.Config{})
	assert.ErrorIs(t, err, config.ErrMissingBackend)
}

func TestNewComponents(t *testing.T) {
	c, err := NewComponents(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	assert.NotNil(t, c.Backend)
	assert.NotNil(t, c.GoTrue)
	assert.NotNil(t, c.Uploader)

	svc := c.Library(c.StoredTokens())
	assert.Equal(t, config.ReconcileBestEffort, svc.ReconcileMode())

	_, err = c.StoredTokens().AccessToken(context.Background())
	assert.Error(t, err, "no session stored yet")
}

func TestStartBackground(t *testing.T) {
	c, err := NewComponents(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	bg, err := StartBackground(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, bg.Scheduler.IsRunning())

	id, err := bg.Tasks.EnqueueProgress("b1", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bg.Stop(ctx)
	assert.False(t, bg.Scheduler.IsRunning())
}
