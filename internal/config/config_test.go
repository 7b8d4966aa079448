package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "./var/localcal.db", cfg.StorePath)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, 90, cfg.HorizonDays)
	assert.NotNil(t, cfg.ICS)
}

func TestLoadFirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)

	// File must exist afterwards with 0600 perms.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	body := "listen: \"0.0.0.0:9999\"\nfeed_url: \"http://example.test/events.json\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Listen)
	assert.Equal(t, "http://example.test/events.json", cfg.FeedURL)
	// Unset fields normalized.
	assert.Equal(t, 90, cfg.HorizonDays)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \"127.0.0.1:8080\"\n"), 0o600))

	t.Setenv("LOCALCAL_LISTEN", "127.0.0.1:7070")
	t.Setenv("LOCALCAL_FEED_URL", "http://env.test/events.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.Listen)
	assert.Equal(t, "http://env.test/events.json", cfg.FeedURL)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.FeedURL = "http://example.test/events.json"
	cfg.ICS = []ICSConfig{{URL: "http://example.test/cal.ics", ID: "work", Name: "Work"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.FeedURL, loaded.FeedURL)
	require.Len(t, loaded.ICS, 1)
	assert.Equal(t, "work", loaded.ICS[0].ID)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.NotNil(t, loc)

	cfg.Timezone = "America/New_York"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	cfg.Timezone = "Not/AZone"
	_, err = cfg.Location()
	require.Error(t, err)
}
