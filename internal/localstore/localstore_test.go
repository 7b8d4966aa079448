package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "localcal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	require.Error(t, err)
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	value, ok, err := s.Get("calendarEvents")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	require.NoError(t, s.Set("calendarEvents", `[{"title":"Standup"}]`))

	value, ok, err := s.Get("calendarEvents")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"title":"Standup"}]`, value)
}

func TestSetOverwrites(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	require.NoError(t, s.Set("k", "first"))
	require.NoError(t, s.Set("k", "second"))

	value, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Delete("k"))

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is fine.
	require.NoError(t, s.Delete("k"))
}
