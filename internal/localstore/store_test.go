package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	runStoreContract(t, s)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	ctx := context.Background()

	s, err := OpenBolt(path)
	require.NoError(t, err)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, SaveRemember(ctx, s, start, start.Add(time.Hour)))
	require.NoError(t, SaveCredential(ctx, s, "access", "refresh"))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	st, err := LoadRemember(ctx, s)
	require.NoError(t, err)
	require.True(t, st.Remembered)
	require.True(t, st.SessionStart.Equal(start))
	require.True(t, st.LastActivity.Equal(start.Add(time.Hour)))
	require.Equal(t, "access", st.AccessToken)
	require.Equal(t, "refresh", st.RefreshToken)
}

func TestBoltStore_Closed(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, _, err = s.Get(context.Background(), KeyRemember)
	require.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestRemember_ClearAndTouch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, SaveRemember(ctx, s, start, start))
	require.NoError(t, SaveCredential(ctx, s, "a", "r"))
	require.NoError(t, TouchActivity(ctx, s, start.Add(2*time.Hour)))
	st, err := LoadRemember(ctx, s)
	require.NoError(t, err)
	require.True(t, st.LastActivity.Equal(start.Add(2*time.Hour)))

	require.NoError(t, ClearRemember(ctx, s))
	require.Equal(t, 0, s.Len())
	st, err = LoadRemember(ctx, s)
	require.NoError(t, err)
	require.False(t, st.Remembered)
}

func TestLoadRemember_GarbageTimes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyRemember, "true"))
	require.NoError(t, s.Set(ctx, KeyLastActivity, "yesterday"))
	st, err := LoadRemember(ctx, s)
	require.NoError(t, err)
	require.True(t, st.Remembered)
	require.True(t, st.LastActivity.IsZero())
}

func TestLoadRemember_CredentialIgnoredWithoutFlag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, SaveCredential(ctx, s, "a", "r"))
	st, err := LoadRemember(ctx, s)
	require.NoError(t, err)
	require.False(t, st.Remembered)
	require.Empty(t, st.RefreshToken)

	require.NoError(t, s.Set(ctx, KeyRemember, "true"))
	require.NoError(t, s.Set(ctx, KeyCredential, "{not json"))
	st, err = LoadRemember(ctx, s)
	require.NoError(t, err)
	require.True(t, st.Remembered)
	require.Empty(t, st.AccessToken)
}
