package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/errs"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	require.NotNil(t, r)
	require.Equal(t, 0, r.Count())
	require.False(t, r.HasCollision())
	require.Empty(t, r.Names())
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()

	idx, err := r.Add("STRM_BGM_TITLE")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = r.Add("SE_JUMP")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	require.Equal(t, []string{"STRM_BGM_TITLE", "SE_JUMP"}, r.Names())

	got, ok := r.Index("SE_JUMP")
	require.True(t, ok)
	require.Equal(t, 1, got)

	_, ok = r.Index("SE_LAND")
	require.False(t, ok)
}

func TestRegistry_AddErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Add("")
	require.ErrorIs(t, err, errs.ErrInvalidName)

	_, err = r.Add("WSD_COIN")
	require.NoError(t, err)
	_, err = r.Add("WSD_COIN")
	require.ErrorIs(t, err, errs.ErrDuplicateTrieKey)
	require.Equal(t, 1, r.Count())
}

func TestRegistry_Collision(t *testing.T) {
	r := NewRegistry()
	r.hashFn = func(string) uint64 { return 42 }

	_, err := r.Add("a")
	require.NoError(t, err)
	require.False(t, r.HasCollision())

	idx, err := r.Add("b")
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.True(t, r.HasCollision())

	got, ok := r.Index("b")
	require.True(t, ok)
	require.Equal(t, 1, got)

	got, ok = r.Index("a")
	require.True(t, ok)
	require.Equal(t, 0, got)

	_, err = r.Add("b")
	require.ErrorIs(t, err, errs.ErrDuplicateTrieKey)
	_, err = r.Add("a")
	require.ErrorIs(t, err, errs.ErrDuplicateTrieKey)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add("x")
	_, _ = r.Add("y")

	r.Reset()
	require.Equal(t, 0, r.Count())
	require.False(t, r.HasCollision())

	_, err := r.Add("x")
	require.NoError(t, err)
}
