package trie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type digitsAbc struct{}

func (digitsAbc) Chars() string { return "0123456789" }
func (digitsAbc) ConvertChar(r rune) (int, bool) {
	if r < '0' || r > '9' {
		return 0, false
	}
	return int(r - '0'), true
}

type val struct{ N uint64 }

func (val) Size() uint64 { return 8 }

func openTestDb(t *testing.T) *Trie[val] {
	t.Helper()
	dir := t.TempDir()
	f, err := os.OpenFile(filepath.Join(dir, "trie.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	tr, err := New[val](f, "digits", digitsAbc{})
	require.NoError(t, err)
	return tr
}

func TestSetGetRoundTrip(t *testing.T) {
	tr := openTestDb(t)

	k, err := tr.Key("123")
	require.NoError(t, err)
	_, existed, err := tr.Set(k, val{N: 42})
	require.NoError(t, err)
	require.False(t, existed)

	got, err := tr.Get(k)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.N)
}

func TestSetOverwritesReturnsOldValue(t *testing.T) {
	tr := openTestDb(t)

	k, err := tr.Key("42")
	require.NoError(t, err)
	_, _, err = tr.Set(k, val{N: 1})
	require.NoError(t, err)

	old, existed, err := tr.Set(k, val{N: 2})
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, uint64(1), old.N)

	got, err := tr.Get(k)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.N)
}

func TestGetMissingKeyFails(t *testing.T) {
	tr := openTestDb(t)
	k, err := tr.Key("999")
	require.NoError(t, err)
	_, err = tr.Get(k)
	require.Error(t, err)
}

func TestKeyRejectsEmptyAndBadChars(t *testing.T) {
	tr := openTestDb(t)
	_, err := tr.Key("")
	require.Error(t, err)
	_, err = tr.Key("1a2")
	require.Error(t, err)
}

func TestDistinctKeysDoNotCollide(t *testing.T) {
	tr := openTestDb(t)

	k1, err := tr.Key("1")
	require.NoError(t, err)
	k2, err := tr.Key("12")
	require.NoError(t, err)
	k3, err := tr.Key("13")
	require.NoError(t, err)

	_, _, err = tr.Set(k1, val{N: 1})
	require.NoError(t, err)
	_, _, err = tr.Set(k2, val{N: 12})
	require.NoError(t, err)
	_, _, err = tr.Set(k3, val{N: 13})
	require.NoError(t, err)

	for _, pair := range []struct {
		k Key
		v uint64
	}{{k1, 1}, {k2, 12}, {k3, 13}} {
		got, err := tr.Get(pair.k)
		require.NoError(t, err)
		require.Equal(t, pair.v, got.N)
	}
}
