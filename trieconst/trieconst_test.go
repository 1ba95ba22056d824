package trieconst

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

func openTestDb(t *testing.T, index, cache int) *TrieConst[val] {
	t.Helper()
	dir := t.TempDir()
	f, err := os.OpenFile(filepath.Join(dir, "trieconst.shah"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	tc, err := New[val](f, "digits", digitsAbc{}, index, cache)
	require.NoError(t, err)
	return tc
}

func TestSetGetRoundTrip(t *testing.T) {
	tc := openTestDb(t, 2, 2)

	k, err := tc.ConvertKey("1234")
	require.NoError(t, err)
	_, existed, err := tc.Set(k, val{N: 42})
	require.NoError(t, err)
	require.False(t, existed)

	got, err := tc.Get(k)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got.N)
}

func TestSetOverwritesReturnsOldValue(t *testing.T) {
	tc := openTestDb(t, 2, 2)

	k, err := tc.ConvertKey("5678")
	require.NoError(t, err)
	_, _, err = tc.Set(k, val{N: 1})
	require.NoError(t, err)

	old, existed, err := tc.Set(k, val{N: 2})
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, uint64(1), old.N)

	got, err := tc.Get(k)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.N)
}

func TestGetMissingKeyFails(t *testing.T) {
	tc := openTestDb(t, 2, 2)
	k, err := tc.ConvertKey("9999")
	require.NoError(t, err)
	_, err = tc.Get(k)
	require.Error(t, err)
}

func TestConvertKeyRejectsWrongLengthAndBadChars(t *testing.T) {
	tc := openTestDb(t, 2, 2)
	_, err := tc.ConvertKey("123")
	require.Error(t, err)
	_, err = tc.ConvertKey("12a4")
	require.Error(t, err)
}

func TestSingleIndexDepth(t *testing.T) {
	tc := openTestDb(t, 1, 1)

	k, err := tc.ConvertKey("42")
	require.NoError(t, err)
	_, existed, err := tc.Set(k, val{N: 7})
	require.NoError(t, err)
	require.False(t, existed)

	got, err := tc.Get(k)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.N)
}

func TestDistinctKeysSharingCacheDoNotCollide(t *testing.T) {
	tc := openTestDb(t, 2, 2)

	k1, err := tc.ConvertKey("1200")
	require.NoError(t, err)
	k2, err := tc.ConvertKey("1201")
	require.NoError(t, err)
	k3, err := tc.ConvertKey("1210")
	require.NoError(t, err)

	_, _, err = tc.Set(k1, val{N: 100})
	require.NoError(t, err)
	_, _, err = tc.Set(k2, val{N: 101})
	require.NoError(t, err)
	_, _, err = tc.Set(k3, val{N: 110})
	require.NoError(t, err)

	for _, pair := range []struct {
		k Key
		v uint64
	}{{k1, 100}, {k2, 101}, {k3, 110}} {
		got, err := tc.Get(pair.k)
		require.NoError(t, err)
		require.Equal(t, pair.v, got.N)
	}
}
