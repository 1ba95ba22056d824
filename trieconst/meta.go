package trieconst

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/dbhead"
	"github.com/00-team/shah/errs"
)

func init() { binary.MustSize[Meta](64 + 8 + 8 + 8 + 4096) }

// Version is this package's db_version.
const Version uint16 = 1

// Meta is the file header: the common dbhead.Head plus the index/cache
// split and alphabet this trie-const was built with, so a later open
// with different parameters is rejected outright instead of misreading
// positions. Grounded on db/trie_const/meta.rs's TrieConstMeta.
type Meta struct {
	Db     dbhead.Head
	Index  uint64
	Cache  uint64
	AbcLen uint64
	Abc    [4096]byte
}

func (Meta) Size() uint64 { return 64 + 8 + 8 + 8 + 4096 }

// MetaSize is the byte offset the cache lookup table starts at.
const MetaSize = 64 + 8 + 8 + 8 + 4096

func (m *Meta) init(name string, index, cache int, abc string) {
	*m = Meta{}
	m.Db.Init(dbhead.MagicTrieConst, 0, name, Version)
	m.Index = uint64(index)
	m.Cache = uint64(cache)
	m.AbcLen = uint64(len([]rune(abc)))
	copy(m.Abc[:], abc)
}

func (m *Meta) check(ls string, index, cache int, abc string) error {
	if err := m.Db.Check(ls, dbhead.MagicTrieConst, 0, Version); err != nil {
		return err
	}
	if m.Index != uint64(index) {
		return errs.NewDb(errs.InvalidDbMeta)
	}
	if m.Cache != uint64(cache) {
		return errs.NewDb(errs.InvalidDbMeta)
	}
	if m.AbcLen != uint64(len([]rune(abc))) {
		return errs.NewDb(errs.InvalidDbMeta)
	}
	b := []byte(abc)
	if len(b) > len(m.Abc) {
		return errs.NewDb(errs.InvalidDbMeta)
	}
	for i := range b {
		if m.Abc[i] != b[i] {
			return errs.NewDb(errs.InvalidDbMeta)
		}
	}
	return nil
}

func (m *Meta) bytes() []byte { return binary.Bytes(m) }
