package trie

import (
	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/dbhead"
	"github.com/00-team/shah/errs"
)

func init() { binary.MustSize[Meta](64 + 8 + 4096) }

// Version is this package's db_version, bumped whenever the trie file's
// on-disk framing (not its values) changes shape.
const Version uint16 = 1

// Meta is the file header written once at creation and validated on
// every open: the common dbhead.Head plus the alphabet this trie was
// built with, so a later open with a different alphabet is rejected
// rather than silently misreading positions. Grounded on
// db/trie/meta.rs's TrieMeta.
type Meta struct {
	Db     dbhead.Head
	AbcLen uint64
	Abc    [4096]byte
}

func (Meta) Size() uint64 { return 64 + 8 + 4096 }

// MetaSize is the byte offset the trie's root node lives at.
const MetaSize = 64 + 8 + 4096

func (m *Meta) init(name string, abc string, abcLen int) {
	*m = Meta{}
	m.Db.Init(dbhead.MagicTrie, 0, name, Version)
	m.AbcLen = uint64(abcLen)
	copy(m.Abc[:], abc)
}

func (m *Meta) check(ls string, abc string, abcLen int) error {
	if err := m.Db.Check(ls, dbhead.MagicTrie, 0, Version); err != nil {
		return err
	}
	if m.AbcLen != uint64(abcLen) {
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
