// Package dbhead implements the 64-byte file header shared by every store
// file and validated on every open. See SPEC_FULL.md / spec.md §3, §6.
package dbhead

import (
	"bytes"
	"fmt"

	"github.com/00-team/shah/errs"
)

// MagicDb enumerates the kind stamped into every file's magic, letting a
// misplaced or truncated file fail fast with a specific complaint instead
// of silently reinterpreting bytes belonging to a different store kind.
type MagicDb uint16

const (
	MagicEntity    MagicDb = 1
	MagicPond      MagicDb = 2
	MagicSnake     MagicDb = 3
	MagicTrieConst MagicDb = 4
	MagicTrie      MagicDb = 5
)

// EngineVersion is the engine's own version, stamped into every header
// as ShahVerMin; bumped whenever the on-disk framing itself (not a
// particular store's schema) changes shape. Each store's db_version is
// passed to Init separately.
const EngineVersion uint16 = 1

var magicPrefix = [6]byte{'S', 'H', 'A', 'H', 0, 0}

// Magic is the 8-byte tag: a constant 6-byte prefix plus the 2-byte
// MagicDb kind, little-endian.
type Magic [8]byte

func NewMagic(kind MagicDb) Magic {
	var m Magic
	copy(m[:6], magicPrefix[:])
	m[6] = byte(kind)
	m[7] = byte(kind >> 8)
	return m
}

// Head is the 64-byte header written once at file creation and validated
// on every open.
type Head struct {
	Magic       Magic
	ShahVerMaj  uint16
	ShahVerMin  uint16
	DbVersion   uint16
	Revision    uint16
	Name        [48]byte
}

func (Head) Size() uint64 { return 64 }

// Init populates h for a freshly created file.
func (h *Head) Init(kind MagicDb, revision uint16, name string, dbVersion uint16) {
	*h = Head{}
	h.Magic = NewMagic(kind)
	h.ShahVerMaj, h.ShahVerMin = 0, EngineVersion
	h.DbVersion = dbVersion
	h.Revision = revision
	n := copy(h.Name[:], name)
	_ = n
}

// Check validates h against the expected kind/revision/dbVersion,
// returning InvalidDbHead on any mismatch. ls is a short label used only
// for log context by callers.
func (h *Head) Check(ls string, kind MagicDb, revision uint16, dbVersion uint16) error {
	want := NewMagic(kind)
	if h.Magic != want {
		return fmt.Errorf("%s: %w (bad magic)", ls, errs.NewDb(errs.InvalidDbHead))
	}
	if h.DbVersion != dbVersion {
		return fmt.Errorf("%s: %w (db_version %d != %d)", ls, errs.NewDb(errs.InvalidDbHead), h.DbVersion, dbVersion)
	}
	if h.Revision != revision {
		return fmt.Errorf("%s: %w (revision %d != %d)", ls, errs.NewDb(errs.InvalidDbHead), h.Revision, revision)
	}
	return nil
}

// NameString returns the null/zero-terminated printable name.
func (h *Head) NameString() string {
	if i := bytes.IndexByte(h.Name[:], 0); i >= 0 {
		return string(h.Name[:i])
	}
	return string(h.Name[:])
}
