package entity

import "github.com/00-team/shah/dbhead"

// Meta is the on-disk header of every entity store: DbHead plus the
// declared record size and its encoded schema. See spec.md §3 EntityHead.
type Meta struct {
	Db       dbhead.Head
	ItemSize uint64
	Schema   [4096]byte
}

func (Meta) Size() uint64 { return 64 + 8 + 4096 }

// MetaSize is the byte size of Meta and so the offset of the
// koch-progress block (Prog) that immediately follows it on disk; records
// start after that block, at RecordsOffset.
const MetaSize = 64 + 8 + 4096

// Prog is the persisted koch-migration progress cursor, stored
// immediately after Meta.
type Prog struct {
	Total uint64
	Done  uint64
}

func (Prog) Size() uint64 { return 16 }

// RecordsOffset is the byte offset of record id=0 (the reserved slot);
// record id N lives at RecordsOffset + N*itemSize.
const RecordsOffset = MetaSize + 16
