// Package orderlog is an optional append-only audit sidecar for the
// order dispatcher: every dispatched order/reply pair is recorded
// keyed by a monotonically increasing request id, for offline replay
// or debugging. Backed by pebble. Only active when Config.AuditDir is
// set.
package orderlog

import (
	stdbinary "encoding/binary"
	"io"

	"github.com/cockroachdb/pebble"
)

// Entry is one recorded order/reply round trip.
type Entry struct {
	Id        uint64
	Scope     uint8
	Route     uint8
	OrderBody []byte
	Error     uint32
	Elapsed   uint64
	ReplyBody []byte
}

// Log is a pebble-backed append-only store of Entry values keyed by Id.
type Log struct {
	db *pebble.DB
}

// Open opens (or creates) the audit log at dir.
func Open(dir string) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close releases the underlying pebble handle.
func (l *Log) Close() error { return l.db.Close() }

func idKey(id uint64) []byte {
	buf := make([]byte, 8)
	stdbinary.BigEndian.PutUint64(buf, id)
	return buf
}

// Record appends e, keyed by e.Id. Callers are responsible for id
// monotonicity; a repeated id overwrites the prior entry at that key.
func (l *Log) Record(e Entry) error {
	return l.db.Set(idKey(e.Id), encodeEntry(e), pebble.Sync)
}

// Get looks up the entry recorded for id.
func (l *Log) Get(id uint64) (Entry, bool, error) {
	val, closer, err := l.db.Get(idKey(id))
	if err == pebble.ErrNotFound {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	defer closer.Close()

	e, err := decodeEntry(val)
	return e, true, err
}

// Replay calls fn for every recorded entry in increasing id order,
// stopping early if fn returns false.
func (l *Log) Replay(from uint64, fn func(Entry) bool) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: idKey(from)})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if !fn(e) {
			break
		}
	}
	return iter.Error()
}

func encodeEntry(e Entry) []byte {
	size := 8 + 1 + 1 + 4 + len(e.OrderBody) + 4 + 8 + 4 + len(e.ReplyBody)
	buf := make([]byte, size)
	o := 0
	stdbinary.LittleEndian.PutUint64(buf[o:], e.Id)
	o += 8
	buf[o] = e.Scope
	o++
	buf[o] = e.Route
	o++
	stdbinary.LittleEndian.PutUint32(buf[o:], uint32(len(e.OrderBody)))
	o += 4
	o += copy(buf[o:], e.OrderBody)
	stdbinary.LittleEndian.PutUint32(buf[o:], e.Error)
	o += 4
	stdbinary.LittleEndian.PutUint64(buf[o:], e.Elapsed)
	o += 8
	stdbinary.LittleEndian.PutUint32(buf[o:], uint32(len(e.ReplyBody)))
	o += 4
	copy(buf[o:], e.ReplyBody)
	return buf
}

func decodeEntry(buf []byte) (Entry, error) {
	var e Entry
	r := &reader{buf: buf}

	e.Id = r.u64()
	e.Scope = r.u8()
	e.Route = r.u8()
	e.OrderBody = r.bytes(int(r.u32()))
	e.Error = r.u32()
	e.Elapsed = r.u64()
	e.ReplyBody = r.bytes(int(r.u32()))

	if r.err != nil {
		return Entry{}, r.err
	}
	return e, nil
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := stdbinary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := stdbinary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.buf[r.off:r.off+n])
	r.off += n
	return v
}
