// Package trieconst implements a fixed-depth variant of the trie store:
// every key has the same number of alphabet symbols, split into a
// front "cache" run (looked up in one array index instead of walking a
// node per symbol) and a fixed-depth "index" run walked node by node,
// with values stored one-per-symbol at the final level instead of one
// per leaf node. Grounded on db/trie_const/mod.rs.
package trieconst

import (
	stdbinary "encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/00-team/shah/binary"
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/shahutil"
	"github.com/00-team/shah/trie"
	"github.com/00-team/shah/xlog"
)

// Abc is the same alphabet contract trie.Abc uses; trie-const keys are
// drawn from it the same way, so the interface is shared rather than
// redefined.
type Abc = trie.Abc

// Key is a string already converted into alphabet indices: Cache packs
// the front run into a single array offset, Index holds the remaining
// per-symbol path. Grounded on db/trie_const/mod.rs's TrieConstKey.
type Key struct {
	Cache uint64
	Index []int
}

// TrieConst is a fixed-depth trie over ABC_LEN symbols split into a
// CACHE-symbol direct-indexed prefix and an INDEX-symbol node-walked
// suffix. The reference engine fixes ABC_LEN/INDEX/CACHE as const
// generics; Go has no const/value generic parameters, so all three are
// runtime fields set at New (see DESIGN.md).
type TrieConst[Val binary.View] struct {
	mu   sync.Mutex
	f    *os.File
	name string
	log  xlog.Logger
	abc  Abc

	abcLen   int
	index    int
	cache    int
	cacheLen uint64
	valSize  uint64
}

// New opens (creating if needed) a trie-const file backed by f, with
// cache front symbols and index trailing symbols per key, keyed over
// abc's alphabet.
func New[Val binary.View](f *os.File, name string, abc Abc, index, cache int) (*TrieConst[Val], error) {
	if err := shahutil.ValidateDbName(name); err != nil {
		return nil, err
	}
	if index <= 0 || cache <= 0 {
		return nil, errs.NewSystem(errs.BadInputLength)
	}

	abcLen := utf8.RuneCountInString(abc.Chars())
	var zero Val
	t := &TrieConst[Val]{
		f:        f,
		name:     name,
		log:      xlog.Root().Named("trieconst." + name),
		abc:      abc,
		abcLen:   abcLen,
		index:    index,
		cache:    cache,
		cacheLen: intPow(uint64(abcLen), cache),
		valSize:  zero.Size(),
	}

	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func intPow(base uint64, exp int) uint64 {
	r := uint64(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func (t *TrieConst[Val]) nodeSize() uint64       { return 8 * uint64(t.abcLen) }
func (t *TrieConst[Val]) valueArraySize() uint64 { return t.valSize * uint64(t.abcLen) }

func (t *TrieConst[Val]) init() error {
	var meta Meta
	buf := make([]byte, meta.Size())
	size, err := t.fileSize()
	if err != nil {
		return err
	}

	if size < meta.Size() {
		meta.init(t.name, t.index, t.cache, t.abc.Chars())
		if _, err := t.f.WriteAt(meta.bytes(), 0); err != nil {
			return err
		}
	} else {
		if _, err := t.f.ReadAt(buf, 0); err != nil {
			return err
		}
		binary.CopyInto(&meta, buf)
		if err := meta.check(t.name, t.index, t.cache, t.abc.Chars()); err != nil {
			return err
		}
	}

	cacheSize := t.cacheLen * 8
	size, err = t.fileSize()
	if err != nil {
		return err
	}
	if size < MetaSize+cacheSize {
		return shahutil.Falloc(t.f, MetaSize, cacheSize)
	}
	return nil
}

func (t *TrieConst[Val]) fileSize() (uint64, error) {
	st, err := t.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(st.Size()), nil
}

// ConvertKey converts key into a Key: the first `cache` symbols pack
// (reversed, base-ABC_LEN) into Cache, the remaining `index` symbols
// become the per-node Index path. Grounded on
// db/trie_const/mod.rs's convert_key.
func (t *TrieConst[Val]) ConvertKey(key string) (Key, error) {
	runes := []rune(key)
	if len(runes) != t.cache+t.index {
		return Key{}, errs.NewSystem(errs.BadInputLength)
	}

	var k Key
	k.Index = make([]int, t.index)

	cacheRunes := runes[:t.cache]
	indexRunes := runes[t.cache:]

	for i := 0; i < len(cacheRunes); i++ {
		c := cacheRunes[len(cacheRunes)-1-i]
		x, ok := t.abc.ConvertChar(c)
		if !ok {
			t.log.Error("convert_key: bad trie key")
			return Key{}, errs.NewSystem(errs.BadTrieKey)
		}
		k.Cache += intPow(uint64(t.abcLen), i) * uint64(x)
	}

	for i, c := range indexRunes {
		x, ok := t.abc.ConvertChar(c)
		if !ok {
			t.log.Error("convert_key: bad trie key")
			return Key{}, errs.NewSystem(errs.BadTrieKey)
		}
		k.Index[i] = x
	}

	return k, nil
}

func (t *TrieConst[Val]) readUint64At(pos uint64) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := t.f.ReadAt(buf, int64(pos)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errs.NewNotFound(errs.OutOfBounds)
		}
		return 0, err
	}
	return stdbinary.LittleEndian.Uint64(buf), nil
}

func (t *TrieConst[Val]) writeUint64At(v uint64, pos uint64) error {
	buf := make([]byte, 8)
	stdbinary.LittleEndian.PutUint64(buf, v)
	_, err := t.f.WriteAt(buf, int64(pos))
	return err
}

func (t *TrieConst[Val]) readNodeAt(pos uint64) ([]uint64, error) {
	buf := make([]byte, t.nodeSize())
	if _, err := t.f.ReadAt(buf, int64(pos)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errs.NewNotFound(errs.OutOfBounds)
		}
		return nil, err
	}
	node := make([]uint64, t.abcLen)
	for i := range node {
		node[i] = stdbinary.LittleEndian.Uint64(buf[uint64(i)*8:])
	}
	return node, nil
}

func (t *TrieConst[Val]) writeNodeAt(node []uint64, pos uint64) error {
	buf := make([]byte, t.nodeSize())
	for i, p := range node {
		stdbinary.LittleEndian.PutUint64(buf[uint64(i)*8:], p)
	}
	_, err := t.f.WriteAt(buf, int64(pos))
	return err
}

func (t *TrieConst[Val]) readValuesAt(pos uint64) ([]Val, error) {
	buf := make([]byte, t.valueArraySize())
	if _, err := t.f.ReadAt(buf, int64(pos)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errs.NewNotFound(errs.OutOfBounds)
		}
		return nil, err
	}
	values := make([]Val, t.abcLen)
	for i := range values {
		binary.CopyInto(&values[i], buf[uint64(i)*t.valSize:(uint64(i)+1)*t.valSize])
	}
	return values, nil
}

func (t *TrieConst[Val]) writeValuesAt(values []Val, pos uint64) error {
	buf := make([]byte, t.valueArraySize())
	for i := range values {
		copy(buf[uint64(i)*t.valSize:], binary.Bytes(&values[i]))
	}
	_, err := t.f.WriteAt(buf, int64(pos))
	return err
}

// Get reads the value stored at key. It fails with NoTrieValue when the
// cache slot or a node on the path is empty; once the final value array
// exists, a symbol in it that was never Set yields the zero Val and no
// error. Grounded on db/trie_const/mod.rs's get.
func (t *TrieConst[Val]) Get(key Key) (Val, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero Val
	pos, err := t.readUint64At(MetaSize + key.Cache*8)
	if err != nil {
		return zero, err
	}
	if pos == 0 {
		return zero, errs.NewNotFound(errs.NoTrieValue)
	}

	for i := 0; i < t.index; i++ {
		if i+1 == t.index {
			values, err := t.readValuesAt(pos)
			if err != nil {
				return zero, err
			}
			return values[key.Index[i]], nil
		}

		node, err := t.readNodeAt(pos)
		if err != nil {
			return zero, err
		}
		pos = node[key.Index[i]]
		if pos == 0 {
			return zero, errs.NewNotFound(errs.NoTrieValue)
		}
	}

	return zero, errs.NewNotFound(errs.NoTrieValue)
}

// Set stores val at key, returning the value it replaced (if any).
// Grounded on db/trie_const/mod.rs's set.
func (t *TrieConst[Val]) Set(key Key, val Val) (Val, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var none Val
	cachePos := MetaSize + key.Cache*8
	single, err := t.readUint64At(cachePos)
	if err != nil {
		return none, false, err
	}

	var pos uint64
	i := 0

	if single == 0 {
		endOfFile, err := t.fileSize()
		if err != nil {
			return none, false, err
		}
		if err := t.writeUint64At(endOfFile, cachePos); err != nil {
			return none, false, err
		}
		return t.growFrom(endOfFile, 0, key, val)
	}

	pos = single
	for {
		ki := key.Index[i]

		if i+1 == t.index {
			values, err := t.readValuesAt(pos)
			if err != nil {
				return none, false, err
			}
			old := values[ki]
			values[ki] = val
			if err := t.writeValuesAt(values, pos); err != nil {
				return none, false, err
			}
			return old, true, nil
		}

		node, err := t.readNodeAt(pos)
		if err != nil {
			return none, false, err
		}

		i++
		if node[ki] != 0 {
			pos = node[ki]
			continue
		}

		endOfFile, err := t.fileSize()
		if err != nil {
			return none, false, err
		}
		node[ki] = endOfFile
		if err := t.writeNodeAt(node, pos); err != nil {
			return none, false, err
		}
		return t.growFrom(endOfFile, i, key, val)
	}
}

// growFrom appends a fresh chain of nodes for the remaining key.Index
// symbols starting at position from/depth n, with val written into the
// final value array.
func (t *TrieConst[Val]) growFrom(from uint64, n int, key Key, val Val) (Val, bool, error) {
	var none Val
	endOfFile := from

	for ; n < t.index; n++ {
		ki := key.Index[n]

		if n+1 == t.index {
			values := make([]Val, t.abcLen)
			values[ki] = val
			if err := t.writeValuesAt(values, endOfFile); err != nil {
				return none, false, err
			}
			return none, false, nil
		}

		node := make([]uint64, t.abcLen)
		node[ki] = endOfFile + t.nodeSize()
		if err := t.writeNodeAt(node, endOfFile); err != nil {
			return none, false, err
		}
		endOfFile += t.nodeSize()
	}

	return none, false, nil
}
