// Package trie implements a dynamically-growing on-disk radix tree
// keyed by an arbitrary-length string over a caller-supplied alphabet:
// one fixed-size "node" per tree level holds a value slot plus one
// child file-position per alphabet symbol. Grounded on db/trie/mod.rs.
package trie

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
	"github.com/00-team/shah/xlog"
)

// Abc supplies the alphabet a Trie keys are drawn from: ConvertChar
// maps a rune to its index in [0, len(Chars())), or reports it isn't
// part of the alphabet.
type Abc interface {
	Chars() string
	ConvertChar(r rune) (int, bool)
}

// Key is a string already converted into alphabet indices: Root
// selects the child slot in the trie's root node, Tree is the
// remaining path through deeper nodes. Grounded on db/trie/mod.rs's
// TrieKey.
type Key struct {
	Root int
	Tree []int
}

// Trie is a dynamically-growing radix tree over ABC_LEN symbols,
// addressed by Key, storing one Val per leaf. The reference engine's
// ABC_LEN is a const generic picked per instantiation; Go has no
// const/value generic parameters, so the alphabet length is instead a
// runtime field derived from abc.Chars() at New (see DESIGN.md).
type Trie[Val binary.View] struct {
	mu   sync.Mutex
	f    *os.File
	name string
	log  xlog.Logger
	abc  Abc

	abcLen  int
	valSize uint64
}

// New opens (creating if needed) a trie file backed by f, keyed over
// abc's alphabet.
func New[Val binary.View](f *os.File, name string, abc Abc) (*Trie[Val], error) {
	if err := shahutil.ValidateDbName(name); err != nil {
		return nil, err
	}

	abcLen := utf8.RuneCountInString(abc.Chars())
	var zero Val
	t := &Trie[Val]{
		f:       f,
		name:    name,
		log:     xlog.Root().Named("trie." + name),
		abc:     abc,
		abcLen:  abcLen,
		valSize: zero.Size(),
	}

	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie[Val]) nodeSize() uint64 { return t.valSize + 8*uint64(t.abcLen) }

func (t *Trie[Val]) init() error {
	var meta Meta
	buf := make([]byte, meta.Size())
	size, err := t.fileSize()
	if err != nil {
		return err
	}

	if size < meta.Size() {
		meta.init(t.name, t.abc.Chars(), t.abcLen)
		if _, err := t.f.WriteAt(meta.bytes(), 0); err != nil {
			return err
		}
	} else {
		if _, err := t.f.ReadAt(buf, 0); err != nil {
			return err
		}
		binary.CopyInto(&meta, buf)
		if err := meta.check(t.name, t.abc.Chars(), t.abcLen); err != nil {
			return err
		}
	}

	size, err = t.fileSize()
	if err != nil {
		return err
	}
	if size < MetaSize+t.nodeSize() {
		return shahutil.Falloc(t.f, MetaSize, t.nodeSize())
	}
	return nil
}

func (t *Trie[Val]) fileSize() (uint64, error) {
	st, err := t.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(st.Size()), nil
}

// Key converts key into alphabet indices, splitting its first symbol
// off as Root. Grounded on db/trie/mod.rs's Trie::key.
func (t *Trie[Val]) Key(key string) (Key, error) {
	if key == "" {
		return Key{}, errs.NewSystem(errs.TrieKeyEmpty)
	}
	var tk Key
	for i, c := range key {
		x, ok := t.abc.ConvertChar(c)
		if !ok {
			t.log.Error("convert_key: bad trie key")
			return Key{}, errs.NewSystem(errs.BadTrieKey)
		}
		if i == 0 {
			tk.Root = x
			continue
		}
		tk.Tree = append(tk.Tree, x)
	}
	return tk, nil
}

// node is a trie level in memory: a value slot plus one child position
// per alphabet symbol, en/decoded to a fixed-size byte run on disk.
type node[Val binary.View] struct {
	value Val
	child []uint64
}

func (t *Trie[Val]) newNode() node[Val] {
	return node[Val]{child: make([]uint64, t.abcLen)}
}

func (t *Trie[Val]) encodeNode(n *node[Val]) []byte {
	buf := make([]byte, t.nodeSize())
	copy(buf, binary.Bytes(&n.value))
	for i, pos := range n.child {
		stdbinary.LittleEndian.PutUint64(buf[t.valSize+uint64(i)*8:], pos)
	}
	return buf
}

func (t *Trie[Val]) decodeNode(buf []byte) node[Val] {
	n := t.newNode()
	binary.CopyInto(&n.value, buf[:t.valSize])
	for i := range n.child {
		n.child[i] = stdbinary.LittleEndian.Uint64(buf[t.valSize+uint64(i)*8:])
	}
	return n
}

func (t *Trie[Val]) readNodeAt(pos uint64) (node[Val], error) {
	buf := make([]byte, t.nodeSize())
	if _, err := t.f.ReadAt(buf, int64(pos)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return node[Val]{}, errs.NewNotFound(errs.OutOfBounds)
		}
		return node[Val]{}, err
	}
	return t.decodeNode(buf), nil
}

func (t *Trie[Val]) writeNodeAt(n *node[Val], pos uint64) error {
	_, err := t.f.WriteAt(t.encodeNode(n), int64(pos))
	return err
}

// Get reads the value stored at key. It fails with TriePosZero when the
// path runs into an empty child slot (OutOfBounds for a position past the
// end of the file); a node that exists on the path but was never given a
// value of its own yields the zero Val and no error. Grounded on
// db/trie/mod.rs's get.
func (t *Trie[Val]) Get(key Key) (Val, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero Val
	n, err := t.readNodeAt(MetaSize)
	if err != nil {
		return zero, err
	}
	pos := n.child[key.Root]
	if pos == 0 {
		return zero, errs.NewNotFound(errs.TriePosZero)
	}
	n, err = t.readNodeAt(pos)
	if err != nil {
		return zero, err
	}

	for _, x := range key.Tree {
		pos = n.child[x]
		if pos == 0 {
			return zero, errs.NewNotFound(errs.TriePosZero)
		}
		n, err = t.readNodeAt(pos)
		if err != nil {
			return zero, err
		}
	}

	return n.value, nil
}

// add appends a fresh chain of nodes for tree, with val at the leaf,
// returning the file position of the outermost (first) node in the
// chain. Grounded on db/trie/mod.rs's add.
func (t *Trie[Val]) add(tree []int, val Val) (uint64, error) {
	childPos, err := t.fileSize()
	if err != nil {
		return 0, err
	}
	leaf := t.newNode()
	leaf.value = val
	if err := t.writeNodeAt(&leaf, childPos); err != nil {
		return 0, err
	}

	for i := len(tree) - 1; i >= 0; i-- {
		currPos, err := t.fileSize()
		if err != nil {
			return 0, err
		}
		n := t.newNode()
		n.child[tree[i]] = childPos
		if err := t.writeNodeAt(&n, currPos); err != nil {
			return 0, err
		}
		childPos = currPos
	}

	return childPos, nil
}

// Set stores val at key, returning the value it replaced (if any).
// Grounded on db/trie/mod.rs's set.
func (t *Trie[Val]) Set(key Key, val Val) (Val, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var none Val
	n, err := t.readNodeAt(MetaSize)
	if err != nil {
		n = t.newNode()
		if err := t.writeNodeAt(&n, MetaSize); err != nil {
			return none, false, err
		}
		pos, err := t.add(key.Tree, val)
		if err != nil {
			return none, false, err
		}
		n.child[key.Root] = pos
		return none, false, t.writeNodeAt(&n, MetaSize)
	}

	pos := n.child[key.Root]
	if pos == 0 {
		return t.setFresh(&n, key.Root, key.Tree, val)
	}
	n2, err := t.readNodeAt(pos)
	if err != nil {
		return t.setFresh(&n, key.Root, key.Tree, val)
	}
	n = n2

	for i, x := range key.Tree {
		cpos := n.child[x]
		if cpos == 0 {
			return t.setFreshAt(&n, pos, x, key.Tree[i+1:], val)
		}
		next, err := t.readNodeAt(cpos)
		if err != nil {
			return t.setFreshAt(&n, pos, x, key.Tree[i+1:], val)
		}
		pos = cpos
		n = next
	}

	old := n.value
	n.value = val
	return old, true, t.writeNodeAt(&n, pos)
}

// setFresh handles the "root slot empty or corrupt" branch of Set:
// grow a fresh subtree and wire it into the root node.
func (t *Trie[Val]) setFresh(root *node[Val], rootIdx int, tree []int, val Val) (Val, bool, error) {
	var none Val
	pos, err := t.add(tree, val)
	if err != nil {
		return none, false, err
	}
	root.child[rootIdx] = pos
	return none, false, t.writeNodeAt(root, MetaSize)
}

// setFreshAt handles the "deeper slot empty or corrupt" branch of Set:
// grow a fresh subtree and wire it into the current node at pos.
func (t *Trie[Val]) setFreshAt(n *node[Val], pos uint64, idx int, rest []int, val Val) (Val, bool, error) {
	var none Val
	childPos, err := t.add(rest, val)
	if err != nil {
		return none, false, err
	}
	n.child[idx] = childPos
	return none, false, t.writeNodeAt(n, pos)
}

// bytes reinterprets m's storage as a byte slice, used by Trie.init to
// write the header.
func (m *Meta) bytes() []byte { return binary.Bytes(m) }
