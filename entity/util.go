package entity

import (
	"crypto/rand"
	"os"

	"github.com/00-team/shah/gene"
)

// idToPos converts a 1-based record id to its byte offset; id 0 is the
// reserved root slot and is never allocated by Add.
func idToPos(id, itemSize uint64) int64 {
	return int64(RecordsOffset) + int64(id)*int64(itemSize)
}

// fileSize returns the current length of the backing file.
func fileSize(f *os.File) (uint64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

// recordCount derives how many record slots currently exist in the file,
// including dead ones but not the reserved slot 0, from the file's
// length; it is also the highest id in use.
func recordCount(size, itemSize uint64) uint64 {
	if size <= RecordsOffset+itemSize {
		return 0
	}
	return (size-RecordsOffset)/itemSize - 1
}

func randomPepper() [3]byte {
	var p [3]byte
	if _, err := rand.Read(p[:]); err != nil {
		p = [3]byte{1, 1, 1}
	}
	return p
}

// newGene mints a fresh gene for a newly allocated slot at id; whatever
// was on disk at that slot is ignored: a freshly allocated slot always
// gets a brand new random pepper and iter 0.
func newGene(id uint64, server uint32) gene.Gene {
	return gene.Gene{
		Id:     id,
		Iter:   0,
		Pepper: randomPepper(),
		Server: server,
	}
}

// bumpIter advances g's iteration counter for reuse after a delete,
// returning the new gene and whether the slot is now exhausted (iter
// reached gene.IterExhaustion and must never be reused again).
func bumpIter(g gene.Gene) (gene.Gene, bool) {
	g.Iter++
	g.Pepper = randomPepper()
	return g, g.Iter >= gene.IterExhaustion
}
