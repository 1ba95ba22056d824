package cloth

import (
	"github.com/00-team/shah/belt"
	"github.com/00-team/shah/entity"
	"github.com/00-team/shah/gene"
	"github.com/00-team/shah/shahutil"
)

// Db chunks an arbitrary-length UTF-8 string across a chain of Belt
// records anchored at one belt.Buckle per string.
type Db struct {
	belt *belt.Db[Belt, *Belt]
}

// New opens a cloth store atop already-open belt/buckle entity stores.
func New(beltStore *entity.Db[Belt, *Belt], buckleStore *entity.Db[belt.Buckle, *belt.Buckle]) *Db {
	return &Db{belt: belt.New[Belt, *Belt](beltStore, buckleStore)}
}

// Work advances the composed belt/buckle stores one cooperative step.
func (db *Db) Work() error { return db.belt.Work() }

// BuckleRoot ensures the well-known root buckle exists.
func (db *Db) BuckleRoot() error { return db.belt.BuckleRoot() }

// BuckleInit creates a fresh buckle to anchor a new string.
func (db *Db) BuckleInit(g gene.Gene) (belt.Buckle, error) { return db.belt.BuckleInit(g) }

// BuckleDel cascades: frees every chunk of the string and the buckle
// itself.
func (db *Db) BuckleDel(g gene.Gene) error { return db.belt.BuckleDel(g) }

// Get reconstructs the string anchored at bg by walking its chunk
// chain from head to the first is-end chunk. Grounded on
// db/belt/cloth.rs's get.
func (db *Db) Get(bg gene.Gene) (string, error) {
	buckle, err := db.belt.BuckleGet(bg)
	if err != nil {
		return "", err
	}

	data := make([]byte, 0, ChunkSize)
	g := buckle.Head
	for g.IsSome() {
		chunk, err := db.belt.Get(g)
		if err != nil {
			break
		}
		n := int(chunk.Length)
		if n > len(chunk.Data) {
			n = len(chunk.Data)
		}
		data = append(data, chunk.Data[:n]...)
		g = chunk.Next
		if chunk.IsEnd {
			break
		}
	}

	return shahutil.UTF8String(data), nil
}

// Set replaces the string anchored at bg with data, reusing existing
// chunks in the chain where possible and appending new ones (via
// belt.Add) when data needs more chunks than the chain currently has.
// Grounded on db/belt/cloth.rs's set. Shrinking leaves any now-unused
// trailing chunks in place (still reachable only past the new is-end
// sentinel, so Get never sees them) rather than freeing them — this
// matches the reference engine's own set, which never trims the tail
// of the chain either; a shrink-then-grow cycle reclaims the slack
// because Set reuses chunks positionally before appending new ones.
func (db *Db) Set(bg gene.Gene, data string) error {
	buckle, err := db.belt.BuckleGet(bg)
	if err != nil {
		return err
	}

	raw := []byte(data)
	g := buckle.Head
	var chunk Belt

	if len(raw) == 0 {
		raw = []byte{0}
	}

	for offset := 0; offset < len(raw); offset += ChunkSize {
		end := offset + ChunkSize
		isEnd := end >= len(raw)
		if end > len(raw) {
			end = len(raw)
		}
		part := raw[offset:end]

		for i := range chunk.Data {
			chunk.Data[i] = 0
		}
		copy(chunk.Data[:], part)
		chunk.Length = uint16(len(part))
		chunk.FlagsRef().SetAlive(true)
		chunk.IsEnd = isEnd

		if !g.IsSome() {
			chunk.Gene = gene.Gene{}
			if _, err := db.belt.Add(bg, chunk); err != nil {
				return err
			}
			continue
		}

		chunk.Gene = g
		next, err := db.setChunk(chunk)
		if err != nil {
			chunk.Gene = gene.Gene{}
			if _, err := db.belt.Add(bg, chunk); err != nil {
				return err
			}
			g = gene.Gene{}
			continue
		}
		g = next
	}

	return nil
}

// setChunk overwrites an existing chunk record, returning its Next
// gene so Set can continue walking the existing chain.
func (db *Db) setChunk(chunk Belt) (gene.Gene, error) {
	if err := db.belt.Set(chunk.Gene, chunk); err != nil {
		return gene.Gene{}, err
	}
	updated, err := db.belt.Get(chunk.Gene)
	if err != nil {
		return gene.Gene{}, err
	}
	return updated.Next, nil
}
