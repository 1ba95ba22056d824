package apex

import (
	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/xlog"
)

var coordsLog = xlog.Root().Named("apex.coords")

// Coords is a validated (z,x,y) map tile coordinate. Grounded on
// db/apex/coords.rs's ApexCoords.
type Coords struct {
	Z, X, Y int
}

// NewCoords validates and constructs a Coords: z must not exceed
// MaxZoom, and x,y must fit within the 2^z grid at that zoom.
func NewCoords(z, x, y int) (Coords, error) {
	if z > MaxZoom {
		coordsLog.Error("new_coords: zoom exceeds max", "max_zoom", MaxZoom, "z", z)
		return Coords{}, errs.NewSystem(errs.BadCoords)
	}
	max := (1 << z) - 1
	if x > max || y > max {
		coordsLog.Error("new_coords: x,y out of range for zoom", "max", max, "z", z, "x", x, "y", y)
		return Coords{}, errs.NewSystem(errs.BadCoords)
	}
	return Coords{Z: z, X: x, Y: y}, nil
}

// calcIndex computes the Z-order (Morton-style) index of (x,y) within
// a 2^z-by-2^z grid flattened into a 4^z-wide array, by accumulating
// one 2-bit digit per level from the most to the least significant.
// Grounded on db/apex/coords.rs's index.
func calcIndex(z, x, y int) int {
	index := 0
	for cz := 1; cz <= z; cz++ {
		b := 1 << (z - cz)
		sq := b * b
		switch xm, ym := (x/b)%2, (y/b)%2; {
		case xm == 0 && ym == 0:
		case xm == 1 && ym == 0:
			index += sq
		case xm == 0 && ym == 1:
			index += sq * 2
		case xm == 1 && ym == 1:
			index += sq * 3
		}
	}
	return index
}

// FullKey decomposes c into exactly Len tile-selection indices, one
// per chained tile, covering the full zoom depth Lvl*Len. Requires
// c.Z >= Lvl*Len. Grounded on db/apex/coords.rs's full_key.
func (c Coords) FullKey() ([]int, error) {
	if c.Z < Lvl*Len {
		return nil, errs.NewSystem(errs.BadCoords)
	}

	key := make([]int, Len)
	z, x, y := c.Z, c.X, c.Y
	for i := range key {
		z -= Lvl
		b := 1 << z
		key[i] = calcIndex(Lvl, x/b, y/b)
		x %= b
		y %= b
	}
	return key, nil
}

// DisplayKey is a partial-depth key for reading a subtree bitmap at a
// zoom shallower than the store's full Lvl*Len depth.
type DisplayKey struct {
	// Key selects tiles down to the requested depth; the final entry
	// indexes into the last tile read, Size wide.
	Key []int
	// Size is the number of consecutive child slots the final Key
	// entry starts a run of (1 for a single gene, more for a coarser
	// zoom that maps to several genes' worth of descendants).
	Size int
}

// DisplayKey builds a partial-depth key for c, stopping as soon as c's
// zoom is covered by the tiles walked so far instead of requiring the
// full Lvl*Len depth FullKey does. Grounded on db/apex/coords.rs's
// display_key.
func (c Coords) DisplayKey() DisplayKey {
	key := make([]int, Len)
	length := 0
	z, x, y := c.Z, c.X, c.Y

	for i := 0; i < Len; i++ {
		length++
		if z <= Lvl {
			key[i] = calcIndex(z, x, y)
			size := 1 << ((Lvl - z) * 2)
			if z == Lvl && length != Len {
				length++
				size = 1 << (Lvl * 2)
			}
			return DisplayKey{Key: key[:length], Size: size}
		}

		z -= Lvl
		b := 1 << z
		key[i] = calcIndex(Lvl, x/b, y/b)
		x %= b
		y %= b
	}

	return DisplayKey{Key: key[:length], Size: 1}
}
