// Package binary implements the "binary view" capability every persisted
// shah record needs: a fixed byte size, deterministic little-endian
// layout, and the ability to be reinterpreted in place as a byte slice
// with no copy. This is the load-bearing design decision carried over
// from the original engine (see SPEC_FULL.md "Binary view, Schema,
// Headers"): records are written and read as raw bytes, never through a
// variable-width encoder.
//
// Go has no compile-time struct-layout reflection comparable to Rust's
// `#[repr(C)]` plus macro-generated offset assertions, so the same
// guarantee is produced here with unsafe.Slice at the call site plus an
// init-time size assertion every concrete record type registers via
// MustSize. Struct authors are responsible for declaring fields in a
// stable order with explicit padding fields (`_pad [N]byte`) so that Go's
// own layout (which already packs fields without reordering on most
// targets for this struct shape) matches the declared size exactly.
package binary

import "unsafe"

// View is implemented by every fixed-size record type. N is the
// authoritative byte size and must equal unsafe.Sizeof(T{}); callers
// verify this once at package init via MustSize.
type View interface {
	Size() uint64
}

// Bytes reinterprets v's underlying storage as a byte slice of length
// v.Size(), with no allocation or copy. v must be a pointer to the
// concrete record; the returned slice aliases v's memory and is invalid
// once v goes out of scope or is garbage collected while still aliased
// (callers must not retain the slice past v's lifetime without copying).
func Bytes[T View](v *T) []byte {
	n := (*v).Size()
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), n)
}

// MustSize panics if the compile-time size of T does not match want. Call
// this from an init() in the package that declares T, mirroring the
// reference engine's per-field offset assertions: it is cheaper and more
// honest to fail fast at process start than to silently mis-layout a file
// format.
func MustSize[T any](want uint64) {
	var zero T
	got := uint64(unsafe.Sizeof(zero))
	if got != want {
		panic(errSize{got, want})
	}
}

type errSize struct{ got, want uint64 }

func (e errSize) Error() string {
	return "binary: size mismatch: got " + itoa(e.got) + " want " + itoa(e.want)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Zero clears v's entire backing storage to zero bytes, the Go analogue of
// the reference engine's `zeroed()` helper used before writing a fresh
// record into a reused slot.
func Zero[T View](v *T) {
	b := Bytes(v)
	for i := range b {
		b[i] = 0
	}
}

// CopyInto copies src's raw bytes into dst; both must report the same
// Size(). Used by stores that keep a read buffer and need to materialize
// a typed copy without re-reading the file.
func CopyInto[T View](dst *T, src []byte) {
	copy(Bytes(dst), src)
}
