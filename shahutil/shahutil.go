// Package shahutil collects the small file/name helpers shared by every
// store, mirroring the reference engine's utils.rs grab-bag module.
package shahutil

import (
	"os"
	"unicode/utf8"

	"github.com/00-team/shah/errs"
)

// ValidateDbName enforces the 1-64 character, [A-Za-z0-9-] only database
// name rule from spec.md §6.
func ValidateDbName(name string) error {
	if len(name) < 1 || len(name) > 64 {
		return errs.NewDb(errs.InvalidDbName)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return errs.NewDb(errs.InvalidDbName)
		}
	}
	return nil
}

// Falloc extends file f so that it is at least offset+size bytes long, by
// writing a single zero byte at the last position if the file is
// currently shorter. This mirrors the reference engine's falloc, used to
// reserve space for a fixed-size table (e.g. the trie cache table) without
// writing the whole region up front.
func Falloc(f *os.File, offset, size uint64) error {
	if size == 0 {
		return nil
	}
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if uint64(fi.Size()) >= offset+size {
		return nil
	}
	_, err = f.WriteAt([]byte{0}, int64(offset+size-1))
	return err
}

// TruncateUTF8 copies as much of src into dst as fits without splitting a
// multi-byte UTF-8 rune, zero-filling the remainder of dst. It returns the
// number of bytes copied. This is the fixed-capacity-string behavior the
// reference engine gives ShahString<N>; Go has no value (const) generic
// parameters, so rather than a generic ShahString[N] type, a record with a
// fixed-size `[N]byte` field can call this helper on that field's slice
// (entity records already carry their N as a concrete array length); no
// store in this module calls it at present.
func TruncateUTF8(dst []byte, src string) int {
	for k := range dst {
		dst[k] = 0
	}
	if len(src) <= len(dst) {
		n := copy(dst, src)
		return n
	}
	cut := len(dst)
	for cut > 0 && !utf8.RuneStart(src[cut]) {
		cut--
	}
	return copy(dst, src[:cut])
}

// UTF8String reconstructs a string from a nul-padded fixed-size buffer,
// stopping at the first nul byte (or the end of buf if none is found).
func UTF8String(buf []byte) string {
	n := len(buf)
	for i, b := range buf {
		if b == 0 {
			n = i
			break
		}
	}
	return string(buf[:n])
}
