// Package schema implements the algebraic structural-equality type
// descriptor used to validate that an on-disk store's record shape
// matches the shape the running binary expects to read. See SPEC_FULL.md
// / spec.md §4.1.
//
// A Schema is compared only on structural shape and size; model and field
// names never participate in equality, so renaming a field (without
// changing its type or position) does not trip a schema mismatch.
package schema

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MaxEncodedSize bounds the encoded byte string stored in any header;
// see spec.md §8 property 3.
const MaxEncodedSize = 4096

// Kind tags the sum type.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	KindGene
	KindString
	KindArray
	KindTuple
	KindModel
)

// Schema is a tagged sum: primitive | Array{Length,Elem} | Tuple[Schema] |
// String(Len) | Model{Name,Size,Fields}. Only Kind, Length/Len/Size and
// nested Schemas participate in equality; Name fields are documentation.
type Schema struct {
	Kind   Kind
	Len    uint64    // String length, or Array length
	Size   uint64    // Model: total byte size
	Name   string    // Model name; ignored by Equal
	Elem   *Schema   // Array element schema
	Fields []Field   // Model fields, in declared order
	Tuple  []Schema  // Tuple element schemas
}

// Field is one named slot of a Model schema. Name is documentation only;
// Equal compares only the ordered list of field Schemas.
type Field struct {
	Name   string
	Schema Schema
}

func Primitive(k Kind) Schema { return Schema{Kind: k} }

func String(length uint64) Schema { return Schema{Kind: KindString, Len: length} }

func Array(length uint64, elem Schema) Schema {
	return Schema{Kind: KindArray, Len: length, Elem: &elem}
}

func Tuple(elems ...Schema) Schema { return Schema{Kind: KindTuple, Tuple: elems} }

func Model(name string, size uint64, fields ...Field) Schema {
	return Schema{Kind: KindModel, Name: name, Size: size, Fields: fields}
}

// Equal compares structural shape and size only, ignoring Name.
func Equal(a, b Schema) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString, KindArray:
		if a.Len != b.Len {
			return false
		}
		if a.Kind == KindArray {
			if a.Elem == nil || b.Elem == nil {
				return a.Elem == b.Elem
			}
			return Equal(*a.Elem, *b.Elem)
		}
		return true
	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if !Equal(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	case KindModel:
		if a.Size != b.Size || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !Equal(a.Fields[i].Schema, b.Fields[i].Schema) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Encode produces a compact byte string for s, bounded by MaxEncodedSize.
func Encode(s Schema) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, s); err != nil {
		return nil, err
	}
	if buf.Len() > MaxEncodedSize {
		return nil, fmt.Errorf("schema: encoded size %d exceeds %d", buf.Len(), MaxEncodedSize)
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, s Schema) error {
	buf.WriteByte(byte(s.Kind))
	switch s.Kind {
	case KindString:
		writeU64(buf, s.Len)
	case KindArray:
		writeU64(buf, s.Len)
		if s.Elem == nil {
			return fmt.Errorf("schema: array with nil element")
		}
		return encodeInto(buf, *s.Elem)
	case KindTuple:
		writeU64(buf, uint64(len(s.Tuple)))
		for _, t := range s.Tuple {
			if err := encodeInto(buf, t); err != nil {
				return err
			}
		}
	case KindModel:
		writeU64(buf, s.Size)
		writeU64(buf, uint64(len(s.Fields)))
		for _, f := range s.Fields {
			if err := encodeInto(buf, f.Schema); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Decode inverts Encode.
func Decode(data []byte) (Schema, error) {
	r := bytes.NewReader(data)
	return decodeFrom(r)
}

func decodeFrom(r *bytes.Reader) (Schema, error) {
	kb, err := r.ReadByte()
	if err != nil {
		return Schema{}, err
	}
	k := Kind(kb)
	s := Schema{Kind: k}
	switch k {
	case KindString:
		s.Len, err = readU64(r)
	case KindArray:
		s.Len, err = readU64(r)
		if err != nil {
			return s, err
		}
		elem, derr := decodeFrom(r)
		if derr != nil {
			return s, derr
		}
		s.Elem = &elem
	case KindTuple:
		n, terr := readU64(r)
		if terr != nil {
			return s, terr
		}
		s.Tuple = make([]Schema, n)
		for i := range s.Tuple {
			s.Tuple[i], err = decodeFrom(r)
			if err != nil {
				return s, err
			}
		}
	case KindModel:
		s.Size, err = readU64(r)
		if err != nil {
			return s, err
		}
		n, ferr := readU64(r)
		if ferr != nil {
			return s, ferr
		}
		s.Fields = make([]Field, n)
		for i := range s.Fields {
			s.Fields[i].Schema, err = decodeFrom(r)
			if err != nil {
				return s, err
			}
		}
	}
	return s, err
}
