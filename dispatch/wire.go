package dispatch

import stdbinary "encoding/binary"

// OrderHeadSize is the fixed byte size of an OrderHead on the wire.
const OrderHeadSize = 16

// ReplyHeadSize is the fixed byte size of a ReplyHead on the wire.
const ReplyHeadSize = 24

// MaxDatagram is the largest order/reply datagram this dispatcher will
// read or write, the practical ceiling for a UDP payload.
const MaxDatagram = 65507

// OrderHead is the fixed header prefixing every order datagram's body.
// Grounded on spec.md §4.9's wire layout.
type OrderHead struct {
	Size  uint32
	Scope uint8
	Route uint8
	Id    uint64
}

// ReplyHead is the fixed header prefixing every reply datagram's body.
type ReplyHead struct {
	Id      uint64
	Size    uint32
	Error   uint32
	Elapsed uint64
}

func decodeOrderHead(buf []byte) OrderHead {
	return OrderHead{
		Size:  stdbinary.LittleEndian.Uint32(buf[0:4]),
		Scope: buf[4],
		Route: buf[5],
		// buf[6:8] is padding.
		Id: stdbinary.LittleEndian.Uint64(buf[8:16]),
	}
}

func encodeReplyHead(h ReplyHead) []byte {
	buf := make([]byte, ReplyHeadSize)
	stdbinary.LittleEndian.PutUint64(buf[0:8], h.Id)
	stdbinary.LittleEndian.PutUint32(buf[8:12], h.Size)
	stdbinary.LittleEndian.PutUint32(buf[12:16], h.Error)
	stdbinary.LittleEndian.PutUint64(buf[16:24], h.Elapsed)
	return buf
}
