// Package keepalive implements the Keepalive Protocol (spec.md §4.5):
// a minimal ping/pong codec and acceptor loop run over
// `teleport/keepalive/1` connections. Not to be confused with the
// Keepalive *Subsystem* (spec.md §4.9), which lives in the liveness
// package and is this protocol's client.
package keepalive

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MaxMsgSize is the keepalive protocol's per-frame cap (spec.md §4.5).
const MaxMsgSize = 64

type messageTag byte

const (
	tagPing messageTag = iota + 1
	tagPong
)

// Ping is sent by the liveness subsystem on every tick.
type Ping struct {
	Seq uint64
}

// Pong echoes a Ping's sequence number.
type Pong struct {
	Seq uint64
}

// Encode serializes a keepalive message.
func Encode(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	switch m := msg.(type) {
	case Ping:
		buf.WriteByte(byte(tagPing))
		writeUint64(&buf, m.Seq)
	case Pong:
		buf.WriteByte(byte(tagPong))
		writeUint64(&buf, m.Seq)
	default:
		return nil, fmt.Errorf("keepalive: encode: unknown message type %T", msg)
	}
	return buf.Bytes(), nil
}

// Decode parses a frame payload into Ping or Pong.
func Decode(frame []byte) (interface{}, error) {
	if len(frame) != 9 {
		return nil, fmt.Errorf("keepalive: decode: want 9 bytes, got %d", len(frame))
	}
	seq := binary.BigEndian.Uint64(frame[1:9])
	switch messageTag(frame[0]) {
	case tagPing:
		return Ping{Seq: seq}, nil
	case tagPong:
		return Pong{Seq: seq}, nil
	default:
		return nil, fmt.Errorf("keepalive: decode: unknown tag %d", frame[0])
	}
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
