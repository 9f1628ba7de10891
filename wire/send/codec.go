package send

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode serializes a send protocol message, the same tagged-variant
// shape wire/pair uses.
func Encode(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	switch m := msg.(type) {
	case Offer:
		buf.WriteByte(byte(tagOffer))
		writeString(&buf, m.Name)
		var sizeBuf [8]byte
		binary.BigEndian.PutUint64(sizeBuf[:], m.Size)
		buf.Write(sizeBuf[:])
	case ChunkHeader:
		buf.WriteByte(byte(tagChunkHeader))
		var sizeBuf [4]byte
		binary.BigEndian.PutUint32(sizeBuf[:], m.Size)
		buf.Write(sizeBuf[:])
	case Finish:
		buf.WriteByte(byte(tagFinish))
	case Accept:
		buf.WriteByte(byte(tagAccept))
	case Reject:
		buf.WriteByte(byte(tagReject))
	case Done:
		buf.WriteByte(byte(tagDone))
	case Error:
		buf.WriteByte(byte(tagError))
		writeString(&buf, m.Message)
	default:
		return nil, fmt.Errorf("send: encode: unknown message type %T", msg)
	}
	return buf.Bytes(), nil
}

// Decode parses a frame payload into one of this package's message
// types.
func Decode(frame []byte) (interface{}, error) {
	if len(frame) < 1 {
		return nil, fmt.Errorf("send: decode: empty frame")
	}
	r := bytes.NewReader(frame[1:])
	switch messageTag(frame[0]) {
	case tagOffer:
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("send: decode Offer.Name: %w", err)
		}
		var sizeBuf [8]byte
		if _, err := readFull(r, sizeBuf[:]); err != nil {
			return nil, fmt.Errorf("send: decode Offer.Size: %w", err)
		}
		return Offer{Name: name, Size: binary.BigEndian.Uint64(sizeBuf[:])}, nil
	case tagChunkHeader:
		var sizeBuf [4]byte
		if _, err := readFull(r, sizeBuf[:]); err != nil {
			return nil, fmt.Errorf("send: decode ChunkHeader.Size: %w", err)
		}
		return ChunkHeader{Size: binary.BigEndian.Uint32(sizeBuf[:])}, nil
	case tagFinish:
		return Finish{}, nil
	case tagAccept:
		return Accept{}, nil
	case tagReject:
		return Reject{}, nil
	case tagDone:
		return Done{}, nil
	case tagError:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("send: decode Error.Message: %w", err)
		}
		return Error{Message: msg}, nil
	default:
		return nil, fmt.Errorf("send: decode: unknown tag %d", frame[0])
	}
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
