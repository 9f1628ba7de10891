package pair

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode serializes a pair protocol message into its self-delimited
// binary form: one tag byte, then fixed/length-prefixed fields, the
// same "tagged variant, length-prefixed byte array" shape spec.md §6
// calls for.
func Encode(msg interface{}) ([]byte, error) {
	var buf bytes.Buffer
	switch m := msg.(type) {
	case Helo:
		buf.WriteByte(byte(tagHelo))
		writeString(&buf, m.FriendlyName)
		buf.Write(m.PairingCode[:])
		writeBytes(&buf, m.Secret)
	case NiceToMeetYou:
		buf.WriteByte(byte(tagNiceToMeetYou))
		writeString(&buf, m.FriendlyName)
	case WrongPairingCode:
		buf.WriteByte(byte(tagWrongPairingCode))
	case WrongSecret:
		buf.WriteByte(byte(tagWrongSecret))
	case FuckOff:
		buf.WriteByte(byte(tagFuckOff))
	default:
		return nil, fmt.Errorf("pair: encode: unknown message type %T", msg)
	}
	return buf.Bytes(), nil
}

// Decode parses a frame payload into one of this package's message
// types, returned as an interface{} for the caller to type-switch on.
func Decode(frame []byte) (interface{}, error) {
	if len(frame) < 1 {
		return nil, fmt.Errorf("pair: decode: empty frame")
	}
	r := bytes.NewReader(frame[1:])
	switch messageTag(frame[0]) {
	case tagHelo:
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("pair: decode Helo.FriendlyName: %w", err)
		}
		var code PairingCode
		if _, err := readFull(r, code[:]); err != nil {
			return nil, fmt.Errorf("pair: decode Helo.PairingCode: %w", err)
		}
		secret, err := readBytes(r)
		if err != nil {
			return nil, fmt.Errorf("pair: decode Helo.Secret: %w", err)
		}
		return Helo{FriendlyName: name, PairingCode: code, Secret: secret}, nil
	case tagNiceToMeetYou:
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("pair: decode NiceToMeetYou.FriendlyName: %w", err)
		}
		return NiceToMeetYou{FriendlyName: name}, nil
	case tagWrongPairingCode:
		return WrongPairingCode{}, nil
	case tagWrongSecret:
		return WrongSecret{}, nil
	case tagFuckOff:
		return FuckOff{}, nil
	default:
		return nil, fmt.Errorf("pair: decode: unknown tag %d", frame[0])
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytes(buf, []byte(s))
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
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
