package pairing

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/teleportd/teleport/identity"
)

// SecretSize is the fixed width of a pairing secret (spec.md §3).
const SecretSize = 128

// PeerAddress is a transient, network-reachable address for an
// EndpointId, exchanged out-of-band at pairing time and never
// persisted (spec.md §3).
type PeerAddress struct {
	ID   identity.EndpointId
	Hint string
}

// Ticket is the out-of-band pairing payload (spec.md §6): {addr,
// secret}.
type Ticket struct {
	Addr   PeerAddress
	Secret [SecretSize]byte
}

// ticketEncoding is unpadded base32, case-insensitive and safe for
// manual transcription — the property the original Rust
// implementation's postcard-then-base32 ticket format is chosen for
// (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
var ticketEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode renders a Ticket as a compact length-prefixed binary blob,
// then as unpadded base32 text.
func (t Ticket) Encode() string {
	var buf bytes.Buffer
	buf.Write(t.Addr.ID[:])
	var hintLen [2]byte
	binary.BigEndian.PutUint16(hintLen[:], uint16(len(t.Addr.Hint)))
	buf.Write(hintLen[:])
	buf.WriteString(t.Addr.Hint)
	buf.Write(t.Secret[:])
	return ticketEncoding.EncodeToString(buf.Bytes())
}

// DecodeTicket parses a ticket string produced by Ticket.Encode.
func DecodeTicket(s string) (Ticket, error) {
	raw, err := ticketEncoding.DecodeString(s)
	if err != nil {
		return Ticket{}, fmt.Errorf("pairing: decode ticket: %w", err)
	}
	const idLen = len(identity.EndpointId{})
	if len(raw) < idLen+2 {
		return Ticket{}, fmt.Errorf("pairing: ticket too short")
	}
	var t Ticket
	copy(t.Addr.ID[:], raw[:idLen])
	hintLen := binary.BigEndian.Uint16(raw[idLen : idLen+2])
	offset := idLen + 2
	if len(raw) < offset+int(hintLen)+SecretSize {
		return Ticket{}, fmt.Errorf("pairing: ticket truncated")
	}
	t.Addr.Hint = string(raw[offset : offset+int(hintLen)])
	offset += int(hintLen)
	copy(t.Secret[:], raw[offset:offset+SecretSize])
	return t, nil
}
