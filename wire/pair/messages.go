// Package pair implements the Pair Protocol (spec.md §4.3): message
// set, binary codec, and the acceptor state machine run per accepted
// `teleport/pair/0` connection.
package pair

// MaxFrameLength is the pair protocol's per-frame cap (spec.md §4.3).
const MaxFrameLength = 4096

// PairingCodeSize is the fixed width of a pairing code (spec.md §3).
const PairingCodeSize = 6

// Close codes (spec.md §6), stable 8-byte ASCII diagnostics.
const (
	CloseInvalidHelo   = "INV_HELO"
	CloseInvalidSecret = "INV_SEC"
	CloseInternalError = "INT_ERR"
)

// PairingCode is the 6-byte human-verified value both sides generate
// and compare (spec.md §3).
type PairingCode [PairingCodeSize]byte

// messageTag identifies a message's wire shape, the same
// tagged-variant shape WireGuard-go's handshake messages use
// (device/noise-types.go's MessageInitiation/MessageResponse
// discriminated by a leading type field).
type messageTag byte

const (
	tagHelo messageTag = iota + 1
	tagNiceToMeetYou
	tagWrongPairingCode
	tagWrongSecret
	tagFuckOff
)

// Helo is sent by the initiator to start a pairing attempt.
type Helo struct {
	FriendlyName string
	PairingCode  PairingCode
	Secret       []byte
}

// NiceToMeetYou is the acceptor's success reply.
type NiceToMeetYou struct {
	FriendlyName string
}

// WrongPairingCode is sent when the human-verified code did not match.
type WrongPairingCode struct{}

// WrongSecret is sent when the presented secret did not match the
// currently published one (spec.md §4.6); an anti-spam response, not
// shown to the initiating human.
type WrongSecret struct{}

// FuckOff is sent when the user explicitly rejected the pairing
// request.
type FuckOff struct{}
