package pair

import (
	"context"
	"fmt"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/transport"
)

// OutcomeKind is the initiator-observable result of a pairing attempt
// (spec.md §4.3 "Pairing outcomes observable by the initiator").
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeWrongCode
	OutcomeWrongSecret
	OutcomeError
)

// Outcome is what RunInitiator resolves to.
type Outcome struct {
	Kind     OutcomeKind
	PeerId   identity.EndpointId
	PeerName string
	Err      error
}

// RunInitiator is the initiator half of the pair protocol (spec.md
// §4.3 "Initiator"), the symmetric mirror of Accept. It lives beside
// the acceptor (rather than in the pairing package) since it shares
// the codec and constants, the same division send.RunSender uses for
// the send protocol's outbound half.
func RunInitiator(ctx context.Context, ep *transport.Endpoint, addr string, ourName string, code PairingCode, secret []byte) Outcome {
	conn, err := ep.Dial(ctx, addr, transport.ALPNPair)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: dial: %w", err)}
	}

	peerID, err := transport.RemoteEndpointId(conn)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: remote id: %w", err)}
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: open stream: %w", err)}
	}
	fs := transport.NewFramedStream(stream, MaxFrameLength)

	payload, err := Encode(Helo{FriendlyName: ourName, PairingCode: code, Secret: secret})
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: encode Helo: %w", err)}
	}
	if err := fs.WriteFrame(payload); err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: write Helo: %w", err)}
	}

	frame, err := fs.ReadFrame()
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: read reply: %w", err)}
	}
	msg, err := Decode(frame)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: decode reply: %w", err)}
	}

	switch m := msg.(type) {
	case NiceToMeetYou:
		return Outcome{Kind: OutcomeSuccess, PeerId: peerID, PeerName: m.FriendlyName}
	case WrongPairingCode:
		return Outcome{Kind: OutcomeWrongCode}
	case WrongSecret:
		return Outcome{Kind: OutcomeWrongSecret}
	case FuckOff:
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("peer rejected pairing")}
	default:
		return Outcome{Kind: OutcomeError, Err: fmt.Errorf("pair: invalid msg type %T", m)}
	}
}
