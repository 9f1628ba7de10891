package pair

import (
	"context"
	"fmt"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

// Decision is the human reaction an Authority reports back once
// an inbound attempt has been escalated to the UI (spec.md §4.3
// "Resolve").
type Decision int

const (
	DecisionAccept Decision = iota
	DecisionWrongPairingCode
	DecisionReject
)

// Authority is the Pairing Subsystem's contract as seen by the
// acceptor state machine, kept as an interface here (rather than
// importing the pairing package directly) to avoid a cycle with
// wire/pair.RunInitiator, which the pairing package calls into.
type Authority interface {
	// ValidateSecret reports whether secret matches the currently
	// published pairing secret (spec.md §4.6, constant-time).
	// Probes are rate-limited per from, so the caller's identity is
	// passed alongside the secret.
	ValidateSecret(from identity.EndpointId, secret []byte) bool
	// LocalName returns this device's own friendly name.
	LocalName() string
	// Escalate blocks until the user reacts to an inbound pairing
	// request, collapsing spec.md §9's two-promise
	// (reaction-promise, outcome-promise) design into one blocking
	// call from the acceptor's point of view; the Authority
	// implementation owns the actual promise plumbing.
	Escalate(ctx context.Context, from identity.EndpointId, peerName string, code PairingCode) (Decision, error)
	// CompletePairing reports the final outcome so the subsystem can
	// register the peer (on success) and rotate the pairing secret
	// (spec.md §4.6, unconditionally, on any inbound attempt).
	CompletePairing(from identity.EndpointId, peerName string, outcomeErr error)
}

// Accept runs the acceptor state machine for one inbound pair
// connection (spec.md §4.3): AwaitHelo → ValidateSecret → Escalate →
// Resolve.
func Accept(ctx context.Context, fs *transport.FramedStream, from identity.EndpointId, authority Authority, log logging.Logger) {
	frame, err := fs.ReadFrame()
	if err != nil {
		log.Debugf("pair: read Helo: %v", err)
		return
	}
	msg, err := Decode(frame)
	if err != nil {
		log.Debugf("pair: decode Helo: %v", err)
		fs.AbortWithCode(CloseInvalidHelo)
		return
	}
	helo, ok := msg.(Helo)
	if !ok {
		log.Debugf("pair: expected Helo, got %T", msg)
		fs.AbortWithCode(CloseInvalidHelo)
		return
	}

	if !authority.ValidateSecret(from, helo.Secret) {
		writeOrLog(fs, WrongSecret{}, log)
		fs.AbortWithCode(CloseInvalidSecret)
		return
	}

	decision, err := authority.Escalate(ctx, from, helo.FriendlyName, helo.PairingCode)
	if err != nil {
		log.Errorf("pair: escalate: %v", err)
		authority.CompletePairing(from, helo.FriendlyName, err)
		fs.AbortWithCode(CloseInternalError)
		return
	}

	switch decision {
	case DecisionAccept:
		if err := writeOrLog(fs, NiceToMeetYou{FriendlyName: authority.LocalName()}, log); err != nil {
			authority.CompletePairing(from, helo.FriendlyName, err)
			return
		}
		authority.CompletePairing(from, helo.FriendlyName, nil)
		fs.CloseGraceful()
	case DecisionWrongPairingCode:
		writeOrLog(fs, WrongPairingCode{}, log)
		authority.CompletePairing(from, helo.FriendlyName, fmt.Errorf("wrong pairing code"))
		fs.CloseGraceful()
	case DecisionReject:
		writeOrLog(fs, FuckOff{}, log)
		authority.CompletePairing(from, helo.FriendlyName, fmt.Errorf("peer rejected pairing"))
		fs.CloseGraceful()
	}
}

func writeOrLog(fs *transport.FramedStream, msg interface{}, log logging.Logger) error {
	payload, err := Encode(msg)
	if err != nil {
		log.Errorf("pair: encode %T: %v", msg, err)
		return err
	}
	if err := fs.WriteFrame(payload); err != nil {
		log.Debugf("pair: write %T: %v", msg, err)
		return err
	}
	return nil
}
