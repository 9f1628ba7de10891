// Package pairing implements the Pairing Subsystem (spec.md §4.6): a
// single-writer actor owning the rotating pairing secret and the
// inbound-pair escalation flow, plus the outbound PairWith path.
package pairing

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/ratelimiter"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/pair"
)

// InboundPairNotification is the resolver half of an inbound pairing
// event: the UI calls Resolve once the human has reacted. This is the
// {notification, completion-future} pair spec.md §9 calls for,
// replacing the source's opaque bridge-wrapper resolver handles.
type InboundPairNotification struct {
	Peer         identity.EndpointId
	FriendlyName string
	PairingCode  pair.PairingCode

	react chan<- pair.Decision
}

// Resolve reports the human's reaction. Safe to call exactly once.
func (n *InboundPairNotification) Resolve(decision pair.Decision) {
	n.react <- decision
}

// InboundPair is published to the UI sink for every inbound pairing
// attempt from a not-yet-known peer.
type InboundPair struct {
	Notification *InboundPairNotification
	// Completion resolves once the wire-level exchange finishes: nil
	// on success, an error describing the failure otherwise.
	Completion <-chan error
}

// Subsystem is the Pairing Subsystem actor.
type Subsystem struct {
	cfg     *config.Store
	ep      *transport.Endpoint
	limiter *ratelimiter.Limiter
	log     logging.Logger

	uiSink  chan InboundPair
	mailbox chan any
	stop    chan struct{}
}

// New builds a Subsystem. Call Run in its own goroutine to start the
// actor loop.
func New(cfg *config.Store, ep *transport.Endpoint, log logging.Logger) *Subsystem {
	limiter := &ratelimiter.Limiter{}
	limiter.Init()
	return &Subsystem{
		cfg:     cfg,
		ep:      ep,
		limiter: limiter,
		log:     log.WithField("subsystem", "pairing"),
		uiSink:  make(chan InboundPair, 16),
		mailbox: make(chan any, 64),
		stop:    make(chan struct{}),
	}
}

// Inbound returns the UI-facing stream of inbound pairing attempts.
func (s *Subsystem) Inbound() <-chan InboundPair {
	return s.uiSink
}

// Run is the actor's mailbox loop; it owns the current secret and the
// table of in-flight inbound attempts awaiting completion. It returns
// when ctx is cancelled.
func (s *Subsystem) Run(ctx context.Context) error {
	secret, err := randomSecret()
	if err != nil {
		return fmt.Errorf("pairing: generate initial secret: %w", err)
	}
	pending := make(map[identity.EndpointId]chan error)

	for {
		select {
		case <-ctx.Done():
			s.limiter.Close()
			return nil
		case msg := <-s.mailbox:
			switch m := msg.(type) {
			case getSecretReq:
				cp := secret
				m.reply <- cp
			case validateSecretReq:
				m.reply <- subtle.ConstantTimeCompare(m.secret, secret[:]) == 1
			case registerPendingReq:
				pending[m.from] = m.completion
			case completePairingReq:
				if completion, ok := pending[m.from]; ok {
					completion <- m.outcomeErr
					delete(pending, m.from)
				}
				if m.outcomeErr == nil {
					if err := s.cfg.RegisterPeer(config.Peer{ID: m.from, Name: m.peerName}); err != nil {
						s.log.Errorf("register peer %s: %v", m.from, err)
					}
				}
				next, err := randomSecret()
				if err != nil {
					s.log.Errorf("rotate secret: %v", err)
				} else {
					secret = next
				}
				close(m.done)
			}
		}
	}
}

type getSecretReq struct{ reply chan [SecretSize]byte }
type validateSecretReq struct {
	secret []byte
	reply  chan bool
}
type registerPendingReq struct {
	from       identity.EndpointId
	completion chan error
}
type completePairingReq struct {
	from       identity.EndpointId
	peerName   string
	outcomeErr error
	done       chan struct{}
}

// GetSecret returns the currently published pairing secret (spec.md
// §6 GetSecret).
func (s *Subsystem) GetSecret() [SecretSize]byte {
	reply := make(chan [SecretSize]byte, 1)
	s.mailbox <- getSecretReq{reply: reply}
	return <-reply
}

// ValidateSecret implements wire/pair.Authority, rate-limited per
// remote EndpointId to blunt brute-force probing (spec.md §4.6).
func (s *Subsystem) ValidateSecret(from identity.EndpointId, secret []byte) bool {
	if !s.limiter.Allow(from) {
		return false
	}
	reply := make(chan bool, 1)
	s.mailbox <- validateSecretReq{secret: secret, reply: reply}
	return <-reply
}

// LocalName implements wire/pair.Authority.
func (s *Subsystem) LocalName() string {
	return s.cfg.GetDeviceName()
}

// Escalate implements wire/pair.Authority (spec.md §4.6 "Inbound
// pair"): known peers are rejected without troubling the UI; unknown
// peers are published to the UI sink and block until the human
// reacts.
func (s *Subsystem) Escalate(ctx context.Context, from identity.EndpointId, peerName string, code pair.PairingCode) (pair.Decision, error) {
	if s.cfg.IsPeerKnown(from) {
		return pair.DecisionReject, nil
	}

	reaction := make(chan pair.Decision, 1)
	completion := make(chan error, 1)
	notification := &InboundPairNotification{
		Peer:         from,
		FriendlyName: peerName,
		PairingCode:  code,
		react:        reaction,
	}

	select {
	case s.uiSink <- InboundPair{Notification: notification, Completion: completion}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	s.mailbox <- registerPendingReq{from: from, completion: completion}

	select {
	case decision := <-reaction:
		return decision, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// CompletePairing implements wire/pair.Authority (spec.md §4.6
// "Completion"): registers the peer on success and unconditionally
// rotates the secret, so a given secret is good for at most one
// inbound attempt regardless of outcome.
func (s *Subsystem) CompletePairing(from identity.EndpointId, peerName string, outcomeErr error) {
	done := make(chan struct{})
	s.mailbox <- completePairingReq{from: from, peerName: peerName, outcomeErr: outcomeErr, done: done}
	<-done
}

// PairWith is the outbound pairing request (spec.md §4.6), completing
// asynchronously; the result is delivered on the returned channel.
func (s *Subsystem) PairWith(ctx context.Context, addr PeerAddress, secret [SecretSize]byte, code pair.PairingCode) <-chan pair.Outcome {
	result := make(chan pair.Outcome, 1)
	go func() {
		if s.cfg.IsPeerKnown(addr.ID) {
			result <- pair.Outcome{Kind: pair.OutcomeSuccess, PeerId: addr.ID}
			return
		}
		outcome := pair.RunInitiator(ctx, s.ep, addr.Hint, s.cfg.GetDeviceName(), code, secret[:])
		if outcome.Kind == pair.OutcomeSuccess {
			if err := s.cfg.RegisterPeer(config.Peer{ID: outcome.PeerId, Name: outcome.PeerName}); err != nil {
				s.log.Errorf("register peer %s: %v", outcome.PeerId, err)
			}
		}
		result <- outcome
	}()
	return result
}

func randomSecret() ([SecretSize]byte, error) {
	var secret [SecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("pairing: generate secret: %w", err)
	}
	return secret, nil
}
