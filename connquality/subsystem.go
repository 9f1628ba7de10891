// Package connquality implements the ConnQuality Subsystem (spec.md
// §4.8): per-peer path/quality observation.
//
// Path/RTT observation is, per spec.md §1, a contract the underlying
// QUIC endpoint is assumed to provide; concretely, this repo sources
// path classification from the connection's remote address (against a
// relay-address predicate, per SUPPLEMENTED FEATURES) and RTT samples
// from the liveness subsystem's own ping/pong round trips — the one
// piece of the "path set" this repo's protocols genuinely measure.
package connquality

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
)

// Quality is the observable connectivity state of a peer.
type Quality int

const (
	QualityNone Quality = iota
	QualityDirect
	QualityRelay
)

// Update is published to the UI sink on every quality transition.
type Update struct {
	Peer      identity.EndpointId
	Quality   Quality
	LatencyMs int64
}

// RelayPredicate reports whether addr belongs to the known relay
// address range, the detail SUPPLEMENTED FEATURES calls for instead
// of a bare "has a relay URL" check.
type RelayPredicate func(addr net.Addr) bool

// NoRelay is the default predicate when no relay infrastructure is
// configured: every path classifies as Direct.
func NoRelay(net.Addr) bool { return false }

type peerState struct {
	cancel  context.CancelFunc
	quality Quality
}

// Subsystem tracks one observer per peer, idempotent on repeated
// starts (spec.md §4.8 "at most one observation task per peer").
type Subsystem struct {
	mu      sync.Mutex
	tracked map[identity.EndpointId]*peerState

	isRelay RelayPredicate
	log     logging.Logger
	sink    chan Update
}

// New builds a Subsystem. isRelay may be nil, in which case NoRelay is
// used.
func New(isRelay RelayPredicate, log logging.Logger) *Subsystem {
	if isRelay == nil {
		isRelay = NoRelay
	}
	return &Subsystem{
		tracked: make(map[identity.EndpointId]*peerState),
		isRelay: isRelay,
		log:     log.WithField("subsystem", "connquality"),
		sink:    make(chan Update, 64),
	}
}

// Updates returns the UI-facing stream of quality updates.
func (s *Subsystem) Updates() <-chan Update {
	return s.sink
}

// StartObserving begins tracking conn's path quality for peer,
// implementing wire/keepalive.Observer. A second call for the same
// peer while the first observer is still running is a no-op, the same
// "Swap" idempotent-start guard WireGuard-go's Peer.Start() uses.
func (s *Subsystem) StartObserving(peer identity.EndpointId, conn *quic.Conn) {
	s.mu.Lock()
	if _, exists := s.tracked[peer]; exists {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	quality := classifyPath(conn, s.isRelay)
	s.tracked[peer] = &peerState{cancel: cancel, quality: quality}
	s.mu.Unlock()

	s.sink <- Update{Peer: peer, Quality: quality}

	go s.watch(ctx, peer, conn)
}

func (s *Subsystem) watch(ctx context.Context, peer identity.EndpointId, conn *quic.Conn) {
	defer s.stopObserving(peer)
	select {
	case <-ctx.Done():
	case <-conn.Context().Done():
		s.sink <- Update{Peer: peer, Quality: QualityNone}
	}
}

func (s *Subsystem) stopObserving(peer identity.EndpointId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, peer)
}

// ReportRTT records a fresh round-trip sample for peer, measured by
// the liveness subsystem's ping/pong exchange, and republishes the
// peer's current classification with the new latency.
func (s *Subsystem) ReportRTT(peer identity.EndpointId, rtt time.Duration) {
	s.mu.Lock()
	state, ok := s.tracked[peer]
	var quality Quality
	if ok {
		quality = state.quality
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.sink <- Update{Peer: peer, Quality: quality, LatencyMs: rtt.Milliseconds()}
}

func classifyPath(conn *quic.Conn, isRelay RelayPredicate) Quality {
	if isRelay(conn.RemoteAddr()) {
		return QualityRelay
	}
	return QualityDirect
}
