// Package liveness implements the Keepalive Subsystem (spec.md §4.9):
// for every known peer, keep one reconnecting keepalive connection
// alive for as long as the process runs, and feed the round-trip
// times it measures to the ConnQuality Subsystem.
package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/keepalive"
)

const (
	scanInterval = 10 * time.Second
	pingInterval = 10 * time.Second
	pongTimeout  = 5 * time.Second
	backoff      = 5 * time.Second
)

// Observer is the ConnQuality Subsystem's contract as seen by the
// keepalive client side: StartObserving registers the connection for
// path classification, ReportRTT feeds it fresh latency samples.
type Observer interface {
	keepalive.Observer
	ReportRTT(peer identity.EndpointId, rtt time.Duration)
}

// Subsystem drives one reconnecting keepalive connection per known
// peer, mirroring the always-on-retry posture of WireGuard-go's
// Peer.RoutineSequentialSender keepalive timer, generalized from a
// fixed interval to a full dial/ping/backoff loop since this repo's
// peers are not always reachable at a fixed address.
type Subsystem struct {
	cfg      *config.Store
	ep       *transport.Endpoint
	addrBook AddressBook
	observer Observer
	log      logging.Logger

	mu      sync.Mutex
	running map[identity.EndpointId]context.CancelFunc
}

// New builds a Subsystem. addrBook may be the Supervisor's shared
// MemoryAddressBook, which the Supervisor fills with the addresses
// passed to its PairWith and SendFile calls.
func New(cfg *config.Store, ep *transport.Endpoint, addrBook AddressBook, observer Observer, log logging.Logger) *Subsystem {
	return &Subsystem{
		cfg:      cfg,
		ep:       ep,
		addrBook: addrBook,
		observer: observer,
		log:      log.WithField("subsystem", "liveness"),
		running:  make(map[identity.EndpointId]context.CancelFunc),
	}
}

// Run scans the peer list immediately and then every scanInterval,
// starting a reconnect loop for any peer not already being tracked.
// It blocks until ctx is cancelled.
func (s *Subsystem) Run(ctx context.Context) error {
	s.scanOnce(ctx)
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

func (s *Subsystem) scanOnce(ctx context.Context) {
	for _, peer := range s.cfg.GetPeers() {
		s.ensureRunning(ctx, peer.ID)
	}
}

func (s *Subsystem) ensureRunning(ctx context.Context, id identity.EndpointId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[id]; ok {
		return
	}
	peerCtx, cancel := context.WithCancel(ctx)
	s.running[id] = cancel
	go s.peerLoop(peerCtx, id)
}

func (s *Subsystem) stopRunning(id identity.EndpointId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// peerLoop never gives up on a known peer (spec.md §4.9): it resolves
// an address, dials, pings until failure, then backs off and retries.
func (s *Subsystem) peerLoop(ctx context.Context, id identity.EndpointId) {
	defer s.stopRunning(id)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		addr, ok := s.addrBook.Resolve(id)
		if !ok {
			if !sleep(ctx, backoff) {
				return
			}
			continue
		}

		if !s.connectAndPing(ctx, id, addr) {
			if !sleep(ctx, backoff) {
				return
			}
		}
	}
}

func (s *Subsystem) connectAndPing(ctx context.Context, id identity.EndpointId, addr string) bool {
	dialCtx, cancel := context.WithTimeout(ctx, pongTimeout)
	conn, err := s.ep.Dial(dialCtx, addr, transport.ALPNKeepalive)
	cancel()
	if err != nil {
		s.log.Debugf("liveness: dial %s: %v", addr, err)
		return false
	}
	defer conn.CloseWithError(0, "")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		s.log.Debugf("liveness: open stream: %v", err)
		return false
	}
	fs := transport.NewFramedStream(stream, keepalive.MaxMsgSize)

	s.observer.StartObserving(id, conn)

	return s.pingLoop(ctx, fs, id)
}

// pingLoop sends one Ping per tick, bounding the matching Pong read
// with pongTimeout, reporting the measured round trip on success and
// returning false (triggering a reconnect) on any mismatch or error.
func (s *Subsystem) pingLoop(ctx context.Context, fs *transport.FramedStream, id identity.EndpointId) bool {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return true
		case <-ticker.C:
			seq++
			payload, err := keepalive.Encode(keepalive.Ping{Seq: seq})
			if err != nil {
				s.log.Errorf("liveness: encode ping: %v", err)
				return false
			}
			start := time.Now()
			if err := fs.WriteFrame(payload); err != nil {
				s.log.Debugf("liveness: write ping: %v", err)
				return false
			}
			if err := fs.SetReadDeadline(time.Now().Add(pongTimeout)); err != nil {
				s.log.Debugf("liveness: set read deadline: %v", err)
				return false
			}
			frame, err := fs.ReadFrame()
			if err != nil {
				s.log.Debugf("liveness: read pong: %v", err)
				return false
			}
			msg, err := keepalive.Decode(frame)
			if err != nil {
				s.log.Debugf("liveness: decode pong: %v", err)
				return false
			}
			pong, ok := msg.(keepalive.Pong)
			if !ok || pong.Seq != seq {
				s.log.Debugf("liveness: unexpected reply %#v for seq %d", msg, seq)
				return false
			}
			s.observer.ReportRTT(id, time.Since(start))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
