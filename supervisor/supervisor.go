// Package supervisor wires the Config Store, the transport Endpoint,
// and the four subsystems (pairing, transfer, connquality, liveness)
// into one running process (spec.md §4.10), and exposes the UI
// request surface (spec.md §6) as plain Go methods.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/connquality"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/liveness"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/pairing"
	"github.com/teleportd/teleport/transfer"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/keepalive"
	"github.com/teleportd/teleport/wire/pair"
	"github.com/teleportd/teleport/wire/send"
)

// Supervisor is the process-wide coordinator: one per running
// teleportd. Its up/closed guard mirrors device.Device's
// isUp/isClosed atomics (device/device.go), generalized from a single
// tunnel device's state to the whole process's subsystem set.
type Supervisor struct {
	cfg *config.Store
	ep  *transport.Endpoint
	log logging.Logger

	addrBook *liveness.MemoryAddressBook

	pairingSub     *pairing.Subsystem
	transferSub    *transfer.Subsystem
	connqualitySub *connquality.Subsystem
	livenessSub    *liveness.Subsystem

	closing atomic.Bool
	closeMu sync.Mutex
	cancel  context.CancelFunc
}

// Config bundles the construction-time parameters a deployment chooses
// (spec.md §4.1's config_path, the listen address, and where inbound
// files land before the UI moves them).
type Config struct {
	ConfigPath string
	ListenAddr string
	TempDir    string
	Log        logging.Logger
}

// New opens the Config Store at cfg.ConfigPath, builds the transport
// Endpoint from its identity key, and constructs the four subsystems.
// It does not start them; call Run for that.
func New(cfg Config) (*Supervisor, error) {
	store, err := config.Open(cfg.ConfigPath, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("supervisor: open config store: %w", err)
	}

	ep, err := transport.NewEndpoint(cfg.ListenAddr, store.GetKey(), cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("supervisor: new endpoint: %w", err)
	}

	addrBook := liveness.NewMemoryAddressBook()
	pairingSub := pairing.New(store, ep, cfg.Log)
	transferSub := transfer.New(store, ep, cfg.TempDir, cfg.Log)
	connqualitySub := connquality.New(connquality.NoRelay, cfg.Log)
	livenessSub := liveness.New(store, ep, addrBook, connqualitySub, cfg.Log)

	return &Supervisor{
		cfg:            store,
		ep:             ep,
		log:            cfg.Log.WithField("component", "supervisor"),
		addrBook:       addrBook,
		pairingSub:     pairingSub,
		transferSub:    transferSub,
		connqualitySub: connqualitySub,
		livenessSub:    livenessSub,
	}, nil
}

// Run starts all four subsystems and the accept loop, blocking until
// ctx is cancelled or a subsystem fails irrecoverably, mirroring
// device.Device's "bring everything up together, tear everything down
// together" posture (device/device.go Up/Close) via errgroup instead
// of the source's hand-rolled WaitGroups.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.closeMu.Lock()
	s.cancel = cancel
	s.closeMu.Unlock()
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error { return s.pairingSub.Run(groupCtx) })
	group.Go(func() error { return s.livenessSub.Run(groupCtx) })
	group.Go(func() error { return s.acceptLoop(groupCtx) })

	<-groupCtx.Done()
	err := group.Wait()
	s.ep.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close requests a graceful shutdown; Run returns once torn down.
// Safe to call more than once.
func (s *Supervisor) Close() {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.closeMu.Lock()
	cancel := s.cancel
	s.closeMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// acceptLoop accepts inbound QUIC connections and routes each one to
// the acceptor matching its negotiated ALPN (spec.md §4.10 "a single
// listener serves pair, send, and keepalive connections alike").
func (s *Supervisor) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.ep.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Errorf("accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Supervisor) handleConn(ctx context.Context, conn *quic.Conn) {
	from, err := transport.RemoteEndpointId(conn)
	if err != nil {
		s.log.Debugf("accept: remote endpoint id: %v", err)
		conn.CloseWithError(0, "")
		return
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		s.log.Debugf("accept: stream: %v", err)
		return
	}

	alpn := conn.ConnectionState().TLS.NegotiatedProtocol
	switch alpn {
	case transport.ALPNPair:
		fs := transport.NewFramedStream(stream, pair.MaxFrameLength)
		pair.Accept(ctx, fs, from, s.pairingSub, s.log)
	case transport.ALPNSend:
		fs := transport.NewFramedStream(stream, send.MaxMsgSize)
		send.Accept(ctx, fs, from, s.transferSub, s.log)
	case transport.ALPNKeepalive:
		fs := transport.NewFramedStream(stream, keepalive.MaxMsgSize)
		keepalive.Accept(conn, fs, from, s.connqualitySub, s.log)
	default:
		s.log.Errorf("accept: unrecognized alpn %q", alpn)
		conn.CloseWithError(0, "")
	}
}

// --- UI request surface (spec.md §6) ---

// GetLocalAddr returns the address other devices dial to reach this
// one.
func (s *Supervisor) GetLocalAddr() string {
	return s.ep.LocalAddr().String()
}

// LocalID returns this device's own EndpointId, the identity other
// devices see in RemoteEndpointId after dialing in.
func (s *Supervisor) LocalID() identity.EndpointId {
	return s.cfg.GetKey().Public()
}

// GetSecret returns the currently published pairing secret.
func (s *Supervisor) GetSecret() [pairing.SecretSize]byte {
	return s.pairingSub.GetSecret()
}

// GetPeers returns the durable peer list.
func (s *Supervisor) GetPeers() []config.Peer {
	return s.cfg.GetPeers()
}

// GetTargetDir returns the configured download directory.
func (s *Supervisor) GetTargetDir() string {
	return s.cfg.GetTargetDir()
}

// SetTargetDir persists a new download directory.
func (s *Supervisor) SetTargetDir(dir string) error {
	return s.cfg.SetTargetDir(dir)
}

// GetDeviceName returns this device's friendly name.
func (s *Supervisor) GetDeviceName() string {
	return s.cfg.GetDeviceName()
}

// SetDeviceName persists a new friendly name.
func (s *Supervisor) SetDeviceName(name string) error {
	return s.cfg.SetDeviceName(name)
}

// PairingSubscription returns the UI-facing stream of inbound pairing
// attempts.
func (s *Supervisor) PairingSubscription() <-chan pairing.InboundPair {
	return s.pairingSub.Inbound()
}

// FileSubscription returns the UI-facing stream of inbound file
// events.
func (s *Supervisor) FileSubscription() <-chan transfer.InboundFileEvent {
	return s.transferSub.Inbound()
}

// OutboundFileSubscription returns the UI-facing stream of outbound
// transfer status.
func (s *Supervisor) OutboundFileSubscription() <-chan transfer.OutboundFileStatus {
	return s.transferSub.Outbound()
}

// ConnQualitySubscription returns the UI-facing stream of per-peer
// connection quality updates.
func (s *Supervisor) ConnQualitySubscription() <-chan connquality.Update {
	return s.connqualitySub.Updates()
}

// PairWith decodes ticket and drives the outbound pairing flow using
// the human-verified pairing code both sides have compared out of
// band (spec.md §3). The ticket's address is remembered before the
// exchange starts, whatever its outcome, so liveness can keep the
// peer's keepalive connection alive once the peer is known (the
// in-memory AddressBook standing in for spec.md §3's "no persisted
// addresses" rule).
func (s *Supervisor) PairWith(ctx context.Context, ticket string, code pair.PairingCode) <-chan pair.Outcome {
	t, err := pairing.DecodeTicket(ticket)
	if err != nil {
		result := make(chan pair.Outcome, 1)
		result <- pair.Outcome{Kind: pair.OutcomeError, Err: fmt.Errorf("supervisor: decode ticket: %w", err)}
		return result
	}

	s.addrBook.Remember(t.Addr.ID, t.Addr.Hint)
	return s.pairingSub.PairWith(ctx, t.Addr, t.Secret, code)
}

// SendFile starts an outbound transfer to a known peer at addr.
func (s *Supervisor) SendFile(ctx context.Context, to identity.EndpointId, addr string, name string, size uint64, r io.Reader) {
	s.addrBook.Remember(to, addr)
	s.transferSub.SendFile(ctx, to, addr, name, size, r)
}
