package liveness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/internal/testtransport"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/keepalive"
)

func testLog() logging.Logger {
	return logging.New(logging.LevelError)
}

type fakeObserver struct {
	started chan identity.EndpointId
	rtts    chan time.Duration
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		started: make(chan identity.EndpointId, 8),
		rtts:    make(chan time.Duration, 8),
	}
}

func (f *fakeObserver) StartObserving(peer identity.EndpointId, conn *quic.Conn) {
	f.started <- peer
}

func (f *fakeObserver) ReportRTT(peer identity.EndpointId, rtt time.Duration) {
	f.rtts <- rtt
}

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	cfg, err := config.Open(filepath.Join(t.TempDir(), "storage.toml"), testLog())
	require.NoError(t, err)
	return cfg
}

// runServerPongLoop accepts one connection and one stream on pair's
// server endpoint and replies to every Ping with a matching Pong,
// standing in for the peer side of the keepalive protocol.
func runServerPongLoop(t *testing.T, pair *testtransport.Pair) {
	t.Helper()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
		defer cancel()
		conn, err := pair.Server.Accept(ctx)
		if err != nil {
			return
		}
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		fs := transport.NewFramedStream(stream, keepalive.MaxMsgSize)
		for {
			frame, err := fs.ReadFrame()
			if err != nil {
				return
			}
			msg, err := keepalive.Decode(frame)
			if err != nil {
				return
			}
			ping, ok := msg.(keepalive.Ping)
			if !ok {
				continue
			}
			payload, err := keepalive.Encode(keepalive.Pong{Seq: ping.Seq})
			if err != nil {
				return
			}
			if err := fs.WriteFrame(payload); err != nil {
				return
			}
		}
	}()
}

func TestPeerLoopReconnectsUntilAddressResolves(t *testing.T) {
	pair := testtransport.NewPair(t)
	runServerPongLoop(t, pair)

	cfg := newTestStore(t)
	require.NoError(t, cfg.RegisterPeer(config.Peer{ID: pair.ServerID, Name: "Desk"}))

	book := NewMemoryAddressBook()
	obs := newFakeObserver()
	s := New(cfg, pair.Client, book, obs, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-obs.started:
		t.Fatal("must not connect before an address is known")
	case <-time.After(200 * time.Millisecond):
	}

	book.Remember(pair.ServerID, pair.ServerAddr)
	s.ensureRunning(ctx, pair.ServerID)

	select {
	case peer := <-obs.started:
		require.Equal(t, pair.ServerID, peer)
	case <-time.After(backoff + testtransport.DefaultTimeout):
		t.Fatal("expected StartObserving once the address resolved")
	}
}

func TestEnsureRunningIsIdempotent(t *testing.T) {
	pair := testtransport.NewPair(t)
	cfg := newTestStore(t)
	book := NewMemoryAddressBook()
	obs := newFakeObserver()
	s := New(cfg, pair.Client, book, obs, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.ensureRunning(ctx, pair.ServerID)
	firstCancel := s.running[pair.ServerID]
	s.ensureRunning(ctx, pair.ServerID)
	require.NotNil(t, firstCancel)
	require.Equal(t, 1, len(s.running))
}
