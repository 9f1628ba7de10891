package keepalive

import (
	"context"
	"sync"
	"testing"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/internal/testtransport"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

type fakeObserver struct {
	mu      sync.Mutex
	started []identity.EndpointId
}

func (f *fakeObserver) StartObserving(peer identity.EndpointId, conn *quic.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, peer)
}

func testLog() logging.Logger {
	return logging.New(logging.LevelError)
}

func TestAcceptRepliesToPing(t *testing.T) {
	pair := testtransport.NewPair(t)
	observer := &fakeObserver{}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
		defer cancel()
		conn, err := pair.Server.Accept(ctx)
		if err != nil {
			return
		}
		from, err := transport.RemoteEndpointId(conn)
		require.NoError(t, err)
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		fs := transport.NewFramedStream(stream, MaxMsgSize)
		Accept(conn, fs, from, observer, testLog())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
	defer cancel()
	fs := pair.DialStream(ctx, t, transport.ALPNKeepalive, MaxMsgSize)

	payload, err := Encode(Ping{Seq: 7})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFrame(payload))

	reply, err := fs.ReadFrame()
	require.NoError(t, err)
	msg, err := Decode(reply)
	require.NoError(t, err)
	require.Equal(t, Pong{Seq: 7}, msg)

	require.NoError(t, fs.CloseGraceful())
	<-serverDone

	require.Len(t, observer.started, 1)
	require.Equal(t, pair.ClientID, observer.started[0])
}
