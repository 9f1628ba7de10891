// Package testtransport gives protocol tests a client/server pair of
// transport.Endpoints bound to loopback UDP, in the spirit of the
// loopback pair WireGuard-go's conn/bindtest package hands to
// device_test.go so handshake logic can be exercised without a remote
// host.
package testtransport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

// Pair is a connected client/server transport.Endpoint pair bound to
// loopback, torn down automatically at test cleanup.
type Pair struct {
	Server     *transport.Endpoint
	Client     *transport.Endpoint
	ServerID   identity.EndpointId
	ClientID   identity.EndpointId
	ServerAddr string
}

// NewPair builds a loopback client/server endpoint pair.
func NewPair(t *testing.T) *Pair {
	t.Helper()
	log := logging.New(logging.LevelError)

	serverKey, err := identity.Generate()
	require.NoError(t, err)
	clientKey, err := identity.Generate()
	require.NoError(t, err)

	server, err := transport.NewEndpoint("127.0.0.1:0", serverKey, log)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	client, err := transport.NewEndpoint("127.0.0.1:0", clientKey, log)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return &Pair{
		Server:     server,
		Client:     client,
		ServerID:   serverKey.Public(),
		ClientID:   clientKey.Public(),
		ServerAddr: server.LocalAddr().String(),
	}
}

// DialStream opens a client connection to the server under alpn and
// returns the opened stream, framed with maxFrameLength. The
// underlying connection is not returned.
func (p *Pair) DialStream(ctx context.Context, t *testing.T, alpn string, maxFrameLength uint32) *transport.FramedStream {
	t.Helper()
	conn, err := p.Client.Dial(ctx, p.ServerAddr, alpn)
	require.NoError(t, err)
	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)
	return transport.NewFramedStream(stream, maxFrameLength)
}

// DefaultTimeout bounds test-local accept/dial loops.
const DefaultTimeout = 5 * time.Second
