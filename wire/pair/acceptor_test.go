package pair

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/internal/testtransport"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

type fakeAuthority struct {
	validSecret []byte
	decision    Decision
	escalateErr error

	completedFrom identity.EndpointId
	completedErr  error
	completed     chan struct{}
}

func newFakeAuthority(secret []byte, decision Decision) *fakeAuthority {
	return &fakeAuthority{validSecret: secret, decision: decision, completed: make(chan struct{}, 1)}
}

func (f *fakeAuthority) ValidateSecret(from identity.EndpointId, secret []byte) bool {
	return string(secret) == string(f.validSecret)
}

func (f *fakeAuthority) LocalName() string { return "Acceptor" }

func (f *fakeAuthority) Escalate(ctx context.Context, from identity.EndpointId, peerName string, code PairingCode) (Decision, error) {
	return f.decision, f.escalateErr
}

func (f *fakeAuthority) CompletePairing(from identity.EndpointId, peerName string, outcomeErr error) {
	f.completedFrom = from
	f.completedErr = outcomeErr
	f.completed <- struct{}{}
}

func testLog() logging.Logger {
	return logging.New(logging.LevelError)
}

func runAcceptorOnce(t *testing.T, pair *testtransport.Pair, authority Authority) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
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
		fs := transport.NewFramedStream(stream, MaxFrameLength)
		Accept(ctx, fs, from, authority, testLog())
	}()
	return done
}

func TestAcceptHappyPath(t *testing.T) {
	pair := testtransport.NewPair(t)
	secret := []byte("shared-secret")
	authority := newFakeAuthority(secret, DecisionAccept)
	done := runAcceptorOnce(t, pair, authority)

	ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
	defer cancel()

	outcome := RunInitiator(ctx, pair.Client, pair.ServerAddr, "Initiator", PairingCode{1, 2, 3, 4, 5, 6}, secret)
	require.Equal(t, OutcomeSuccess, outcome.Kind)
	require.Equal(t, "Acceptor", outcome.PeerName)
	require.Equal(t, pair.ServerID, outcome.PeerId)

	<-done
	select {
	case <-authority.completed:
	case <-time.After(testtransport.DefaultTimeout):
		t.Fatal("CompletePairing was never called")
	}
	require.NoError(t, authority.completedErr)
}

func TestAcceptWrongSecret(t *testing.T) {
	pair := testtransport.NewPair(t)
	authority := newFakeAuthority([]byte("real-secret"), DecisionAccept)
	done := runAcceptorOnce(t, pair, authority)

	ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
	defer cancel()

	outcome := RunInitiator(ctx, pair.Client, pair.ServerAddr, "Initiator", PairingCode{1, 2, 3, 4, 5, 6}, []byte("fabricated"))
	require.Equal(t, OutcomeWrongSecret, outcome.Kind)
	<-done
}

func TestAcceptWrongPairingCode(t *testing.T) {
	pair := testtransport.NewPair(t)
	secret := []byte("shared-secret")
	authority := newFakeAuthority(secret, DecisionWrongPairingCode)
	done := runAcceptorOnce(t, pair, authority)

	ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
	defer cancel()

	outcome := RunInitiator(ctx, pair.Client, pair.ServerAddr, "Initiator", PairingCode{9, 9, 9, 9, 9, 9}, secret)
	require.Equal(t, OutcomeWrongCode, outcome.Kind)
	<-done
}

func TestAcceptReject(t *testing.T) {
	pair := testtransport.NewPair(t)
	secret := []byte("shared-secret")
	authority := newFakeAuthority(secret, DecisionReject)
	done := runAcceptorOnce(t, pair, authority)

	ctx, cancel := context.WithTimeout(context.Background(), testtransport.DefaultTimeout)
	defer cancel()

	outcome := RunInitiator(ctx, pair.Client, pair.ServerAddr, "Initiator", PairingCode{1, 2, 3, 4, 5, 6}, secret)
	require.Equal(t, OutcomeError, outcome.Kind)
	require.Error(t, outcome.Err)
	<-done
}
