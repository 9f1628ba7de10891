package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/pairing"
	"github.com/teleportd/teleport/wire/pair"
)

func testLog() logging.Logger {
	return logging.New(logging.LevelError)
}

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	sup, err := New(Config{
		ConfigPath: filepath.Join(dir, "storage.toml"),
		ListenAddr: "127.0.0.1:0",
		TempDir:    dir,
		Log:        testLog(),
	})
	require.NoError(t, err)
	return sup
}

func runSupervisor(t *testing.T, sup *Supervisor) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func pairingTicketFor(sup *Supervisor) string {
	t := pairing.Ticket{
		Addr: pairing.PeerAddress{
			ID:   sup.LocalID(),
			Hint: sup.GetLocalAddr(),
		},
		Secret: sup.GetSecret(),
	}
	return t.Encode()
}

func TestPairWithCompletesEndToEnd(t *testing.T) {
	acceptor := newTestSupervisor(t)
	runSupervisor(t, acceptor)

	go func() {
		for inbound := range acceptor.PairingSubscription() {
			inbound.Notification.Resolve(pair.DecisionAccept)
		}
	}()

	initiator := newTestSupervisor(t)
	runSupervisor(t, initiator)

	ticket := pairingTicketFor(acceptor)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := initiator.PairWith(ctx, ticket, pair.PairingCode{})
	select {
	case outcome := <-result:
		require.Equal(t, pair.OutcomeSuccess, outcome.Kind)
		require.Equal(t, acceptor.LocalID(), outcome.PeerId)
	case <-time.After(5 * time.Second):
		t.Fatal("pairing did not complete")
	}

	peers := acceptor.GetPeers()
	require.Len(t, peers, 1)
	require.Equal(t, initiator.LocalID(), peers[0].ID)
}

func TestPairWithRejectedByAcceptor(t *testing.T) {
	acceptor := newTestSupervisor(t)
	runSupervisor(t, acceptor)

	go func() {
		for inbound := range acceptor.PairingSubscription() {
			inbound.Notification.Resolve(pair.DecisionReject)
		}
	}()

	initiator := newTestSupervisor(t)
	runSupervisor(t, initiator)

	ticket := pairingTicketFor(acceptor)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := initiator.PairWith(ctx, ticket, pair.PairingCode{})
	select {
	case outcome := <-result:
		require.Equal(t, pair.OutcomeError, outcome.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("pairing did not complete")
	}
	require.Empty(t, acceptor.GetPeers())
}
