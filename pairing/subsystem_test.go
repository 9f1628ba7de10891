package pairing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/pair"
)

func testLog() logging.Logger {
	return logging.New(logging.LevelError)
}

func newTestSubsystem(t *testing.T) *Subsystem {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Open(filepath.Join(dir, "storage.toml"), testLog())
	require.NoError(t, err)

	key, err := identity.Generate()
	require.NoError(t, err)
	ep, err := transport.NewEndpoint("127.0.0.1:0", key, testLog())
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })

	s := New(cfg, ep, testLog())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func TestValidateSecretAcceptsCurrent(t *testing.T) {
	s := newTestSubsystem(t)
	secret := s.GetSecret()
	fromID := identity.EndpointId{1}
	require.True(t, s.ValidateSecret(fromID, secret[:]))
}

func TestValidateSecretRejectsWrong(t *testing.T) {
	s := newTestSubsystem(t)
	fromID := identity.EndpointId{2}
	require.False(t, s.ValidateSecret(fromID, []byte("wrong")))
}

func TestCompletePairingRotatesSecretUnconditionally(t *testing.T) {
	s := newTestSubsystem(t)
	before := s.GetSecret()

	peerKey, err := identity.Generate()
	require.NoError(t, err)

	s.CompletePairing(peerKey.Public(), "Phone", nil)

	after := s.GetSecret()
	require.NotEqual(t, before, after, "secret must rotate after any inbound attempt")
}

func TestEscalateRejectsKnownPeerWithoutPublishing(t *testing.T) {
	s := newTestSubsystem(t)
	peerKey, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, s.cfg.RegisterPeer(config.Peer{ID: peerKey.Public(), Name: "Already Paired"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	decision, err := s.Escalate(ctx, peerKey.Public(), "Already Paired", pair.PairingCode{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, pair.DecisionReject, decision)

	select {
	case <-s.Inbound():
		t.Fatal("known peer should never be published to the UI sink")
	default:
	}
}

func TestEscalatePublishesUnknownPeerAndAwaitsReaction(t *testing.T) {
	s := newTestSubsystem(t)
	peerKey, err := identity.Generate()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	decisionCh := make(chan pair.Decision, 1)
	errCh := make(chan error, 1)
	go func() {
		d, err := s.Escalate(ctx, peerKey.Public(), "New Device", pair.PairingCode{9, 9, 9, 9, 9, 9})
		decisionCh <- d
		errCh <- err
	}()

	event := <-s.Inbound()
	require.Equal(t, peerKey.Public(), event.Notification.Peer)
	require.Equal(t, "New Device", event.Notification.FriendlyName)

	event.Notification.Resolve(pair.DecisionAccept)

	require.Equal(t, pair.DecisionAccept, <-decisionCh)
	require.NoError(t, <-errCh)

	s.CompletePairing(peerKey.Public(), "New Device", nil)
	select {
	case completionErr := <-event.Completion:
		require.NoError(t, completionErr)
	case <-time.After(5 * time.Second):
		t.Fatal("completion channel never resolved")
	}

	require.True(t, s.cfg.IsPeerKnown(peerKey.Public()))
}

func TestPairWithShortCircuitsForKnownPeer(t *testing.T) {
	s := newTestSubsystem(t)
	peerKey, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, s.cfg.RegisterPeer(config.Peer{ID: peerKey.Public(), Name: "Already Paired"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var secret [SecretSize]byte
	result := <-s.PairWith(ctx, PeerAddress{ID: peerKey.Public(), Hint: "127.0.0.1:1"}, secret, pair.PairingCode{})
	require.Equal(t, pair.OutcomeSuccess, result.Kind)
}
