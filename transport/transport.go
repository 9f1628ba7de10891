// Package transport owns the QUIC endpoint (spec.md §4.10) and the
// Framed Stream wrapper (spec.md §4.2) the three application protocols
// are built on.
//
// Every connection carries a self-signed certificate whose key is the
// device's own identity key, the same "the cert's SubjectPublicKeyInfo
// *is* the peer id" pattern github.com/mevdschee's
// internal/nat/quic_transport.go uses a throwaway RSA cert to
// approximate; here the cert is not throwaway, so TLS 1.3's handshake
// (which proves possession of the certificate's private key) doubles
// as proof of EndpointId possession, with no separate CA chain to
// validate (hence InsecureSkipVerify — there is no chain, only a
// pinned key). What the TLS layer does NOT establish is *trust*: that
// a remote holding a given EndpointId should be allowed to pair or
// send files is still decided entirely by the pair/send application
// protocols (pairing code, secret, peer-list membership).
package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
)

// ALPN identifiers, bytes-exact per spec.md §6.
const (
	ALPNPair      = "teleport/pair/0"
	ALPNSend      = "teleport/send/1"
	ALPNKeepalive = "teleport/keepalive/1"

	// IdleTimeout bounds zombie connections per spec.md §5.
	IdleTimeout = 5 * time.Second
)

// Endpoint is the process-wide QUIC listener plus dialer, built once
// by the Supervisor from the device's identity key and shared
// read-only thereafter, mirroring how WireGuard-go's Device hands out
// its *conn.Bind to peers as a shared, reference-counted handle.
type Endpoint struct {
	log      logging.Logger
	conn     net.PacketConn
	listener *quic.Listener
	tlsConf  *tls.Config
	quicConf *quic.Config
}

// NewEndpoint binds a UDP socket at addr and starts a QUIC listener
// over it, registering all three ALPNs so a single listener serves
// pair, send, and keepalive connections alike.
func NewEndpoint(addr string, key identity.PrivateKey, log logging.Logger) (*Endpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	pc, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp %s: %w", addr, err)
	}

	tlsConf, err := selfSignedTLSConfig(key)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: build tls config: %w", err)
	}

	quicConf := &quic.Config{
		MaxIdleTimeout:  IdleTimeout,
		KeepAlivePeriod: IdleTimeout / 2,
	}
	applyPlatformTweaks(quicConf)

	ln, err := quic.Listen(pc, tlsConf, quicConf)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: quic listen: %w", err)
	}

	return &Endpoint{
		log:      log.WithField("component", "transport"),
		conn:     pc,
		listener: ln,
		tlsConf:  tlsConf,
		quicConf: quicConf,
	}, nil
}

// LocalAddr is the UDP address other devices dial, satisfying the UI
// surface's GetLocalAddr (spec.md §6).
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// Accept blocks until a new connection arrives and the remote has
// selected one of the registered ALPNs.
func (e *Endpoint) Accept(ctx context.Context) (*quic.Conn, error) {
	return e.listener.Accept(ctx)
}

// RemoteEndpointId reads the EndpointId pinned into conn's peer
// certificate. TLS 1.3's handshake already proved the remote holds
// the matching private key, so this is a proof-carrying read, not a
// bare claim.
func RemoteEndpointId(conn *quic.Conn) (identity.EndpointId, error) {
	state := conn.ConnectionState().TLS
	if len(state.PeerCertificates) == 0 {
		return identity.EndpointId{}, fmt.Errorf("transport: no peer certificate presented")
	}
	pub, ok := state.PeerCertificates[0].PublicKey.(ed25519.PublicKey)
	if !ok {
		return identity.EndpointId{}, fmt.Errorf("transport: peer certificate key is not ed25519")
	}
	var id identity.EndpointId
	copy(id[:], pub)
	return id, nil
}

// Dial opens a new QUIC connection to addr under the given ALPN.
func (e *Endpoint) Dial(ctx context.Context, addr string, alpn string) (*quic.Conn, error) {
	conf := e.tlsConf.Clone()
	conf.NextProtos = []string{alpn}
	return quic.DialAddr(ctx, addr, conf, e.quicConf)
}

// Close tears down the listener and its underlying socket.
func (e *Endpoint) Close() error {
	if err := e.listener.Close(); err != nil {
		return err
	}
	return e.conn.Close()
}

func selfSignedTLSConfig(key identity.PrivateKey) (*tls.Config, error) {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: key.Public().ToHex()},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour),
	}

	pub := key.Public()
	signer := ed25519Signer{key: key}
	der, err := x509.CreateCertificate(rand.Reader, template, template, ed25519PublicKey(pub), signer)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  signer,
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true,
		ClientAuth:         tls.RequireAnyClientCert,
		NextProtos:         []string{ALPNPair, ALPNSend, ALPNKeepalive},
		MinVersion:         tls.VersionTLS13,
	}, nil
}
