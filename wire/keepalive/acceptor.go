package keepalive

import (
	"github.com/quic-go/quic-go"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

// Observer is the ConnQuality Subsystem's contract as seen by the
// keepalive acceptor (spec.md §4.5 "notify ConnQuality ... before
// entering the loop").
type Observer interface {
	StartObserving(peer identity.EndpointId, conn *quic.Conn)
}

// Accept runs the acceptor loop (spec.md §4.5): reply to every Ping
// with a matching Pong; ignore unsolicited Pongs; terminate on any
// read error.
func Accept(conn *quic.Conn, fs *transport.FramedStream, from identity.EndpointId, observer Observer, log logging.Logger) {
	observer.StartObserving(from, conn)

	for {
		frame, err := fs.ReadFrame()
		if err != nil {
			log.Debugf("keepalive: read: %v", err)
			return
		}
		msg, err := Decode(frame)
		if err != nil {
			log.Debugf("keepalive: decode: %v", err)
			return
		}
		switch m := msg.(type) {
		case Ping:
			payload, err := Encode(Pong{Seq: m.Seq})
			if err != nil {
				log.Errorf("keepalive: encode Pong: %v", err)
				return
			}
			if err := fs.WriteFrame(payload); err != nil {
				log.Debugf("keepalive: write Pong: %v", err)
				return
			}
		case Pong:
			// Unsolicited; ignore.
		}
	}
}
