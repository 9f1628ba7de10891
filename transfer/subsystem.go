// Package transfer implements the Transfer Subsystem (spec.md §4.7):
// inbound offer authorization and file-event forwarding, plus
// outbound send orchestration.
package transfer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teleportd/teleport/config"
	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
	"github.com/teleportd/teleport/wire/send"
)

// Subsystem owns the peer_id → peer_name display cache and the UI
// file-event sinks (spec.md §4.7). Outbound sends are spawned as
// independent goroutines (spec.md §9) that all write their status to
// the subsystem's one outbound channel, the UI-facing stream returned
// by Outbound, so that stream multiplexes every concurrent outbound
// transfer (spec.md §5's backpressure note).
type Subsystem struct {
	cfg     *config.Store
	ep      *transport.Endpoint
	tempDir string
	log     logging.Logger

	nameCacheMu sync.RWMutex
	nameCache   map[identity.EndpointId]string

	ids *idTable

	inboundSink  chan InboundFileEvent
	outboundSink chan OutboundFileStatus
}

// New builds a Subsystem. tempDir is where inbound files land before
// the UI performs any final move (spec.md §9 open question on
// target_dir).
func New(cfg *config.Store, ep *transport.Endpoint, tempDir string, log logging.Logger) *Subsystem {
	return &Subsystem{
		cfg:          cfg,
		ep:           ep,
		tempDir:      tempDir,
		log:          log.WithField("subsystem", "transfer"),
		nameCache:    make(map[identity.EndpointId]string),
		ids:          newIDTable(),
		inboundSink:  make(chan InboundFileEvent, 64),
		outboundSink: make(chan OutboundFileStatus, 64),
	}
}

// Inbound returns the UI-facing stream of inbound file events.
func (s *Subsystem) Inbound() <-chan InboundFileEvent {
	return s.inboundSink
}

// Outbound returns the UI-facing stream of outbound transfer status.
func (s *Subsystem) Outbound() <-chan OutboundFileStatus {
	return s.outboundSink
}

// IncomingOffer implements wire/send.Authority (spec.md §4.7): unknown
// peers are refused; known peers get a synthesized temp path.
func (s *Subsystem) IncomingOffer(from identity.EndpointId, offer send.Offer) (string, bool) {
	if !s.cfg.IsPeerKnown(from) {
		return "", false
	}
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	name := fmt.Sprintf("recv_%s_%s.tmp", from.ToHex(), random)
	return filepath.Join(s.tempDir, name), true
}

// Progress implements wire/send.Authority.
func (s *Subsystem) Progress(from identity.EndpointId, offer send.Offer, offset uint64) {
	s.inboundSink <- InboundFileEvent{
		Kind:     EventProgress,
		Peer:     from,
		PeerName: s.resolvePeerName(from),
		FileName: offer.Name,
		Offset:   offset,
		Size:     offer.Size,
	}
}

// Done implements wire/send.Authority.
func (s *Subsystem) Done(from identity.EndpointId, offer send.Offer, path string) {
	s.inboundSink <- InboundFileEvent{
		Kind:     EventDone,
		Peer:     from,
		PeerName: s.resolvePeerName(from),
		FileName: offer.Name,
		Size:     offer.Size,
		Path:     path,
	}
}

// Error implements wire/send.Authority.
func (s *Subsystem) Error(from identity.EndpointId, offer send.Offer, msg string) {
	name := offer.Name
	if name == "" {
		name = "Unknown file"
	}
	s.inboundSink <- InboundFileEvent{
		Kind:     EventError,
		Peer:     from,
		PeerName: s.resolvePeerName(from),
		FileName: name,
		Message:  msg,
	}
}

// resolvePeerName implements spec.md §4.7's "cache, else Config, else
// literal Unknown peer" resolution order, populating the cache on a
// Config hit.
func (s *Subsystem) resolvePeerName(id identity.EndpointId) string {
	s.nameCacheMu.RLock()
	if name, ok := s.nameCache[id]; ok {
		s.nameCacheMu.RUnlock()
		return name
	}
	s.nameCacheMu.RUnlock()

	if name, ok := s.cfg.GetPeerName(id); ok {
		s.nameCacheMu.Lock()
		s.nameCache[id] = name
		s.nameCacheMu.Unlock()
		return name
	}
	return "Unknown peer"
}

// SendFile spawns an outbound send as an independent goroutine
// (spec.md §4.4 "Sender (outbound)"), reporting progress/done/error on
// the outbound sink.
func (s *Subsystem) SendFile(ctx context.Context, to identity.EndpointId, peerAddr string, name string, size uint64, r io.Reader) {
	t := &outboundTransfer{peer: to, peerAddr: peerAddr, name: name, size: size}
	id, err := s.ids.Insert(t)
	if err != nil {
		s.outboundSink <- OutboundFileStatus{Kind: EventError, Peer: to, PeerName: s.resolvePeerName(to), FileName: name, Message: err.Error()}
		return
	}
	t.id = id

	go func() {
		defer s.ids.Delete(id)

		peerName := s.resolvePeerName(to)
		onProgress := func(offset uint64) {
			s.outboundSink <- OutboundFileStatus{Kind: EventProgress, Peer: to, PeerName: peerName, FileName: name, Offset: offset, Size: size}
		}

		if err := send.RunSender(ctx, s.ep, peerAddr, name, size, r, onProgress); err != nil {
			s.outboundSink <- OutboundFileStatus{Kind: EventError, Peer: to, PeerName: peerName, FileName: name, Message: err.Error()}
			return
		}

		s.outboundSink <- OutboundFileStatus{Kind: EventDone, Peer: to, PeerName: peerName, FileName: name, Offset: size, Size: size}
	}()
}
