package transfer

import "github.com/teleportd/teleport/identity"

// EventKind discriminates the three shapes an InboundFileEvent or
// OutboundFileStatus can take (spec.md §6).
type EventKind int

const (
	EventProgress EventKind = iota
	EventDone
	EventError
)

// InboundFileEvent is published to the UI file sink for every inbound
// transfer (spec.md §4.7 DownloadStatus).
type InboundFileEvent struct {
	Kind     EventKind
	Peer     identity.EndpointId
	PeerName string
	FileName string
	Offset   uint64
	Size     uint64
	Path     string // set on EventDone
	Message  string // set on EventError
}

// OutboundFileStatus is published for every outbound transfer
// spawned via SendFile (spec.md §6).
type OutboundFileStatus struct {
	Kind     EventKind
	Peer     identity.EndpointId
	PeerName string
	FileName string
	Offset   uint64
	Size     uint64
	Message  string // set on EventError
}
