package transfer

import "github.com/teleportd/teleport/identity"

// outboundTransfer is the state owned by a single outbound-send task
// for the lifetime of one transfer (spec.md §3 "Transfer state
// (outbound)"): it is registered in the subsystem's idTable purely so
// the transfer is observable (e.g. for a future cancellation surface)
// while the send.RunSender goroutine that owns the file handle runs.
type outboundTransfer struct {
	id       uint64
	peer     identity.EndpointId
	peerAddr string
	name     string
	size     uint64
}
