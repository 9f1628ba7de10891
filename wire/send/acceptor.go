package send

import (
	"context"
	"fmt"
	"os"

	"github.com/teleportd/teleport/identity"
	"github.com/teleportd/teleport/logging"
	"github.com/teleportd/teleport/transport"
)

// Authority is the Transfer Subsystem's contract as seen by the
// receiver acceptor (spec.md §4.4 Authorize/Finalize).
type Authority interface {
	// IncomingOffer authorizes from to send offer and, if permitted,
	// returns the destination path to write it to.
	IncomingOffer(from identity.EndpointId, offer Offer) (path string, ok bool)
	// Progress reports a monotonically non-decreasing byte offset.
	Progress(from identity.EndpointId, offer Offer, offset uint64)
	// Done reports that the file at path was written in full.
	Done(from identity.EndpointId, offer Offer, path string)
	// Error reports a failed inbound transfer.
	Error(from identity.EndpointId, offer Offer, msg string)
}

// Accept runs the receiver acceptor state machine (spec.md §4.4):
// AwaitOffer → CheckSize → Authorize → OpenSink → Receive loop →
// Finalize.
func Accept(ctx context.Context, fs *transport.FramedStream, from identity.EndpointId, authority Authority, log logging.Logger) {
	offer, ok := awaitOffer(fs, log)
	if !ok {
		return
	}

	if offer.Size > MaxFileSize {
		log.Debugf("send: offer %q oversize (%d bytes)", offer.Name, offer.Size)
		fs.AbortWithCode(CloseOversize)
		return
	}

	path, ok := authority.IncomingOffer(from, offer)
	if !ok {
		writeOrLog(fs, Reject{}, log)
		fs.CloseGraceful()
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		authority.Error(from, offer, fmt.Sprintf("open sink: %v", err))
		fs.AbortWithCode(CloseWriteError)
		return
	}
	defer f.Close()

	authority.Progress(from, offer, 0)
	if err := writeOrLog(fs, Accept{}, log); err != nil {
		authority.Error(from, offer, err.Error())
		return
	}

	offset, ok := receiveLoop(fs, f, offer, from, authority, log)
	if !ok {
		return
	}

	if err := f.Sync(); err != nil {
		authority.Error(from, offer, fmt.Sprintf("flush: %v", err))
		fs.AbortWithCode(CloseWriteError)
		return
	}

	authority.Done(from, offer, path)
	_ = offset
	if err := writeOrLog(fs, Done{}, log); err != nil {
		return
	}
	fs.CloseGraceful()
}

func awaitOffer(fs *transport.FramedStream, log logging.Logger) (Offer, bool) {
	frame, err := fs.ReadFrame()
	if err != nil {
		log.Debugf("send: read Offer: %v", err)
		return Offer{}, false
	}
	msg, err := Decode(frame)
	if err != nil {
		log.Debugf("send: decode Offer: %v", err)
		fs.AbortWithCode(CloseExpectOffer)
		return Offer{}, false
	}
	offer, ok := msg.(Offer)
	if !ok {
		log.Debugf("send: expected Offer, got %T", msg)
		fs.AbortWithCode(CloseExpectOffer)
		return Offer{}, false
	}
	return offer, true
}

func receiveLoop(fs *transport.FramedStream, f *os.File, offer Offer, from identity.EndpointId, authority Authority, log logging.Logger) (uint64, bool) {
	var offset uint64
	for {
		frame, err := fs.ReadFrame()
		if err != nil {
			authority.Error(from, offer, fmt.Sprintf("receive: %v", err))
			fs.AbortWithCode(CloseReceiveError)
			return 0, false
		}
		msg, err := Decode(frame)
		if err != nil {
			authority.Error(from, offer, fmt.Sprintf("decode: %v", err))
			fs.AbortWithCode(CloseInvalidChunk)
			return 0, false
		}

		switch m := msg.(type) {
		case ChunkHeader:
			data, err := fs.ReadFrame()
			if err != nil {
				authority.Error(from, offer, fmt.Sprintf("receive chunk data: %v", err))
				fs.AbortWithCode(CloseReceiveError)
				return 0, false
			}
			if uint32(len(data)) != m.Size {
				authority.Error(from, offer, "chunk length mismatch")
				fs.AbortWithCode(CloseInvalidChunk)
				return 0, false
			}
			if offset+uint64(len(data)) > offer.Size {
				authority.Error(from, offer, "chunk exceeds declared file size")
				fs.AbortWithCode(CloseOversize)
				return 0, false
			}
			if _, err := f.Write(data); err != nil {
				authority.Error(from, offer, fmt.Sprintf("write: %v", err))
				fs.AbortWithCode(CloseWriteError)
				return 0, false
			}
			offset += uint64(len(data))
			authority.Progress(from, offer, offset)
		case Finish:
			if offset != offer.Size {
				authority.Error(from, offer, "Finish before all bytes received")
				fs.AbortWithCode(CloseInvalidChunk)
				return 0, false
			}
			return offset, true
		default:
			authority.Error(from, offer, fmt.Sprintf("unexpected message %T mid-transfer", m))
			fs.AbortWithCode(CloseInvalidChunk)
			return 0, false
		}
	}
}

func writeOrLog(fs *transport.FramedStream, msg interface{}, log logging.Logger) error {
	payload, err := Encode(msg)
	if err != nil {
		log.Errorf("send: encode %T: %v", msg, err)
		return err
	}
	if err := fs.WriteFrame(payload); err != nil {
		log.Debugf("send: write %T: %v", msg, err)
		return err
	}
	return nil
}
