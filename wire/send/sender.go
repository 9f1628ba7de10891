package send

import (
	"context"
	"fmt"
	"io"

	"github.com/teleportd/teleport/transport"
)

// RunSender is the outbound half of the send protocol (spec.md §4.4
// "Sender (outbound)"), called from the transfer subsystem's outbound
// task rather than living as an acceptor, since an outbound transfer
// is driven by local file reads rather than by inbound messages.
//
// onProgress is called after every chunk is flushed to the wire, and
// must not block.
func RunSender(ctx context.Context, ep *transport.Endpoint, addr string, name string, size uint64, r io.Reader, onProgress func(offset uint64)) error {
	conn, err := ep.Dial(ctx, addr, transport.ALPNSend)
	if err != nil {
		return fmt.Errorf("send: dial: %w", err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("send: open stream: %w", err)
	}
	fs := transport.NewFramedStream(stream, MaxMsgSize)

	if err := writeMsg(fs, Offer{Name: name, Size: size}); err != nil {
		return fmt.Errorf("send: write Offer: %w", err)
	}

	reply, err := readMsg(fs)
	if err != nil {
		return fmt.Errorf("send: read reply to Offer: %w", err)
	}
	switch reply.(type) {
	case Accept:
		// proceed
	case Reject:
		return fmt.Errorf("send: peer rejected the offer")
	default:
		return fmt.Errorf("send: unexpected reply to Offer: %T", reply)
	}

	var offset uint64
	buf := getChunkBuffer()
	defer putChunkBuffer(buf)

	for offset < size {
		want := size - offset
		if want > ChunkSize {
			want = ChunkSize
		}
		n, err := io.ReadFull(r, buf[:want])
		if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("send: read source at offset %d: %w", offset, err)
		}
		if err := writeMsg(fs, ChunkHeader{Size: uint32(n)}); err != nil {
			return fmt.Errorf("send: write ChunkHeader: %w", err)
		}
		if err := fs.WriteFrame(buf[:n]); err != nil {
			return fmt.Errorf("send: write chunk data: %w", err)
		}
		offset += uint64(n)
		if onProgress != nil {
			onProgress(offset)
		}
	}

	if err := writeMsg(fs, Finish{}); err != nil {
		return fmt.Errorf("send: write Finish: %w", err)
	}

	final, err := readMsg(fs)
	if err != nil {
		return fmt.Errorf("send: read final reply: %w", err)
	}
	switch m := final.(type) {
	case Done:
		return nil
	case Error:
		return fmt.Errorf("send: receiver reported: %s", m.Message)
	default:
		return fmt.Errorf("send: unexpected final reply: %T", m)
	}
}

func writeMsg(fs *transport.FramedStream, msg interface{}) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	return fs.WriteFrame(payload)
}

func readMsg(fs *transport.FramedStream) (interface{}, error) {
	frame, err := fs.ReadFrame()
	if err != nil {
		return nil, err
	}
	return Decode(frame)
}
