package send

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeOffer(t *testing.T) {
	in := Offer{Name: "vacation.mp4", Size: 10485760}
	buf, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeChunkHeader(t *testing.T) {
	in := ChunkHeader{Size: ChunkSize}
	buf, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeError(t *testing.T) {
	in := Error{Message: "disk full"}
	buf, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeEmptyVariants(t *testing.T) {
	for _, msg := range []interface{}{Finish{}, Accept{}, Reject{}, Done{}} {
		buf, err := Encode(msg)
		require.NoError(t, err)
		out, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, msg, out)
	}
}
