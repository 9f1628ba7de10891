package keepalive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePing(t *testing.T) {
	in := Ping{Seq: 42}
	buf, err := Encode(in)
	require.NoError(t, err)
	require.LessOrEqual(t, len(buf), MaxMsgSize)
	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodePong(t *testing.T) {
	in := Pong{Seq: 18446744073709551615}
	buf, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}
