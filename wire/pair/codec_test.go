package pair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeHelo(t *testing.T) {
	in := Helo{
		FriendlyName: "Alice's Laptop",
		PairingCode:  PairingCode{1, 2, 3, 4, 5, 6},
		Secret:       []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789abc"),
	}
	buf, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeNiceToMeetYou(t *testing.T) {
	in := NiceToMeetYou{FriendlyName: "Bob's Phone"}
	buf, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeDecodeEmptyVariants(t *testing.T) {
	for _, msg := range []interface{}{WrongPairingCode{}, WrongSecret{}, FuckOff{}} {
		buf, err := Encode(msg)
		require.NoError(t, err)
		out, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, msg, out)
	}
}

func TestDecodeRejectsEmptyFrame(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.Error(t, err)
}
