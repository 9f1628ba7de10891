package pairing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/identity"
)

func TestTicketRoundTrip(t *testing.T) {
	key, err := identity.Generate()
	require.NoError(t, err)

	var secret [SecretSize]byte
	for i := range secret {
		secret[i] = byte(i)
	}

	in := Ticket{Addr: PeerAddress{ID: key.Public(), Hint: "192.168.1.50:7777"}, Secret: secret}
	encoded := in.Encode()

	out, err := DecodeTicket(encoded)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestTicketEncodingIsUnpaddedBase32(t *testing.T) {
	key, err := identity.Generate()
	require.NoError(t, err)

	in := Ticket{Addr: PeerAddress{ID: key.Public(), Hint: "x"}}
	encoded := in.Encode()
	require.NotContains(t, encoded, "=")
}

func TestDecodeTicketRejectsGarbage(t *testing.T) {
	_, err := DecodeTicket("not-a-valid-ticket!!!")
	require.Error(t, err)
}
