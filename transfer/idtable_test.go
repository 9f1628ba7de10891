package transfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDTableInsertLookupDelete(t *testing.T) {
	tbl := newIDTable()
	tr := &outboundTransfer{name: "x"}

	id, err := tbl.Insert(tr)
	require.NoError(t, err)

	got, ok := tbl.Lookup(id)
	require.True(t, ok)
	require.Same(t, tr, got)

	tbl.Delete(id)
	_, ok = tbl.Lookup(id)
	require.False(t, ok)
}

func TestIDTableAssignsDistinctIDs(t *testing.T) {
	tbl := newIDTable()
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := tbl.Insert(&outboundTransfer{})
		require.NoError(t, err)
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
}
