/* SPDX-License-Identifier: GPL-2.0
 *
 * Copyright (C) 2017-2018 WireGuard LLC. All Rights Reserved.
 */

// idTable allocates random, collision-free correlation ids for
// in-flight outbound transfers, adapted from the root-level
// indextable.go in golang.zx2c4.com/wireguard (which allocates
// collision-free 32-bit indices for in-flight Noise handshakes). The
// allocate-retry-on-collision shape (check under RLock, then check
// again and insert under the write Lock) is
// unchanged; the payload stored per id is an *outboundTransfer
// instead of a handshake/keypair pair.
package transfer

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

type idTable struct {
	mutex sync.RWMutex
	table map[uint64]*outboundTransfer
}

func newIDTable() *idTable {
	return &idTable{table: make(map[uint64]*outboundTransfer)}
}

func randUint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// Insert allocates a fresh id for t and returns it.
func (tbl *idTable) Insert(t *outboundTransfer) (uint64, error) {
	for {
		id, err := randUint64()
		if err != nil {
			return 0, err
		}

		tbl.mutex.RLock()
		_, taken := tbl.table[id]
		tbl.mutex.RUnlock()
		if taken {
			continue
		}

		tbl.mutex.Lock()
		if _, taken := tbl.table[id]; taken {
			tbl.mutex.Unlock()
			continue
		}
		tbl.table[id] = t
		tbl.mutex.Unlock()
		return id, nil
	}
}

// Delete removes id from the table.
func (tbl *idTable) Delete(id uint64) {
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()
	delete(tbl.table, id)
}

// Lookup returns the transfer registered under id, if any.
func (tbl *idTable) Lookup(id uint64) (*outboundTransfer, bool) {
	tbl.mutex.RLock()
	defer tbl.mutex.RUnlock()
	t, ok := tbl.table[id]
	return t, ok
}
