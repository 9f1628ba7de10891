package liveness

import (
	"sync"

	"github.com/teleportd/teleport/identity"
)

// AddressBook resolves a known peer's EndpointId to a last-known
// network address. spec.md §1 treats endpoint discovery/relay as an
// external collaborator this core only consumes; in the absence of
// that infrastructure, this repo's own MemoryAddressBook remembers
// the last address this device was told to dial a peer at (from a
// pairing ticket, or from an outbound send) as a reconnection hint —
// a weaker substitute a real discovery service would replace. A
// successful reconnect does not update it, and inbound connections
// do not add entries.
type AddressBook interface {
	Resolve(id identity.EndpointId) (addr string, ok bool)
	Remember(id identity.EndpointId, addr string)
}

// MemoryAddressBook is the in-memory AddressBook implementation wired
// by the Supervisor.
type MemoryAddressBook struct {
	mu   sync.RWMutex
	addr map[identity.EndpointId]string
}

// NewMemoryAddressBook builds an empty address book.
func NewMemoryAddressBook() *MemoryAddressBook {
	return &MemoryAddressBook{addr: make(map[identity.EndpointId]string)}
}

// Resolve implements AddressBook.
func (b *MemoryAddressBook) Resolve(id identity.EndpointId) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.addr[id]
	return addr, ok
}

// Remember implements AddressBook.
func (b *MemoryAddressBook) Remember(id identity.EndpointId, addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr[id] = addr
}
