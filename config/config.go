// Package config implements the Config Store (spec.md §4.1): the
// durable peer list, device identity key, friendly name, and target
// directory, serialized as a whole to a TOML file on every mutation.
//
// The Config type's field shape mirrors wgcfg.Config
// (golang.zx2c4.com/wireguard/wgcfg/config.go: Name, PrivateKey,
// Peers[]); routing-specific fields (Addresses, DNS, AllowedIPs) are
// dropped since this repo does no IP routing, and TargetDir is added
// per spec.md §3.
package config

import "github.com/teleportd/teleport/identity"

// DefaultDeviceName is used when a config is created fresh.
const DefaultDeviceName = "Unnamed"

// Peer is a paired device: {id, name}, as named in spec.md §3.
type Peer struct {
	ID   identity.EndpointId `toml:"id"`
	Name string              `toml:"name"`
}

// Config is the whole of the durable state owned by the Config Store.
type Config struct {
	Key       identity.PrivateKey `toml:"key"`
	Name      string              `toml:"name"`
	TargetDir string              `toml:"target_dir,omitempty"`
	Peers     []Peer              `toml:"peers"`
}

// Snapshot is an immutable copy of Config safe to hand to callers
// outside the Store's single-writer goroutine, mirroring the RLock
// snapshot WireGuard-go's Device.LookupPeer/GetPeers return instead of
// a live reference into device.peers.keyMap.
type Snapshot struct {
	Name      string
	TargetDir string
	Peers     []Peer
}

func newDefault() Config {
	return Config{Name: DefaultDeviceName}
}
