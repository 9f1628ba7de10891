//go:build !linux

package transport

import "github.com/quic-go/quic-go"

// applyPlatformTweaks is the non-Linux counterpart of gso_linux.go's
// tweak point. quic-go probes GSO availability per-socket at the OS
// level and falls back automatically where it's unsupported, so there
// is nothing this repo needs to force off; the split file still exists
// so a platform that does need a tweak (as conn_default.go needed for
// sticky-socket support) has a home for it.
func applyPlatformTweaks(_ *quic.Config) {}
