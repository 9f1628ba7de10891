//go:build linux

package transport

import "github.com/quic-go/quic-go"

// applyPlatformTweaks leaves GSO/GRO at quic-go's default on Linux,
// where the kernel UDP GSO path quic-go probes for is generally
// available, mirroring conn_linux.go's use of the richer sticky-socket
// code path instead of conn_default.go's lowest-common-denominator one.
func applyPlatformTweaks(_ *quic.Config) {}
