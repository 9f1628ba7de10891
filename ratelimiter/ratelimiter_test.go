/* SPDX-License-Identifier: GPL-2.0
 *
 * Copyright (C) 2017-2018 Jason A. Donenfeld <Jason@zx2c4.com>. All Rights Reserved.
 */

package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleportd/teleport/identity"
)

func newID(t *testing.T) identity.EndpointId {
	t.Helper()
	sk, err := identity.Generate()
	require.NoError(t, err)
	return sk.Public()
}

func TestLimiterAllowsBurstThenThrottles(t *testing.T) {
	var l Limiter
	l.Init()
	defer l.Close()

	id := newID(t)

	for i := 0; i < probesBurstable; i++ {
		require.True(t, l.Allow(id), "burst probe %d should be allowed", i)
	}
	require.False(t, l.Allow(id), "probe beyond the burst should be throttled")
}

func TestLimiterTracksKeysIndependently(t *testing.T) {
	var l Limiter
	l.Init()
	defer l.Close()

	a := newID(t)
	b := newID(t)

	for i := 0; i < probesBurstable; i++ {
		require.True(t, l.Allow(a))
	}
	require.False(t, l.Allow(a))
	require.True(t, l.Allow(b), "a distinct key should have its own bucket")
}

func TestLimiterRefillsOverTime(t *testing.T) {
	var l Limiter
	l.Init()
	defer l.Close()

	id := newID(t)
	for i := 0; i < probesBurstable; i++ {
		require.True(t, l.Allow(id))
	}
	require.False(t, l.Allow(id))

	time.Sleep(1100 * time.Millisecond)
	require.True(t, l.Allow(id), "a token should have refilled after a second")
}
