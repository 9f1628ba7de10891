/* SPDX-License-Identifier: GPL-2.0
 *
 * Copyright (C) 2017-2018 Jason A. Donenfeld <Jason@zx2c4.com>. All Rights Reserved.
 */

// Package ratelimiter provides a per-key token-bucket limiter, adapted
// from golang.zx2c4.com/wireguard's ratelimiter (originally keyed by
// net.IP, one bucket per source address gating handshake-initiation
// packets). Here the key is an identity.EndpointId and the bucket
// gates ValidateSecret probes against the Pairing Subsystem
// (spec.md §4.6/§7): a remote that repeatedly guesses at the pairing
// secret is throttled rather than allowed to hammer the acceptor.
//
// The token-bucket arithmetic itself is delegated to
// golang.org/x/time/rate (already an indirect dependency of the
// teacher via this same package) instead of the teacher's hand-rolled
// nanosecond counter.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teleportd/teleport/identity"
)

const (
	probesPerSecond    = 1
	probesBurstable    = 3
	garbageCollectTime = 30 * time.Second
)

// Limiter rate-limits operations keyed by identity.EndpointId.
type Limiter struct {
	mutex sync.RWMutex
	stop  chan struct{}
	table map[identity.EndpointId]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastTime time.Time
}

// Init prepares the limiter and (re)starts its garbage-collection
// routine, mirroring Ratelimiter.Init()'s stop-then-restart semantics
// so a Limiter value can be reused across Close/Init cycles.
func (l *Limiter) Init() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stop != nil {
		close(l.stop)
	}

	l.stop = make(chan struct{})
	l.table = make(map[identity.EndpointId]*limiterEntry)

	go func() {
		ticker := time.NewTicker(time.Second)
		for {
			select {
			case <-l.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				l.collectGarbage()
			}
		}
	}()
}

func (l *Limiter) collectGarbage() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for key, e := range l.table {
		if time.Since(e.lastTime) > garbageCollectTime {
			delete(l.table, key)
		}
	}
}

// Close stops the garbage-collection routine.
func (l *Limiter) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

// Allow reports whether a probe from id should proceed, consuming one
// token from its bucket if so.
func (l *Limiter) Allow(id identity.EndpointId) bool {
	l.mutex.RLock()
	e, ok := l.table[id]
	l.mutex.RUnlock()

	if !ok {
		l.mutex.Lock()
		e, ok = l.table[id]
		if !ok {
			e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(probesPerSecond), probesBurstable)}
			l.table[id] = e
		}
		l.mutex.Unlock()
	}

	e.lastTime = time.Now()
	return e.limiter.Allow()
}
