package server

import (
	"sync"
	"time"
)

const authFailureSweepInterval = time.Minute

// authFailureLimiter blocks a client ip and username pair after repeated
// failed Basic auth attempts inside a sliding window.
type authFailureLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*authAttempts
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	lastSweep   time.Time
}

type authAttempts struct {
	failures     []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newAuthFailureLimiter(maxFailures int, window, blockFor time.Duration) *authFailureLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	return &authFailureLimiter{
		attempts:    make(map[string]*authAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
	}
}

// Allow reports whether key may attempt authentication at now.
func (l *authFailureLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	entry, ok := l.attempts[key]
	if !ok {
		return true
	}
	entry.lastSeen = now
	return !now.Before(entry.blockedUntil)
}

// RegisterFailure records one failed attempt and blocks key once the window fills.
func (l *authFailureLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.attempts[key]
	if !ok {
		entry = &authAttempts{}
		l.attempts[key] = entry
	}
	entry.lastSeen = now
	entry.failures = append(pruneBefore(entry.failures, now.Add(-l.window)), now)
	if len(entry.failures) >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockFor)
		entry.failures = entry.failures[:0]
	}
}

// Reset forgets key after a successful login.
func (l *authFailureLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *authFailureLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < authFailureSweepInterval {
		return
	}
	l.lastSweep = now
	staleAfter := l.window + l.blockFor
	for key, entry := range l.attempts {
		if now.Sub(entry.lastSeen) > staleAfter && !now.Before(entry.blockedUntil) {
			delete(l.attempts, key)
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
