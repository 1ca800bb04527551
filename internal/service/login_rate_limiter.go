package service

import (
	"sync"
	"time"
)

// LoginRateLimiter limita intentos de login por clave (email
// normalizado). Frena credential stuffing sin afectar el flujo normal.
type LoginRateLimiter interface {
	Allow(key string) bool
}

// Cada tantas llamadas se barren todas las claves; sin el barrido, una
// clave consultada una sola vez quedaría en el mapa para siempre.
const limiterSweepInterval = 256

type loginRateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time
	calls  int
}

// NewLoginRateLimiter crea un rate limiter en memoria con ventana
// deslizante.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *loginRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)

	l.calls++
	if l.calls >= limiterSweepInterval {
		l.calls = 0
		l.sweep(cutoff)
	}

	kept := pruneBefore(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	kept = append(kept, now)
	l.hits[key] = kept
	return true
}

// sweep descarta las entradas fuera de ventana de todas las claves y
// elimina las claves que quedan vacías.
func (l *loginRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		kept := pruneBefore(entries, cutoff)
		if len(kept) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = kept
	}
}

func pruneBefore(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
