package guard

import (
	"sync"
	"time"
)

// FlipObserver is notified whenever the verification verdict changes value.
// Observers run outside the state lock and must not call back into the
// VerificationState synchronously in a way that blocks.
type FlipObserver func(verified bool, at time.Time)

// VerificationState holds the latest trust verdict shared between the
// sensing loop (writer) and the dialogue path (reader). Reads never block
// on external work; the lock is only held for field access.
type VerificationState struct {
	mu          sync.RWMutex
	verified    bool
	lastChanged time.Time
	observers   []FlipObserver
}

// NewVerificationState returns a state that starts unverified.
func NewVerificationState() *VerificationState {
	return &VerificationState{}
}

// OnFlip registers an observer called on every verdict change. Must be
// called before the sensing loop starts writing.
func (s *VerificationState) OnFlip(fn FlipObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Set records the latest verdict and reports whether the value changed.
// Observers fire exactly once per flip, after the lock is released.
func (s *VerificationState) Set(verified bool) bool {
	s.mu.Lock()
	if s.verified == verified {
		s.mu.Unlock()
		return false
	}
	s.verified = verified
	s.lastChanged = time.Now()
	at := s.lastChanged
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(verified, at)
	}
	return true
}

// Get returns the current verdict.
func (s *VerificationState) Get() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified
}

// LastChanged returns when the verdict last flipped. Zero if it never has.
func (s *VerificationState) LastChanged() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastChanged
}
