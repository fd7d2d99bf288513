package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrCodeNotFound means no reset code is pending for the email.
	ErrCodeNotFound = errors.New("reset code not found")
	// ErrCodeMismatch means a code is pending but the submitted value is
	// wrong. The pending code stays usable.
	ErrCodeMismatch = errors.New("reset code mismatch")
	// ErrCodeExpired means the pending code's TTL has elapsed. The code is
	// discarded.
	ErrCodeExpired = errors.New("reset code expired")
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// GenerateResetCode produces a 6-character uppercase alphanumeric code from
// crypto/rand.
func GenerateResetCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating reset code: %w", err)
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// ResetCodeStore holds pending password reset codes keyed by email. At most
// one code is pending per email; creating a new one replaces the old.
type ResetCodeStore interface {
	// Create stores a code for the email with the given TTL, replacing any
	// pending code.
	Create(ctx context.Context, email, code string, ttl time.Duration) error

	// Consume verifies the submitted code. On success the pending entry is
	// deleted. A mismatch leaves the entry in place; an expired entry is
	// deleted and reported as ErrCodeExpired.
	Consume(ctx context.Context, email, code string) error
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryResetCodeStore is the in-process ResetCodeStore used when Redis is
// not configured. Safe for concurrent use.
type MemoryResetCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryResetCodeStore creates an empty in-memory store.
func NewMemoryResetCodeStore() *MemoryResetCodeStore {
	return &MemoryResetCodeStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Create implements ResetCodeStore.
func (s *MemoryResetCodeStore) Create(_ context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[normalizeEmail(email)] = memoryEntry{
		code:      strings.ToUpper(code),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Consume implements ResetCodeStore.
func (s *MemoryResetCodeStore) Consume(_ context.Context, email, code string) error {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return ErrCodeNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return ErrCodeExpired
	}
	if entry.code != strings.ToUpper(code) {
		return ErrCodeMismatch
	}
	delete(s.entries, key)
	return nil
}

// Sweep drops expired entries. Intended to run periodically from a cron
// job so abandoned codes do not accumulate.
func (s *MemoryResetCodeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
