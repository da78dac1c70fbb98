// Package vault is the client-side encrypted key custody subsystem.
//
// A Session owns one encrypted key record and a short-lived password cache,
// so repeated signing operations do not re-prompt for the password. All
// state is session-scoped; there are no package-level singletons. The
// password cache lives only in memory and is never persisted or transmitted.
package vault

import (
	"fmt"
	"strings"
	"sync"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	x402 "github.com/mark3labs/x402-hedera-go"
)

// Default lifetimes. The record TTL is fixed from creation and independent
// of the password cache; the idle timeout clears only the password cache.
const (
	DefaultRecordTTL   = 24 * time.Hour
	DefaultPasswordTTL = 15 * time.Minute
	DefaultIdleTimeout = 5 * time.Minute

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
)

// Session holds the encrypted key record, the password cache, and the
// activity timestamp for one authenticated session.
type Session struct {
	store Store
	clock Clock
	sched Scheduler

	recordTTL   time.Duration
	passwordTTL time.Duration
	idleTimeout time.Duration

	mu           sync.Mutex
	password     string
	passwordAt   time.Time
	lastActivity time.Time
	evictCancel  CancelFunc
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets a custom clock.
func WithClock(clock Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithScheduler sets a custom eviction scheduler.
func WithScheduler(sched Scheduler) SessionOption {
	return func(s *Session) { s.sched = sched }
}

// WithRecordTTL overrides the key record lifetime.
func WithRecordTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.recordTTL = ttl }
}

// WithPasswordTTL overrides the password cache lifetime.
func WithPasswordTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.passwordTTL = ttl }
}

// WithIdleTimeout overrides the idle eviction threshold.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.idleTimeout = d }
}

// NewSession creates a session over a record store.
func NewSession(store Store, opts ...SessionOption) *Session {
	s := &Session{
		store:       store,
		clock:       systemClock{},
		sched:       systemScheduler{},
		recordTTL:   DefaultRecordTTL,
		passwordTTL: DefaultPasswordTTL,
		idleTimeout: DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity = s.clock.Now()
	return s
}

// Close cancels any pending eviction timer and clears the password cache.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPasswordLocked()
}

// ImportKey validates, normalizes, and encrypts a raw private key, then
// overwrites any prior record. The plaintext buffers are zeroed before
// return; callers are responsible for clearing their own copies.
func (s *Session) ImportKey(accountID, rawKey, password, confirm string) (*Record, error) {
	if !x402.IsAccountID(accountID) {
		return nil, fmt.Errorf("%w: not a valid account ID: %s", x402.ErrValidation, accountID)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", x402.ErrValidation, MinPasswordLength)
	}
	if password != confirm {
		return nil, fmt.Errorf("%w: password and confirmation do not match", x402.ErrValidation)
	}

	normalized := NormalizeKey(rawKey)
	if _, err := hedera.PrivateKeyFromString(normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidKey, err)
	}

	plaintext := []byte(normalized)
	passBytes := []byte(password)
	defer zero(plaintext)
	defer zero(passBytes)

	ciphertext, salt, nonce, err := seal(plaintext, passBytes)
	if err != nil {
		return nil, err
	}

	record := &Record{
		AccountID:  accountID,
		Ciphertext: ciphertext,
		Salt:       salt,
		Nonce:      nonce,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.Save(record); err != nil {
		return nil, err
	}

	s.Touch()
	return record, nil
}

// EncryptedKey returns the stored record, or absent when there is none or
// its fixed TTL since creation has elapsed. Expired records are purged.
func (s *Session) EncryptedKey() (*Record, bool) {
	record, ok, err := s.store.Load()
	if err != nil || !ok {
		return nil, false
	}
	if s.clock.Now().Sub(record.CreatedAt) > s.recordTTL {
		_ = s.store.Delete()
		return nil, false
	}
	return record, true
}

// Decrypt recovers the raw private key from a record. A wrong password
// returns ErrWrongPassword — a recoverable condition; callers re-prompt.
// On success the password cache is refreshed.
func (s *Session) Decrypt(record *Record, password string) (string, error) {
	passBytes := []byte(password)
	defer zero(passBytes)

	plaintext, err := open(record.Ciphertext, record.Salt, record.Nonce, passBytes)
	if err != nil {
		s.ClearPasswordCache()
		return "", err
	}

	key := string(plaintext)
	zero(plaintext)

	s.CachePassword(password)
	return key, nil
}

// CachePassword stores the password in memory with a rolling TTL and
// schedules eviction.
func (s *Session) CachePassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.password = password
	s.passwordAt = s.clock.Now()
	s.lastActivity = s.passwordAt

	if s.evictCancel != nil {
		s.evictCancel()
	}
	s.evictCancel = s.sched.AfterFunc(s.passwordTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Re-check under the clock: the cache may have been refreshed
		// after this timer was armed.
		if s.password != "" && s.clock.Now().Sub(s.passwordAt) >= s.passwordTTL {
			s.clearPasswordLocked()
		}
	})
}

// CachedPassword returns the cached password if it is still live. Expiry
// and idle eviction are evaluated check-then-use, so a racing timer is
// harmless: absence is always a valid answer.
func (s *Session) CachedPassword() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.password == "" {
		return "", false
	}

	now := s.clock.Now()
	if now.Sub(s.passwordAt) > s.passwordTTL || now.Sub(s.lastActivity) > s.idleTimeout {
		s.clearPasswordLocked()
		return "", false
	}
	return s.password, true
}

// ClearPasswordCache evicts the cached password immediately.
func (s *Session) ClearPasswordCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPasswordLocked()
}

// Touch records user activity for idle detection.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.clock.Now()
}

// Clear deletes the key record and the password cache.
func (s *Session) Clear() error {
	s.ClearPasswordCache()
	return s.store.Delete()
}

func (s *Session) clearPasswordLocked() {
	s.password = ""
	s.passwordAt = time.Time{}
	if s.evictCancel != nil {
		s.evictCancel()
		s.evictCancel = nil
	}
}

// NormalizeKey strips whitespace and an optional 0x prefix from a raw
// private key string.
func NormalizeKey(rawKey string) string {
	key := strings.TrimSpace(rawKey)
	return strings.TrimPrefix(key, "0x")
}
