package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is an encrypted private-key record. It holds no plaintext; the
// ciphertext is sealed under a password-derived key (see crypto.go).
type Record struct {
	// AccountID is the Hedera account the key belongs to.
	AccountID string `json:"accountId"`

	// Ciphertext is the AES-GCM sealed private key.
	Ciphertext []byte `json:"encryptedKey"`

	// Salt is the scrypt salt used for key derivation.
	Salt []byte `json:"salt"`

	// Nonce is the GCM nonce.
	Nonce []byte `json:"iv"`

	// CreatedAt anchors the record's fixed TTL.
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists at most one encrypted key record. Implementations must
// never persist plaintext keys or passwords.
type Store interface {
	// Load returns the stored record, or absent.
	Load() (*Record, bool, error)

	// Save overwrites any prior record.
	Save(record *Record) error

	// Delete removes the record. Deleting an absent record is not an error.
	Delete() error
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	record *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, false, nil
	}
	record := *s.record
	return &record, true, nil
}

func (s *MemoryStore) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.record = &copied
	return nil
}

func (s *MemoryStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}

// recordFileName namespaces the record file away from unrelated state.
const recordFileName = "x402-key-record.json"

// FileStore persists the record as a 0600 JSON file under dir.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, recordFileName)}
}

func (s *FileStore) Load() (*Record, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("corrupt key record: %w", err)
	}
	return &record, true, nil
}

func (s *FileStore) Save(record *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode key record: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key record: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key record: %w", err)
	}
	return nil
}
