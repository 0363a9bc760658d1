package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/errs"
)

// Keystore is the capability set both keystore variants implement: save
// a key pair under an identifier, and load it back. Modeled as an
// interface rather than a concrete struct so callers (CLI, signer,
// tests) can swap in-memory for on-disk without caring which.
type Keystore interface {
	Save(id string, kp crypto.KeyPair) error
	Load(id string) (crypto.KeyPair, error)
}

// MemoryKeystore holds key pairs in process memory only. Intended for
// tests and short-lived processes; never persists to disk.
type MemoryKeystore struct {
	mu   sync.RWMutex
	keys map[string]crypto.KeyPair
}

// NewMemoryKeystore returns an empty in-memory keystore.
func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{keys: make(map[string]crypto.KeyPair)}
}

func (m *MemoryKeystore) Save(id string, kp crypto.KeyPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[id] = kp
	return nil
}

func (m *MemoryKeystore) Load(id string) (crypto.KeyPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kp, ok := m.keys[id]
	if !ok {
		return crypto.KeyPair{}, errs.Key(fmt.Errorf("no key pair stored for %s", id))
	}
	return kp, nil
}

// keyRecord is the on-disk JSON shape for a single identifier's keys.
type keyRecord struct {
	DID       string              `json:"did"`
	PublicKey string              `json:"publicKey"`
	Encrypted bool                `json:"encrypted"`
	Data      keyRecordData       `json:"data"`
	CreatedAt time.Time           `json:"createdAt"`
}

type keyRecordData struct {
	// Populated when Encrypted is true.
	IV         string `json:"iv,omitempty"`
	Salt       string `json:"salt,omitempty"`
	AuthTag    string `json:"authTag,omitempty"`
	Ciphertext string `json:"ciphertext,omitempty"`
	// Populated when Encrypted is false.
	PrivateKey string `json:"privateKey,omitempty"`
}
