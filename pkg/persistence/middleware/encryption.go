package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// EnvelopeKey is the single config key of an encrypted node.
const EnvelopeKey = "__encrypted__"

// ErrNotEncrypted is returned when a node config that should be sealed is stored in plain text.
var ErrNotEncrypted = errors.New("node config is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.WorkflowStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals every node config
// with AES-GCM. Workflow structure (names, labels, edges) stays readable by the
// backend; only the free-form config, where credentials end up, is hidden.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return func(next ports.WorkflowStore) ports.WorkflowStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, wf *domain.Workflow) error {
	sealed := wf.Clone()
	for i := range sealed.Nodes {
		cfg := sealed.Nodes[i].Config
		if len(cfg) == 0 {
			continue
		}
		plainText, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal node config: %w", err)
		}
		ciphertext, err := encrypt(plainText, m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt node config: %w", err)
		}
		sealed.Nodes[i].Config = map[string]any{
			EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		}
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.open(wf); err != nil {
		return nil, fmt.Errorf("workflow %q: %w", id, err)
	}
	return wf, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	list, err := m.next.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, wf := range list {
		if err := m.open(wf); err != nil {
			return nil, fmt.Errorf("workflow %q: %w", wf.ID, err)
		}
	}
	return list, nil
}

// open decrypts node configs in place. It fails secure on plain-text configs.
func (m *encryptionMiddleware) open(wf *domain.Workflow) error {
	for i := range wf.Nodes {
		cfg := wf.Nodes[i].Config
		if len(cfg) == 0 {
			continue
		}
		encoded, ok := cfg[EnvelopeKey].(string)
		if !ok || len(cfg) != 1 {
			return fmt.Errorf("node %q: %w", wf.Nodes[i].ID, ErrNotEncrypted)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return fmt.Errorf("failed to decrypt node config: %w", err)
		}
		var out map[string]any
		if err := json.Unmarshal(plainText, &out); err != nil {
			return fmt.Errorf("failed to unmarshal decrypted config: %w", err)
		}
		wf.Nodes[i].Config = out
	}
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
