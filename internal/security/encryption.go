package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/scrypt"
)

// EncryptionConfig holds the scrypt and AES-GCM parameters.
type EncryptionConfig struct {
	SCryptN      int
	SCryptR      int
	SCryptP      int
	SCryptKeyLen int

	NonceSize int
	TagSize   int
}

// DefaultEncryptionConfig returns the parameters used for stored files.
func DefaultEncryptionConfig() *EncryptionConfig {
	return &EncryptionConfig{
		SCryptN:      32768,
		SCryptR:      8,
		SCryptP:      1,
		SCryptKeyLen: 32,
		NonceSize:    12,
		TagSize:      16,
	}
}

// ValidateEncryptionConfig rejects parameters weaker than the defaults.
func ValidateEncryptionConfig(config *EncryptionConfig) error {
	if config == nil {
		return errors.New("encryption config cannot be nil")
	}
	if config.SCryptN < 32768 {
		return errors.New("SCryptN must be at least 32768")
	}
	if config.SCryptR < 8 {
		return errors.New("SCryptR must be at least 8")
	}
	if config.SCryptP < 1 {
		return errors.New("SCryptP must be at least 1")
	}
	if config.SCryptKeyLen != 32 {
		return errors.New("SCryptKeyLen must be 32 for AES-256")
	}
	if config.NonceSize != 12 {
		return errors.New("NonceSize must be 12 for AES-GCM")
	}
	if config.TagSize != 16 {
		return errors.New("TagSize must be 16 for AES-GCM")
	}
	return nil
}

// EncryptedPayload is the on-disk form of an encrypted secret.
type EncryptedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	AuthTag    []byte `json:"auth_tag"`
	Integrity  []byte `json:"integrity"`
	Timestamp  int64  `json:"timestamp"`
}

// SecureCredentials holds decrypted bytes until Clear zeroes them.
type SecureCredentials struct {
	data    []byte
	cleared bool
}

// Data returns the plaintext, or nil once cleared.
func (sc *SecureCredentials) Data() []byte {
	if sc.cleared {
		return nil
	}
	return sc.data
}

// Clear overwrites the plaintext.
func (sc *SecureCredentials) Clear() {
	if sc.cleared {
		return
	}
	wipe(sc.data)
	sc.data = nil
	sc.cleared = true
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func deriveKey(appSalt, salt []byte, config *EncryptionConfig) ([]byte, error) {
	combined := make([]byte, 0, len(appSalt)+len(salt))
	combined = append(combined, appSalt...)
	combined = append(combined, salt...)
	key, err := scrypt.Key(combined, salt, config.SCryptN, config.SCryptR, config.SCryptP, config.SCryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptCredentials encrypts plaintext with AES-256-GCM under a key
// derived by scrypt from appSalt and a random salt.
func EncryptCredentials(plaintext, appSalt []byte, config *EncryptionConfig) (*EncryptedPayload, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext cannot be empty")
	}
	if len(appSalt) < 16 {
		return nil, errors.New("application salt must be at least 16 bytes")
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	key, err := deriveKey(appSalt, salt, config)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, config.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-config.TagSize]
	return &EncryptedPayload{
		Version:    1,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		AuthTag:    sealed[len(sealed)-config.TagSize:],
		Integrity:  integrityHash(ciphertext, salt, nonce),
		Timestamp:  time.Now().Unix(),
	}, nil
}

// DecryptCredentials verifies and decrypts payload.
func DecryptCredentials(payload *EncryptedPayload, appSalt []byte, config *EncryptionConfig) (*SecureCredentials, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}
	if len(appSalt) < 16 {
		return nil, errors.New("application salt must be at least 16 bytes")
	}
	if config == nil {
		config = DefaultEncryptionConfig()
	}
	if payload.Version != 1 {
		return nil, fmt.Errorf("unsupported payload version: %d", payload.Version)
	}
	if subtle.ConstantTimeCompare(payload.Integrity, integrityHash(payload.Ciphertext, payload.Salt, payload.Nonce)) != 1 {
		return nil, errors.New("integrity verification failed")
	}

	key, err := deriveKey(appSalt, payload.Salt, config)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(payload.Ciphertext)+len(payload.AuthTag))
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.AuthTag...)
	plaintext, err := gcm.Open(nil, payload.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return &SecureCredentials{data: plaintext}, nil
}

func integrityHash(ciphertext, salt, nonce []byte) []byte {
	h := sha256.New()
	h.Write([]byte("EDUAUDIT-INTEGRITY-V1"))
	h.Write(ciphertext)
	h.Write(salt)
	h.Write(nonce)
	return h.Sum(nil)
}

// SecureCompare compares a and b in constant time.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
