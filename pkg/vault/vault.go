// Package vault encrypts and decrypts exchange credentials with a
// process-wide AES-256-GCM key.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// KeySize is the required raw key length for AES-256.
	KeySize = 32
	// NonceSize is the GCM nonce length.
	NonceSize = 12

	// EnvMasterKey names the environment variable holding the primary key
	// (base64, 32 raw bytes). Rotation keys use EnvMasterKey + "_V2", "_V3", ...
	EnvMasterKey = "MASTER_ENCRYPTION_KEY"

	maxKeyVersions = 10
)

// Configuration errors, surfaced at startup before any credential path
// becomes reachable.
var (
	ErrKeyMissing   = errors.New("vault: master encryption key not set")
	ErrKeyMalformed = errors.New("vault: master encryption key is not valid base64")
	ErrKeySize      = errors.New("vault: master encryption key must decode to 32 bytes")
)

// Runtime errors.
var (
	ErrInvalidCiphertext = errors.New("vault: invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("vault: decryption failed")
)

// Vault holds one AEAD per loaded key version. Encrypt always uses the
// newest version; Decrypt picks the version from the ciphertext prefix so
// records written before a rotation stay readable.
type Vault struct {
	current int
	aeads   map[int]cipher.AEAD
}

// Open loads key material from the environment and validates it. The primary
// key is mandatory; rotation keys are optional and loaded in version order.
func Open() (*Vault, error) {
	v := &Vault{aeads: make(map[int]cipher.AEAD)}

	aead, err := aeadFromEnv(EnvMasterKey)
	if err != nil {
		return nil, err
	}
	v.aeads[1] = aead
	v.current = 1

	for ver := 2; ver <= maxKeyVersions; ver++ {
		name := fmt.Sprintf("%s_V%d", EnvMasterKey, ver)
		if os.Getenv(name) == "" {
			continue
		}
		aead, err := aeadFromEnv(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		v.aeads[ver] = aead
		v.current = ver
	}

	return v, nil
}

// NewWithKey builds a single-version vault from raw key bytes. Used by tests
// and key-provisioning tooling.
func NewWithKey(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &Vault{current: 1, aeads: map[int]cipher.AEAD{1: aead}}, nil
}

// Encrypt seals plaintext under the current key version.
// Output format: ENC[vN]:base64(nonce || ciphertext || tag).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead := v.aeads[v.current]

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return fmt.Sprintf("ENC[v%d]:%s", v.current, base64.StdEncoding.EncodeToString(sealed)), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Returns
// ErrDecryptionFailed when the ciphertext is corrupt, truncated, or sealed
// under a key this process does not hold.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	version, encoded, err := splitCiphertext(ciphertext)
	if err != nil {
		return "", err
	}

	aead, ok := v.aeads[version]
	if !ok {
		return "", fmt.Errorf("%w: key version %d not loaded", ErrDecryptionFailed, version)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(data) < NonceSize {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// CurrentVersion returns the key version Encrypt writes with.
func (v *Vault) CurrentVersion() int {
	return v.current
}

// GenerateKey returns a fresh random key, base64-encoded for storage in the
// environment.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("vault: generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func aeadFromEnv(envName string) (cipher.AEAD, error) {
	encoded := os.Getenv(envName)
	if encoded == "" {
		return nil, ErrKeyMissing
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrKeyMalformed
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return newAEAD(key)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}
	return aead, nil
}

func splitCiphertext(ciphertext string) (version int, encoded string, err error) {
	if !strings.HasPrefix(ciphertext, "ENC[v") {
		return 0, "", ErrInvalidCiphertext
	}
	sep := strings.Index(ciphertext, "]:")
	if sep == -1 {
		return 0, "", ErrInvalidCiphertext
	}
	if _, err := fmt.Sscanf(ciphertext, "ENC[v%d]:", &version); err != nil || version < 1 {
		return 0, "", ErrInvalidCiphertext
	}
	return version, ciphertext[sep+2:], nil
}
