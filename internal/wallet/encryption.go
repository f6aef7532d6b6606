package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the argon2 salt length.
const SaltSize = 32

// Sealed layout: salt | memory(4) | iterations(4) | parallelism(1) | nonce | ciphertext.
const paramsSize = 4 + 4 + 1

// ErrWrongPassword is returned when the ciphertext does not authenticate.
var ErrWrongPassword = errors.New("wrong password or corrupted wallet")

// EncryptionParams are the argon2id cost settings stored with each
// ciphertext.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams is 64 MiB, 3 passes, 4 lanes.
func DefaultParams() EncryptionParams {
	return EncryptionParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

func (p EncryptionParams) valid() bool {
	return p.Memory > 0 && p.Iterations > 0 && p.Parallelism > 0
}

func (p EncryptionParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

// Encrypt seals data under password with argon2id and XChaCha20-Poly1305.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	if !params.valid() {
		return nil, fmt.Errorf("invalid encryption params %+v", params)
	}
	head := make([]byte, SaltSize, SaltSize+paramsSize+chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(head); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := params.key(password, head)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	head = binary.LittleEndian.AppendUint32(head, params.Memory)
	head = binary.LittleEndian.AppendUint32(head, params.Iterations)
	head = append(head, params.Parallelism)

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	head = append(head, nonce...)
	return aead.Seal(head, nonce, data, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func Decrypt(sealed, password []byte) ([]byte, error) {
	nonceAt := SaltSize + paramsSize
	bodyAt := nonceAt + chacha20poly1305.NonceSizeX
	if len(sealed) < bodyAt+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(sealed))
	}
	salt := sealed[:SaltSize]
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[SaltSize+4:]),
		Parallelism: sealed[SaltSize+8],
	}
	if !params.valid() {
		return nil, fmt.Errorf("invalid encryption params %+v", params)
	}

	key := params.key(password, salt)
	defer wipe(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plain, err := aead.Open(nil, sealed[nonceAt:bodyAt], sealed[bodyAt:], nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plain, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
