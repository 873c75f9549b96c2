// Cryptographic utilities: AES-256-GCM for credential blobs at rest and
// bcrypt for admin token hashes.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// EncryptBlob encrypts an opaque value blob using AES-256-GCM.
// The encryptionKey must be exactly 32 bytes.
// Returns hex-encoded nonce+ciphertext concatenated.
func EncryptBlob(plaintext []byte, encryptionKey []byte) ([]byte, error) {
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}

	// Safe because key size is already validated.
	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(hex.EncodeToString(ciphertext)), nil
}

// DecryptBlob decrypts a blob encrypted with EncryptBlob.
func DecryptBlob(encrypted []byte, encryptionKey []byte) ([]byte, error) {
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}

	ciphertext := make([]byte, hex.DecodedLen(len(encrypted)))
	n, err := hex.Decode(ciphertext, encrypted)
	if err != nil {
		return nil, ErrDecryption
	}
	ciphertext = ciphertext[:n]

	block, _ := aes.NewCipher(encryptionKey) //nolint:errcheck
	gcm, _ := cipher.NewGCM(block)           //nolint:errcheck

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrDecryption
	}

	nonce := ciphertext[:nonceSize]
	actual := ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, actual, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}

// HashToken creates a bcrypt hash of an admin token for storage.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken checks a token against a bcrypt hash.
func VerifyToken(token, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}
