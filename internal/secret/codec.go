package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrDecrypt reports that a stored ciphertext could not be decrypted: the value
// is malformed or the key is wrong. Callers must treat it as fatal for the
// operation and never fall back to the raw stored bytes.
var ErrDecrypt = errors.New("secret: decryption failed")

// Codec encrypts and decrypts card secrets with a single process-wide symmetric
// key. The key is injected at construction; there is no static fallback.
type Codec struct {
	key []byte
}

// NewCodec creates a codec from a raw AES key (16, 24 or 32 bytes).
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	return &Codec{key: key}, nil
}

// Encrypt encrypts a string using AES-CBC with PKCS#7 padding. The random IV
// is prepended to the ciphertext and the whole value is hex-encoded.
func (c *Codec) Encrypt(data string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	dataBytes := []byte(data)
	padding := aes.BlockSize - len(dataBytes)%aes.BlockSize
	for i := 0; i < padding; i++ {
		dataBytes = append(dataBytes, byte(padding))
	}

	ciphertext := make([]byte, len(dataBytes))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, dataBytes)

	final := append(iv, ciphertext...)
	return hex.EncodeToString(final), nil
}

// Decrypt decrypts a hex-encoded value produced by Encrypt. Any structural
// problem with the ciphertext surfaces as ErrDecrypt.
func (c *Codec) Decrypt(encryptedData string) (string, error) {
	if len(encryptedData) == 0 {
		return "", fmt.Errorf("%w: encrypted data is empty", ErrDecrypt)
	}

	data, err := hex.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("%w: invalid hex: %v", ErrDecrypt, err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("%w: encrypted data too short: %d bytes", ErrDecrypt, len(data))
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	if len(ciphertext) == 0 {
		return "", fmt.Errorf("%w: ciphertext is empty", ErrDecrypt)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext length: %d bytes", ErrDecrypt, len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create cipher: %v", ErrDecrypt, err)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("%w: invalid padding value: %d", ErrDecrypt, padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("%w: invalid padding byte at position %d", ErrDecrypt, i)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
