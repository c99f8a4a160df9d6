package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DecryptFailedSentinel is returned in place of the plaintext when a stored
// body cannot be decrypted. A corrupted row must not break a conversation
// fetch, so Decrypt never propagates the underlying error to the read path.
const DecryptFailedSentinel = "unable to decrypt"

const ivLength = aes.BlockSize

var errMalformed = errors.New("malformed ciphertext")

// Cipher encrypts and decrypts message bodies with AES-CBC under a fixed
// process-wide key. The key is supplied once at construction; Cipher never
// reads ambient configuration.
type Cipher struct {
	key []byte
}

// New builds a Cipher. The key must be 16, 24 or 32 bytes.
func New(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &Cipher{key: append([]byte(nil), key...)}, nil
}

// Encrypt seals plaintext with a fresh random IV and returns the
// "ivHex:cipherHex" encoding used by the message store.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. On malformed input, a wrong key or corrupted
// ciphertext it returns DecryptFailedSentinel instead of failing.
func (c *Cipher) Decrypt(encoded string) string {
	plaintext, err := c.decrypt(encoded)
	if err != nil {
		return DecryptFailedSentinel
	}
	return plaintext
}

func (c *Cipher) decrypt(encoded string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", errMalformed
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLength {
		return "", errMalformed
	}
	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errMalformed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	unpadded, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errMalformed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errMalformed
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errMalformed
		}
	}
	return data[:len(data)-n], nil
}
