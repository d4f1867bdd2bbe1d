package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
)

// PayloadCipher encrypts pending package payloads at rest. Keys are derived
// per client from a service-wide seed, so one leaked row never exposes
// another client's data.
type PayloadCipher struct {
	seed string
}

func NewPayloadCipher(seed string) *PayloadCipher {
	return &PayloadCipher{seed: seed}
}

func (c *PayloadCipher) Encrypt(clientID int64, value []byte) ([]byte, error) {
	key := deriveKey(clientID, c.seed)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := key[:gcm.NonceSize()]
	sealed := gcm.Seal(nil, nonce, value, nil)
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (c *PayloadCipher) Decrypt(clientID int64, payload []byte) ([]byte, error) {
	key := deriveKey(clientID, c.seed)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := key[:gcm.NonceSize()]
	decoded, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return gcm.Open(nil, nonce, decoded, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func deriveKey(clientID int64, seed string) []byte {
	sum := sha256.Sum256([]byte(seed + ":" + strconv.FormatInt(clientID, 10)))
	return sum[:]
}
