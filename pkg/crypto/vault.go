package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	// KeySize is the required size for AES-256 keys.
	KeySize = 32
	// NonceSize is the size of a GCM nonce.
	NonceSize = 12
)

// ErrKeyRecordNotFound is returned for any key-pair open failure —
// wrong master key, corrupt ciphertext, tampered tag — so callers never
// learn which one it was.
var ErrKeyRecordNotFound = errors.New("no such key")

// Vault holds the process-wide master key, derived once by scrypt from
// a configured password and salt, and seals/opens venue API key pairs
// with AES-256-GCM.
type Vault struct {
	key []byte
}

// NewVault derives the master key. salt should be at least 32 bytes of
// configured entropy, not a secret by itself.
func NewVault(password, salt string) (*Vault, error) {
	if password == "" {
		return nil, errors.New("vault password is empty")
	}
	if salt == "" {
		return nil, errors.New("vault salt is empty")
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	return &Vault{key: key}, nil
}

// sealedValue is one AES-256-GCM seal split into the three parts the
// key_records table stores separately.
type sealedValue struct {
	CipherHex string
	IVHex     string
	TagHex    string
}

func (v *Vault) seal(plaintext string) (sealedValue, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return sealedValue{}, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return sealedValue{}, fmt.Errorf("create gcm: %w", err)
	}

	iv := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return sealedValue{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	return sealedValue{
		CipherHex: hex.EncodeToString(sealed[:tagStart]),
		IVHex:     hex.EncodeToString(iv),
		TagHex:    hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

func (v *Vault) open(s sealedValue) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}

	iv, err := hex.DecodeString(s.IVHex)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}
	cipherBytes, err := hex.DecodeString(s.CipherHex)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}
	tagBytes, err := hex.DecodeString(s.TagHex)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}

	plaintext, err := gcm.Open(nil, iv, append(cipherBytes, tagBytes...), nil)
	if err != nil {
		return "", ErrKeyRecordNotFound
	}
	return string(plaintext), nil
}

// SealKeyPair encrypts an access/secret key pair as two independent
// AES-256-GCM seals, joining their ivs and tags with a colon for the
// combined iv/auth_tag columns.
func (v *Vault) SealKeyPair(accessKey, secretKey string) (accessCipher, secretCipher, ivCombined, tagCombined string, err error) {
	a, err := v.seal(accessKey)
	if err != nil {
		return "", "", "", "", err
	}
	s, err := v.seal(secretKey)
	if err != nil {
		return "", "", "", "", err
	}
	return a.CipherHex, s.CipherHex, a.IVHex + ":" + s.IVHex, a.TagHex + ":" + s.TagHex, nil
}

// OpenKeyPair reverses SealKeyPair.
func (v *Vault) OpenKeyPair(accessCipher, secretCipher, ivCombined, tagCombined string) (accessKey, secretKey string, err error) {
	ivParts := strings.SplitN(ivCombined, ":", 2)
	tagParts := strings.SplitN(tagCombined, ":", 2)
	if len(ivParts) != 2 || len(tagParts) != 2 {
		return "", "", ErrKeyRecordNotFound
	}

	accessKey, err = v.open(sealedValue{CipherHex: accessCipher, IVHex: ivParts[0], TagHex: tagParts[0]})
	if err != nil {
		return "", "", ErrKeyRecordNotFound
	}
	secretKey, err = v.open(sealedValue{CipherHex: secretCipher, IVHex: ivParts[1], TagHex: tagParts[1]})
	if err != nil {
		return "", "", ErrKeyRecordNotFound
	}
	return accessKey, secretKey, nil
}

// MaskKeyPair returns a display-safe rendering: first 8 and last 4
// characters of the access key, and only the last 4 of the secret key.
func MaskKeyPair(accessKey, secretKey string) (maskedAccess, maskedSecret string) {
	return maskEnds(accessKey, 8, 4), maskEnds(secretKey, 0, 4)
}

func maskEnds(s string, head, tail int) string {
	if len(s) <= head+tail {
		return strings.Repeat("*", len(s))
	}
	middle := strings.Repeat("*", len(s)-head-tail)
	return s[:head] + middle + s[len(s)-tail:]
}
