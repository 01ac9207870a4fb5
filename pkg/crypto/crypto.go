package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrEmptyKey           = errors.New("encryption key is empty")
)

const keyInfo = "taskflow field encryption v1"

// DeriveKey menurunkan key AES-256 dari secret dengan HKDF-SHA256, jadi
// secret pendek maupun panjang tetap menghasilkan key penuh 32 byte.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newAEAD(secret string) (cipher.AEAD, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt mengenkripsi data dengan AES-GCM. Hasilnya base64(nonce || ciphertext).
func Encrypt(data, secret string) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}
	return seal(aead, data)
}

// Decrypt membalik Encrypt dan gagal jika ciphertext diubah atau key salah.
func Decrypt(data, secret string) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}
	return open(aead, data)
}

func seal(aead cipher.AEAD, data string) (string, error) {
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, []byte(data), nil)), nil
}

func open(aead cipher.AEAD, data string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCiphertextTooShort
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// FieldCipher mengenkripsi satu kolom sensitif (mis. nomor kontak) sebelum disimpan.
// Key kosong berarti enkripsi dimatikan dan nilai disimpan apa adanya.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher menurunkan key sekali di awal. Secret kosong menghasilkan
// cipher yang nonaktif.
func NewFieldCipher(secret string) *FieldCipher {
	if secret == "" {
		return &FieldCipher{}
	}
	aead, err := newAEAD(secret)
	if err != nil {
		// Hanya terjadi jika secret kosong, yang sudah ditangani di atas.
		panic(err)
	}
	return &FieldCipher{aead: aead}
}

func (f *FieldCipher) Enabled() bool {
	return f != nil && f.aead != nil
}

func (f *FieldCipher) Seal(value string) (string, error) {
	if !f.Enabled() || value == "" {
		return value, nil
	}
	return seal(f.aead, value)
}

func (f *FieldCipher) Open(value string) (string, error) {
	if !f.Enabled() || value == "" {
		return value, nil
	}
	return open(f.aead, value)
}
