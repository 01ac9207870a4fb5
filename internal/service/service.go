// Package service holds the business rules of taskflow: credential and token
// lifecycle, the task workflow, and user profiles. Handlers stay thin and
// call into these types.
package service

import (
	"mime/multipart"
	"strings"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
	"taskflow/pkg/crypto"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AvatarStore adalah media storage untuk foto profil.
type AvatarStore interface {
	SaveAvatar(file *multipart.FileHeader) (string, error)
	RemoveAvatar(url string) error
}

// Publisher menerima event perubahan task untuk diteruskan ke board owner.
type Publisher interface {
	Publish(ownerID string, event models.TaskEvent)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validID rejects malformed ids up front so they read as "not found"
// instead of reaching the store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// contactCodec mengenkripsi nomor kontak sebelum disimpan dan membukanya
// kembali sebelum dikirim ke client.
type contactCodec struct {
	cipher *crypto.FieldCipher
}

func (c contactCodec) seal(contact string) (string, error) {
	sealed, err := c.cipher.Seal(contact)
	if err != nil {
		return "", apperr.Internal("Error encrypting contact", err)
	}
	return sealed, nil
}

func (c contactCodec) open(u *models.User) error {
	opened, err := c.cipher.Open(u.Contact)
	if err != nil {
		return apperr.Internal("Error decrypting contact", err)
	}
	u.Contact = opened
	return nil
}

// public strips secrets before a user leaves the service layer.
func (c contactCodec) public(u *models.User) (*models.User, error) {
	out := *u
	out.Password = ""
	out.RefreshToken = nil
	if err := c.open(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

type passwordHasher struct {
	cost int
}

func (h passwordHasher) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperr.Internal("Error hashing password", err)
	}
	return string(hashed), nil
}

func (h passwordHasher) matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
