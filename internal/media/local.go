// Package media menyimpan file avatar yang diunggah user.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxAvatarSize = 5 << 20

var (
	ErrFileTooLarge   = errors.New("File size exceeds the limit of 5MB")
	ErrFileType       = errors.New("File type not allowed")
	ErrNotImage       = errors.New("File must be an image")
	allowedAvatarExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
)

// ValidateAvatar memeriksa ukuran, ekstensi, dan content type file.
func ValidateAvatar(file *multipart.FileHeader) error {
	if file.Size > MaxAvatarSize {
		return ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExts[ext] {
		return ErrFileType
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return ErrNotImage
	}
	return nil
}

// LocalStore menulis file ke direktori lokal dan mengembalikan URL publiknya.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore memastikan dir ada. urlPrefix adalah base URL tempat dir
// disajikan, mis. "https://api.example.com/uploads".
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) SaveAvatar(file *multipart.FileHeader) (string, error) {
	if err := ValidateAvatar(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	// Ubah nama file menjadi unik
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, MaxAvatarSize+1)); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// RemoveAvatar menghapus file yang sebelumnya dikembalikan SaveAvatar. URL di
// luar urlPrefix (mis. avatar default) diabaikan.
func (s *LocalStore) RemoveAvatar(url string) error {
	name, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
