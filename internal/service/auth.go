package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"taskflow/internal/apperr"
	"taskflow/internal/media"
	"taskflow/internal/models"
	"taskflow/internal/repository"
	"taskflow/internal/token"
	"taskflow/pkg/crypto"
	"taskflow/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email and for a wrong
// password alike.
var ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")

const MinPasswordLength = 6

type RegisterInput struct {
	Username string
	Email    string
	Contact  string
	Password string
	Avatar   *multipart.FileHeader
}

// Session adalah hasil login atau refresh.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	users    repository.UserStore
	tokens   *token.Service
	avatars  AvatarStore
	contacts contactCodec
	hasher   passwordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.UserStore, tokens *token.Service, avatars AvatarStore, cipher *crypto.FieldCipher) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		avatars:  avatars,
		contacts: contactCodec{cipher: cipher},
		hasher:   passwordHasher{cost: bcrypt.DefaultCost},
	}
}

// SetHashCost mengganti cost bcrypt; test memakai bcrypt.MinCost.
func (s *AuthService) SetHashCost(cost int) {
	s.hasher.cost = cost
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Username == "" || in.Email == "" || in.Contact == "" || in.Password == "" {
		return nil, apperr.Validation("Invalid fields")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}

	_, err := s.users.FindUserByEmail(ctx, in.Email)
	if err == nil {
		logger.SecurityLogger.Warn("Duplicate email on register", zap.String("email", in.Email))
		return nil, apperr.Conflict("User with this email already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("Error checking email", err)
	}

	hashed, err := s.hasher.hash(in.Password)
	if err != nil {
		return nil, err
	}
	contact, err := s.contacts.seal(in.Contact)
	if err != nil {
		return nil, err
	}

	// Avatar ditulis paling akhir supaya kegagalan di atas tidak meninggalkan file.
	profilePicture := models.DefaultProfilePicture
	if in.Avatar != nil {
		url, err := storeAvatar(s.avatars, in.Avatar)
		if err != nil {
			return nil, err
		}
		profilePicture = url
	}

	user := &models.User{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          in.Email,
		Contact:        contact,
		Password:       hashed,
		Role:           models.RoleMember,
		ProfilePicture: profilePicture,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		discardAvatar(s.avatars, profilePicture)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, apperr.Internal("Error creating user", err)
	}

	logger.AuditLogger.Info("User registered", zap.String("user_id", user.ID))
	return s.contacts.public(user)
}

// storeAvatar menyimpan avatar dan memetakan error validasi file ke 400.
func storeAvatar(avatars AvatarStore, file *multipart.FileHeader) (string, error) {
	url, err := avatars.SaveAvatar(file)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, media.ErrFileTooLarge), errors.Is(err, media.ErrFileType), errors.Is(err, media.ErrNotImage):
		return "", apperr.Validation(err.Error())
	default:
		return "", apperr.Internal("Error saving profile picture", err)
	}
}

// discardAvatar menghapus file avatar yang tidak lagi dirujuk user mana pun.
func discardAvatar(avatars AvatarStore, url string) {
	if url == "" || url == models.DefaultProfilePicture {
		return
	}
	if err := avatars.RemoveAvatar(url); err != nil {
		logger.ErrorLogger.Error("Error removing profile picture", zap.String("url", url), zap.Error(err))
	}
}

// Login issues both tokens and stores the refresh token as the single active one.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// Samakan waktu respons dengan kasus password salah.
		s.hasher.matches(s.dummy(), password)
		logger.SecurityLogger.Warn("Login failed", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user", err)
	}
	if !s.hasher.matches(user.Password, password) {
		logger.SecurityLogger.Warn("Login failed", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("Error generating token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, apperr.Internal("Error generating token", err)
	}

	user.RotateRefreshToken(refresh)
	if err := s.users.SetRefreshToken(ctx, user.ID, user.RefreshToken); err != nil {
		return nil, apperr.Internal("Error saving refresh token", err)
	}

	public, err := s.contacts.public(user)
	if err != nil {
		return nil, err
	}
	logger.AuditLogger.Info("Login success", zap.String("user_id", user.ID))
	return &Session{User: public, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token. The presented refresh token must equal
// the stored one; it stays valid until the next login or logout.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("No refresh token provided")
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		logger.SecurityLogger.Warn("Invalid refresh token", zap.Error(err))
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid refresh token. User not found")
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user", err)
	}
	// Token pembanding selalu dari store utama, bukan dari cache user.
	user.RefreshToken, err = s.users.FindRefreshToken(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid refresh token. User not found")
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user", err)
	}
	if !user.RefreshTokenMatches(refreshToken) {
		logger.SecurityLogger.Warn("Stale refresh token", zap.String("user_id", user.ID))
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperr.Internal("Error generating token", err)
	}
	public, err := s.contacts.public(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: public, AccessToken: access, RefreshToken: refreshToken}, nil
}

// Logout clears the stored refresh token so every outstanding one stops working.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthorized("User not found")
	}
	if err != nil {
		return apperr.Internal("Error loading user", err)
	}

	user.RevokeRefreshToken()
	if err := s.users.SetRefreshToken(ctx, user.ID, user.RefreshToken); err != nil {
		return apperr.Internal("Error clearing refresh token", err)
	}
	logger.AuditLogger.Info("Logout", zap.String("user_id", user.ID))
	return nil
}

// Authenticate resolves an access token to the user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid token. User not found")
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user", err)
	}
	return s.contacts.public(user)
}

// SeedAdmin membuat akun admin jika email tersebut belum terdaftar.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	_, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperr.Internal("Error checking admin", err)
	}

	hashed, err := s.hasher.hash(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		ID:             uuid.NewString(),
		Username:       "admin",
		Email:          email,
		Password:       hashed,
		Role:           models.RoleAdmin,
		ProfilePicture: models.DefaultProfilePicture,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return apperr.Internal("Error creating admin", err)
	}
	logger.AuditLogger.Info("Admin user seeded", zap.String("user_id", admin.ID))
	return nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("taskflow-dummy-password"), s.hasher.cost)
		if err == nil {
			s.dummyHash = string(hashed)
		}
	})
	return s.dummyHash
}

func (s *AuthService) AccessTTL() time.Duration  { return s.tokens.AccessTTL() }
func (s *AuthService) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }
