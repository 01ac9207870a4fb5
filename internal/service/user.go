package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
	"taskflow/internal/repository"
	"taskflow/pkg/crypto"
	"taskflow/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errUserNotFound = apperr.NotFound("User not found")

// UserService mengelola profil. User biasa hanya bisa mengakses dirinya
// sendiri; admin bisa mengakses semua user.
type UserService struct {
	users    repository.UserStore
	tasks    repository.TaskStore
	avatars  AvatarStore
	contacts contactCodec
	hasher   passwordHasher
}

func NewUserService(users repository.UserStore, tasks repository.TaskStore, avatars AvatarStore, cipher *crypto.FieldCipher) *UserService {
	return &UserService{
		users:    users,
		tasks:    tasks,
		avatars:  avatars,
		contacts: contactCodec{cipher: cipher},
		hasher:   passwordHasher{cost: bcrypt.DefaultCost},
	}
}

func (s *UserService) SetHashCost(cost int) {
	s.hasher.cost = cost
}

// canAccess returns false for anyone but the owner or an admin. Callers
// answer with not found so other profiles stay invisible.
func canAccess(actor *models.User, id string) bool {
	return actor != nil && (actor.ID == id || actor.IsAdmin())
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, errUserNotFound
	}
	user, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if !canAccess(actor, id) {
		return nil, errUserNotFound
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.contacts.public(user)
}

func (s *UserService) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperr.Forbidden("Admin access required")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("Error listing users", err)
	}

	out := make([]models.User, 0, len(users))
	for i := range users {
		public, err := s.contacts.public(&users[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *public)
	}
	return out, nil
}

func (s *UserService) Update(ctx context.Context, actor *models.User, id string, patch models.UserPatch) (*models.User, error) {
	if !canAccess(actor, id) {
		return nil, errUserNotFound
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.preparePatch(&patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.Get(ctx, actor, id)
	}

	user, err := s.users.UpdateUser(ctx, id, patch)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.Conflict("User with this email already exists")
	case errors.Is(err, repository.ErrNotFound):
		return nil, errUserNotFound
	case err != nil:
		return nil, apperr.Internal("Error updating user", err)
	}

	logger.AuditLogger.Info("User updated", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return s.contacts.public(user)
}

// preparePatch trims and validates the patch, then hashes the password and
// seals the contact so the store only ever sees stored forms.
func (s *UserService) preparePatch(patch *models.UserPatch) error {
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if name == "" {
			return apperr.Validation("Username must not be empty")
		}
		patch.Username = &name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return apperr.Validation("Email must not be empty")
		}
		patch.Email = &email
	}
	if patch.Contact != nil {
		contact := strings.TrimSpace(*patch.Contact)
		if contact == "" {
			return apperr.Validation("Contact must not be empty")
		}
		sealed, err := s.contacts.seal(contact)
		if err != nil {
			return err
		}
		patch.Contact = &sealed
	}
	if patch.Password != nil {
		if len(*patch.Password) < MinPasswordLength {
			return apperr.Validation("Password must be at least 6 characters")
		}
		hashed, err := s.hasher.hash(*patch.Password)
		if err != nil {
			return err
		}
		patch.Password = &hashed
	}
	return nil
}

// Delete removes the user together with every task they own.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !canAccess(actor, id) {
		return errUserNotFound
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.DeleteTasksByOwner(ctx, id); err != nil {
		return apperr.Internal("Error deleting user tasks", err)
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		return apperr.Internal("Error deleting user", err)
	}
	discardAvatar(s.avatars, user.ProfilePicture)
	logger.AuditLogger.Info("User deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// ChangeAvatar hanya bisa dilakukan oleh pemilik akun.
func (s *UserService) ChangeAvatar(ctx context.Context, actor *models.User, id string, file *multipart.FileHeader) (*models.User, error) {
	if actor == nil || actor.ID != id {
		return nil, errUserNotFound
	}
	if file == nil {
		return nil, apperr.Validation("Profile picture is required")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := storeAvatar(s.avatars, file)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateUser(ctx, id, models.UserPatch{ProfilePicture: &url})
	if err != nil {
		discardAvatar(s.avatars, url)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, apperr.Internal("Error updating profile picture", err)
	}
	if current.ProfilePicture != url {
		discardAvatar(s.avatars, current.ProfilePicture)
	}
	logger.AuditLogger.Info("Avatar changed", zap.String("user_id", id))
	return s.contacts.public(user)
}
