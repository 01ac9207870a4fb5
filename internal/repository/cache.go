package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskflow/internal/models"
	"taskflow/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedUserStore adalah read-through cache Redis untuk FindUserByID, yang
// dipanggil di setiap request terautentikasi. Semua operasi tulis menghapus
// entri cache user tersebut.
type CachedUserStore struct {
	UserStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedUserStore(next UserStore, client *redis.Client, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{UserStore: next, client: client, ttl: ttl}
}

// cachedUser tidak menyimpan hash password maupun refresh token. Refresh
// token dibaca lewat FindRefreshToken yang selalu ke backing store, jadi
// entri cache yang basi tidak bisa menghidupkan token yang sudah dicabut.
type cachedUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Contact        string    `json:"contact"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func userCacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *CachedUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	key := userCacheKey(id)
	if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var entry cachedUser
		if err := json.Unmarshal(cached, &entry); err == nil {
			return &models.User{
				ID:             entry.ID,
				Username:       entry.Username,
				Email:          entry.Email,
				Contact:        entry.Contact,
				Role:           entry.Role,
				ProfilePicture: entry.ProfilePicture,
				CreatedAt:      entry.CreatedAt,
				UpdatedAt:      entry.UpdatedAt,
			}, nil
		}
	} else if err != redis.Nil {
		logger.ErrorLogger.Error("Redis get failed", zap.String("key", key), zap.Error(err))
	}

	u, err := s.UserStore.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Hasil dari cache tidak pernah membawa refresh token; samakan.
	u.RefreshToken = nil

	payload, err := json.Marshal(cachedUser{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Contact:        u.Contact,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	})
	if err == nil {
		if err := s.client.SetEX(ctx, key, payload, s.ttl).Err(); err != nil {
			logger.ErrorLogger.Error("Redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return u, nil
}

func (s *CachedUserStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	u, err := s.UserStore.UpdateUser(ctx, id, patch)
	s.invalidate(ctx, id)
	return u, err
}

func (s *CachedUserStore) SetRefreshToken(ctx context.Context, id string, token *string) error {
	err := s.UserStore.SetRefreshToken(ctx, id, token)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedUserStore) DeleteUser(ctx context.Context, id string) error {
	err := s.UserStore.DeleteUser(ctx, id)
	s.invalidate(ctx, id)
	return err
}

func (s *CachedUserStore) invalidate(ctx context.Context, id string) {
	if err := s.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		logger.ErrorLogger.Error("Redis del failed", zap.String("user_id", id), zap.Error(err))
	}
}
