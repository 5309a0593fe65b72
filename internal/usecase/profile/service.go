package profile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

// Service управляет профилями пользователей и их токенами устройств.
type Service struct {
	users domain.UserRepo
	log   zerolog.Logger
}

// NewService создаёт сервис профилей.
func NewService(users domain.UserRepo, logger zerolog.Logger) *Service {
	return &Service{users: users, log: logger}
}

// UpdateInput — частичное обновление профиля: nil-поле не меняется.
type UpdateInput struct {
	Name *string
	Bio  *string
}

// Get возвращает профиль пользователя.
func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update применяет правки к профилю.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("обновление профиля: %w", err)
	}
	return updated, nil
}

// RegisterPushToken добавляет токен устройства пользователю.
// Повторная регистрация того же токена — no-op.
func (s *Service) RegisterPushToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return fmt.Errorf("%w: пустой токен устройства", domain.ErrInvalid)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range user.PushTokens {
		if existing == token {
			return nil
		}
	}
	user.PushTokens = append(user.PushTokens, token)
	if _, err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("сохранение токена: %w", err)
	}
	s.log.Debug().Str("user_id", userID).Msg("профиль: зарегистрирован токен устройства")
	return nil
}

// RemovePushToken удаляет токен устройства пользователя.
// Отсутствие токена — no-op.
func (s *Service) RemovePushToken(ctx context.Context, userID, token string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	kept := user.PushTokens[:0]
	removed := false
	for _, existing := range user.PushTokens {
		if existing == token {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return nil
	}
	user.PushTokens = kept
	if _, err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("удаление токена: %w", err)
	}
	return nil
}
