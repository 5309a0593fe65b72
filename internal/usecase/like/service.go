package like

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

const lockStripes = 64

// Service переключает отметку «нравится» для пары (публикация, пользователь).
// Последовательность «проверить, затем изменить» сериализуется полосатым
// замком по ключу пары, чтобы параллельный двойной клик не породил два
// лайка или два удаления подряд.
type Service struct {
	posts domain.PostRepo
	likes domain.LikeRepo
	log   zerolog.Logger
	locks [lockStripes]sync.Mutex
	now   func() time.Time
}

// NewService создаёт сервис лайков.
func NewService(posts domain.PostRepo, likes domain.LikeRepo, logger zerolog.Logger) *Service {
	return &Service{
		posts: posts,
		likes: likes,
		log:   logger,
		now:   time.Now,
	}
}

func (s *Service) lockFor(postID, userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(postID))
	h.Write([]byte{'/'})
	h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

// Toggle ставит лайк, если его нет, и снимает, если есть.
// Возвращает итоговое состояние: true, когда лайк поставлен.
func (s *Service) Toggle(ctx context.Context, postID, userID string) (bool, error) {
	mu := s.lockFor(postID, userID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return false, err
	}

	exists, err := s.likes.Exists(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("проверка лайка: %w", err)
	}
	if exists {
		if err := s.likes.DeleteByPostAndUser(ctx, postID, userID); err != nil {
			return false, fmt.Errorf("снятие лайка: %w", err)
		}
		s.log.Debug().Str("post_id", postID).Str("user_id", userID).Msg("лайк снят")
		return false, nil
	}
	if _, err := s.likes.Create(ctx, domain.Like{
		PostID:    postID,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return false, fmt.Errorf("постановка лайка: %w", err)
	}
	s.log.Debug().Str("post_id", postID).Str("user_id", userID).Msg("лайк поставлен")
	return true, nil
}
