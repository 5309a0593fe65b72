package sweep

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
	"photowall/internal/infra/metrics"
)

const dedupTTL = 50 * time.Minute

// Service удаляет истории с истёкшим сроком жизни. За раз выполняется не
// больше одного прохода: тик, пришедший во время работы, пропускается.
// «Истёкшесть» — чистая функция от часов и сохранённой метки, поэтому
// пропущенный проход означает лишь позднее удаление, а не потерю данных.
type Service struct {
	posts    domain.PostRepo
	comments domain.CommentRepo
	likes    domain.LikeRepo
	cache    domain.Cache
	log      zerolog.Logger

	running atomic.Bool
	now     func() time.Time
}

// NewService создаёт свипер. Кэш cache опционален и используется для
// дедупликации проходов между репликами.
func NewService(posts domain.PostRepo, comments domain.CommentRepo, likes domain.LikeRepo, cache domain.Cache, logger zerolog.Logger) *Service {
	return &Service{
		posts:    posts,
		comments: comments,
		likes:    likes,
		cache:    cache,
		log:      logger,
		now:      time.Now,
	}
}

// Run выполняет один проход свипера и возвращает число удалённых историй.
// При сбое пакетного удаления проход бросается без частичного результата:
// следующий тик заново найдёт те же истёкшие истории.
func (s *Service) Run(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("свипер: предыдущий проход ещё идёт, тик пропущен")
		return 0, nil
	}
	defer s.running.Store(false)

	now := s.now().UTC()
	if s.cache == nil {
		return s.sweep(ctx, now)
	}

	var deleted int
	key := "sweep:run:" + now.Format("2006-01-02T15")
	err := s.cache.Once(key, dedupTTL, func() error {
		var sweepErr error
		deleted, sweepErr = s.sweep(ctx, now)
		return sweepErr
	})
	return deleted, err
}

func (s *Service) sweep(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.posts.ListExpired(ctx, now)
	if err != nil {
		metrics.ObserveSweepRun(0, err)
		return 0, fmt.Errorf("выборка истёкших историй: %w", err)
	}
	if len(expired) == 0 {
		metrics.ObserveSweepRun(0, nil)
		s.log.Info().Msg("свипер: истёкших историй нет")
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, post := range expired {
		ids = append(ids, post.ID)
	}
	if err := s.posts.BatchDelete(ctx, ids); err != nil {
		metrics.ObserveSweepRun(0, err)
		return 0, fmt.Errorf("пакетное удаление историй: %w", err)
	}
	metrics.ObserveSweepRun(len(ids), nil)
	s.log.Info().Int("deleted", len(ids)).Msg("свипер: истёкшие истории удалены")

	// Осиротевшие комментарии и лайки подчищаются по возможности:
	// их потеря не влияет на корректность, только на объём хранилища.
	for _, postID := range ids {
		s.cleanupPost(ctx, postID)
	}
	return len(ids), nil
}

func (s *Service) cleanupPost(ctx context.Context, postID string) {
	if comments, err := s.comments.ListByPost(ctx, postID); err != nil {
		s.log.Warn().Err(err).Str("post_id", postID).Msg("свипер: выборка комментариев не удалась")
	} else if len(comments) > 0 {
		ids := make([]string, 0, len(comments))
		for _, comment := range comments {
			ids = append(ids, comment.ID)
		}
		if err := s.comments.BatchDelete(ctx, ids); err != nil {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("свипер: удаление комментариев не удалось")
		}
	}
	if likes, err := s.likes.ListByPost(ctx, postID); err != nil {
		s.log.Warn().Err(err).Str("post_id", postID).Msg("свипер: выборка лайков не удалась")
	} else if len(likes) > 0 {
		ids := make([]string, 0, len(likes))
		for _, like := range likes {
			ids = append(ids, like.ID)
		}
		if err := s.likes.BatchDelete(ctx, ids); err != nil {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("свипер: удаление лайков не удалось")
		}
	}
}
