package feed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
	"photowall/internal/infra/metrics"
)

// DefaultMaxPerPage — потолок размера страницы ленты. Запрошенный размер
// обрезается сверху, чтобы ограничить стоимость сборки одного запроса.
const DefaultMaxPerPage = 50

const authorCacheKeyPrefix = "feed:author:"

// Service собирает денормализованную ленту публикаций. Каждая запись
// строится заново на каждый запрос; сбой отдельной ветви (комментарии,
// лайки, автор) заменяется безопасным значением по умолчанию, сбой всей
// записи приводит к её пропуску, а не к ошибке страницы.
type Service struct {
	posts    domain.PostRepo
	comments domain.CommentRepo
	likes    domain.LikeRepo
	users    domain.UserRepo
	cache    domain.Cache
	log      zerolog.Logger

	maxPerPage int
	authorTTL  time.Duration
	now        func() time.Time
}

// NewService создаёт сборщик ленты. Кэш cache опционален и используется
// только для карточек авторов.
func NewService(
	posts domain.PostRepo,
	comments domain.CommentRepo,
	likes domain.LikeRepo,
	users domain.UserRepo,
	cache domain.Cache,
	logger zerolog.Logger,
	maxPerPage int,
	authorTTL time.Duration,
) *Service {
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPerPage
	}
	return &Service{
		posts:      posts,
		comments:   comments,
		likes:      likes,
		users:      users,
		cache:      cache,
		log:        logger,
		maxPerPage: maxPerPage,
		authorTTL:  authorTTL,
		now:        time.Now,
	}
}

// GetPage возвращает страницу ленты по срезу limit/offset. Номер
// страницы в ответе производный: offset/limit + 1. Сбой базовой выборки
// публикаций даёт пустую страницу, а не ошибку: лента всегда должна
// отрисоваться, пусть и деградированной.
func (s *Service) GetPage(ctx context.Context, limit, offset int) (domain.FeedPage, error) {
	start := time.Now()
	defer func() {
		metrics.FeedBuildSeconds.Observe(time.Since(start).Seconds())
	}()

	if limit < 1 || limit > s.maxPerPage {
		limit = s.maxPerPage
	}
	if offset < 0 {
		offset = 0
	}
	result := domain.FeedPage{
		Items:   []domain.FeedEntry{},
		Page:    offset/limit + 1,
		PerPage: limit,
	}

	posts, err := s.posts.ListPage(ctx, limit, offset)
	if err != nil {
		s.log.Error().Err(err).Int("offset", offset).Msg("лента: выборка страницы не удалась, отдаём пустую")
		return result, nil
	}
	total, err := s.posts.Count(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("лента: подсчёт публикаций не удался")
		total = 0
	}
	result.Total = total

	now := s.now().UTC()
	for _, post := range posts {
		entry, ok := s.buildEntry(ctx, post, now)
		if !ok {
			metrics.FeedItemsSkipped.Inc()
			continue
		}
		result.Items = append(result.Items, entry)
	}
	return result, nil
}

// buildEntry собирает одну запись ленты. Три ветви выполняются
// параллельно и пишут каждая в своё поле записи.
func (s *Service) buildEntry(ctx context.Context, post domain.Post, now time.Time) (domain.FeedEntry, bool) {
	entry := domain.FeedEntry{
		Post:        post,
		Comments:    []domain.Comment{},
		LikeUserIDs: []string{},
	}

	var failed atomic.Bool
	var wg sync.WaitGroup
	branch := func(name string, fn func() error) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				failed.Store(true)
				s.log.Error().Interface("panic", r).Str("post_id", post.ID).Str("branch", name).Msg("лента: сборка записи прервана")
			}
		}()
		if err := fn(); err != nil {
			metrics.IncFeedJoinFailure(name)
			s.log.Warn().Err(err).Str("post_id", post.ID).Str("branch", name).Msg("лента: ветвь заменена значением по умолчанию")
		}
	}

	wg.Add(3)
	go branch("comments", func() error {
		comments, err := s.comments.ListByPost(ctx, post.ID)
		if err != nil {
			return err
		}
		if comments != nil {
			entry.Comments = comments
		}
		return nil
	})
	go branch("likes", func() error {
		likes, err := s.likes.ListByPost(ctx, post.ID)
		if err != nil {
			return err
		}
		entry.Likes = len(likes)
		userIDs := make([]string, 0, len(likes))
		for _, like := range likes {
			userIDs = append(userIDs, like.UserID)
		}
		entry.LikeUserIDs = userIDs
		return nil
	})
	go branch("author", func() error {
		author, err := s.authorSummary(ctx, post.UserID)
		if err != nil {
			return err
		}
		entry.Author = author
		return nil
	})
	wg.Wait()

	if failed.Load() {
		return domain.FeedEntry{}, false
	}

	ts := post.CreatedAt
	if post.EditedAt.After(ts) {
		ts = post.EditedAt
	}
	entry.RelativeAge = RelativeAge(ts, now)
	return entry, true
}

func (s *Service) authorSummary(ctx context.Context, userID string) (*domain.AuthorSummary, error) {
	key := authorCacheKeyPrefix + userID
	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil && len(raw) > 0 {
			var summary domain.AuthorSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return &summary, nil
			}
		}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := domain.AuthorSummary{ID: user.ID, Name: user.Name}
	if s.cache != nil && s.authorTTL > 0 {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(key, raw, s.authorTTL); err != nil {
				s.log.Debug().Err(err).Str("user_id", userID).Msg("лента: кэш автора недоступен")
			}
		}
	}
	return &summary, nil
}
