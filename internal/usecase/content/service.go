package content

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

// Notifier отправляет уведомление о событии контента. Вызовы совершаются
// после фиксации основной записи и никогда не влияют на её результат.
type Notifier interface {
	Dispatch(ctx context.Context, job domain.NotificationJob) error
}

const notifyTimeout = time.Minute

// Service управляет жизненным циклом публикаций и комментариев.
type Service struct {
	posts    domain.PostRepo
	comments domain.CommentRepo
	likes    domain.LikeRepo
	users    domain.UserRepo
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewService создаёт сервис контента. Notifier опционален.
func NewService(
	posts domain.PostRepo,
	comments domain.CommentRepo,
	likes domain.LikeRepo,
	users domain.UserRepo,
	notifier Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		posts:    posts,
		comments: comments,
		likes:    likes,
		users:    users,
		notifier: notifier,
		log:      logger,
		now:      time.Now,
	}
}

// PublishInput — данные новой публикации. Срок жизни ExpiresAt учитывается
// только для историй; для обычных публикаций он игнорируется.
type PublishInput struct {
	UserID      string
	Image       string
	Description string
	Kind        domain.PostKind
	ExpiresAt   *time.Time
}

// UpdateInput — частичное обновление публикации: nil-поле не меняется.
type UpdateInput struct {
	Image       *string
	Description *string
}

// Publish создаёт публикацию и рассылает уведомление участникам.
// Срок жизни проставляется в момент создания и дальше не меняется.
func (s *Service) Publish(ctx context.Context, in PublishInput) (domain.Post, error) {
	if in.UserID == "" || in.Image == "" {
		return domain.Post{}, fmt.Errorf("%w: автор и изображение обязательны", domain.ErrInvalid)
	}
	if in.Kind == "" {
		in.Kind = domain.PostKindPermanent
	}
	if in.Kind != domain.PostKindPermanent && in.Kind != domain.PostKindEphemeral {
		return domain.Post{}, fmt.Errorf("%w: неизвестный тип публикации %q", domain.ErrInvalid, in.Kind)
	}

	author, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return domain.Post{}, fmt.Errorf("выборка автора: %w", err)
	}
	if !author.IsOrganizer() {
		return domain.Post{}, fmt.Errorf("%w: публиковать может только организатор", domain.ErrForbidden)
	}

	now := s.now().UTC()
	post := domain.Post{
		UserID:      in.UserID,
		Image:       in.Image,
		Description: in.Description,
		Kind:        in.Kind,
		CreatedAt:   now,
		EditedAt:    now,
		ExpiresAt:   domain.StampExpiry(in.Kind, now, in.ExpiresAt),
	}
	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("создание публикации: %w", err)
	}

	s.notifyAsync(created.ID, "Новая публикация", author.Name+" опубликовал(а) новый контент", map[string]string{
		"event": "post_created",
	})
	return created, nil
}

// Get возвращает публикацию по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Update применяет правки к публикации. Метка правки обновляется,
// срок жизни не трогается.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if in.Image != nil {
		post.Image = *in.Image
	}
	if in.Description != nil {
		post.Description = *in.Description
	}
	post.EditedAt = s.now().UTC()

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("обновление публикации: %w", err)
	}

	s.notifyAsync(updated.ID, "Публикация обновлена", "Контент был изменён", map[string]string{
		"event": "post_updated",
	})
	return updated, nil
}

// Delete удаляет публикацию вместе с её комментариями и лайками.
// Подчистка зависимых записей — по возможности: её сбой не отменяет
// удаление самой публикации.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.posts.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("удаление публикации: %w", err)
	}
	s.cleanupPost(ctx, id)
	return nil
}

// AddComment добавляет комментарий к публикации.
func (s *Service) AddComment(ctx context.Context, postID, userID, text string) (domain.Comment, error) {
	if text == "" {
		return domain.Comment{}, fmt.Errorf("%w: пустой комментарий", domain.ErrInvalid)
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return domain.Comment{}, err
	}
	comment, err := s.comments.Create(ctx, domain.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   text,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Comment{}, fmt.Errorf("создание комментария: %w", err)
	}
	return comment, nil
}

// DeleteComment удаляет комментарий. Отсутствие комментария — domain.ErrNotFound.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	return s.comments.Delete(ctx, id)
}

func (s *Service) cleanupPost(ctx context.Context, postID string) {
	if comments, err := s.comments.ListByPost(ctx, postID); err != nil {
		s.log.Warn().Err(err).Str("post_id", postID).Msg("контент: выборка комментариев не удалась")
	} else if len(comments) > 0 {
		ids := make([]string, 0, len(comments))
		for _, comment := range comments {
			ids = append(ids, comment.ID)
		}
		if err := s.comments.BatchDelete(ctx, ids); err != nil {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("контент: удаление комментариев не удалось")
		}
	}
	if likes, err := s.likes.ListByPost(ctx, postID); err != nil {
		s.log.Warn().Err(err).Str("post_id", postID).Msg("контент: выборка лайков не удалась")
	} else if len(likes) > 0 {
		ids := make([]string, 0, len(likes))
		for _, like := range likes {
			ids = append(ids, like.ID)
		}
		if err := s.likes.BatchDelete(ctx, ids); err != nil {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("контент: удаление лайков не удалось")
		}
	}
}

// notifyAsync рассылает уведомление в фоне. Любая ошибка доставки
// проглатывается: уведомления носят рекомендательный характер и не
// должны влиять на путь записи.
func (s *Service) notifyAsync(postID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	job := domain.NotificationJob{
		PostID: postID,
		Role:   domain.UserRoleParticipant,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("контент: рассылка уведомления прервана")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Dispatch(ctx, job); err != nil {
			s.log.Error().Err(err).Str("title", title).Msg("контент: уведомление не отправлено")
		}
	}()
}
