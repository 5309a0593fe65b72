package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

type memPosts struct {
	mu    sync.Mutex
	posts map[string]domain.Post
	seq   int
}

func newMemPosts() *memPosts {
	return &memPosts{posts: map[string]domain.Post{}}
}

func (s *memPosts) ListPage(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	return nil, nil
}

func (s *memPosts) Count(ctx context.Context) (int, error) { return len(s.posts), nil }

func (s *memPosts) GetByID(ctx context.Context, id string) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return post, nil
}

func (s *memPosts) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	post.ID = fmt.Sprintf("post-%d", s.seq)
	s.posts[post.ID] = post
	return post, nil
}

func (s *memPosts) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	s.posts[post.ID] = post
	return post, nil
}

func (s *memPosts) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *memPosts) ListExpired(ctx context.Context, now time.Time) ([]domain.Post, error) {
	return nil, nil
}

func (s *memPosts) BatchDelete(ctx context.Context, ids []string) error { return nil }

type memComments struct {
	byID map[string]domain.Comment
	seq  int
}

func newMemComments() *memComments {
	return &memComments{byID: map[string]domain.Comment{}}
}

func (s *memComments) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	s.seq++
	comment.ID = fmt.Sprintf("comment-%d", s.seq)
	s.byID[comment.ID] = comment
	return comment, nil
}

func (s *memComments) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range s.byID {
		if comment.PostID == postID {
			result = append(result, comment)
		}
	}
	return result, nil
}

func (s *memComments) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memComments) BatchDelete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(s.byID, id)
	}
	return nil
}

type memLikes struct {
	byID map[string]domain.Like
}

func newMemLikes() *memLikes {
	return &memLikes{byID: map[string]domain.Like{}}
}

func (s *memLikes) Create(ctx context.Context, like domain.Like) (domain.Like, error) {
	return like, nil
}

func (s *memLikes) Exists(ctx context.Context, postID, userID string) (bool, error) {
	return false, nil
}

func (s *memLikes) DeleteByPostAndUser(ctx context.Context, postID, userID string) error {
	return nil
}

func (s *memLikes) ListByPost(ctx context.Context, postID string) ([]domain.Like, error) {
	var result []domain.Like
	for _, like := range s.byID {
		if like.PostID == postID {
			result = append(result, like)
		}
	}
	return result, nil
}

func (s *memLikes) CountByPost(ctx context.Context, postID string) (int, error) { return 0, nil }

func (s *memLikes) BatchDelete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(s.byID, id)
	}
	return nil
}

type memUsers struct {
	users map[string]domain.User
}

func (s *memUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (s *memUsers) FindByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	return nil, nil
}

func (s *memUsers) Update(ctx context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

type stubNotifier struct {
	jobs chan domain.NotificationJob
	err  error
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{jobs: make(chan domain.NotificationJob, 4)}
}

func (s *stubNotifier) Dispatch(ctx context.Context, job domain.NotificationJob) error {
	s.jobs <- job
	return s.err
}

func (s *stubNotifier) waitJob(t *testing.T) domain.NotificationJob {
	t.Helper()
	select {
	case job := <-s.jobs:
		return job
	case <-time.After(2 * time.Second):
		t.Fatal("уведомление так и не было отправлено")
		return domain.NotificationJob{}
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func organizerUsers() *memUsers {
	return &memUsers{users: map[string]domain.User{
		"org-1":  {ID: "org-1", Name: "Ана", Roles: []domain.UserRole{domain.UserRoleOrganizer}},
		"part-1": {ID: "part-1", Name: "Лус", Roles: []domain.UserRole{domain.UserRoleParticipant}},
	}}
}

func newTestService(posts *memPosts, comments *memComments, likes *memLikes, notifier Notifier) *Service {
	svc := NewService(posts, comments, likes, organizerUsers(), notifier, zerolog.Nop())
	svc.now = fixedNow
	return svc
}

func TestPublishStampsEphemeralExpiry(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	post, err := svc.Publish(context.Background(), PublishInput{
		UserID: "org-1",
		Image:  "https://example.com/story.jpg",
		Kind:   domain.PostKindEphemeral,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if post.ExpiresAt == nil {
		t.Fatal("история должна получить срок жизни")
	}
	want := fixedNow().Add(domain.EphemeralTTL)
	if !post.ExpiresAt.Equal(want) {
		t.Errorf("ожидали срок %v, получили %v", want, *post.ExpiresAt)
	}
}

func TestPublishIgnoresExpiryForPermanent(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	explicit := fixedNow().Add(time.Hour)
	post, err := svc.Publish(context.Background(), PublishInput{
		UserID:    "org-1",
		Image:     "https://example.com/photo.jpg",
		Kind:      domain.PostKindPermanent,
		ExpiresAt: &explicit,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if post.ExpiresAt != nil {
		t.Errorf("обычная публикация не должна иметь срока жизни, получили %v", *post.ExpiresAt)
	}
}

func TestPublishHonorsExplicitExpiry(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	explicit := fixedNow().Add(2 * time.Hour)
	post, err := svc.Publish(context.Background(), PublishInput{
		UserID:    "org-1",
		Image:     "https://example.com/story.jpg",
		Kind:      domain.PostKindEphemeral,
		ExpiresAt: &explicit,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if post.ExpiresAt == nil || !post.ExpiresAt.Equal(explicit) {
		t.Errorf("явный срок должен сохраняться как есть, получили %v", post.ExpiresAt)
	}
}

func TestPublishRequiresOrganizer(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	_, err := svc.Publish(context.Background(), PublishInput{
		UserID: "part-1",
		Image:  "https://example.com/photo.jpg",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ожидали ErrForbidden, получили %v", err)
	}
}

func TestPublishNotifiesParticipants(t *testing.T) {
	notifier := newStubNotifier()
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), notifier)

	post, err := svc.Publish(context.Background(), PublishInput{
		UserID: "org-1",
		Image:  "https://example.com/photo.jpg",
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	job := notifier.waitJob(t)
	if job.Role != domain.UserRoleParticipant {
		t.Errorf("уведомление должно адресоваться участникам, получили %q", job.Role)
	}
	if job.PostID != post.ID {
		t.Errorf("уведомление должно ссылаться на публикацию %s, получили %s", post.ID, job.PostID)
	}
}

func TestPublishSucceedsWhenNotifierFails(t *testing.T) {
	notifier := newStubNotifier()
	notifier.err = errors.New("провайдер недоступен")
	posts := newMemPosts()
	svc := newTestService(posts, newMemComments(), newMemLikes(), notifier)

	post, err := svc.Publish(context.Background(), PublishInput{
		UserID: "org-1",
		Image:  "https://example.com/photo.jpg",
	})
	if err != nil {
		t.Fatalf("сбой рассылки не должен ломать публикацию: %v", err)
	}
	notifier.waitJob(t)
	if _, err := posts.GetByID(context.Background(), post.ID); err != nil {
		t.Fatalf("публикация должна сохраниться: %v", err)
	}
}

func TestUpdateRefreshesEditKeepsExpiry(t *testing.T) {
	posts := newMemPosts()
	svc := newTestService(posts, newMemComments(), newMemLikes(), nil)

	created, err := svc.Publish(context.Background(), PublishInput{
		UserID: "org-1",
		Image:  "https://example.com/story.jpg",
		Kind:   domain.PostKindEphemeral,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	later := fixedNow().Add(10 * time.Minute)
	svc.now = func() time.Time { return later }
	description := "подпись"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Description: &description})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !updated.EditedAt.Equal(later) {
		t.Errorf("метка правки должна обновиться: %v", updated.EditedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("метка создания меняться не должна")
	}
	if updated.ExpiresAt == nil || !updated.ExpiresAt.Equal(*created.ExpiresAt) {
		t.Error("срок жизни при правке не трогается")
	}
	if updated.Description != "подпись" {
		t.Errorf("описание не применилось: %q", updated.Description)
	}
}

func TestDeleteCascades(t *testing.T) {
	posts := newMemPosts()
	comments := newMemComments()
	likes := newMemLikes()
	svc := newTestService(posts, comments, likes, nil)

	created, err := svc.Publish(context.Background(), PublishInput{
		UserID: "org-1",
		Image:  "https://example.com/photo.jpg",
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := svc.AddComment(context.Background(), created.ID, "part-1", "класс"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	likes.byID["l1"] = domain.Like{ID: "l1", PostID: created.ID, UserID: "part-1"}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := posts.GetByID(context.Background(), created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("публикация должна быть удалена")
	}
	if got, _ := comments.ListByPost(context.Background(), created.ID); len(got) != 0 {
		t.Errorf("комментарии должны подчищаться, осталось %d", len(got))
	}
	if got, _ := likes.ListByPost(context.Background(), created.ID); len(got) != 0 {
		t.Errorf("лайки должны подчищаться, осталось %d", len(got))
	}
}

func TestDeleteUnknownPost(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestDeleteCommentUnknown(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	if err := svc.DeleteComment(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestAddCommentUnknownPost(t *testing.T) {
	svc := newTestService(newMemPosts(), newMemComments(), newMemLikes(), nil)

	_, err := svc.AddComment(context.Background(), "missing", "part-1", "текст")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}
