package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

type stubPosts struct {
	posts     []domain.Post
	listErr   error
	countErr  error
	gotLimit  int
	gotOffset int
}

func (s *stubPosts) ListPage(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	s.gotLimit = limit
	s.gotOffset = offset
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.posts, nil
}

func (s *stubPosts) Count(ctx context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.posts), nil
}

func (s *stubPosts) GetByID(ctx context.Context, id string) (domain.Post, error) {
	return domain.Post{}, domain.ErrNotFound
}

func (s *stubPosts) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	return post, nil
}

func (s *stubPosts) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	return post, nil
}

func (s *stubPosts) Delete(ctx context.Context, id string) error { return nil }

func (s *stubPosts) ListExpired(ctx context.Context, now time.Time) ([]domain.Post, error) {
	return nil, nil
}

func (s *stubPosts) BatchDelete(ctx context.Context, ids []string) error { return nil }

type stubComments struct {
	byPost map[string][]domain.Comment
	errFor map[string]error
}

func (s *stubComments) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	return comment, nil
}

func (s *stubComments) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	if err := s.errFor[postID]; err != nil {
		return nil, err
	}
	return s.byPost[postID], nil
}

func (s *stubComments) Delete(ctx context.Context, id string) error { return nil }

func (s *stubComments) BatchDelete(ctx context.Context, ids []string) error { return nil }

type stubLikes struct {
	byPost map[string][]domain.Like
	errFor map[string]error
}

func (s *stubLikes) Create(ctx context.Context, like domain.Like) (domain.Like, error) {
	return like, nil
}

func (s *stubLikes) Exists(ctx context.Context, postID, userID string) (bool, error) {
	return false, nil
}

func (s *stubLikes) DeleteByPostAndUser(ctx context.Context, postID, userID string) error {
	return nil
}

func (s *stubLikes) ListByPost(ctx context.Context, postID string) ([]domain.Like, error) {
	if err := s.errFor[postID]; err != nil {
		return nil, err
	}
	return s.byPost[postID], nil
}

func (s *stubLikes) CountByPost(ctx context.Context, postID string) (int, error) {
	return len(s.byPost[postID]), nil
}

func (s *stubLikes) BatchDelete(ctx context.Context, ids []string) error { return nil }

type stubUsers struct {
	users  map[string]domain.User
	errFor map[string]error
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	if err := s.errFor[id]; err != nil {
		return domain.User{}, err
	}
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (s *stubUsers) FindByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	return nil, nil
}

func (s *stubUsers) Update(ctx context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

func fixedTime() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func testPosts(n int) []domain.Post {
	now := fixedTime()
	posts := make([]domain.Post, 0, n)
	for i := 0; i < n; i++ {
		created := now.Add(-time.Duration(i+1) * time.Hour)
		posts = append(posts, domain.Post{
			ID:        "post-" + string(rune('a'+i)),
			UserID:    "author-1",
			Image:     "https://example.com/img.jpg",
			Kind:      domain.PostKindPermanent,
			CreatedAt: created,
			EditedAt:  created,
		})
	}
	return posts
}

func newTestService(posts *stubPosts, comments *stubComments, likes *stubLikes, users *stubUsers) *Service {
	svc := NewService(posts, comments, likes, users, nil, zerolog.Nop(), 50, 0)
	svc.now = fixedTime
	return svc
}

func TestGetPageLikeFailureIsolated(t *testing.T) {
	posts := &stubPosts{posts: testPosts(3)}
	likes := &stubLikes{
		byPost: map[string][]domain.Like{
			"post-a": {{ID: "l1", PostID: "post-a", UserID: "user-1"}, {ID: "l2", PostID: "post-a", UserID: "user-2"}},
			"post-c": {{ID: "l3", PostID: "post-c", UserID: "user-3"}},
		},
		errFor: map[string]error{"post-b": errors.New("хранилище недоступно")},
	}
	users := &stubUsers{users: map[string]domain.User{"author-1": {ID: "author-1", Name: "Ана"}}}
	svc := newTestService(posts, &stubComments{}, likes, users)

	page, err := svc.GetPage(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("сбой одной ветви не должен терять записи: ожидали 3, получили %d", len(page.Items))
	}
	byID := map[string]domain.FeedEntry{}
	for _, item := range page.Items {
		byID[item.Post.ID] = item
	}
	if byID["post-b"].Likes != 0 {
		t.Errorf("запись со сбойной ветвью должна иметь 0 лайков, получили %d", byID["post-b"].Likes)
	}
	if byID["post-a"].Likes != 2 || byID["post-c"].Likes != 1 {
		t.Errorf("остальные записи не должны страдать: %d и %d", byID["post-a"].Likes, byID["post-c"].Likes)
	}
}

func TestGetPageTopLevelFailureReturnsEmptyPage(t *testing.T) {
	posts := &stubPosts{listErr: errors.New("хранилище недоступно")}
	svc := newTestService(posts, &stubComments{}, &stubLikes{}, &stubUsers{})

	page, err := svc.GetPage(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("сбой базовой выборки не должен отдавать ошибку: %v", err)
	}
	if len(page.Items) != 0 || page.Total != 0 {
		t.Errorf("ожидали пустую страницу, получили %d записей и total=%d", len(page.Items), page.Total)
	}
	if page.Items == nil {
		t.Error("список записей должен быть пустым, а не nil")
	}
}

func TestGetPageAuthorFailureGivesNilAuthor(t *testing.T) {
	posts := &stubPosts{posts: testPosts(1)}
	users := &stubUsers{errFor: map[string]error{"author-1": errors.New("хранилище недоступно")}}
	svc := newTestService(posts, &stubComments{}, &stubLikes{}, users)

	page, err := svc.GetPage(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("ожидали 1 запись, получили %d", len(page.Items))
	}
	if page.Items[0].Author != nil {
		t.Error("при сбое ветви автора карточка должна остаться пустой")
	}
}

func TestGetPageClampsLimit(t *testing.T) {
	posts := &stubPosts{}
	svc := newTestService(posts, &stubComments{}, &stubLikes{}, &stubUsers{})

	page, err := svc.GetPage(context.Background(), 500, 50)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if posts.gotLimit != 50 {
		t.Errorf("размер страницы должен обрезаться до 50, получили %d", posts.gotLimit)
	}
	if posts.gotOffset != 50 {
		t.Errorf("смещение должно передаваться как есть, получили %d", posts.gotOffset)
	}
	if page.Page != 2 || page.PerPage != 50 {
		t.Errorf("номер страницы производный от среза: ожидали 2/50, получили %d/%d", page.Page, page.PerPage)
	}
}

func TestGetPagePassesRawOffset(t *testing.T) {
	// Смещение не обязано делиться на размер страницы.
	posts := &stubPosts{}
	svc := newTestService(posts, &stubComments{}, &stubLikes{}, &stubUsers{})

	page, err := svc.GetPage(context.Background(), 10, 23)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if posts.gotLimit != 10 || posts.gotOffset != 23 {
		t.Errorf("срез должен доходить до хранилища без изменений, получили %d/%d", posts.gotLimit, posts.gotOffset)
	}
	if page.Page != 3 {
		t.Errorf("ожидали производный номер страницы 3, получили %d", page.Page)
	}
}

func TestGetPageFillsEntry(t *testing.T) {
	now := fixedTime()
	post := domain.Post{
		ID:        "post-a",
		UserID:    "author-1",
		Kind:      domain.PostKindPermanent,
		CreatedAt: now.Add(-2 * time.Hour),
		EditedAt:  now.Add(-90 * time.Second),
	}
	posts := &stubPosts{posts: []domain.Post{post}}
	comments := &stubComments{byPost: map[string][]domain.Comment{
		"post-a": {{ID: "c1", PostID: "post-a", UserID: "user-1", Content: "здорово"}},
	}}
	likes := &stubLikes{byPost: map[string][]domain.Like{
		"post-a": {{ID: "l1", PostID: "post-a", UserID: "user-2"}},
	}}
	users := &stubUsers{users: map[string]domain.User{"author-1": {ID: "author-1", Name: "Ана"}}}
	svc := newTestService(posts, comments, likes, users)

	page, err := svc.GetPage(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("ожидали 1 запись, получили %d", len(page.Items))
	}
	entry := page.Items[0]
	if entry.Author == nil || entry.Author.Name != "Ана" {
		t.Errorf("карточка автора собрана неверно: %+v", entry.Author)
	}
	if len(entry.Comments) != 1 {
		t.Errorf("ожидали 1 комментарий, получили %d", len(entry.Comments))
	}
	if entry.Likes != 1 || len(entry.LikeUserIDs) != 1 || entry.LikeUserIDs[0] != "user-2" {
		t.Errorf("лайки собраны неверно: %d, %v", entry.Likes, entry.LikeUserIDs)
	}
	// Возраст считается от более поздней метки: правки, а не создания.
	if entry.RelativeAge != "2 minutes" {
		t.Errorf("ожидали возраст по метке правки, получили %q", entry.RelativeAge)
	}
	if page.Total != 1 {
		t.Errorf("ожидали total=1, получили %d", page.Total)
	}
}
