package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"photowall/internal/adapters/docstore"
	"photowall/internal/domain"
)

// Posts реализует domain.PostRepo поверх документного хранилища.
type Posts struct {
	store docstore.Store
}

var _ domain.PostRepo = (*Posts)(nil)

// NewPosts создаёт репозиторий публикаций.
func NewPosts(store docstore.Store) *Posts {
	return &Posts{store: store}
}

type postDoc struct {
	UserID      string `json:"userId"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	CreatedAt   int64  `json:"createdAt"`
	EditedAt    int64  `json:"editedAt"`
	ExpiresAt   *int64 `json:"expiresAt,omitempty"`
}

func encodePost(post domain.Post) ([]byte, error) {
	doc := postDoc{
		UserID:      post.UserID,
		Image:       post.Image,
		Description: post.Description,
		Kind:        string(post.Kind),
		CreatedAt:   timeToMs(post.CreatedAt),
		EditedAt:    timeToMs(post.EditedAt),
	}
	if post.ExpiresAt != nil {
		ms := timeToMs(*post.ExpiresAt)
		doc.ExpiresAt = &ms
	}
	return json.Marshal(doc)
}

func decodePost(raw docstore.Document) (domain.Post, error) {
	var doc postDoc
	if err := json.Unmarshal(raw.Data, &doc); err != nil {
		return domain.Post{}, fmt.Errorf("декодирование публикации %s: %w", raw.ID, err)
	}
	post := domain.Post{
		ID:          raw.ID,
		UserID:      doc.UserID,
		Image:       doc.Image,
		Description: doc.Description,
		Kind:        domain.PostKind(doc.Kind),
		CreatedAt:   msToTime(doc.CreatedAt),
		EditedAt:    msToTime(doc.EditedAt),
	}
	if doc.ExpiresAt != nil {
		t := msToTime(*doc.ExpiresAt)
		post.ExpiresAt = &t
	}
	return post, nil
}

// ListPage возвращает страницу публикаций от новых к старым.
func (r *Posts) ListPage(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	docs, err := r.store.Find(ctx, collPosts, docstore.Query{
		OrderBy: "createdAt",
		Numeric: true,
		Desc:    true,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("выборка публикаций: %w", err)
	}
	posts := make([]domain.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := decodePost(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Count возвращает общее число публикаций.
func (r *Posts) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx, collPosts, nil)
}

// GetByID возвращает публикацию по идентификатору.
func (r *Posts) GetByID(ctx context.Context, id string) (domain.Post, error) {
	doc, err := r.store.GetByID(ctx, collPosts, id)
	if err != nil {
		return domain.Post{}, mapErr(err)
	}
	return decodePost(doc)
}

// Create сохраняет новую публикацию.
func (r *Posts) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	data, err := encodePost(post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("кодирование публикации: %w", err)
	}
	doc, err := r.store.Create(ctx, collPosts, data)
	if err != nil {
		return domain.Post{}, fmt.Errorf("создание публикации: %w", err)
	}
	post.ID = doc.ID
	return post, nil
}

// Update заменяет публикацию целиком.
func (r *Posts) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	data, err := encodePost(post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("кодирование публикации: %w", err)
	}
	if err := r.store.Update(ctx, collPosts, post.ID, data); err != nil {
		return domain.Post{}, mapErr(err)
	}
	return post, nil
}

// Delete удаляет публикацию. Отсутствие публикации — domain.ErrNotFound.
func (r *Posts) Delete(ctx context.Context, id string) error {
	return mapErr(r.store.Delete(ctx, collPosts, id))
}

// ListExpired возвращает эфемерные публикации с истёкшим сроком жизни.
func (r *Posts) ListExpired(ctx context.Context, now time.Time) ([]domain.Post, error) {
	docs, err := r.store.Find(ctx, collPosts, docstore.Query{
		Conds: []docstore.Cond{
			{Field: "kind", Op: docstore.OpEq, Value: string(domain.PostKindEphemeral)},
			{Field: "expiresAt", Op: docstore.OpLte, Value: now},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("выборка истёкших публикаций: %w", err)
	}
	posts := make([]domain.Post, 0, len(docs))
	for _, doc := range docs {
		post, err := decodePost(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// BatchDelete удаляет публикации одним пакетом.
func (r *Posts) BatchDelete(ctx context.Context, ids []string) error {
	return r.store.BatchDelete(ctx, collPosts, ids)
}
