package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photowall/internal/adapters/docstore"
	"photowall/internal/domain"
)

// Likes реализует domain.LikeRepo поверх документного хранилища.
type Likes struct {
	store docstore.Store
}

var _ domain.LikeRepo = (*Likes)(nil)

// NewLikes создаёт репозиторий лайков.
func NewLikes(store docstore.Store) *Likes {
	return &Likes{store: store}
}

type likeDoc struct {
	PostID    string `json:"postId"`
	UserID    string `json:"userId"`
	CreatedAt int64  `json:"createdAt"`
}

func decodeLike(raw docstore.Document) (domain.Like, error) {
	var doc likeDoc
	if err := json.Unmarshal(raw.Data, &doc); err != nil {
		return domain.Like{}, fmt.Errorf("декодирование лайка %s: %w", raw.ID, err)
	}
	return domain.Like{
		ID:        raw.ID,
		PostID:    doc.PostID,
		UserID:    doc.UserID,
		CreatedAt: msToTime(doc.CreatedAt),
	}, nil
}

func condsByPostAndUser(postID, userID string) []docstore.Cond {
	return []docstore.Cond{
		{Field: "postId", Op: docstore.OpEq, Value: postID},
		{Field: "userId", Op: docstore.OpEq, Value: userID},
	}
}

// Create сохраняет новый лайк.
func (r *Likes) Create(ctx context.Context, like domain.Like) (domain.Like, error) {
	data, err := json.Marshal(likeDoc{
		PostID:    like.PostID,
		UserID:    like.UserID,
		CreatedAt: timeToMs(like.CreatedAt),
	})
	if err != nil {
		return domain.Like{}, fmt.Errorf("кодирование лайка: %w", err)
	}
	doc, err := r.store.Create(ctx, collLikes, data)
	if err != nil {
		return domain.Like{}, fmt.Errorf("создание лайка: %w", err)
	}
	like.ID = doc.ID
	return like, nil
}

// Exists сообщает, поставил ли пользователь лайк публикации.
func (r *Likes) Exists(ctx context.Context, postID, userID string) (bool, error) {
	count, err := r.store.Count(ctx, collLikes, condsByPostAndUser(postID, userID))
	if err != nil {
		return false, fmt.Errorf("проверка лайка: %w", err)
	}
	return count > 0, nil
}

// DeleteByPostAndUser снимает лайк пользователя с публикации.
func (r *Likes) DeleteByPostAndUser(ctx context.Context, postID, userID string) error {
	docs, err := r.store.Find(ctx, collLikes, docstore.Query{Conds: condsByPostAndUser(postID, userID)})
	if err != nil {
		return fmt.Errorf("выборка лайков: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return r.store.BatchDelete(ctx, collLikes, ids)
}

// ListByPost возвращает лайки публикации.
func (r *Likes) ListByPost(ctx context.Context, postID string) ([]domain.Like, error) {
	docs, err := r.store.Find(ctx, collLikes, docstore.Query{
		Conds: []docstore.Cond{{Field: "postId", Op: docstore.OpEq, Value: postID}},
	})
	if err != nil {
		return nil, fmt.Errorf("выборка лайков: %w", err)
	}
	likes := make([]domain.Like, 0, len(docs))
	for _, doc := range docs {
		like, err := decodeLike(doc)
		if err != nil {
			return nil, err
		}
		likes = append(likes, like)
	}
	return likes, nil
}

// CountByPost возвращает число лайков публикации.
func (r *Likes) CountByPost(ctx context.Context, postID string) (int, error) {
	return r.store.Count(ctx, collLikes, []docstore.Cond{{Field: "postId", Op: docstore.OpEq, Value: postID}})
}

// BatchDelete удаляет лайки одним пакетом.
func (r *Likes) BatchDelete(ctx context.Context, ids []string) error {
	return r.store.BatchDelete(ctx, collLikes, ids)
}
