package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photowall/internal/adapters/docstore"
	"photowall/internal/domain"
)

// Comments реализует domain.CommentRepo поверх документного хранилища.
type Comments struct {
	store docstore.Store
}

var _ domain.CommentRepo = (*Comments)(nil)

// NewComments создаёт репозиторий комментариев.
func NewComments(store docstore.Store) *Comments {
	return &Comments{store: store}
}

type commentDoc struct {
	PostID    string `json:"postId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

func decodeComment(raw docstore.Document) (domain.Comment, error) {
	var doc commentDoc
	if err := json.Unmarshal(raw.Data, &doc); err != nil {
		return domain.Comment{}, fmt.Errorf("декодирование комментария %s: %w", raw.ID, err)
	}
	return domain.Comment{
		ID:        raw.ID,
		PostID:    doc.PostID,
		UserID:    doc.UserID,
		Content:   doc.Content,
		CreatedAt: msToTime(doc.CreatedAt),
	}, nil
}

// Create сохраняет новый комментарий.
func (r *Comments) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	data, err := json.Marshal(commentDoc{
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: timeToMs(comment.CreatedAt),
	})
	if err != nil {
		return domain.Comment{}, fmt.Errorf("кодирование комментария: %w", err)
	}
	doc, err := r.store.Create(ctx, collComments, data)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("создание комментария: %w", err)
	}
	comment.ID = doc.ID
	return comment, nil
}

// ListByPost возвращает комментарии публикации от новых к старым.
func (r *Comments) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	docs, err := r.store.Find(ctx, collComments, docstore.Query{
		Conds:   []docstore.Cond{{Field: "postId", Op: docstore.OpEq, Value: postID}},
		OrderBy: "createdAt",
		Numeric: true,
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("выборка комментариев: %w", err)
	}
	comments := make([]domain.Comment, 0, len(docs))
	for _, doc := range docs {
		comment, err := decodeComment(doc)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// Delete удаляет комментарий. Отсутствие комментария — domain.ErrNotFound.
func (r *Comments) Delete(ctx context.Context, id string) error {
	return mapErr(r.store.Delete(ctx, collComments, id))
}

// BatchDelete удаляет комментарии одним пакетом.
func (r *Comments) BatchDelete(ctx context.Context, ids []string) error {
	return r.store.BatchDelete(ctx, collComments, ids)
}
