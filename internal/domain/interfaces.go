package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound возвращается репозиториями, когда запись отсутствует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalid возвращается при некорректных входных данных операции.
	ErrInvalid = errors.New("некорректные данные")
	// ErrForbidden возвращается, когда операция не разрешена пользователю.
	ErrForbidden = errors.New("операция запрещена")
)

// PostRepo управляет публикациями.
type PostRepo interface {
	ListPage(ctx context.Context, limit, offset int) ([]Post, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id string) (Post, error)
	Create(ctx context.Context, post Post) (Post, error)
	Update(ctx context.Context, post Post) (Post, error)
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]Post, error)
	BatchDelete(ctx context.Context, ids []string) error
}

// CommentRepo управляет комментариями.
type CommentRepo interface {
	Create(ctx context.Context, comment Comment) (Comment, error)
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	Delete(ctx context.Context, id string) error
	BatchDelete(ctx context.Context, ids []string) error
}

// LikeRepo управляет лайками.
type LikeRepo interface {
	Create(ctx context.Context, like Like) (Like, error)
	Exists(ctx context.Context, postID, userID string) (bool, error)
	DeleteByPostAndUser(ctx context.Context, postID, userID string) error
	ListByPost(ctx context.Context, postID string) ([]Like, error)
	CountByPost(ctx context.Context, postID string) (int, error)
	BatchDelete(ctx context.Context, ids []string) error
}

// UserRepo управляет пользователями.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (User, error)
	FindByRole(ctx context.Context, role UserRole) ([]User, error)
	Update(ctx context.Context, user User) (User, error)
}

// PushGateway отправляет пуш-уведомления батчами.
// Провайдер принимает не более 500 токенов за вызов.
type PushGateway interface {
	SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// NotificationQueue — очередь заданий на рассылку.
type NotificationQueue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	Pop(ctx context.Context) (NotificationJob, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
