package domain

import "time"

// PostKind определяет тип публикации.
type PostKind string

const (
	// PostKindPermanent — обычная публикация без срока жизни.
	PostKindPermanent PostKind = "PERMANENT"
	// PostKindEphemeral — история, автоматически удаляемая после истечения срока.
	PostKindEphemeral PostKind = "EPHEMERAL"
)

// Post представляет публикацию ленты.
type Post struct {
	ID          string
	UserID      string
	Image       string
	Description string
	Kind        PostKind
	CreatedAt   time.Time
	EditedAt    time.Time
	ExpiresAt   *time.Time
}

// Comment представляет комментарий к публикации. Неизменяем, кроме удаления.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// Like фиксирует отметку «нравится» от пользователя.
// Не более одной записи на пару (публикация, пользователь).
type Like struct {
	ID        string
	PostID    string
	UserID    string
	CreatedAt time.Time
}

// User описывает пользователя системы.
type User struct {
	ID         string
	Name       string
	Email      string
	Bio        string
	Roles      []UserRole
	PushTokens []string
}

// AuthorSummary — краткая карточка автора для ленты.
type AuthorSummary struct {
	ID   string
	Name string
}

// Recipient — получатель пуш-уведомления: пользователь и его токены устройств.
// Вычисляется на лету и нигде не хранится.
type Recipient struct {
	UserID string
	Tokens []string
}

// FeedEntry — денормализованная запись ленты, собираемая заново на каждый запрос.
type FeedEntry struct {
	Post        Post
	Author      *AuthorSummary
	Comments    []Comment
	Likes       int
	LikeUserIDs []string
	RelativeAge string
}

// FeedPage — страница ленты с общим числом публикаций.
type FeedPage struct {
	Items   []FeedEntry
	Total   int
	Page    int
	PerPage int
}
