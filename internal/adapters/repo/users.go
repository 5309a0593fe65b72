package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photowall/internal/adapters/docstore"
	"photowall/internal/domain"
)

// Users реализует domain.UserRepo поверх документного хранилища.
type Users struct {
	store docstore.Store
}

var _ domain.UserRepo = (*Users)(nil)

// NewUsers создаёт репозиторий пользователей.
func NewUsers(store docstore.Store) *Users {
	return &Users{store: store}
}

type userDoc struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Bio        string   `json:"bio"`
	Roles      []string `json:"roles"`
	PushTokens []string `json:"pushTokens"`
}

func decodeUser(raw docstore.Document) (domain.User, error) {
	var doc userDoc
	if err := json.Unmarshal(raw.Data, &doc); err != nil {
		return domain.User{}, fmt.Errorf("декодирование пользователя %s: %w", raw.ID, err)
	}
	roles := make([]domain.UserRole, 0, len(doc.Roles))
	for _, role := range doc.Roles {
		roles = append(roles, domain.UserRole(role))
	}
	return domain.User{
		ID:         raw.ID,
		Name:       doc.Name,
		Email:      doc.Email,
		Bio:        doc.Bio,
		Roles:      roles,
		PushTokens: doc.PushTokens,
	}, nil
}

func encodeUser(user domain.User) ([]byte, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return json.Marshal(userDoc{
		Name:       user.Name,
		Email:      user.Email,
		Bio:        user.Bio,
		Roles:      roles,
		PushTokens: user.PushTokens,
	})
}

// GetByID возвращает пользователя по идентификатору.
func (r *Users) GetByID(ctx context.Context, id string) (domain.User, error) {
	doc, err := r.store.GetByID(ctx, collUsers, id)
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return decodeUser(doc)
}

// FindByRole возвращает пользователей, у которых есть указанная роль.
func (r *Users) FindByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	docs, err := r.store.Find(ctx, collUsers, docstore.Query{
		Conds: []docstore.Cond{{Field: "roles", Op: docstore.OpContains, Value: []string{string(role)}}},
	})
	if err != nil {
		return nil, fmt.Errorf("выборка пользователей по роли: %w", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Update заменяет данные пользователя целиком.
func (r *Users) Update(ctx context.Context, user domain.User) (domain.User, error) {
	data, err := encodeUser(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("кодирование пользователя: %w", err)
	}
	if err := r.store.Update(ctx, collUsers, user.ID, data); err != nil {
		return domain.User{}, mapErr(err)
	}
	return user, nil
}
