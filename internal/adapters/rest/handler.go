package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"photowall/internal/domain"
	"photowall/internal/usecase/content"
	"photowall/internal/usecase/feed"
	"photowall/internal/usecase/like"
	"photowall/internal/usecase/profile"
)

// FeedService отдаёт страницы ленты.
type FeedService interface {
	GetPage(ctx context.Context, limit, offset int) (domain.FeedPage, error)
}

// ContentService управляет публикациями и комментариями.
type ContentService interface {
	Publish(ctx context.Context, in content.PublishInput) (domain.Post, error)
	Get(ctx context.Context, id string) (domain.Post, error)
	Update(ctx context.Context, id string, in content.UpdateInput) (domain.Post, error)
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, postID, userID, text string) (domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// LikeService переключает лайки.
type LikeService interface {
	Toggle(ctx context.Context, postID, userID string) (bool, error)
}

// ProfileService управляет профилями и токенами устройств.
type ProfileService interface {
	Get(ctx context.Context, id string) (domain.User, error)
	Update(ctx context.Context, id string, in profile.UpdateInput) (domain.User, error)
	RegisterPushToken(ctx context.Context, userID, token string) error
	RemovePushToken(ctx context.Context, userID, token string) error
}

// Handler связывает HTTP-маршруты с сервисами приложения.
type Handler struct {
	feed    FeedService
	content ContentService
	likes   LikeService
	profile ProfileService
	log     zerolog.Logger
}

// Ограничители, чтобы интерфейсы не разъезжались с реализациями.
var (
	_ FeedService    = (*feed.Service)(nil)
	_ ContentService = (*content.Service)(nil)
	_ LikeService    = (*like.Service)(nil)
	_ ProfileService = (*profile.Service)(nil)
)

// NewHandler создаёт HTTP-обработчик.
func NewHandler(feedSvc FeedService, contentSvc ContentService, likeSvc LikeService, profileSvc ProfileService, logger zerolog.Logger) *Handler {
	return &Handler{
		feed:    feedSvc,
		content: contentSvc,
		likes:   likeSvc,
		profile: profileSvc,
		log:     logger,
	}
}

// Register монтирует маршруты API под /api/v1.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/feed", h.getFeed)
		r.Route("/posts", func(r chi.Router) {
			r.Post("/", h.createPost)
			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", h.getPost)
				r.Put("/", h.updatePost)
				r.Delete("/", h.deletePost)
				r.Post("/comments", h.addComment)
				r.Delete("/comments/{commentID}", h.deleteComment)
				r.Post("/likes/toggle", h.toggleLike)
			})
		})
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", h.getUser)
			r.Put("/", h.updateUser)
			r.Post("/push-tokens", h.registerPushToken)
			r.Delete("/push-tokens", h.removePushToken)
		})
	})
}

type postResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Image       string     `json:"image"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	CreatedAt   time.Time  `json:"createdAt"`
	EditedAt    time.Time  `json:"editedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

func toPostResponse(post domain.Post) postResponse {
	return postResponse{
		ID:          post.ID,
		UserID:      post.UserID,
		Image:       post.Image,
		Description: post.Description,
		Kind:        string(post.Kind),
		CreatedAt:   post.CreatedAt,
		EditedAt:    post.EditedAt,
		ExpiresAt:   post.ExpiresAt,
	}
}

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type authorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type feedEntryResponse struct {
	Post        postResponse      `json:"post"`
	Author      *authorResponse   `json:"author,omitempty"`
	Comments    []commentResponse `json:"comments"`
	Likes       int               `json:"likes"`
	LikeUserIDs []string          `json:"likeUserIds"`
	RelativeAge string            `json:"relativeAge"`
}

type feedPageResponse struct {
	Items   []feedEntryResponse `json:"items"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"perPage"`
}

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	// Основная форма среза — limit/offset; page/per_page принимаются
	// как альтернатива и приводятся к смещению.
	limit := queryInt(r, "limit", 0)
	if limit <= 0 {
		limit = queryInt(r, "per_page", feed.DefaultMaxPerPage)
	}
	offset := queryInt(r, "offset", -1)
	if offset < 0 {
		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		offset = (page - 1) * limit
	}

	result, err := h.feed.GetPage(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := feedPageResponse{
		Items:   make([]feedEntryResponse, 0, len(result.Items)),
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	}
	for _, item := range result.Items {
		entry := feedEntryResponse{
			Post:        toPostResponse(item.Post),
			Comments:    make([]commentResponse, 0, len(item.Comments)),
			Likes:       item.Likes,
			LikeUserIDs: item.LikeUserIDs,
			RelativeAge: item.RelativeAge,
		}
		if item.Author != nil {
			entry.Author = &authorResponse{ID: item.Author.ID, Name: item.Author.Name}
		}
		for _, comment := range item.Comments {
			entry.Comments = append(entry.Comments, commentResponse{
				ID:        comment.ID,
				PostID:    comment.PostID,
				UserID:    comment.UserID,
				Content:   comment.Content,
				CreatedAt: comment.CreatedAt,
			})
		}
		resp.Items = append(resp.Items, entry)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type createPostRequest struct {
	UserID      string     `json:"userId"`
	Image       string     `json:"image"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	post, err := h.content.Publish(r.Context(), content.PublishInput{
		UserID:      req.UserID,
		Image:       req.Image,
		Description: req.Description,
		Kind:        domain.PostKind(req.Kind),
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPostResponse(post))
}

type updatePostRequest struct {
	Image       *string `json:"image"`
	Description *string `json:"description"`
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	post, err := h.content.Update(r.Context(), chi.URLParam(r, "postID"), content.UpdateInput{
		Image:       req.Image,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPostResponse(post))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), chi.URLParam(r, "postID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCommentRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	comment, err := h.content.AddComment(r.Context(), chi.URLParam(r, "postID"), req.UserID, req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, commentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	})
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteComment(r.Context(), chi.URLParam(r, "commentID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleLikeRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleLikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		h.writeBadRequest(w, "не указан пользователь")
		return
	}
	liked, err := h.likes.Toggle(r.Context(), chi.URLParam(r, "postID"), req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

type userResponse struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Bio   string   `json:"bio"`
	Roles []string `json:"roles"`
}

func toUserResponse(user domain.User) userResponse {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Bio:   user.Bio,
		Roles: roles,
	}
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.profile.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	user, err := h.profile.Update(r.Context(), chi.URLParam(r, "userID"), profile.UpdateInput{
		Name: req.Name,
		Bio:  req.Bio,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) registerPushToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	if err := h.profile.RegisterPushToken(r.Context(), chi.URLParam(r, "userID"), req.Token); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removePushToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "некорректное тело запроса")
		return
	}
	if err := h.profile.RemovePushToken(r.Context(), chi.URLParam(r, "userID"), req.Token); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("rest: не удалось записать ответ")
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "не найдено"})
	case errors.Is(err, domain.ErrInvalid):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("rest: внутренняя ошибка")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "внутренняя ошибка"})
	}
}
