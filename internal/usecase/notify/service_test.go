package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
)

type stubUsers struct {
	byRole map[domain.UserRole][]domain.User
	err    error
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}

func (s *stubUsers) FindByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byRole[role], nil
}

func (s *stubUsers) Update(ctx context.Context, user domain.User) (domain.User, error) {
	return user, nil
}

type stubGateway struct {
	mu       sync.Mutex
	batches  [][]string
	failWhen func(tokens []string) error
}

func (s *stubGateway) SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	s.mu.Lock()
	s.batches = append(s.batches, tokens)
	s.mu.Unlock()
	if s.failWhen != nil {
		return s.failWhen(tokens)
	}
	return nil
}

func (s *stubGateway) batchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, 0, len(s.batches))
	for _, batch := range s.batches {
		sizes = append(sizes, len(batch))
	}
	sort.Ints(sizes)
	return sizes
}

type stubQueue struct {
	jobs []domain.NotificationJob
}

func (s *stubQueue) Enqueue(ctx context.Context, job domain.NotificationJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubQueue) Pop(ctx context.Context) (domain.NotificationJob, error) {
	return domain.NotificationJob{}, errors.New("not implemented")
}

func usersWithTokens(role domain.UserRole, perUser, count int) []domain.User {
	users := make([]domain.User, 0, count)
	token := 0
	for i := 0; i < count; i++ {
		tokens := make([]string, 0, perUser)
		for j := 0; j < perUser; j++ {
			tokens = append(tokens, fmt.Sprintf("token-%04d", token))
			token++
		}
		users = append(users, domain.User{
			ID:         fmt.Sprintf("user-%d", i),
			Roles:      []domain.UserRole{role},
			PushTokens: tokens,
		})
	}
	return users
}

func TestNotifySplitsTokensIntoChunks(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: usersWithTokens(domain.UserRoleParticipant, 3, 400),
	}}
	gateway := &stubGateway{}
	svc := NewService(users, gateway, nil, zerolog.Nop(), 500)

	err := svc.Notify(context.Background(), domain.UserRoleParticipant, "Новая публикация", "текст", nil)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	sizes := gateway.batchSizes()
	want := []int{200, 500, 500}
	if len(sizes) != len(want) {
		t.Fatalf("ожидали 3 пачки, получили %d", len(sizes))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("размеры пачек %v не совпадают с ожидаемыми %v", sizes, want)
			break
		}
	}
}

func TestNotifyChunkFailureDoesNotAbortRest(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: usersWithTokens(domain.UserRoleParticipant, 4, 300),
	}}
	gateway := &stubGateway{failWhen: func(tokens []string) error {
		if tokens[0] == "token-0500" {
			return errors.New("провайдер недоступен")
		}
		return nil
	}}
	svc := NewService(users, gateway, nil, zerolog.Nop(), 500)

	err := svc.Notify(context.Background(), domain.UserRoleParticipant, "заголовок", "текст", nil)
	if err != nil {
		t.Fatalf("сбой одной пачки не должен давать ошибку: %v", err)
	}
	if got := len(gateway.batchSizes()); got != 3 {
		t.Fatalf("ожидали 3 попытки отправки, получили %d", got)
	}
}

func TestNotifyAllChunksFail(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: usersWithTokens(domain.UserRoleParticipant, 1, 10),
	}}
	gateway := &stubGateway{failWhen: func([]string) error { return errors.New("провайдер недоступен") }}
	svc := NewService(users, gateway, nil, zerolog.Nop(), 500)

	if err := svc.Notify(context.Background(), domain.UserRoleParticipant, "заголовок", "текст", nil); err == nil {
		t.Fatal("ожидали ошибку, когда все пачки завершились сбоем")
	}
}

func TestNotifyWithoutTokensSkipsSend(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: {
			{ID: "user-1", Roles: []domain.UserRole{domain.UserRoleParticipant}},
			{ID: "user-2", Roles: []domain.UserRole{domain.UserRoleParticipant}},
		},
	}}
	gateway := &stubGateway{}
	svc := NewService(users, gateway, nil, zerolog.Nop(), 500)

	if err := svc.Notify(context.Background(), domain.UserRoleParticipant, "заголовок", "текст", nil); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gateway.batches) != 0 {
		t.Fatalf("без токенов не должно быть вызовов провайдера, получили %d", len(gateway.batches))
	}
}

func TestRecipientsDropTokenlessUsers(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: {
			{ID: "user-1", PushTokens: []string{"t1", "t2"}},
			{ID: "user-2"},
			{ID: "user-3", PushTokens: []string{"t3"}},
		},
	}}
	svc := NewService(users, &stubGateway{}, nil, zerolog.Nop(), 500)

	recipients, err := svc.Recipients(context.Background(), domain.UserRoleParticipant)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("ожидали 2 получателей, получили %d", len(recipients))
	}
	for _, recipient := range recipients {
		if len(recipient.Tokens) == 0 {
			t.Errorf("получатель %s без токенов не должен попадать в список", recipient.UserID)
		}
	}
}

func TestDispatchPrefersQueue(t *testing.T) {
	users := &stubUsers{byRole: map[domain.UserRole][]domain.User{
		domain.UserRoleParticipant: usersWithTokens(domain.UserRoleParticipant, 1, 1),
	}}
	gateway := &stubGateway{}
	queue := &stubQueue{}
	svc := NewService(users, gateway, queue, zerolog.Nop(), 500)

	job := domain.NotificationJob{Role: domain.UserRoleParticipant, Title: "заголовок", Body: "текст"}
	if err := svc.Dispatch(context.Background(), job); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали 1 задание в очереди, получили %d", len(queue.jobs))
	}
	if len(gateway.batches) != 0 {
		t.Fatal("при наличии очереди отправка не должна выполняться немедленно")
	}
	if queue.jobs[0].EnqueuedAt.IsZero() {
		t.Error("время постановки задания должно проставляться")
	}
}

func TestChunkTokens(t *testing.T) {
	tokens := make([]string, 1001)
	chunks := chunkTokens(tokens, 500)
	if len(chunks) != 3 {
		t.Fatalf("ожидали 3 пачки, получили %d", len(chunks))
	}
	if len(chunks[2]) != 1 {
		t.Errorf("последняя пачка должна содержать 1 токен, получили %d", len(chunks[2]))
	}
}
