package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"photowall/internal/domain"
	"photowall/internal/infra/metrics"
)

// DefaultChunkSize — потолок провайдера на число токенов в одном вызове.
const DefaultChunkSize = 500

// Service выполняет рассылку пуш-уведомлений по ролям.
type Service struct {
	users     domain.UserRepo
	gateway   domain.PushGateway
	queue     domain.NotificationQueue
	log       zerolog.Logger
	chunkSize int
}

// NewService создаёт сервис рассылки. Очередь queue опциональна: при nil
// задания выполняются в процессе, иначе откладываются в очередь.
func NewService(users domain.UserRepo, gateway domain.PushGateway, queue domain.NotificationQueue, logger zerolog.Logger, chunkSize int) *Service {
	if chunkSize <= 0 || chunkSize > DefaultChunkSize {
		chunkSize = DefaultChunkSize
	}
	return &Service{
		users:     users,
		gateway:   gateway,
		queue:     queue,
		log:       logger,
		chunkSize: chunkSize,
	}
}

// Recipients вычисляет получателей рассылки: пользователей с указанной
// ролью и хотя бы одним токеном устройства. Список нигде не хранится.
func (s *Service) Recipients(ctx context.Context, role domain.UserRole) ([]domain.Recipient, error) {
	users, err := s.users.FindByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("выборка получателей: %w", err)
	}
	recipients := make([]domain.Recipient, 0, len(users))
	for _, user := range users {
		if len(user.PushTokens) == 0 {
			continue
		}
		recipients = append(recipients, domain.Recipient{UserID: user.ID, Tokens: user.PushTokens})
	}
	return recipients, nil
}

// Dispatch ставит задание в очередь, если она сконфигурирована,
// иначе выполняет рассылку немедленно.
func (s *Service) Dispatch(ctx context.Context, job domain.NotificationJob) error {
	if s.queue != nil {
		if job.EnqueuedAt.IsZero() {
			job.EnqueuedAt = time.Now().UTC()
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("постановка задания: %w", err)
		}
		return nil
	}
	return s.HandleJob(ctx, job)
}

// HandleJob выполняет одно задание рассылки.
func (s *Service) HandleJob(ctx context.Context, job domain.NotificationJob) error {
	return s.Notify(ctx, job.Role, job.Title, job.Body, job.Data)
}

// Notify рассылает сообщение всем пользователям роли. Токены получателей
// объединяются и режутся на пачки не больше потолка провайдера; сбой
// одной пачки не прерывает отправку остальных.
func (s *Service) Notify(ctx context.Context, role domain.UserRole, title, body string, data map[string]string) error {
	recipients, err := s.Recipients(ctx, role)
	if err != nil {
		return err
	}
	var tokens []string
	for _, recipient := range recipients {
		tokens = append(tokens, recipient.Tokens...)
	}
	if len(tokens) == 0 {
		s.log.Debug().Str("role", string(role)).Msg("рассылка: нет токенов, отправка пропущена")
		return nil
	}
	metrics.PushTokensTotal.Add(float64(len(tokens)))

	// Пачки отправляются параллельно и независимо: сбой одной не
	// отменяет остальные, порядок доставки не гарантируется.
	chunks := chunkTokens(tokens, s.chunkSize)
	var wg sync.WaitGroup
	var failed atomic.Int64
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			if err := s.gateway.SendBatch(ctx, chunk, title, body, data); err != nil {
				failed.Add(1)
				metrics.PushChunkErrors.Inc()
				s.log.Error().Err(err).
					Str("role", string(role)).
					Int("chunk", i).
					Int("tokens", len(chunk)).
					Msg("рассылка: отправка пачки не удалась")
				return
			}
			metrics.PushChunksSent.Inc()
		}(i, chunk)
	}
	wg.Wait()

	s.log.Info().
		Str("role", string(role)).
		Int("tokens", len(tokens)).
		Int("chunks", len(chunks)).
		Int64("failed", failed.Load()).
		Msg("рассылка завершена")
	if n := failed.Load(); n == int64(len(chunks)) {
		return fmt.Errorf("рассылка: все %d пачек завершились ошибкой", n)
	}
	return nil
}

func chunkTokens(tokens []string, size int) [][]string {
	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
