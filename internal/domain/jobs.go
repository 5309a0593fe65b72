package domain

import "time"

// NotificationJob — задание на рассылку пуш-уведомления через очередь.
// Используется в «надёжном» режиме, когда API не рассылает сам,
// а откладывает доставку воркеру.
type NotificationJob struct {
	PostID     string            `json:"post_id"`
	Role       UserRole          `json:"role"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}
