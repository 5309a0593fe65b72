package domain

import "time"

// EphemeralTTL — срок жизни истории по умолчанию.
const EphemeralTTL = 24 * time.Hour

// StampExpiry вычисляет срок жизни публикации при создании.
// Все метки времени приводятся к UTC, чтобы сравнения на стороне
// хранилища были упорядочены независимо от часового пояса писателя.
//
// PERMANENT никогда не истекает, даже если срок передан явно.
// Для EPHEMERAL явный срок возвращается как есть, иначе createdAt + 24ч.
func StampExpiry(kind PostKind, createdAt time.Time, explicit *time.Time) *time.Time {
	if kind != PostKindEphemeral {
		return nil
	}
	if explicit != nil {
		t := explicit.UTC()
		return &t
	}
	t := createdAt.UTC().Add(EphemeralTTL)
	return &t
}

// Expired сообщает, истёк ли срок жизни публикации к моменту now.
// Публикация без срока жизни не истекает никогда.
func (p Post) Expired(now time.Time) bool {
	if p.ExpiresAt == nil {
		return false
	}
	return !now.UTC().Before(p.ExpiresAt.UTC())
}
