package repo

import (
	"errors"
	"time"

	"photowall/internal/adapters/docstore"
	"photowall/internal/domain"
)

// Имена коллекций документного хранилища.
const (
	collPosts    = "posts"
	collComments = "comments"
	collLikes    = "likes"
	collUsers    = "users"
)

func mapErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func timeToMs(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
