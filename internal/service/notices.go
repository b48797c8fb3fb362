package service

import (
	"context"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

const defaultNoticeCapacity = 200

// NoticeFeed keeps the most recent notices in a fixed size ring.
type NoticeFeed struct {
	mu    sync.RWMutex
	items []domain.Notice
	next  int
	full  bool
}

// NewNoticeFeed creates a feed holding up to capacity notices.
func NewNoticeFeed(capacity int) *NoticeFeed {
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	return &NoticeFeed{items: make([]domain.Notice, capacity)}
}

// Notify records n, overwriting the oldest notice once the feed is full.
func (f *NoticeFeed) Notify(ctx context.Context, n domain.Notice) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	if n.Level == domain.NoticeInfo {
		logger.With(logger.Fields{logger.FieldProjectID: n.ProjectID}).Info(ctx, "Notice: %s", n.Message)
	}

	f.mu.Lock()
	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
	f.mu.Unlock()
}

// List returns up to limit notices, newest first. limit <= 0 returns all.
func (f *NoticeFeed) List(limit int) []domain.Notice {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.next
	if f.full {
		n = len(f.items)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Notice, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// Len returns the number of notices held.
func (f *NoticeFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.full {
		return len(f.items)
	}
	return f.next
}
