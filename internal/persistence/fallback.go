package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// NoticeFunc receives user-visible notices about persistence mode changes.
type NoticeFunc func(ctx context.Context, n domain.Notice)

// FallbackStore writes every collection locally and mirrors it to the remote API
// while a session is valid. Once the remote side asks for authentication it keeps
// working against the local database only.
type FallbackStore struct {
	remote Collections
	local  Collections
	notice NoticeFunc

	mu        sync.RWMutex
	localOnly bool
}

// NewFallbackStore creates a store. remote may be nil for local-only operation.
func NewFallbackStore(remote, local Collections, notice NoticeFunc) *FallbackStore {
	return &FallbackStore{
		remote:    remote,
		local:     local,
		notice:    notice,
		localOnly: remote == nil,
	}
}

// LocalOnly reports whether the remote side has been switched off.
func (f *FallbackStore) LocalOnly() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.localOnly
}

// Load reads name from the remote API and refreshes the local copy. The local copy
// is returned when the remote is unavailable, unauthenticated or empty.
func (f *FallbackStore) Load(ctx context.Context, name string) ([]byte, error) {
	ctx = logger.SetComponent(ctx, "persistence")
	if !f.LocalOnly() {
		data, err := f.remote.Load(ctx, name)
		switch {
		case err == nil && !isEmpty(data):
			if lerr := f.local.Save(ctx, name, data); lerr != nil {
				logger.CtxWarn(ctx, "Failed to refresh local %s cache: %v", name, lerr)
			}
			return data, nil
		case errors.Is(err, domain.ErrAuthRequired):
			f.goLocal(ctx, err)
		case err != nil:
			logger.CtxWarn(ctx, "Remote load of %s failed, using local copy: %v", name, err)
		}
	}
	return f.local.Load(ctx, name)
}

// Save writes name locally first and then to the remote API. Remote failures never
// lose data: the local write has already succeeded.
func (f *FallbackStore) Save(ctx context.Context, name string, data []byte) error {
	ctx = logger.SetComponent(ctx, "persistence")
	if err := f.local.Save(ctx, name, data); err != nil {
		return err
	}
	if f.LocalOnly() {
		return nil
	}
	err := f.remote.Save(ctx, name, data)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAuthRequired):
		f.goLocal(ctx, err)
	default:
		logger.CtxWarn(ctx, "Remote save of %s failed, kept locally: %v", name, err)
	}
	return nil
}

func (f *FallbackStore) goLocal(ctx context.Context, cause error) {
	f.mu.Lock()
	already := f.localOnly
	f.localOnly = true
	f.mu.Unlock()
	if already {
		return
	}

	logger.CtxWarn(ctx, "Switching to local-only persistence: %v", cause)
	if f.notice != nil {
		f.notice(ctx, domain.Notice{
			Level:   domain.NoticeWarning,
			Message: "Remote storage requires sign-in. Working in local mode; changes are saved on this server only.",
			Time:    time.Now(),
		})
	}
}
