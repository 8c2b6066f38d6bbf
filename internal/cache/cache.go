// Package cache persists author rosters per repository and branch,
// together with the frontier commit each roster accounts for.
package cache

import (
	"context"
	"sync"

	"github.com/thiagokokada/giter-go/internal/git"
)

// ErrMiss reports that no roster is stored for a key.
var ErrMiss = git.ErrCacheMiss

// Store is a git.AuthorStore with repository-wide maintenance.
type Store interface {
	git.AuthorStore
	// RepoAuthors returns the union of the rosters cached for repo.
	RepoAuthors(ctx context.Context, repo string) ([]git.Author, error)
	// Clear drops every entry of repo.
	Clear(ctx context.Context, repo string) error
	ClearAll(ctx context.Context) error
	Close() error
}

// keyLocks hands out one mutex per key so that updates of a single roster
// are serialized while different keys proceed concurrently.
type keyLocks struct {
	mu    sync.Mutex
	locks map[git.CacheKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) Lock(key git.CacheKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[git.CacheKey]*keyLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
