package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/thiagokokada/giter-go/internal/git"
)

type memoryEntry struct {
	authors  []git.Author
	frontier string
}

// MemoryStore keeps rosters for the lifetime of the process.
type MemoryStore struct {
	keyLocks

	mu      sync.RWMutex
	entries map[git.CacheKey]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[git.CacheKey]memoryEntry{}}
}

func (s *MemoryStore) Authors(_ context.Context, key git.CacheKey) ([]git.Author, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, "", ErrMiss
	}
	return slices.Clone(e.authors), e.frontier, nil
}

func (s *MemoryStore) SetAuthors(_ context.Context, key git.CacheKey, authors []git.Author, frontier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{authors: slices.Clone(authors), frontier: frontier}
	return nil
}

func (s *MemoryStore) RepoAuthors(_ context.Context, repo string) ([]git.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rosters [][]git.Author
	for key, e := range s.entries {
		if key.Repo == repo {
			rosters = append(rosters, e.authors)
		}
	}
	if len(rosters) == 0 {
		return nil, ErrMiss
	}
	return git.MergeAuthors(rosters...), nil
}

func (s *MemoryStore) Clear(_ context.Context, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if key.Repo == repo {
			delete(s.entries, key)
		}
	}
	return nil
}

func (s *MemoryStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[git.CacheKey]memoryEntry{}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
