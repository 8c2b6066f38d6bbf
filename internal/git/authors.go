package git

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrCacheMiss is returned by an AuthorStore that holds no entry for a key.
// It is a signal to walk history, not a failure.
var ErrCacheMiss = errors.New("author cache miss")

// CacheKey identifies one cached author roster.
type CacheKey struct {
	Repo   string
	Branch string
}

// AuthorStore persists author rosters together with the frontier commit
// they account for. Lock serializes updates of a single key.
type AuthorStore interface {
	Authors(ctx context.Context, key CacheKey) (authors []Author, frontier string, err error)
	SetAuthors(ctx context.Context, key CacheKey, authors []Author, frontier string) error
	Lock(key CacheKey) (unlock func())
}

// Authors returns everyone who authored a commit reachable from branch.
// The roster is served from store when its frontier is the branch tip.
// Otherwise only the commits between the cached frontier and the tip are
// walked and the extended roster is written back.
func (r *Repository) Authors(ctx context.Context, store AuthorStore, branch Branch) ([]Author, error) {
	const op = "authors"
	key := CacheKey{Repo: r.path, Branch: branch.Reference}
	unlock := store.Lock(key)
	defer unlock()

	cached, frontier, err := store.Authors(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		cached, frontier = nil, ""
	case err != nil:
		return nil, newError(CodeIOError, op, fmt.Errorf("read author cache: %w", err))
	}

	r.mu.Lock()
	tip, err := r.branchCommit(op, branch)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if frontier == tip.Hash.String() {
		r.mu.Unlock()
		slog.Debug("author cache hit", slog.String("repo", r.path), slog.String("branch", branch.Reference))
		return cached, nil
	}
	authors, walked, err := r.extendAuthors(tip, frontier, cached)
	r.mu.Unlock()
	if err != nil {
		return nil, wrap(op, err)
	}

	if err := store.SetAuthors(ctx, key, authors, tip.Hash.String()); err != nil {
		return nil, newError(CodeIOError, op, fmt.Errorf("write author cache: %w", err))
	}
	slog.Debug("author cache extended",
		slog.String("repo", r.path),
		slog.String("branch", branch.Reference),
		slog.Int("cached", len(cached)),
		slog.Int("walked", walked),
		slog.Int("authors", len(authors)),
	)
	return authors, nil
}

// extendAuthors merges into cached the authors of commits reachable from
// tip but not from frontier. A frontier that is gone or no longer an
// ancestor of tip, for example after a force push, restarts from an empty
// roster. walked counts the commits taken off the walk queue.
func (r *Repository) extendAuthors(tip *object.Commit, frontier string, cached []Author) (authors []Author, walked int, err error) {
	var base *object.Commit
	if frontier != "" {
		if c, err := r.repo.CommitObject(plumbing.NewHash(frontier)); err == nil && isAncestor(c, tip) {
			base = c
		} else {
			cached = nil
		}
	}

	seen := make(map[Author]struct{}, len(cached))
	authors = make([]Author, 0, len(cached))
	add := func(a Author) {
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		authors = append(authors, a)
	}
	for _, a := range cached {
		add(a)
	}

	w := newPaintWalk(r.repo.CommitObject)
	w.push(tip, false)
	if base != nil {
		w.push(base, true)
	}
	walked, err = w.run(func(c *object.Commit) {
		add(Author{Name: c.Author.Name, Email: c.Author.Email})
	})
	if err != nil {
		return nil, walked, err
	}
	return authors, walked, nil
}

func isAncestor(base, tip *object.Commit) bool {
	ok, err := base.IsAncestor(tip)
	return err == nil && ok
}

// paintWalk visits the commits reachable from the interesting tips but not
// from the uninteresting ones. Commits are popped newest committer time
// first; uninteresting marks flow down to parents and the walk ends once
// only uninteresting commits are queued, so history below the merge base
// is never loaded.
type paintWalk struct {
	load        func(plumbing.Hash) (*object.Commit, error)
	queue       commitQueue
	marks       map[plumbing.Hash]uint8
	interesting int
}

const (
	markQueued uint8 = 1 << iota
	markUninteresting
)

func newPaintWalk(load func(plumbing.Hash) (*object.Commit, error)) *paintWalk {
	return &paintWalk{load: load, marks: map[plumbing.Hash]uint8{}}
}

func (w *paintWalk) push(c *object.Commit, uninteresting bool) {
	if _, ok := w.marks[c.Hash]; ok {
		if uninteresting {
			w.paint(c.Hash)
		}
		return
	}
	m := markQueued
	if uninteresting {
		m |= markUninteresting
	} else {
		w.interesting++
	}
	w.marks[c.Hash] = m
	heap.Push(&w.queue, c)
}

// paint marks an already seen commit uninteresting.
func (w *paintWalk) paint(h plumbing.Hash) {
	m := w.marks[h]
	if m&markUninteresting != 0 {
		return
	}
	w.marks[h] = m | markUninteresting
	if m&markQueued != 0 {
		w.interesting--
	}
}

func (w *paintWalk) run(visit func(*object.Commit)) (int, error) {
	walked := 0
	for w.interesting > 0 && w.queue.Len() > 0 {
		c := heap.Pop(&w.queue).(*object.Commit)
		walked++
		m := w.marks[c.Hash] &^ markQueued
		w.marks[c.Hash] = m
		uninteresting := m&markUninteresting != 0
		if !uninteresting {
			w.interesting--
			visit(c)
		}
		for _, h := range c.ParentHashes {
			if _, ok := w.marks[h]; ok {
				if uninteresting {
					w.paint(h)
				}
				continue
			}
			parent, err := w.load(h)
			if err != nil {
				if errors.Is(err, plumbing.ErrObjectNotFound) {
					// Shallow boundary.
					continue
				}
				return walked, fmt.Errorf("load commit %s: %w", h, err)
			}
			w.push(parent, uninteresting)
		}
	}
	return walked, nil
}

type commitQueue []*object.Commit

func (q commitQueue) Len() int { return len(q) }
func (q commitQueue) Less(i, j int) bool {
	return q[i].Committer.When.After(q[j].Committer.When)
}
func (q commitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *commitQueue) Push(x any) { *q = append(*q, x.(*object.Commit)) }
func (q *commitQueue) Pop() any {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

// MergeAuthors returns the deduplicated union of rosters sorted by name
// and email.
func MergeAuthors(rosters ...[]Author) []Author {
	seen := map[Author]struct{}{}
	var out []Author
	for _, roster := range rosters {
		for _, a := range roster {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	SortAuthors(out)
	return out
}

func SortAuthors(authors []Author) {
	sort.Slice(authors, func(i, j int) bool {
		if authors[i].Name != authors[j].Name {
			return authors[i].Name < authors[j].Name
		}
		return authors[i].Email < authors[j].Email
	})
}
