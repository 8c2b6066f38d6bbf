package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type startKind int

const (
	startHead startKind = iota
	startCommit
	startBranch
)

// Start names where an ancestry walk begins.
type Start struct {
	kind   startKind
	id     string
	branch Branch
}

func FromHead() Start { return Start{kind: startHead} }

func FromCommit(id string) Start { return Start{kind: startCommit, id: id} }

func FromBranch(branch Branch) Start { return Start{kind: startBranch, branch: branch} }

func (s Start) String() string {
	switch s.kind {
	case startCommit:
		return s.id
	case startBranch:
		return s.branch.Reference
	default:
		return "HEAD"
	}
}

func (r *Repository) startCommit(op string, start Start) (*object.Commit, error) {
	switch start.kind {
	case startCommit:
		return r.resolveCommit(op, start.id)
	case startBranch:
		return r.branchCommit(op, start.branch)
	default:
		return r.headCommit(op)
	}
}

// commitSource yields commits in walk order and io.EOF when exhausted.
// object.CommitIter satisfies it.
type commitSource interface {
	Next() (*object.Commit, error)
	Close()
}

func (r *Repository) openWalk(op string, start Start) (commitSource, error) {
	from, err := r.startCommit(op, start)
	if err != nil {
		return nil, err
	}
	iter, err := r.repo.Log(&gitlib.LogOptions{From: from.Hash, Order: gitlib.LogOrderCommitterTime})
	if err != nil {
		return nil, wrap(op, fmt.Errorf("read commits: %w", err))
	}
	return iter, nil
}

// Walk returns at most maxCount commits reachable from start, newest
// first. Pass math.MaxInt to walk the whole history.
func (r *Repository) Walk(start Start, maxCount int) ([]Commit, error) {
	const op = "walk"
	slog.Debug("Walk start", slog.String("from", start.String()), slog.Int("max_count", maxCount))
	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := r.openWalk(op, start)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	commits := make([]Commit, 0, min(max(maxCount, 0), 256))
	for len(commits) < maxCount {
		c, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrap(op, fmt.Errorf("iterate commits: %w", err))
		}
		commits = append(commits, newCommit(c, r.path))
	}
	slog.Debug("Walk done", slog.Int("returned", len(commits)))
	return commits, nil
}
