package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Repository is an open handle on a working tree and its object store.
// Handles are cheap; callers may reopen one per request.
type Repository struct {
	// mu serializes operations that share go-git iterators and caches.
	mu sync.Mutex

	repo *gitlib.Repository
	// path is the absolute working tree root.
	path string
}

// Open validates repoPath as a git repository. Parent directories are
// searched for a .git entry the same way the git CLI does.
func Open(repoPath string) (*Repository, error) {
	const op = "open"
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, newError(CodeInvalidFilePath, op, err)
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, wrap(op, fmt.Errorf("open repository %s: %w", abs, err))
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &Repository{repo: repo, path: filepath.Clean(root)}, nil
}

// Path returns the working tree root.
func (r *Repository) Path() string {
	return r.path
}

// Is reports whether path names this repository, either by its working tree
// root or by its .git directory.
func (r *Repository) Is(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.Clean(abs)
	if filepath.Base(abs) == gitlib.GitDirName {
		abs = filepath.Dir(abs)
	}
	return abs == r.path
}

// Contains reports whether path lies inside the working tree.
func (r *Repository) Contains(path string) bool {
	return PathWithin(r.path, path)
}

// PathWithin reports whether path equals root or lies below it.
func PathWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Branches lists local and remote-tracking branches sorted by reference.
func (r *Repository) Branches() ([]Branch, error) {
	const op = "branches"
	r.mu.Lock()
	defer r.mu.Unlock()

	refs, err := r.repo.References()
	if err != nil {
		return nil, wrap(op, err)
	}
	defer refs.Close()
	var branches []Branch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if !name.IsBranch() && !name.IsRemote() {
			return nil
		}
		// Remote HEAD is a symbolic alias of another remote branch.
		if name.IsRemote() && strings.HasSuffix(name.Short(), "/"+plumbing.HEAD.String()) {
			return nil
		}
		branches = append(branches, branchFromRef(name))
		return nil
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	sort.Slice(branches, func(i, j int) bool {
		return branches[i].Reference < branches[j].Reference
	})
	return branches, nil
}

// CurrentBranch returns the branch HEAD points to.
func (r *Repository) CurrentBranch() (Branch, error) {
	const op = "current_branch"
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return Branch{}, newError(CodeCurrentBranchNotFound, op, err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return Branch{}, newError(CodeIndexIsDetached, op, fmt.Errorf("HEAD is detached at %s", head.Hash()))
	}
	return branchFromRef(head.Target()), nil
}

// BranchFromReference builds a Branch from a fully-qualified ref path.
func BranchFromReference(reference string) Branch {
	return branchFromRef(plumbing.ReferenceName(reference))
}

func branchFromRef(name plumbing.ReferenceName) Branch {
	short := name.Short()
	if name.IsRemote() {
		// origin/feature/x -> feature/x
		if _, rest, ok := strings.Cut(short, "/"); ok {
			short = rest
		}
	}
	return Branch{Name: short, IsRemote: name.IsRemote(), Reference: name.String()}
}

// Commit resolves id (full or abbreviated hash, or any revision go-git
// understands) to a commit record.
func (r *Repository) Commit(id string) (Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.resolveCommit("commit", id)
	if err != nil {
		return Commit{}, err
	}
	return newCommit(c, r.path), nil
}

func (r *Repository) resolveCommit(op, id string) (*object.Commit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, newError(CodeCommitNotFound, op, errors.New("commit id not specified"))
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		return nil, newError(CodeCommitNotFound, op, fmt.Errorf("resolve %s: %w", id, err))
	}
	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, newError(CodeCommitNotFound, op, fmt.Errorf("read commit %s: %w", id, err))
	}
	return c, nil
}

func (r *Repository) headCommit(op string) (*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, newError(CodeCommitNotFound, op, fmt.Errorf("HEAD has no commits: %w", err))
		}
		return nil, newError(CodeCurrentBranchNotFound, op, fmt.Errorf("resolve HEAD: %w", err))
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, newError(CodeCommitNotFound, op, fmt.Errorf("read HEAD commit: %w", err))
	}
	return c, nil
}

func (r *Repository) branchCommit(op string, branch Branch) (*object.Commit, error) {
	if branch.Reference == "" {
		return nil, newError(CodeBranchNotFound, op, errors.New("branch reference not specified"))
	}
	ref, err := r.repo.Reference(plumbing.ReferenceName(branch.Reference), true)
	if err != nil {
		return nil, newError(CodeBranchNotFound, op, fmt.Errorf("resolve %s: %w", branch.Reference, err))
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, newError(CodeCommitNotFound, op, fmt.Errorf("read tip of %s: %w", branch.Reference, err))
	}
	return c, nil
}

// forEachAncestor walks every commit reachable from c in committer-time
// order until fn returns storer.ErrStop or the history is exhausted.
func (r *Repository) forEachAncestor(c *object.Commit, fn func(*object.Commit) error) error {
	iter, err := r.repo.Log(&gitlib.LogOptions{From: c.Hash, Order: gitlib.LogOrderCommitterTime})
	if err != nil {
		return fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()
	err = iter.ForEach(fn)
	if errors.Is(err, storer.ErrStop) {
		return nil
	}
	return err
}
