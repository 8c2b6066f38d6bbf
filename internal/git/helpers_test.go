package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	alice = Author{Name: "Alice", Email: "alice@example.com"}
	bob   = Author{Name: "Bob", Email: "bob@example.com"}
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gitlib.Repository
	// when is the timestamp of the next commit; it advances one hour per
	// commit so committer-time order is deterministic.
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo, when: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (r *testRepo) open() *Repository {
	r.t.Helper()
	repo, err := Open(r.dir)
	if err != nil {
		r.t.Fatalf("Open: %v", err)
	}
	return repo
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

func (r *testRepo) remove(name string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.dir, name)); err != nil {
		r.t.Fatal(err)
	}
}

func (r *testRepo) worktree() *gitlib.Worktree {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree: %v", err)
	}
	return wt
}

func (r *testRepo) stage(name string) {
	r.t.Helper()
	if _, err := r.worktree().Add(name); err != nil {
		r.t.Fatalf("Add %s: %v", name, err)
	}
}

// commit stages every change and commits it as author.
func (r *testRepo) commit(author Author, msg string) plumbing.Hash {
	r.t.Helper()
	wt := r.worktree()
	if err := wt.AddWithOptions(&gitlib.AddOptions{All: true}); err != nil {
		r.t.Fatalf("AddWithOptions: %v", err)
	}
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: r.when}
	r.when = r.when.Add(time.Hour)
	hash, err := wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	if err != nil {
		r.t.Fatalf("Commit: %v", err)
	}
	return hash
}

func (r *testRepo) setRef(name string, hash plumbing.Hash) {
	r.t.Helper()
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), hash)); err != nil {
		r.t.Fatalf("SetReference %s: %v", name, err)
	}
}

func (r *testRepo) addRemote(name string) {
	r.t.Helper()
	_, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{"https://example.invalid/" + name + ".git"}})
	if err != nil {
		r.t.Fatalf("CreateRemote: %v", err)
	}
}

func (r *testRepo) head() plumbing.Hash {
	r.t.Helper()
	ref, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("Head: %v", err)
	}
	return ref.Hash()
}

func (r *testRepo) branchName() string {
	r.t.Helper()
	ref, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("Head: %v", err)
	}
	return ref.Name().Short()
}


// commitWithParents records an empty commit on top of parents and moves the
// current branch to it.
func (r *testRepo) commitWithParents(author Author, msg string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: r.when}
	r.when = r.when.Add(time.Hour)
	hash, err := r.worktree().Commit(msg, &gitlib.CommitOptions{
		Author:            sig,
		Committer:         sig,
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("Commit: %v", err)
	}
	return hash
}

// dropObject deletes the loose object file for hash.
func (r *testRepo) dropObject(hash plumbing.Hash) {
	r.t.Helper()
	hex := hash.String()
	if err := os.Remove(filepath.Join(r.dir, ".git", "objects", hex[:2], hex[2:])); err != nil {
		r.t.Fatalf("remove object %s: %v", hex, err)
	}
}

// danglingCommit stores a commit on HEAD's tree whose only parent is
// missing from the object store. No reference is moved.
func (r *testRepo) danglingCommit(author Author, parent plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	head, err := r.repo.CommitObject(r.head())
	if err != nil {
		r.t.Fatalf("CommitObject: %v", err)
	}
	sig := object.Signature{Name: author.Name, Email: author.Email, When: r.when}
	r.when = r.when.Add(time.Hour)
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      "dangling",
		TreeHash:     head.TreeHash,
		ParentHashes: []plumbing.Hash{parent},
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("Encode: %v", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("SetEncodedObject: %v", err)
	}
	return hash
}
