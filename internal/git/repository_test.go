package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
)

func TestOpenFromSubdirectory(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.write("nested/deep/file.txt", "x\n")
	r.commit(alice, "init")

	repo, err := Open(filepath.Join(r.dir, "nested", "deep"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root := r.open().Path()
	if repo.Path() != root {
		t.Fatalf("Path = %s, want %s", repo.Path(), root)
	}
	if !repo.Is(root) || !repo.Is(filepath.Join(root, ".git")) || repo.Is(filepath.Join(root, "nested")) {
		t.Fatal("Is does not recognise the repository root")
	}
	if !repo.Contains(filepath.Join(root, "nested", "deep", "file.txt")) || repo.Contains(filepath.Dir(root)) {
		t.Fatal("Contains misjudged a path")
	}
}

func TestOpenNotARepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "plain"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(filepath.Join(dir, "plain")); !IsCode(err, CodeRepoNotFound) {
		t.Fatalf("expected RepoNotFound, got %v", err)
	}
}

func TestPathWithin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		root, path string
		want       bool
	}{
		{"/repo", "/repo", true},
		{"/repo", "/repo/a/b", true},
		{"/repo", "/repository", false},
		{"/repo", "/", false},
		{"/repo", "/repo/../other", false},
		{"/repo", "/repo/..foo", true},
	}
	for _, tc := range cases {
		if got := PathWithin(tc.root, tc.path); got != tc.want {
			t.Errorf("PathWithin(%q, %q) = %v, want %v", tc.root, tc.path, got, tc.want)
		}
	}
}

func TestBranches(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	head := r.commit(alice, "init")
	r.setRef("refs/heads/feature/x", head)
	r.setRef("refs/remotes/origin/main", head)
	if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference("refs/remotes/origin/HEAD", "refs/remotes/origin/main")); err != nil {
		t.Fatal(err)
	}
	r.setRef("refs/tags/v1", head)

	repo := r.open()
	branches, err := repo.Branches()
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	local := r.branchName()
	want := []Branch{
		{Name: "feature/x", Reference: "refs/heads/feature/x"},
		{Name: local, Reference: "refs/heads/" + local},
		{Name: "main", IsRemote: true, Reference: "refs/remotes/origin/main"},
	}
	if len(branches) != len(want) {
		t.Fatalf("Branches = %+v, want %+v", branches, want)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Fatalf("Branches = %+v, want %+v", branches, want)
		}
	}

	current, err := repo.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if current != want[1] {
		t.Fatalf("CurrentBranch = %+v", current)
	}
}

func TestCommitLookup(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	id := r.commit(alice, "Subject\n\nBody\n")
	repo := r.open()

	c, err := repo.Commit(id.String())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.Title != "Subject" || c.Author() != alice || len(c.Parents) != 0 {
		t.Fatalf("unexpected commit %+v", c)
	}
	if _, err := repo.Commit(""); !IsCode(err, CodeCommitNotFound) {
		t.Fatalf("expected CommitNotFound, got %v", err)
	}
}
