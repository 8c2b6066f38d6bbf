package git

import (
	"slices"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
)

func TestWorkStatusOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(r *testRepo)
		want  WorkStatus
	}{
		{
			name:  "clean without remote",
			setup: func(*testRepo) {},
			want:  WorkStatusOK,
		},
		{
			name: "untracked wins over modified",
			setup: func(r *testRepo) {
				r.write("README.md", "changed\n")
				r.write("new.txt", "new\n")
			},
			want: WorkStatusUntracked,
		},
		{
			name: "modified",
			setup: func(r *testRepo) {
				r.write("README.md", "changed\n")
			},
			want: WorkStatusModified,
		},
		{
			name: "deleted counts as modified",
			setup: func(r *testRepo) {
				r.remove("README.md")
			},
			want: WorkStatusModified,
		},
		{
			name: "staged only",
			setup: func(r *testRepo) {
				r.write("README.md", "changed\n")
				r.stage("README.md")
			},
			want: WorkStatusUncommitted,
		},
		{
			name: "ahead of remote",
			setup: func(r *testRepo) {
				r.addRemote("origin")
				r.setRef("refs/remotes/origin/"+r.branchName(), r.head())
				r.write("README.md", "changed\n")
				r.commit(alice, "second")
			},
			want: WorkStatusUnpushed,
		},
		{
			name: "pushed to one of two remotes",
			setup: func(r *testRepo) {
				first := r.head()
				r.addRemote("origin")
				r.addRemote("backup")
				r.write("README.md", "changed\n")
				tip := r.commit(alice, "second")
				r.setRef("refs/remotes/origin/"+r.branchName(), first)
				r.setRef("refs/remotes/backup/"+r.branchName(), tip)
			},
			want: WorkStatusOK,
		},
		{
			name: "unreadable remote history is inconclusive",
			setup: func(r *testRepo) {
				r.addRemote("origin")
				r.commit(alice, "second")
				broken := r.danglingCommit(bob, plumbing.NewHash("1111111111111111111111111111111111111111"))
				r.setRef("refs/remotes/origin/"+r.branchName(), broken)
			},
			want: WorkStatusOK,
		},
		{
			name: "remote without tracking ref is inconclusive",
			setup: func(r *testRepo) {
				r.addRemote("origin")
				r.commit(alice, "second")
			},
			want: WorkStatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRepo(t)
			r.write("README.md", "hello\n")
			r.commit(alice, "initial")
			tt.setup(r)

			repo := r.open()
			got := repo.WorkStatus()
			if got != tt.want {
				t.Fatalf("WorkStatus = %s, want %s", got, tt.want)
			}
			if again := repo.WorkStatus(); again != got {
				t.Fatalf("WorkStatus not deterministic: %s then %s", got, again)
			}
		})
	}
}

func TestWorkStatusEmptyRepository(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	if got := r.open().WorkStatus(); got != WorkStatusOK {
		t.Fatalf("WorkStatus on empty repository = %s", got)
	}
}

func TestWorkStatusDetachedHead(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.write("a.txt", "a\n")
	first := r.commit(alice, "first")
	r.commit(alice, "second")
	r.setRef("HEAD", first)

	repo := r.open()
	if got := repo.WorkStatus(); got != WorkStatusOK {
		t.Fatalf("WorkStatus with detached HEAD = %s", got)
	}
	if _, err := repo.CurrentBranch(); !IsCode(err, CodeIndexIsDetached) {
		t.Fatalf("CurrentBranch with detached HEAD: %v", err)
	}
}

func TestWorkStatusText(t *testing.T) {
	t.Parallel()

	text, err := WorkStatusUnpushed.MarshalText()
	if err != nil || string(text) != "unpushed" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}
	if WorkStatusUntracked != 8 || WorkStatusUnpushed != 32 {
		t.Fatal("status values must keep their wire bit values")
	}
}

func TestWorktreeFileLists(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	r.write("keep.txt", "keep\n")
	r.write("edit.txt", "v1\n")
	r.write("staged.txt", "v1\n")
	r.commit(alice, "initial")

	r.write("edit.txt", "v2\n")
	r.write("staged.txt", "v2\n")
	r.stage("staged.txt")
	r.write("b-new.txt", "new\n")
	r.write("a-new.txt", "new\n")

	repo := r.open()
	untracked, err := repo.UntrackedFiles()
	if err != nil {
		t.Fatalf("UntrackedFiles: %v", err)
	}
	if !slices.Equal(untracked, []string{"a-new.txt", "b-new.txt"}) {
		t.Fatalf("UntrackedFiles = %v", untracked)
	}
	modified, err := repo.ModifiedFiles()
	if err != nil {
		t.Fatalf("ModifiedFiles: %v", err)
	}
	if !slices.Equal(modified, []string{"edit.txt"}) {
		t.Fatalf("ModifiedFiles = %v", modified)
	}
	staged, err := repo.StagedFiles()
	if err != nil {
		t.Fatalf("StagedFiles: %v", err)
	}
	if len(staged) != 1 || staged[0] != (WorktreeFile{Path: "staged.txt", Status: FileModified}) {
		t.Fatalf("StagedFiles = %+v", staged)
	}
	changed, err := repo.ChangedFiles()
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	want := []WorktreeFile{
		{Path: "a-new.txt", Status: FileAdded},
		{Path: "b-new.txt", Status: FileAdded},
		{Path: "edit.txt", Status: FileModified},
	}
	if !slices.Equal(changed, want) {
		t.Fatalf("ChangedFiles = %+v", changed)
	}
}
