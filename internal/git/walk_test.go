package git

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// linearHistory commits n commits alternating between alice and bob and
// returns their ids newest first.
func linearHistory(t *testing.T, n int) (*testRepo, []string) {
	t.Helper()
	r := newTestRepo(t)
	ids := make([]string, n)
	for i := range n {
		author := alice
		if i%2 == 1 {
			author = bob
		}
		r.write("file.txt", string(rune('a'+i))+"\n")
		ids[n-1-i] = r.commit(author, "commit "+string(rune('a'+i))).String()
	}
	return r, ids
}

func commitIDs(commits []Commit) []string {
	ids := make([]string, len(commits))
	for i, c := range commits {
		ids[i] = c.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWalkFromHead(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 5)
	repo := r.open()

	all, err := repo.Walk(FromHead(), math.MaxInt)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if !equalIDs(commitIDs(all), ids) {
		t.Fatalf("Walk order = %v, want %v", commitIDs(all), ids)
	}
	first := all[0]
	if first.Title != "commit e" || first.AuthorName != "Alice" || first.Repo != repo.Path() {
		t.Fatalf("unexpected commit record: %+v", first)
	}
	if len(first.Parents) != 1 || first.Parents[0] != ids[1] {
		t.Fatalf("unexpected parents: %v", first.Parents)
	}
	if first.Datetime != r.when.Add(-time.Hour).UnixMilli() {
		t.Fatalf("unexpected datetime %d", first.Datetime)
	}

	limited, err := repo.Walk(FromHead(), 2)
	if err != nil {
		t.Fatalf("Walk limited: %v", err)
	}
	if !equalIDs(commitIDs(limited), ids[:2]) {
		t.Fatalf("Walk(2) = %v", commitIDs(limited))
	}

	none, err := repo.Walk(FromHead(), 0)
	if err != nil {
		t.Fatalf("Walk(0): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("Walk(0) = %v, want no commits", commitIDs(none))
	}
}

func TestWalkFromCommitAndBranch(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 4)
	r.setRef("refs/heads/older", plumbing.NewHash(ids[2]))
	repo := r.open()

	fromCommit, err := repo.Walk(FromCommit(ids[1][:10]), math.MaxInt)
	if err != nil {
		t.Fatalf("Walk from abbreviated commit: %v", err)
	}
	if !equalIDs(commitIDs(fromCommit), ids[1:]) {
		t.Fatalf("Walk from commit = %v", commitIDs(fromCommit))
	}

	fromBranch, err := repo.Walk(FromBranch(BranchFromReference("refs/heads/older")), math.MaxInt)
	if err != nil {
		t.Fatalf("Walk from branch: %v", err)
	}
	if !equalIDs(commitIDs(fromBranch), ids[2:]) {
		t.Fatalf("Walk from branch = %v", commitIDs(fromBranch))
	}
}

func TestWalkErrors(t *testing.T) {
	t.Parallel()

	r, _ := linearHistory(t, 1)
	repo := r.open()
	if _, err := repo.Walk(FromCommit("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"), 1); !IsCode(err, CodeCommitNotFound) {
		t.Fatalf("expected CommitNotFound, got %v", err)
	}
	if _, err := repo.Walk(FromBranch(BranchFromReference("refs/heads/missing")), 1); !IsCode(err, CodeBranchNotFound) {
		t.Fatalf("expected BranchNotFound, got %v", err)
	}
	empty := newTestRepo(t).open()
	if _, err := empty.Walk(FromHead(), 1); !IsCode(err, CodeCommitNotFound) {
		t.Fatalf("expected CommitNotFound on empty repository, got %v", err)
	}
}

func TestFilterCountAndOrder(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 6)
	repo := r.open()

	cond := DefaultFilterConditions()
	cond.Author = alice
	cond.Count = 2
	got, err := repo.Filter(FromHead(), cond)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	// Alice authored commits 0, 2 and 4 counting from the root.
	want := []string{ids[1], ids[3]}
	if !equalIDs(commitIDs(got), want) {
		t.Fatalf("Filter = %v, want %v", commitIDs(got), want)
	}
	n, err := repo.FilterCount(FromHead(), cond)
	if err != nil {
		t.Fatalf("FilterCount: %v", err)
	}
	if n != len(got) {
		t.Fatalf("FilterCount = %d, want %d", n, len(got))
	}
}

func TestFilterPaginationIsDisjoint(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 7)
	repo := r.open()

	cond := DefaultFilterConditions()
	cond.Count = 3
	var pages [][]string
	for {
		page, err := repo.Filter(FromHead(), cond)
		if err != nil {
			t.Fatalf("Filter: %v", err)
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, commitIDs(page))
		cond.LastID = page[len(page)-1].ID
	}
	var joined []string
	for _, p := range pages {
		joined = append(joined, p...)
	}
	if !equalIDs(joined, ids) {
		t.Fatalf("pages %v do not tile the history %v", pages, ids)
	}
	if len(pages) != 3 || len(pages[2]) != 1 {
		t.Fatalf("unexpected page sizes: %v", pages)
	}
}

func TestFilterPaginationStableAfterNewCommit(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 4)
	cond := DefaultFilterConditions()
	cond.Count = 2
	first, err := r.open().Filter(FromHead(), cond)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	r.commit(bob, "arrived later")

	cond.LastID = first[len(first)-1].ID
	second, err := r.open().Filter(FromHead(), cond)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if !equalIDs(commitIDs(second), ids[2:]) {
		t.Fatalf("second page shifted: %v, want %v", commitIDs(second), ids[2:])
	}
}

func TestFilterUnknownCursorIsEmpty(t *testing.T) {
	t.Parallel()

	r, _ := linearHistory(t, 3)
	cond := DefaultFilterConditions()
	cond.LastID = "0123456789012345678901234567890123456789"
	got, err := r.open().Filter(FromHead(), cond)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %v", commitIDs(got))
	}
}

func TestFilterTimeWindowAndOffset(t *testing.T) {
	t.Parallel()

	r, ids := linearHistory(t, 5)
	all, err := r.open().Walk(FromHead(), math.MaxInt)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	cond := DefaultFilterConditions()
	// Half-open window covering the three middle commits.
	cond.StartTime = all[3].Datetime
	cond.EndTime = all[0].Datetime
	cond.Start = 1
	got := FilterCommits(all, cond)
	if !equalIDs(commitIDs(got), []string{ids[2], ids[3]}) {
		t.Fatalf("FilterCommits = %v", commitIDs(got))
	}
}

func TestParseFilterConditions(t *testing.T) {
	t.Parallel()

	var m map[string]any
	raw := `{"last_id":"abc","count":5,"start":2,"author":{"name":"Alice","email":"alice@example.com"},"start_time":10,"endTime":20}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	got := ParseFilterConditions(m)
	want := FilterConditions{LastID: "abc", Start: 2, Count: 5, Author: alice, StartTime: 10, EndTime: 20}
	if got != want {
		t.Fatalf("ParseFilterConditions = %+v, want %+v", got, want)
	}

	got = ParseFilterConditions(map[string]any{
		"count":      "ten",
		"start":      -3,
		"author":     42,
		"start_time": 1.5,
		"last_id":    7,
	})
	if got != DefaultFilterConditions() {
		t.Fatalf("malformed values must fall back to defaults, got %+v", got)
	}
	if got.Count != math.MaxInt || got.EndTime != math.MaxInt64 {
		t.Fatalf("unexpected defaults %+v", got)
	}
}
