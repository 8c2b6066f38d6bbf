package git

import (
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
	subs     int
}

func (p *recordingPublisher) Publish(topic string, payload any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.subs
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("contribution run did not finish")
	}
}

func TestCommitStatisticAdd(t *testing.T) {
	t.Parallel()

	s := NewCommitStatistic("/repo", BranchFromReference("refs/heads/main"), alice)
	if err := s.Add("2024-01-02", 3); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("2024-01-02", 2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, bad := range []string{"2024-13-40", "bad", "2024-1-2", ""} {
		if err := s.Add(bad, 1); err == nil {
			t.Fatalf("Add(%q) should fail", bad)
		}
	}
	if len(s.Stats) != 1 || s.Stats["2024-01-02"] != 5 || s.Total() != 5 {
		t.Fatalf("unexpected stats %v", s.Stats)
	}
}

func TestBranchContribution(t *testing.T) {
	t.Parallel()

	r, _ := linearHistory(t, 5)
	r.when = time.Date(2024, 1, 3, 23, 30, 0, 0, time.UTC)
	r.commit(bob, "late")
	branch := BranchFromReference("refs/heads/" + r.branchName())

	stats, err := r.open().BranchContribution(branch)
	if err != nil {
		t.Fatalf("BranchContribution: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected two authors, got %v", stats)
	}
	if got := stats[alice].Stats; len(got) != 1 || got["2024-01-01"] != 3 {
		t.Fatalf("alice stats %v", got)
	}
	if got := stats[bob].Stats; got["2024-01-01"] != 2 || got["2024-01-03"] != 1 {
		t.Fatalf("bob stats %v", got)
	}
	if stats[bob].Branch != branch || stats[bob].Author != bob {
		t.Fatalf("statistic identity not recorded: %+v", stats[bob])
	}

	sorted := SortedStatistics(stats)
	if sorted[0].Author != alice || sorted[0].Total() != 3 || sorted[1].Total() != 3 {
		t.Fatalf("unexpected order %+v", sorted)
	}
}

func TestSortedStatisticsTieBreak(t *testing.T) {
	t.Parallel()

	stats := map[Author]*CommitStatistic{}
	for _, a := range []Author{bob, alice} {
		s := NewCommitStatistic("/repo", Branch{}, a)
		if err := s.Add("2024-01-01", 2); err != nil {
			t.Fatal(err)
		}
		stats[a] = s
	}
	sorted := SortedStatistics(stats)
	if sorted[0].Author != alice || sorted[1].Author != bob {
		t.Fatalf("ties should order by name: %+v", sorted)
	}
}

func TestRunBranchContributionPublishesOnce(t *testing.T) {
	t.Parallel()

	r, _ := linearHistory(t, 3)
	branch := BranchFromReference("refs/heads/" + r.branchName())
	pub := &recordingPublisher{subs: 1}

	token, done := RunBranchContribution(r.dir, branch, "tok-1", pub)
	if token != "tok-1" {
		t.Fatalf("token = %q", token)
	}
	waitDone(t, done)

	if len(pub.topics) != 1 || pub.topics[0] != "branch_contribution/tok-1" {
		t.Fatalf("unexpected publications %v", pub.topics)
	}
	result, ok := pub.payloads[0].(ContributionResult)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.payloads[0])
	}
	if result.Error != nil || result.Token != token || len(result.Stats) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Stats[0].Author != alice || result.Stats[0].Total() != 2 {
		t.Fatalf("unexpected leading statistic %+v", result.Stats[0])
	}
}

func TestRunBranchContributionFailure(t *testing.T) {
	t.Parallel()

	r, _ := linearHistory(t, 1)
	pub := &recordingPublisher{}

	token, done := RunBranchContribution(r.dir, BranchFromReference("refs/heads/missing"), "", pub)
	if token == "" {
		t.Fatal("expected a generated token")
	}
	waitDone(t, done)

	if len(pub.topics) != 1 || pub.topics[0] != ContributionTopic(token) {
		t.Fatalf("unexpected publications %v", pub.topics)
	}
	result := pub.payloads[0].(ContributionResult)
	if result.Error == nil || result.Stats != nil {
		t.Fatalf("expected an error result, got %+v", result)
	}
	if result.Error.Code != int(CodeBranchNotFound) || result.Error.Module != ModuleName || result.Error.Op != "branch_contribution" {
		t.Fatalf("unexpected error payload %+v", result.Error)
	}
}
