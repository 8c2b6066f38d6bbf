package git

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
)

// BranchContribution counts the commits of each author per day over the
// whole history reachable from branch.
func (r *Repository) BranchContribution(branch Branch) (map[Author]*CommitStatistic, error) {
	const op = "branch_contribution"
	r.mu.Lock()
	defer r.mu.Unlock()

	tip, err := r.branchCommit(op, branch)
	if err != nil {
		return nil, err
	}
	stats := map[Author]*CommitStatistic{}
	err = r.forEachAncestor(tip, func(c *object.Commit) error {
		author := Author{Name: c.Author.Name, Email: c.Author.Email}
		stat, ok := stats[author]
		if !ok {
			stat = NewCommitStatistic(r.path, branch, author)
			stats[author] = stat
		}
		return stat.Add(dayOf(commitMillis(c)), 1)
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return stats, nil
}

// SortedStatistics orders statistics by descending commit total, then by
// author.
func SortedStatistics(stats map[Author]*CommitStatistic) []CommitStatistic {
	out := make([]CommitStatistic, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Total(), out[j].Total()
		if ti != tj {
			return ti > tj
		}
		if out[i].Author.Name != out[j].Author.Name {
			return out[i].Author.Name < out[j].Author.Name
		}
		return out[i].Author.Email < out[j].Author.Email
	})
	return out
}

// ContributionTopicPrefix prefixes the topic an asynchronous contribution
// result is published on.
const ContributionTopicPrefix = "branch_contribution/"

func ContributionTopic(token string) string {
	return ContributionTopicPrefix + token
}

// ContributionResult is the payload of an asynchronous contribution run.
// Error is set instead of Stats when the run failed.
type ContributionResult struct {
	Token    string            `json:"token" yaml:"token"`
	Repo     string            `json:"repo" yaml:"repo"`
	Branch   Branch            `json:"branch" yaml:"branch"`
	Stats    []CommitStatistic `json:"stats" yaml:"stats"`
	Error    *ErrorPayload     `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration     `json:"durationNs" yaml:"durationNs"`
}

// ErrorPayload is the serialized form of a failure.
type ErrorPayload struct {
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Op      string `json:"op" yaml:"op"`
	Module  string `json:"module" yaml:"module"`
}

// NewErrorPayload converts any error, classifying it first if needed.
func NewErrorPayload(op string, err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	var c coder
	if !errors.As(err, &c) {
		c = newError(classify(err), op, err)
	}
	return &ErrorPayload{Code: c.ErrorCode(), Message: err.Error(), Op: c.Operation(), Module: c.Module()}
}

// coder is implemented by the error types of this module and the watcher.
type coder interface {
	error
	ErrorCode() int
	Operation() string
	Module() string
}

// Publisher delivers a payload to every subscriber of topic and returns
// how many received it.
type Publisher interface {
	Publish(topic string, payload any) int
}

// RunBranchContribution starts BranchContribution for repoPath on its own
// goroutine and publishes exactly one ContributionResult on
// ContributionTopic(token). An empty token is replaced by a fresh one. The
// result is not retried when nobody is subscribed. The returned channel is
// closed after publishing.
func RunBranchContribution(repoPath string, branch Branch, token string, pub Publisher) (string, <-chan struct{}) {
	if token == "" {
		token = uuid.NewString()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		started := time.Now()
		result := ContributionResult{Token: token, Repo: repoPath, Branch: branch}
		stats, err := contribution(repoPath, branch)
		if err != nil {
			result.Error = NewErrorPayload("branch_contribution", err)
		} else {
			result.Stats = SortedStatistics(stats)
		}
		result.Duration = time.Since(started)
		n := pub.Publish(ContributionTopic(token), result)
		slog.Debug("branch contribution published",
			slog.String("repo", repoPath),
			slog.String("branch", branch.Reference),
			slog.String("token", token),
			slog.Int("subscribers", n),
			slog.Duration("elapsed", result.Duration),
		)
		if n == 0 {
			slog.Warn("branch contribution result dropped", slog.String("token", token))
		}
	}()
	return token, done
}

func contribution(repoPath string, branch Branch) (map[Author]*CommitStatistic, error) {
	repo, err := Open(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repoPath, err)
	}
	return repo.BranchContribution(branch)
}
