package git

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

const dateLayout = "2006-01-02"

type Author struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

func (a Author) IsZero() bool { return a.Name == "" && a.Email == "" }

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Branch identity is Reference, the fully-qualified ref path such as
// refs/remotes/origin/main.
type Branch struct {
	Name      string `json:"name" yaml:"name"`
	IsRemote  bool   `json:"isRemote" yaml:"isRemote"`
	Reference string `json:"reference" yaml:"reference"`
}

type Commit struct {
	ID             string   `json:"commitId" yaml:"commitId"`
	AuthorName     string   `json:"authorName" yaml:"authorName"`
	AuthorEmail    string   `json:"authorEmail" yaml:"authorEmail"`
	CommitterName  string   `json:"committerName" yaml:"committerName"`
	CommitterEmail string   `json:"committerEmail" yaml:"committerEmail"`
	Title          string   `json:"title" yaml:"title"`
	Message        string   `json:"message" yaml:"message"`
	Datetime       int64    `json:"datetime" yaml:"datetime"`
	Parents        []string `json:"parents" yaml:"parents"`
	Repo           string   `json:"repo" yaml:"repo"`
}

func (c Commit) Author() Author {
	return Author{Name: c.AuthorName, Email: c.AuthorEmail}
}

// Time returns the commit timestamp in UTC.
func (c Commit) Time() time.Time {
	return time.UnixMilli(c.Datetime).UTC()
}

func newCommit(c *object.Commit, repo string) Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return Commit{
		ID:             c.Hash.String(),
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		Title:          commitTitle(c.Message),
		Message:        c.Message,
		Datetime:       commitMillis(c),
		Parents:        parents,
		Repo:           repo,
	}
}

func commitTitle(message string) string {
	title, _, _ := strings.Cut(message, "\n")
	return strings.TrimRight(title, "\r")
}

func commitMillis(c *object.Commit) int64 {
	when := c.Committer.When
	if when.IsZero() {
		when = c.Author.When
	}
	return when.UnixMilli()
}

type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileDeleted  FileStatus = "deleted"
	FileModified FileStatus = "modified"
	FileRenamed  FileStatus = "renamed"
)

type ChangedFile struct {
	Path         string     `json:"path" yaml:"path"`
	PrevPath     string     `json:"prevPath,omitempty" yaml:"prevPath,omitempty"`
	Size         int64      `json:"size" yaml:"size"`
	Status       FileStatus `json:"status" yaml:"status"`
	ObjectID     string     `json:"objectId" yaml:"objectId"`
	PrevObjectID string     `json:"prevObjectId" yaml:"prevObjectId"`
	BlobExist    bool       `json:"blobExist" yaml:"blobExist"`
	IsBinary     bool       `json:"isBinary" yaml:"isBinary"`
	PrevIsBinary bool       `json:"prevIsBinary" yaml:"prevIsBinary"`
}

type DiffTag string

const (
	DiffEqual   DiffTag = "equal"
	DiffInsert  DiffTag = "insert"
	DiffDelete  DiffTag = "delete"
	DiffReplace DiffTag = "replace"
)

// DiffOp is a half-open line span on each side: old[OldStart:OldEnd] maps
// to new[NewStart:NewEnd].
type DiffOp struct {
	Tag      DiffTag `json:"tag" yaml:"tag"`
	OldStart int     `json:"oldStart" yaml:"oldStart"`
	OldEnd   int     `json:"oldEnd" yaml:"oldEnd"`
	NewStart int     `json:"newStart" yaml:"newStart"`
	NewEnd   int     `json:"newEnd" yaml:"newEnd"`
}

type ContentDiff struct {
	Old      string   `json:"old" yaml:"old"`
	New      string   `json:"new" yaml:"new"`
	Ops      []DiffOp `json:"ops" yaml:"ops"`
	Display  string   `json:"display" yaml:"display"`
	Language string   `json:"language,omitempty" yaml:"language,omitempty"`
}

// CommitStatistic counts one author's commits per calendar day.
type CommitStatistic struct {
	Repo   string         `json:"repo" yaml:"repo"`
	Branch Branch         `json:"branch" yaml:"branch"`
	Author Author         `json:"author" yaml:"author"`
	Stats  map[string]int `json:"stats" yaml:"stats"`
}

func NewCommitStatistic(repo string, branch Branch, author Author) *CommitStatistic {
	return &CommitStatistic{Repo: repo, Branch: branch, Author: author, Stats: map[string]int{}}
}

// Add accumulates count under date, which must be formatted as YYYY-MM-DD.
func (s *CommitStatistic) Add(date string, count int) error {
	if !ValidDate(date) {
		return fmt.Errorf("invalid date: %q", date)
	}
	if s.Stats == nil {
		s.Stats = map[string]int{}
	}
	s.Stats[date] += count
	return nil
}

// Total returns the number of commits over every recorded day.
func (s *CommitStatistic) Total() int {
	total := 0
	for _, n := range s.Stats {
		total += n
	}
	return total
}

func ValidDate(date string) bool {
	if len(date) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

func dayOf(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(dateLayout)
}
