package git

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// FilterConditions selects a page of commits out of an ancestry walk.
// The zero Author matches every commit.
type FilterConditions struct {
	LastID    string
	Start     int
	Count     int
	Author    Author
	StartTime int64
	EndTime   int64
}

// DefaultFilterConditions matches everything.
func DefaultFilterConditions() FilterConditions {
	return FilterConditions{
		Count:     math.MaxInt,
		StartTime: math.MinInt64,
		EndTime:   math.MaxInt64,
	}
}

// ParseFilterConditions reads conditions from a loosely typed map such as a
// decoded JSON object. Missing keys and values of the wrong type keep their
// defaults. Both snake_case and camelCase keys are accepted.
func ParseFilterConditions(m map[string]any) FilterConditions {
	cond := DefaultFilterConditions()
	if v, ok := lookup(m, "last_id", "lastId"); ok {
		if s, ok := v.(string); ok {
			cond.LastID = strings.TrimSpace(s)
		}
	}
	if v, ok := lookup(m, "start"); ok {
		if n, ok := toInt64(v); ok && n >= 0 && n <= math.MaxInt {
			cond.Start = int(n)
		}
	}
	if v, ok := lookup(m, "count"); ok {
		if n, ok := toInt64(v); ok && n >= 0 && n <= math.MaxInt {
			cond.Count = int(n)
		}
	}
	if v, ok := lookup(m, "author"); ok {
		if a, ok := toAuthor(v); ok {
			cond.Author = a
		}
	}
	if v, ok := lookup(m, "start_time", "startTime"); ok {
		if n, ok := toInt64(v); ok {
			cond.StartTime = n
		}
	}
	if v, ok := lookup(m, "end_time", "endTime"); ok {
		if n, ok := toInt64(v); ok {
			cond.EndTime = n
		}
	}
	return cond
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toAuthor(v any) (Author, bool) {
	switch a := v.(type) {
	case Author:
		return a, true
	case *Author:
		if a == nil {
			return Author{}, false
		}
		return *a, true
	case map[string]any:
		name, nameOK := a["name"].(string)
		email, emailOK := a["email"].(string)
		if !nameOK && !emailOK {
			return Author{}, false
		}
		return Author{Name: name, Email: email}, true
	case map[string]string:
		return Author{Name: a["name"], Email: a["email"]}, true
	default:
		return Author{}, false
	}
}

// Matches applies the author and time predicates.
func (f FilterConditions) Matches(author Author, millis int64) bool {
	if !f.Author.IsZero() && f.Author != author {
		return false
	}
	return millis >= f.StartTime && millis < f.EndTime
}

// filterPass carries the cursor, offset and count state of one filtering
// run. The cursor is searched over the raw walk, the offset and count over
// commits that pass the predicates.
type filterPass struct {
	cond       FilterConditions
	cursorSeen bool
	skipped    int
	emitted    int
}

func newFilterPass(cond FilterConditions) *filterPass {
	return &filterPass{cond: cond, cursorSeen: cond.LastID == ""}
}

// step reports whether the commit belongs to the page and whether the pass
// is complete.
func (p *filterPass) step(id string, author Author, millis int64) (emit, done bool) {
	if p.emitted >= p.cond.Count {
		return false, true
	}
	if !p.cursorSeen {
		if cursorMatches(p.cond.LastID, id) {
			p.cursorSeen = true
		}
		return false, false
	}
	if !p.cond.Matches(author, millis) {
		return false, false
	}
	if p.skipped < p.cond.Start {
		p.skipped++
		return false, false
	}
	p.emitted++
	return true, p.emitted >= p.cond.Count
}

// cursorMatches accepts an abbreviated cursor the same way git accepts
// abbreviated hashes.
func cursorMatches(cursor, id string) bool {
	if len(cursor) == len(id) {
		return strings.EqualFold(cursor, id)
	}
	return len(cursor) >= 4 && len(cursor) < len(id) && strings.EqualFold(cursor, id[:len(cursor)])
}

// FilterCommits applies cond to an already materialized walk. A cursor that
// never appears yields an empty page.
func FilterCommits(commits []Commit, cond FilterConditions) []Commit {
	pass := newFilterPass(cond)
	var out []Commit
	for _, c := range commits {
		emit, done := pass.step(c.ID, c.Author(), c.Datetime)
		if emit {
			out = append(out, c)
		}
		if done {
			break
		}
	}
	return out
}

func runFilter(src commitSource, cond FilterConditions, fn func(*object.Commit)) error {
	pass := newFilterPass(cond)
	for {
		c, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("iterate commits: %w", err)
		}
		emit, done := pass.step(c.Hash.String(), Author{Name: c.Author.Name, Email: c.Author.Email}, commitMillis(c))
		if emit {
			fn(c)
		}
		if done {
			return nil
		}
	}
}

// Filter walks from start and returns the page cond selects.
func (r *Repository) Filter(start Start, cond FilterConditions) ([]Commit, error) {
	const op = "filter"
	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := r.openWalk(op, start)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var commits []Commit
	err = runFilter(src, cond, func(c *object.Commit) {
		commits = append(commits, newCommit(c, r.path))
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return commits, nil
}

// FilterCount returns len(Filter(start, cond)) without building commit
// records.
func (r *Repository) FilterCount(start Start, cond FilterConditions) (int, error) {
	const op = "filter_count"
	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := r.openWalk(op, start)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	n := 0
	if err := runFilter(src, cond, func(*object.Commit) { n++ }); err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}
