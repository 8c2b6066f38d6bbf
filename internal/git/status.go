package git

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// WorkStatus summarizes a working tree. The values mirror the bit flags the
// desktop client expects.
type WorkStatus uint32

const (
	WorkStatusNone        WorkStatus = 0
	WorkStatusOK          WorkStatus = 1
	WorkStatusAdded       WorkStatus = 1 << 1
	WorkStatusModified    WorkStatus = 1 << 2
	WorkStatusUntracked   WorkStatus = 1 << 3
	WorkStatusUncommitted WorkStatus = 1 << 4
	WorkStatusUnpushed    WorkStatus = 1 << 5
)

func (s WorkStatus) String() string {
	switch s {
	case WorkStatusOK:
		return "ok"
	case WorkStatusAdded:
		return "added"
	case WorkStatusModified:
		return "modified"
	case WorkStatusUntracked:
		return "untracked"
	case WorkStatusUncommitted:
		return "uncommitted"
	case WorkStatusUnpushed:
		return "unpushed"
	default:
		return "none"
	}
}

func (s WorkStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// statusStep is one transition of the status state machine: check either
// concludes with state, passes to the next step, or fails, which also
// passes to the next step.
type statusStep struct {
	name  string
	state WorkStatus
	check func() (bool, error)
}

// WorkStatus runs the status heuristics in order and returns the state of
// the first conclusive one. It never fails: an inconclusive step is logged
// and skipped, and a repository nothing can be learned about is OK.
func (r *Repository) WorkStatus() WorkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan := &statusScan{repo: r.repo}
	steps := []statusStep{
		{name: "untracked", state: WorkStatusUntracked, check: scan.hasUntracked},
		{name: "modified", state: WorkStatusModified, check: scan.hasModified},
		{name: "uncommitted", state: WorkStatusUncommitted, check: scan.hasStaged},
		{name: "unpushed", state: WorkStatusUnpushed, check: r.hasUnpushedLocked},
	}
	for _, step := range steps {
		conclusive, err := step.check()
		if err != nil {
			slog.Debug("work status step inconclusive",
				slog.String("repo", r.path),
				slog.String("step", step.name),
				slog.Any("error", err),
			)
			continue
		}
		if conclusive {
			return step.state
		}
	}
	return WorkStatusOK
}

// statusScan runs the working tree scan once and shares it between steps.
type statusScan struct {
	repo   *gitlib.Repository
	done   bool
	status gitlib.Status
	err    error
}

func (s *statusScan) get() (gitlib.Status, error) {
	if !s.done {
		s.done = true
		wt, err := s.repo.Worktree()
		if err != nil {
			s.err = err
			return nil, s.err
		}
		s.status, s.err = wt.Status()
	}
	return s.status, s.err
}

func (s *statusScan) any(match func(*gitlib.FileStatus) bool) (bool, error) {
	status, err := s.get()
	if err != nil {
		return false, err
	}
	for _, st := range status {
		if match(st) {
			return true, nil
		}
	}
	return false, nil
}

func (s *statusScan) hasUntracked() (bool, error) {
	return s.any(isUntracked)
}

func (s *statusScan) hasModified() (bool, error) {
	return s.any(isWorktreeModified)
}

func (s *statusScan) hasStaged() (bool, error) {
	return s.any(isStaged)
}

func isUntracked(st *gitlib.FileStatus) bool {
	return st.Worktree == gitlib.Untracked
}

func isWorktreeModified(st *gitlib.FileStatus) bool {
	return st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked
}

func isStaged(st *gitlib.FileStatus) bool {
	return st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked
}

// hasUnpushedLocked reports true when no remote tracking ref with the
// current branch's short name contains the local tip. The answer is
// inconclusive unless at least one remote tip could be compared.
func (r *Repository) hasUnpushedLocked() (bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		return false, fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return false, errors.New("HEAD is detached")
	}
	local, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return false, fmt.Errorf("read HEAD commit: %w", err)
	}
	remotes, err := r.repo.Remotes()
	if err != nil {
		return false, fmt.Errorf("list remotes: %w", err)
	}
	tracked := false
	for _, remote := range remotes {
		name := plumbing.NewRemoteReferenceName(remote.Config().Name, head.Name().Short())
		ref, err := r.repo.Reference(name, true)
		if err != nil {
			continue
		}
		remoteTip, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			continue
		}
		contains, err := local.IsAncestor(remoteTip)
		if err != nil {
			continue
		}
		tracked = true
		if contains {
			return false, nil
		}
	}
	if !tracked {
		return false, fmt.Errorf("branch %s has no remote tracking ref", head.Name().Short())
	}
	return true, nil
}

// WorktreeFile is one path reported by the working tree scan.
type WorktreeFile struct {
	Path   string     `json:"path" yaml:"path"`
	Status FileStatus `json:"status" yaml:"status"`
}

// UntrackedFiles lists paths unknown to the index.
func (r *Repository) UntrackedFiles() ([]string, error) {
	return r.scanPaths("untracked_files", isUntracked)
}

// ModifiedFiles lists tracked paths with working tree changes.
func (r *Repository) ModifiedFiles() ([]string, error) {
	return r.scanPaths("modified_files", isWorktreeModified)
}

// ChangedFiles lists working tree changes not yet staged, untracked
// paths included.
func (r *Repository) ChangedFiles() ([]WorktreeFile, error) {
	return r.scanFiles("changed_files", func(st *gitlib.FileStatus) (FileStatus, bool) {
		return fileStatusFromCode(st.Worktree)
	})
}

// StagedFiles lists changes recorded in the index.
func (r *Repository) StagedFiles() ([]WorktreeFile, error) {
	return r.scanFiles("staged_files", func(st *gitlib.FileStatus) (FileStatus, bool) {
		if st.Staging == gitlib.Untracked {
			return "", false
		}
		return fileStatusFromCode(st.Staging)
	})
}

func (r *Repository) scanPaths(op string, match func(*gitlib.FileStatus) bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan := &statusScan{repo: r.repo}
	status, err := scan.get()
	if err != nil {
		return nil, newError(CodeGetStatusError, op, err)
	}
	var paths []string
	for path, st := range status {
		if match(st) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Repository) scanFiles(op string, pick func(*gitlib.FileStatus) (FileStatus, bool)) ([]WorktreeFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scan := &statusScan{repo: r.repo}
	status, err := scan.get()
	if err != nil {
		return nil, newError(CodeGetStatusError, op, err)
	}
	var files []WorktreeFile
	for path, st := range status {
		if fs, ok := pick(st); ok {
			files = append(files, WorktreeFile{Path: path, Status: fs})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func fileStatusFromCode(code gitlib.StatusCode) (FileStatus, bool) {
	switch code {
	case gitlib.Untracked, gitlib.Added, gitlib.Copied:
		return FileAdded, true
	case gitlib.Modified, gitlib.UpdatedButUnmerged:
		return FileModified, true
	case gitlib.Deleted:
		return FileDeleted, true
	case gitlib.Renamed:
		return FileRenamed, true
	default:
		return "", false
	}
}
