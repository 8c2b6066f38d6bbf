package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/giter-go/internal/highlight"
)

// TreeDiff lists the files that differ between two trees, identified by
// tree or commit id. An empty oldID diffs newID against the empty tree.
func (r *Repository) TreeDiff(oldID, newID string) ([]ChangedFile, error) {
	const op = "tree_diff"
	r.mu.Lock()
	defer r.mu.Unlock()

	oldTree := &object.Tree{}
	if strings.TrimSpace(oldID) != "" {
		t, err := r.resolveTree(op, oldID)
		if err != nil {
			return nil, err
		}
		oldTree = t
	}
	newTree, err := r.resolveTree(op, newID)
	if err != nil {
		return nil, err
	}
	return r.changedFiles(op, oldTree, newTree)
}

// CommitContent lists the files a commit changed relative to its first
// parent. A root commit is compared against the empty tree.
func (r *Repository) CommitContent(id string) ([]ChangedFile, error) {
	const op = "commit_content"
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.resolveCommit(op, id)
	if err != nil {
		return nil, err
	}
	oldTree, newTree, err := r.commitTrees(op, c)
	if err != nil {
		return nil, err
	}
	return r.changedFiles(op, oldTree, newTree)
}

func (r *Repository) commitTrees(op string, c *object.Commit) (*object.Tree, *object.Tree, error) {
	newTree, err := c.Tree()
	if err != nil {
		return nil, nil, newError(CodeTreeNotFound, op, fmt.Errorf("read tree of %s: %w", c.Hash, err))
	}
	oldTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, nil, newError(CodeCommitNotFound, op, fmt.Errorf("read parent of %s: %w", c.Hash, err))
		}
		oldTree, err = parent.Tree()
		if err != nil {
			return nil, nil, newError(CodeTreeNotFound, op, fmt.Errorf("read tree of %s: %w", parent.Hash, err))
		}
	}
	return oldTree, newTree, nil
}

// resolveTree accepts a tree id or anything that resolves to a commit.
func (r *Repository) resolveTree(op, id string) (*object.Tree, error) {
	id = strings.TrimSpace(id)
	if plumbing.IsHash(id) {
		if t, err := r.repo.TreeObject(plumbing.NewHash(id)); err == nil {
			return t, nil
		}
	}
	c, err := r.resolveCommit(op, id)
	if err != nil {
		return nil, newError(CodeTreeNotFound, op, err)
	}
	t, err := c.Tree()
	if err != nil {
		return nil, newError(CodeTreeNotFound, op, fmt.Errorf("read tree of %s: %w", c.Hash, err))
	}
	return t, nil
}

func (r *Repository) treeChanges(op string, oldTree, newTree *object.Tree) (object.Changes, error) {
	changes, err := object.DiffTreeWithOptions(context.Background(), oldTree, newTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, wrap(op, fmt.Errorf("diff trees: %w", err))
	}
	return changes, nil
}

func (r *Repository) changedFiles(op string, oldTree, newTree *object.Tree) ([]ChangedFile, error) {
	changes, err := r.treeChanges(op, oldTree, newTree)
	if err != nil {
		return nil, err
	}
	files := make([]ChangedFile, 0, len(changes))
	for _, ch := range changes {
		files = append(files, r.changedFile(ch))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (r *Repository) changedFile(ch *object.Change) ChangedFile {
	from, to := ch.From, ch.To
	f := ChangedFile{}
	switch {
	case from.Name == "":
		f.Status = FileAdded
		f.Path = to.Name
	case to.Name == "":
		f.Status = FileDeleted
		f.Path = from.Name
	case from.Name != to.Name:
		f.Status = FileRenamed
		f.Path = to.Name
		f.PrevPath = from.Name
	default:
		f.Status = FileModified
		f.Path = to.Name
	}
	if to.Name != "" {
		f.ObjectID = to.TreeEntry.Hash.String()
		f.Size, f.BlobExist, f.IsBinary = r.blobInfo(to.TreeEntry.Hash)
	}
	if from.Name != "" {
		f.PrevObjectID = from.TreeEntry.Hash.String()
		_, _, f.PrevIsBinary = r.blobInfo(from.TreeEntry.Hash)
	}
	return f
}

// blobInfo never fails: a blob missing from the object store, such as a
// submodule commit or an unfetched object, reports exists=false.
func (r *Repository) blobInfo(hash plumbing.Hash) (size int64, exists, isBinary bool) {
	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return 0, false, false
	}
	rd, err := blob.Reader()
	if err != nil {
		return blob.Size, true, false
	}
	defer rd.Close()
	isBinary, err = binary.IsBinary(rd)
	if err != nil {
		isBinary = false
	}
	return blob.Size, true, isBinary
}

// ContentDiff computes a line edit script between two blobs.
func (r *Repository) ContentDiff(oldID, newID string) (ContentDiff, error) {
	const op = "content_diff"
	r.mu.Lock()
	defer r.mu.Unlock()

	oldText, err := r.blobText(op, oldID)
	if err != nil {
		return ContentDiff{}, err
	}
	newText, err := r.blobText(op, newID)
	if err != nil {
		return ContentDiff{}, err
	}
	return DiffText(oldText, newText), nil
}

// FileDiff compares one path of a commit against the commit's first
// parent. A side where the path does not exist diffs as empty text.
func (r *Repository) FileDiff(commitID, path string) (ContentDiff, error) {
	const op = "file_diff"
	r.mu.Lock()
	defer r.mu.Unlock()

	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return ContentDiff{}, newError(CodeInvalidFilePath, op, errors.New("path not specified"))
	}
	c, err := r.resolveCommit(op, commitID)
	if err != nil {
		return ContentDiff{}, err
	}
	oldTree, newTree, err := r.commitTrees(op, c)
	if err != nil {
		return ContentDiff{}, err
	}
	changes, err := r.treeChanges(op, oldTree, newTree)
	if err != nil {
		return ContentDiff{}, err
	}

	var oldHash, newHash plumbing.Hash
	found := false
	for _, ch := range changes {
		if ch.To.Name == path || (ch.To.Name == "" && ch.From.Name == path) {
			oldHash, newHash = ch.From.TreeEntry.Hash, ch.To.TreeEntry.Hash
			found = true
			break
		}
	}
	if !found {
		// Unchanged in this commit: both sides are the current content.
		entry, err := newTree.FindEntry(path)
		if err != nil {
			return ContentDiff{}, newError(CodeInvalidFilePath, op, fmt.Errorf("%s not found in %s: %w", path, c.Hash, err))
		}
		oldHash, newHash = entry.Hash, entry.Hash
	}

	oldText, err := r.optionalBlobText(op, oldHash)
	if err != nil {
		return ContentDiff{}, err
	}
	newText, err := r.optionalBlobText(op, newHash)
	if err != nil {
		return ContentDiff{}, err
	}
	d := DiffText(oldText, newText)
	d.Language = highlight.Language(path)
	return d, nil
}

func (r *Repository) blobText(op, id string) (string, error) {
	id = strings.TrimSpace(id)
	if !plumbing.IsHash(id) {
		return "", newError(CodeBlobNotFound, op, fmt.Errorf("invalid blob id %q", id))
	}
	return r.readBlob(op, plumbing.NewHash(id))
}

func (r *Repository) optionalBlobText(op string, hash plumbing.Hash) (string, error) {
	if hash.IsZero() {
		return "", nil
	}
	return r.readBlob(op, hash)
}

func (r *Repository) readBlob(op string, hash plumbing.Hash) (string, error) {
	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return "", newError(CodeBlobNotFound, op, fmt.Errorf("read blob %s: %w", hash, err))
	}
	rd, err := blob.Reader()
	if err != nil {
		return "", newError(CodeReadFileError, op, fmt.Errorf("open blob %s: %w", hash, err))
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", newError(CodeReadFileError, op, fmt.Errorf("read blob %s: %w", hash, err))
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// DiffText builds the line edit script turning oldText into newText and a
// display rendering prefixing each line with "  ", "- " or "+ ".
func DiffText(oldText, newText string) ContentDiff {
	a, b := splitLines(oldText), splitLines(newText)
	matcher := difflib.NewMatcher(a, b)
	codes := matcher.GetOpCodes()

	ops := make([]DiffOp, 0, len(codes))
	var display strings.Builder
	for _, code := range codes {
		tag, ok := diffTag(code.Tag)
		if !ok {
			continue
		}
		ops = append(ops, DiffOp{Tag: tag, OldStart: code.I1, OldEnd: code.I2, NewStart: code.J1, NewEnd: code.J2})
		switch tag {
		case DiffEqual:
			writeLines(&display, "  ", a[code.I1:code.I2])
		case DiffDelete:
			writeLines(&display, "- ", a[code.I1:code.I2])
		case DiffInsert:
			writeLines(&display, "+ ", b[code.J1:code.J2])
		case DiffReplace:
			writeLines(&display, "- ", a[code.I1:code.I2])
			writeLines(&display, "+ ", b[code.J1:code.J2])
		}
	}
	return ContentDiff{Old: oldText, New: newText, Ops: ops, Display: display.String()}
}

func diffTag(tag byte) (DiffTag, bool) {
	switch tag {
	case 'e':
		return DiffEqual, true
	case 'i':
		return DiffInsert, true
	case 'd':
		return DiffDelete, true
	case 'r':
		return DiffReplace, true
	default:
		return "", false
	}
}

// splitLines keeps line terminators so that a missing final newline is a
// visible difference.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(b *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
}
