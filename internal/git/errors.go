package git

import (
	"errors"
	"fmt"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ModuleName tags every Error surfaced by this package.
const ModuleName = "giter-utils"

// Code identifies an error kind on the wire. The numeric value is the
// position in the list below, so new codes may only be appended.
type Code int

const (
	CodeNotValidUtf8 Code = iota
	CodeIOError
	CodeReadFileError
	CodeNoOwner
	CodeGetStatusError
	CodeIndexIsDetached
	CodeRepoNotFound
	CodeBlobNotFound
	CodeRepoIsBare
	CodeBranchNotFound
	CodeSwitchBranchError
	CodeCommitNotFound
	CodeCurrentBranchNotFound
	CodeHasConflicts
	CodeUserUnConfigured
	CodeUnStagedFile
	CodeTreeNotFound
	CodeRemoteNotFound
	CodeBranchNotTrackAny
	CodeSshAuthorizeError
	CodeUserAuthorizeError
	CodeRemoteHeadHasNotInLocal
	CodePushNeedNameAndPassword
	CodeRepoAuthorNoConfig
	CodeRepoHasConflicts
	CodeNoStagedFile
	CodePushOtherError
	CodeInvalidFilePath
	CodeTargetReferenceNotDirect
	CodeSwitchWillBeOverwrittenByMerge
	CodeBuildMergeCommitError
	CodeCommitBeforePullWouldBeOverwrittenByMerge
	CodeCantPull
	CodeOtherError
)

var codeNames = [...]string{
	"NotValidUtf8",
	"IOError",
	"ReadFileError",
	"NoOwner",
	"GetStatusError",
	"IndexIsDetached",
	"RepoNotFound",
	"BlobNotFound",
	"RepoIsBare",
	"BranchNotFound",
	"SwitchBranchError",
	"CommitNotFound",
	"CurrentBranchNotFound",
	"HasConflicts",
	"UserUnConfigured",
	"UnStagedFile",
	"TreeNotFound",
	"RemoteNotFound",
	"BranchNotTrackAny",
	"SshAuthorizeError",
	"UserAuthorizeError",
	"RemoteHeadHasNotInLocal",
	"PushNeedNameAndPassword",
	"RepoAuthorNoConfig",
	"RepoHasConflicts",
	"NoStagedFile",
	"PushOtherError",
	"InvalidFilePath",
	"TargetReferenceNotDirect",
	"SwitchWillBeOverwrittenByMerge",
	"BuildMergeCommitError",
	"CommitBeforePullWouldBeOverwrittenByMerge",
	"CantPull",
	"OtherError",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

// Codes returns every known code in wire order.
func Codes() []Code {
	codes := make([]Code, len(codeNames))
	for i := range codes {
		codes[i] = Code(i)
	}
	return codes
}

// Error is the failure type returned by repository operations.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the wire code.
func (e *Error) ErrorCode() int { return int(e.Code) }

// Operation returns the name of the failing operation.
func (e *Error) Operation() string { return e.Op }

// Module returns the originating module tag.
func (e *Error) Module() string { return ModuleName }

func newError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// wrap classifies a lower-layer error. Errors that are already *Error pass
// through untouched so the innermost classification wins.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return err
	}
	return newError(classify(err), op, err)
}

func classify(err error) Code {
	switch {
	case errors.Is(err, gitlib.ErrRepositoryNotExists):
		return CodeRepoNotFound
	case errors.Is(err, gitlib.ErrIsBareRepository):
		return CodeRepoIsBare
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return CodeBranchNotFound
	case errors.Is(err, gitlib.ErrRemoteNotFound):
		return CodeRemoteNotFound
	case errors.Is(err, object.ErrFileNotFound):
		return CodeInvalidFilePath
	default:
		return CodeOtherError
	}
}
