package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/events"
	"github.com/thiagokokada/giter-go/internal/git"
)

func newContribCmd(a *app) *cobra.Command {
	var branchRef string
	cmd := &cobra.Command{
		Use:   "contrib [repo]",
		Short: "Count commits per author and day on a branch",
		Long: `Count the commits of every author per calendar day (UTC) over the whole
history of a branch. The count runs in the background and its result is
delivered once on the event bus; the command waits for it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			branch, err := resolveBranch(repo, branchRef)
			if err != nil {
				return err
			}

			bus := events.NewBus()
			token := uuid.NewString()
			results := make(chan git.ContributionResult, 1)
			unsubscribe := bus.Subscribe(git.ContributionTopic(token), func(_ string, payload any) {
				if r, ok := payload.(git.ContributionResult); ok {
					results <- r
				}
			})
			defer unsubscribe()

			git.RunBranchContribution(repo.Path(), branch, token, bus)
			var result git.ContributionResult
			select {
			case result = <-results:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
			slog.Debug("contribution received", slog.String("token", result.Token), slog.Int("authors", len(result.Stats)))
			if result.Error != nil {
				return &contributionError{payload: result.Error}
			}
			return a.format.emit(cmd.OutOrStdout(), result, func(w io.Writer) error {
				return writeContribution(w, result)
			})
		},
	}
	cmd.Flags().StringVar(&branchRef, "branch", "", "branch reference (default: current branch)")
	return cmd
}

// resolveBranch accepts a full reference, or a short local branch name, or
// nothing for the current branch.
func resolveBranch(repo *git.Repository, ref string) (git.Branch, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return repo.CurrentBranch()
	case strings.HasPrefix(ref, "refs/"):
		return git.BranchFromReference(ref), nil
	default:
		return git.BranchFromReference("refs/heads/" + ref), nil
	}
}

func writeContribution(w io.Writer, result git.ContributionResult) error {
	for _, s := range result.Stats {
		if _, err := fmt.Fprintf(w, "%6d  %s\n", s.Total(), s.Author); err != nil {
			return err
		}
	}
	return nil
}

// contributionError carries a failure reported through the event bus so
// it renders with its original code.
type contributionError struct {
	payload *git.ErrorPayload
}

func (e *contributionError) Error() string     { return e.payload.Message }
func (e *contributionError) ErrorCode() int    { return e.payload.Code }
func (e *contributionError) Operation() string { return e.payload.Op }
func (e *contributionError) Module() string    { return e.payload.Module }
