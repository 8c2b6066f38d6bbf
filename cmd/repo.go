package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/git"
)

type statusReport struct {
	Repo   string         `json:"repo" yaml:"repo"`
	Status git.WorkStatus `json:"status" yaml:"status"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [repo]",
		Short: "Print the working status of a repository",
		Long: `Print the single most pressing state of a repository, checked in this
order: untracked files, unstaged modifications, staged changes, commits not
on any remote. A clean repository reports "ok".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			report := statusReport{Repo: repo.Path(), Status: repo.WorkStatus()}
			return a.format.emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, report.Status)
				return err
			})
		},
	}
}

func newBranchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "branches [repo]",
		Short: "List local and remote-tracking branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			branches, err := repo.Branches()
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), branches, func(w io.Writer) error {
				for _, b := range branches {
					if _, err := fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Reference); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCurrentBranchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current-branch [repo]",
		Short: "Print the branch HEAD points to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			branch, err := repo.CurrentBranch()
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), branch, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, branch.Reference)
				return err
			})
		},
	}
}

func newFilesCmd(a *app) *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "List files by working tree state",
	}
	paths := func(use, short string, list func(*git.Repository) ([]string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [repo]",
			Short: short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, err := git.Open(repoArg(args, 0))
				if err != nil {
					return err
				}
				out, err := list(repo)
				if err != nil {
					return err
				}
				return a.format.emit(cmd.OutOrStdout(), out, func(w io.Writer) error {
					return writeLines(w, out)
				})
			},
		}
	}
	entries := func(use, short string, list func(*git.Repository) ([]git.WorktreeFile, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [repo]",
			Short: short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, err := git.Open(repoArg(args, 0))
				if err != nil {
					return err
				}
				out, err := list(repo)
				if err != nil {
					return err
				}
				return a.format.emit(cmd.OutOrStdout(), out, func(w io.Writer) error {
					for _, f := range out {
						if _, err := fmt.Fprintf(w, "%-8s %s\n", f.Status, f.Path); err != nil {
							return err
						}
					}
					return nil
				})
			},
		}
	}
	files.AddCommand(
		paths("untracked", "List untracked files", (*git.Repository).UntrackedFiles),
		paths("modified", "List files modified in the working tree", (*git.Repository).ModifiedFiles),
		entries("changed", "List every changed working tree file", (*git.Repository).ChangedFiles),
		entries("staged", "List files staged in the index", (*git.Repository).StagedFiles),
	)
	return files
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
