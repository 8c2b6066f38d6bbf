package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/git"
	"github.com/thiagokokada/giter-go/internal/highlight"
)

type commitReport struct {
	Commit git.Commit        `json:"commit" yaml:"commit"`
	Files  []git.ChangedFile `json:"files" yaml:"files"`
}

func newShowCmd(a *app) *cobra.Command {
	var repoPath string
	cmd := &cobra.Command{
		Use:   "show <commit>",
		Short: "Show a commit and the files it changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoPath)
			if err != nil {
				return err
			}
			c, err := repo.Commit(args[0])
			if err != nil {
				return err
			}
			files, err := repo.CommitContent(c.ID)
			if err != nil {
				return err
			}
			report := commitReport{Commit: c, Files: files}
			return a.format.emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
				if _, err := io.WriteString(w, git.FormatCommitHeader(c)); err != nil {
					return err
				}
				if len(files) > 0 {
					if _, err := fmt.Fprintln(w); err != nil {
						return err
					}
				}
				return writeChangedFiles(w, files)
			})
		},
	}
	cmd.Flags().StringVarP(&repoPath, "repo", "C", ".", "repository path")
	return cmd
}

func newDiffTreeCmd(a *app) *cobra.Command {
	var repoPath string
	cmd := &cobra.Command{
		Use:   "diff-tree <old> <new>",
		Short: "List files that differ between two trees or commits",
		Long: `List files that differ between two trees, each given as a tree id or
any revision resolving to a commit. Pass "" as <old> to compare against the
empty tree.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoPath)
			if err != nil {
				return err
			}
			files, err := repo.TreeDiff(args[0], args[1])
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), files, func(w io.Writer) error {
				return writeChangedFiles(w, files)
			})
		},
	}
	cmd.Flags().StringVarP(&repoPath, "repo", "C", ".", "repository path")
	return cmd
}

func newDiffBlobCmd(a *app) *cobra.Command {
	var repoPath string
	cmd := &cobra.Command{
		Use:   "diff-blob <old> <new>",
		Short: "Show the line edit script between two blobs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoPath)
			if err != nil {
				return err
			}
			d, err := repo.ContentDiff(args[0], args[1])
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), d, func(w io.Writer) error {
				_, err := io.WriteString(w, d.Display)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&repoPath, "repo", "C", ".", "repository path")
	return cmd
}

func newFileDiffCmd(a *app) *cobra.Command {
	var (
		repoPath string
		color    bool
	)
	cmd := &cobra.Command{
		Use:   "file-diff <commit> <path>",
		Short: "Show how a commit changed one file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoPath)
			if err != nil {
				return err
			}
			d, err := repo.FileDiff(args[0], args[1])
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), d, func(w io.Writer) error {
				if color {
					return highlight.RenderDiff(w, d.Display, args[1], highlight.ThemeFromString(a.cfg.Diff.Theme))
				}
				_, err := io.WriteString(w, d.Display)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&repoPath, "repo", "C", ".", "repository path")
	cmd.Flags().BoolVar(&color, "color", false, "syntax highlight the text output")
	return cmd
}

func writeChangedFiles(w io.Writer, files []git.ChangedFile) error {
	for _, f := range files {
		path := f.Path
		if f.Status == git.FileRenamed {
			path = f.PrevPath + " -> " + f.Path
		}
		marker := ""
		if f.IsBinary || f.PrevIsBinary {
			marker = " (binary)"
		}
		if _, err := fmt.Fprintf(w, "%-8s %s%s\n", f.Status, path, marker); err != nil {
			return err
		}
	}
	return nil
}
