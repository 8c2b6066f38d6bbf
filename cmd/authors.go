package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/cache"
	"github.com/thiagokokada/giter-go/internal/git"
)

func (a *app) openCache() (cache.Store, error) {
	store, err := cache.OpenSQLite(a.cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open author cache: %w", err)
	}
	return store, nil
}

func closeCache(store cache.Store) {
	if err := store.Close(); err != nil {
		slog.Error("close author cache", slog.Any("error", err))
	}
}

func newAuthorsCmd(a *app) *cobra.Command {
	var (
		branchRef string
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "authors [repo]",
		Short: "List everyone who authored a commit on a branch",
		Long: `List the authors of every commit reachable from a branch. Rosters are
cached per repository and branch, and only commits added since the last
run are walked. With --all, print the union of every cached branch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			store, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(store)

			var authors []git.Author
			if all {
				authors, err = store.RepoAuthors(cmd.Context(), repo.Path())
			} else {
				var branch git.Branch
				branch, err = resolveBranch(repo, branchRef)
				if err == nil {
					authors, err = repo.Authors(cmd.Context(), store, branch)
				}
			}
			if err != nil {
				return err
			}
			return a.format.emit(cmd.OutOrStdout(), authors, func(w io.Writer) error {
				for _, author := range authors {
					if _, err := fmt.Fprintln(w, author); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&branchRef, "branch", "", "branch reference (default: current branch)")
	cmd.Flags().BoolVar(&all, "all", false, "union of every cached branch of the repository")
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the author cache",
	}
	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear [repo]",
		Short: "Drop cached author rosters of a repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(store)
			if all {
				return store.ClearAll(cmd.Context())
			}
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			return store.Clear(cmd.Context(), repo.Path())
		},
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "drop the rosters of every repository")
	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}
