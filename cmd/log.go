package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/git"
)

type logOptions struct {
	branch    string
	from      string
	count     int
	filters   []string
	author    string
	countOnly bool
	graph     bool
}

type countReport struct {
	Count int `json:"count" yaml:"count"`
}

func newLogCmd(a *app) *cobra.Command {
	opts := &logOptions{}
	cmd := &cobra.Command{
		Use:   "log [repo]",
		Short: "List commits reachable from HEAD, a branch or a commit",
		Long: `List commits newest first. Without filters the walk stops after --count
commits. Filters select a page: --filter last_id=<id> resumes after the
commit a previous page ended with, start=<n> skips matching commits,
start_time/end_time bound the commit time in milliseconds (half open).`,
		Example: `  giter log --count 20
  giter log --branch refs/remotes/origin/main --author "Alice <alice@example.com>"
  giter log --filter last_id=1a2b3c4d --filter count=50 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := git.Open(repoArg(args, 0))
			if err != nil {
				return err
			}
			start, err := opts.start()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				opts.count = a.cfg.Walk.DefaultCount
			}
			filtered := len(opts.filters) > 0 || opts.author != "" || opts.countOnly
			if !filtered {
				commits, err := repo.Walk(start, walkLimit(opts.count))
				if err != nil {
					return err
				}
				return a.emitCommits(cmd.OutOrStdout(), commits, opts.graph)
			}

			cond, err := opts.conditions(cmd.Flags().Changed("count"))
			if err != nil {
				return err
			}
			if opts.countOnly {
				n, err := repo.FilterCount(start, cond)
				if err != nil {
					return err
				}
				report := countReport{Count: n}
				return a.format.emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, n)
					return err
				})
			}
			commits, err := repo.Filter(start, cond)
			if err != nil {
				return err
			}
			return a.emitCommits(cmd.OutOrStdout(), commits, opts.graph)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.branch, "branch", "", "walk from this branch reference (e.g. refs/heads/main)")
	flags.StringVar(&opts.from, "from", "", "walk from this commit")
	flags.IntVarP(&opts.count, "count", "n", 0, "maximum number of commits, 0 for all (default walk.default_count)")
	flags.StringArrayVarP(&opts.filters, "filter", "f", nil, "filter condition as key=value (repeatable)")
	flags.StringVar(&opts.author, "author", "", `only commits by this author, as "Name <email>"`)
	flags.BoolVar(&opts.countOnly, "count-only", false, "print the number of matching commits")
	flags.BoolVar(&opts.graph, "graph", false, "draw the commit graph in text output")
	cmd.MarkFlagsMutuallyExclusive("branch", "from")
	return cmd
}

func (o *logOptions) start() (git.Start, error) {
	switch {
	case o.branch != "":
		ref := o.branch
		if !strings.HasPrefix(ref, "refs/") {
			return git.Start{}, fmt.Errorf("--branch needs a full reference such as refs/heads/%s", ref)
		}
		return git.FromBranch(git.BranchFromReference(ref)), nil
	case o.from != "":
		return git.FromCommit(o.from), nil
	default:
		return git.FromHead(), nil
	}
}

// walkLimit maps the --count flag onto Walk, where 0 means no limit.
func walkLimit(count int) int {
	if count <= 0 {
		return math.MaxInt
	}
	return count
}

// conditions merges --filter, --author and --count. An explicit positive
// --count wins over count= in --filter; counting is unbounded unless asked.
func (o *logOptions) conditions(countSet bool) (git.FilterConditions, error) {
	raw, err := parseFilterArgs(o.filters)
	if err != nil {
		return git.FilterConditions{}, err
	}
	if o.author != "" {
		author, err := parseAuthor(o.author)
		if err != nil {
			return git.FilterConditions{}, err
		}
		raw["author"] = map[string]any{"name": author.Name, "email": author.Email}
	}
	_, hasCount := raw["count"]
	switch {
	case countSet && o.count > 0:
		raw["count"] = o.count
	case !countSet && !hasCount && !o.countOnly && o.count > 0:
		// Listings stay bounded by walk.default_count.
		raw["count"] = o.count
	}
	return git.ParseFilterConditions(raw), nil
}

// parseFilterArgs turns key=value pairs into the loosely typed map the
// filter parser reads. Integral values become json.Number; author accepts
// "Name <email>".
func parseFilterArgs(args []string) (map[string]any, error) {
	raw := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", arg)
		}
		value = strings.TrimSpace(value)
		switch key {
		case "author":
			author, err := parseAuthor(value)
			if err != nil {
				return nil, err
			}
			raw[key] = map[string]any{"name": author.Name, "email": author.Email}
		case "last_id", "lastId":
			raw[key] = value
		default:
			if _, err := strconv.ParseInt(value, 10, 64); err == nil {
				raw[key] = json.Number(value)
			} else {
				raw[key] = value
			}
		}
	}
	return raw, nil
}

func parseAuthor(raw string) (git.Author, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return git.Author{}, fmt.Errorf("invalid author %q: want \"Name <email>\": %w", raw, err)
	}
	return git.Author{Name: addr.Name, Email: addr.Address}, nil
}

func (a *app) emitCommits(w io.Writer, commits []git.Commit, graph bool) error {
	return a.format.emit(w, commits, func(w io.Writer) error {
		var lanes []string
		if graph {
			lanes = git.GraphLines(commits)
		}
		for i, c := range commits {
			line := git.FormatSummary(c)
			if graph {
				line = lanes[i] + "  " + line
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	})
}
