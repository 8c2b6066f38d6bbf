package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/buildinfo"
	"github.com/thiagokokada/giter-go/internal/config"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	verbose    bool
	output     string

	cfg    *config.Config
	format format
}

// Run executes the command line and cancels running commands on SIGINT or
// SIGTERM. A failure has already been reported on stderr when Run returns
// it.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root, a := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		f := a.format
		if f == "" {
			f = formatText
		}
		writeError(root.ErrOrStderr(), f, err)
		return err
	}
	return nil
}

// NewRootCmd creates the giter command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "giter",
		Short: "Inspect git repositories from the command line",
		Long: `giter reports the working status, history, diffs and contributors of
local git repositories. Every command prints JSON, YAML or plain text.`,
		Version:       buildinfo.Summary(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVarP(&a.output, "output", "o", string(formatText), "output format: text, json or yaml")

	root.AddCommand(
		newStatusCmd(a),
		newBranchesCmd(a),
		newCurrentBranchCmd(a),
		newFilesCmd(a),
		newLogCmd(a),
		newShowCmd(a),
		newDiffTreeCmd(a),
		newDiffBlobCmd(a),
		newFileDiffCmd(a),
		newContribCmd(a),
		newAuthorsCmd(a),
		newCacheCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

func (a *app) init() error {
	f, err := parseFormat(a.output)
	if err != nil {
		return err
	}
	a.format = f
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Debug("configuration loaded",
		slog.String("cache", cfg.Cache.Path),
		slog.String("theme", cfg.Diff.Theme),
		slog.Duration("debounce", cfg.Watch.Debounce),
	)
	return nil
}

// repoArg returns the repository argument at index i, defaulting to the
// current directory.
func repoArg(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return "."
}
