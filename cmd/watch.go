package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/giter-go/internal/debounce"
	"github.com/thiagokokada/giter-go/internal/events"
	"github.com/thiagokokada/giter-go/internal/git"
	"github.com/thiagokokada/giter-go/internal/watch"
)

// statusChange is published on events.TopicStatusChanged.
type statusChange struct {
	Repo     string         `json:"repo" yaml:"repo"`
	Status   git.WorkStatus `json:"status" yaml:"status"`
	Previous git.WorkStatus `json:"previous" yaml:"previous"`
	Time     int64          `json:"time" yaml:"time"`
}

// pathChange is published on events.TopicChanged for every relevant file
// system event, before debouncing.
type pathChange struct {
	Repo string `json:"repo" yaml:"repo"`
	Path string `json:"path" yaml:"path"`
	Op   string `json:"op" yaml:"op"`
}

// statusWatcher routes multiplexer events to the repository they belong to
// and republishes the work status once a burst of events settles.
type statusWatcher struct {
	mu    sync.Mutex
	repos map[string]*git.Repository
	last  map[string]git.WorkStatus

	bus   *events.Bus
	group *debounce.Group
	// unwatch, when set, unregisters a root that stopped being tracked.
	unwatch func(root string) error
}

func newStatusWatcher(bus *events.Bus, delay time.Duration) *statusWatcher {
	s := &statusWatcher{
		repos: map[string]*git.Repository{},
		last:  map[string]git.WorkStatus{},
		bus:   bus,
	}
	s.group = debounce.NewGroup(delay, s.refresh)
	return s
}

// add starts tracking repo and publishes its current status.
func (s *statusWatcher) add(repo *git.Repository) {
	s.mu.Lock()
	s.repos[repo.Path()] = repo
	s.last[repo.Path()] = git.WorkStatusNone
	s.mu.Unlock()
	s.refresh(repo.Path())
}

// route returns the innermost tracked repository containing path.
func (s *statusWatcher) route(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := ""
	for root := range s.repos {
		if git.PathWithin(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

func (s *statusWatcher) handle(ev fsnotify.Event) {
	if watch.Ignored(filepath.Base(ev.Name)) {
		return
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if s.remove(filepath.Clean(ev.Name)) {
			return
		}
	}
	root, ok := s.route(ev.Name)
	if !ok {
		return
	}
	s.bus.Publish(events.TopicChanged, pathChange{Repo: root, Path: ev.Name, Op: ev.Op.String()})
	s.group.Trigger(root)
}

// remove stops tracking root and drops its pending refresh. It reports
// whether root was tracked.
func (s *statusWatcher) remove(root string) bool {
	s.mu.Lock()
	_, ok := s.repos[root]
	delete(s.repos, root)
	delete(s.last, root)
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.group.Forget(root)
	if s.unwatch != nil {
		if err := s.unwatch(root); err != nil {
			slog.Debug("unwatch removed repository", slog.String("repo", root), slog.Any("error", err))
		}
	}
	slog.Info("repository removed", slog.String("repo", root))
	return true
}

func (s *statusWatcher) refresh(root string) {
	s.mu.Lock()
	repo, ok := s.repos[root]
	s.mu.Unlock()
	if !ok {
		return
	}
	status := repo.WorkStatus()

	s.mu.Lock()
	previous := s.last[root]
	s.last[root] = status
	s.mu.Unlock()
	if status == previous {
		slog.Debug("status unchanged", slog.String("repo", root), slog.String("status", status.String()))
		return
	}
	s.bus.Publish(events.TopicStatusChanged, statusChange{
		Repo:     root,
		Status:   status,
		Previous: previous,
		Time:     time.Now().UnixMilli(),
	})
}

func (s *statusWatcher) stop() {
	s.group.Stop()
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <repo>...",
		Short: "Print the work status of repositories whenever it changes",
		Long: `Watch one or more repositories and print a line each time the work
status of one of them changes. The initial status of every repository is
printed first. Text output is "<repo>\t<status>"; json and yaml output one
JSON object per line. Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bus := events.NewBus()
			var outMu sync.Mutex
			out := cmd.OutOrStdout()
			unsubscribe := bus.Subscribe(events.TopicStatusChanged, func(_ string, payload any) {
				change, ok := payload.(statusChange)
				if !ok {
					return
				}
				outMu.Lock()
				defer outMu.Unlock()
				if err := writeStatusChange(out, a.format, change); err != nil {
					slog.Error("write status change", slog.Any("error", err))
				}
			})
			defer unsubscribe()

			sw := newStatusWatcher(bus, a.cfg.Watch.Debounce)
			defer sw.stop()
			mux := watch.New()
			sw.unwatch = mux.RemovePath
			for _, arg := range args {
				repo, err := git.Open(arg)
				if err != nil {
					return errors.Join(err, mux.Close())
				}
				if err := mux.AddPath(repo.Path()); err != nil {
					return errors.Join(err, mux.Close())
				}
				sw.add(repo)
			}
			id := mux.AddCallback(sw.handle)
			if err := mux.Start(); err != nil {
				return errors.Join(err, mux.Close())
			}
			slog.Info("watching", slog.Any("paths", mux.Paths()))

			<-cmd.Context().Done()
			mux.RemoveCallback(id)
			return mux.Close()
		},
	}
}

func writeStatusChange(w io.Writer, f format, change statusChange) error {
	if f == formatText {
		_, err := fmt.Fprintf(w, "%s\t%s\n", change.Repo, change.Status)
		return err
	}
	return json.NewEncoder(w).Encode(change)
}
