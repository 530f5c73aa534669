package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"syscall"

	arg "github.com/alexflint/go-arg"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/query"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/round"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/logutil"
)

var logger = logutil.Named("al-service")

// signalPattern matches the trigger files an orchestrator drops into the
// signals directory to request a round.
var signalPattern = regexp.MustCompile(`^start_iteration_(\d+)\.json$`)

type service struct {
	fs      afero.Fs
	runner  *round.Runner
	signals string
}

// failure is the result document written when a requested round cannot
// complete, so watchers are never left waiting on a silent error.
type failure struct {
	Round  int    `json:"round"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func main() {
	args := struct {
		Config        string `arg:"required" help:"iteration config JSON"`
		LabeledData   string `arg:"required,--labeled_data" help:"labeled features CSV, optionally with a trailing label column"`
		LabeledLabels string `arg:"--labeled_labels" help:"separate labels CSV; omit when --labeled_data carries the labels"`
		UnlabeledData string `arg:"required,--unlabeled_data" help:"unlabeled pool CSV"`
		Out           string `arg:"required" help:"output directory for round artifacts"`
		Signals       string `help:"directory watched for start_iteration_<n>.json triggers; defaults to the output directory"`
	}{}
	arg.MustParse(&args)
	defer logger.Sync()

	if args.Signals == "" {
		args.Signals = args.Out
	}

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, args.Config)
	if err != nil {
		logger.Fatalw("invalid config", "path", args.Config, "error", err)
	}

	svc := &service{
		fs: fs,
		runner: round.NewRunner(fs, cfg, round.Inputs{
			LabeledFeatures: args.LabeledData,
			LabeledLabels:   args.LabeledLabels,
			UnlabeledData:   args.UnlabeledData,
		}, args.Out),
		signals: args.Signals,
	}

	if err := fs.MkdirAll(args.Signals, 0755); err != nil {
		logger.Fatalw("cannot create signals directory", "dir", args.Signals, "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Fatalw("cannot create watcher", "error", err)
	}
	defer watcher.Close()
	if err := watcher.Add(args.Signals); err != nil {
		logger.Fatalw("cannot watch signals directory", "dir", args.Signals, "error", err)
	}

	// signals dropped before startup are served first, oldest round first
	svc.drainPending()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Infow("watching for iteration signals", "dir", args.Signals)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if n, ok := parseSignal(filepath.Base(event.Name)); ok {
				svc.process(n)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Errorw("watcher error", "error", err)
		case sig := <-stop:
			logger.Infow("shutting down", "signal", sig.String())
			return
		}
	}
}

func parseSignal(name string) (int, bool) {
	m := signalPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// drainPending serves signal files that already exist in the signals
// directory, in ascending round order.
func (s *service) drainPending() {
	paths, err := fileutil.ListDir(s.fs, s.signals)
	if err != nil {
		logger.Errorw("cannot list signals directory", "dir", s.signals, "error", err)
		return
	}
	var rounds []int
	for _, p := range paths {
		if n, ok := parseSignal(filepath.Base(p)); ok {
			rounds = append(rounds, n)
		}
	}
	sort.Ints(rounds)
	for _, n := range rounds {
		s.process(n)
	}
}

// process runs one requested round and always leaves a result file behind,
// successful or not. The trigger file is removed once handled.
func (s *service) process(n int) {
	resultPath := s.runner.Out().Result(n)
	if fileutil.Exists(s.fs, resultPath) {
		logger.Infow("round already completed, ignoring signal", "round", n)
		s.removeSignal(n)
		return
	}

	logger.Infow("starting round", "round", n)
	sum, err := s.runner.Run(n)
	if err != nil {
		status := "failed"
		var insufficient *query.InsufficientPoolError
		if errors.As(err, &insufficient) {
			status = "pool_exhausted"
		}
		logger.Errorw("round did not complete", "round", n, "status", status, "error", err)
		s.writeFailure(n, status, err)
		s.removeSignal(n)
		return
	}
	if err := s.runner.WriteResult(sum); err != nil {
		logger.Errorw("cannot write round result", "round", n, "error", err)
		return
	}
	logger.Infow("round completed",
		"round", n,
		"accuracy", sum.Performance.Accuracy,
		"f1", sum.Performance.F1,
		"labeled", sum.LabeledSize,
		"queried", len(sum.QueryIndices),
		"pool", sum.PoolSize,
	)
	s.removeSignal(n)
}

func (s *service) writeFailure(n int, status string, cause error) {
	data, err := json.MarshalIndent(failure{Round: n, Status: status, Error: cause.Error()}, "", "  ")
	if err != nil {
		return
	}
	pending, err := fileutil.WritePending(s.fs, s.runner.Out().Result(n), data)
	if err != nil {
		logger.Errorw("cannot stage failure result", "round", n, "error", err)
		return
	}
	if err := pending.Commit(); err != nil {
		logger.Errorw("cannot commit failure result", "round", n, "error", err)
	}
}

func (s *service) removeSignal(n int) {
	path := filepath.Join(s.signals, "start_iteration_"+strconv.Itoa(n)+".json")
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Errorw("cannot remove signal file", "path", path, "error", err)
	}
}
