package round

import (
	"encoding/json"
	"log"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/query"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// Stop reasons for a workflow run.
const (
	StoppedMaxIterations = "max_iterations"
	StoppedPoolExhausted = "pool_exhausted"
)

// WorkflowResult summarizes a multi-round run.
type WorkflowResult struct {
	Completed []Summary `json:"completed"`
	Stopped   string    `json:"stopped"`
}

// NextRound returns the first round without a committed model artifact, so
// interrupted workflows resume where they left off.
func (r *Runner) NextRound() int {
	n := 1
	for fileutil.Exists(r.fs, r.models.Path(n)) {
		n++
	}
	return n
}

// RunWorkflow executes rounds until maxIterations complete or the unlabeled
// pool can no longer fill a query batch. Pool exhaustion is a normal stop,
// not an error. Each completed round's summary is persisted as
// iteration_<n>_result.json.
func (r *Runner) RunWorkflow(maxIterations int) (*WorkflowResult, error) {
	if maxIterations <= 0 {
		maxIterations = r.cfg.MaxIterations
	}
	if maxIterations <= 0 {
		return nil, errors.Errorf("max iterations must be positive")
	}

	res := &WorkflowResult{Stopped: StoppedMaxIterations}
	for n := r.NextRound(); n <= maxIterations; n++ {
		sum, err := r.Run(n)
		if err != nil {
			var insufficient *query.InsufficientPoolError
			if errors.As(err, &insufficient) {
				log.Printf("stopping before round %d: %v", n, err)
				res.Stopped = StoppedPoolExhausted
				return res, nil
			}
			return nil, err
		}
		if err := r.WriteResult(sum); err != nil {
			return nil, err
		}
		log.Printf("round %d: accuracy=%.3f f1=%.3f labeled=%d queried=%d pool=%d",
			n, sum.Performance.Accuracy, sum.Performance.F1, sum.LabeledSize, len(sum.QueryIndices), sum.PoolSize)
		res.Completed = append(res.Completed, *sum)
	}
	return res, nil
}

// WriteResult persists a round summary via the usual stage-then-rename, so
// watchers never observe a half-written result file.
func (r *Runner) WriteResult(sum *Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	pending, err := fileutil.WritePending(r.fs, r.out.Result(sum.Round), data)
	if err != nil {
		return err
	}
	return pending.Commit()
}
