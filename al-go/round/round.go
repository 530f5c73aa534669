// Package round runs one active learning iteration end to end: reconcile
// freshly voted labels, retrain the classifier, evaluate it on a held-out
// split, select the next query batch, and commit all round artifacts
// atomically.
package round

import (
	"encoding/json"
	"time"

	"github.com/spf13/afero"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/evaluate"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/model"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/query"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/sample"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/split"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// Inputs are the initial data files for a project. LabeledLabels may equal
// LabeledFeatures, in which case the trailing column carries the labels.
// PriorModel optionally points at an externally supplied model artifact to
// resume from when the output directory holds no previous round.
type Inputs struct {
	LabeledFeatures string
	LabeledLabels   string
	UnlabeledData   string
	PriorModel      string
}

// Runner executes rounds for one project. All state flows through the
// output directory; the runner itself holds only configuration and paths,
// so successive rounds may run in separate processes.
type Runner struct {
	fs     afero.Fs
	cfg    config.Config
	in     Inputs
	out    Paths
	store  *sample.Store
	models *model.Manager
}

// NewRunner returns a runner reading inputs from in and committing all
// round artifacts under outDir.
func NewRunner(fs afero.Fs, cfg config.Config, in Inputs, outDir string) *Runner {
	if in.LabeledLabels == "" {
		in.LabeledLabels = in.LabeledFeatures
	}
	return &Runner{
		fs:     fs,
		cfg:    cfg,
		in:     in,
		out:    Paths{Dir: outDir},
		store:  sample.NewStore(fs),
		models: model.NewManager(fs, outDir),
	}
}

// Out returns the runner's artifact layout.
func (r *Runner) Out() Paths {
	return r.out
}

// Summary is the per-round result persisted as iteration_<n>_result.json.
type Summary struct {
	Round        int                  `json:"round"`
	Status       string               `json:"status"`
	AddedLabels  int                  `json:"added_labels"`
	LabeledSize  int                  `json:"labeled_size"`
	PoolSize     int                  `json:"pool_size"`
	Strategy     config.QueryStrategy `json:"query_strategy"`
	QueryIndices []int                `json:"query_indices"`
	Performance  evaluate.Report      `json:"performance"`
	ModelPath    string               `json:"model_path"`
	Timestamp    string               `json:"timestamp"`
}

// Run executes round n. Nothing under the output directory's final paths
// changes unless the whole round succeeds: every artifact is staged first
// and the batch commits together at the end. A failure after staging leaves
// only temp files behind.
func (r *Runner) Run(n int) (*Summary, error) {
	if n < 1 {
		return nil, errors.Errorf("round numbers start at 1, got %d", n)
	}

	set, err := r.loadLabeled()
	if err != nil {
		return nil, err
	}
	pool, err := r.store.LoadPool(r.in.UnlabeledData)
	if err != nil {
		return nil, err
	}

	merged, added, err := r.reconcile(n, set)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, errors.Errorf("round %d has no labeled samples to train on", n)
	}

	queried, err := r.priorQueries(n)
	if err != nil {
		return nil, err
	}
	pool = dropLabeled(pool.Remove(queried), merged)

	X, y := matrix(merged, r.cfg.LabelSpace)
	part := split.Split(merged, r.cfg.ValidationSplit, r.cfg.Seed)

	est, ok, err := r.models.Load(n)
	if err != nil {
		return nil, err
	}
	if !ok && r.in.PriorModel != "" {
		est, _, err = r.models.LoadFrom(r.in.PriorModel)
		if err != nil {
			return nil, err
		}
		ok = true
	}
	if !ok {
		if est, err = model.Initialize(r.cfg); err != nil {
			return nil, err
		}
	}
	est, err = model.Train(est, rows(X, part.TrainIdx), pick(y, part.TrainIdx))
	if err != nil {
		return nil, errors.Wrapf(err, "round %d training failed", n)
	}

	yTrue := pick(y, part.TestIdx)
	yPred := make([]int, len(part.TestIdx))
	for i, idx := range part.TestIdx {
		yPred[i] = est.Predict(X[idx])
	}
	metrics, err := evaluate.Evaluate(yTrue, yPred, r.cfg.LabelSpace)
	if err != nil {
		return nil, errors.Wrapf(err, "round %d evaluation failed", n)
	}
	report := evaluate.Report{
		Round:             n,
		NumClasses:        metrics.NumClasses,
		AveragingStrategy: metrics.AveragingStrategy,
		Accuracy:          metrics.Accuracy,
		Precision:         metrics.Precision,
		Recall:            metrics.Recall,
		F1:                metrics.F1,
		TrainSize:         len(part.TrainIdx),
		TestSize:          len(part.TestIdx),
		Warnings:          append([]string{}, part.Warnings...),
	}

	// Vary the draw seed per round so consecutive random-strategy rounds do
	// not replay the same permutation prefix over a shrinking pool.
	sel, err := query.Select(est, pool, r.cfg.QueryStrategy, r.cfg.QueryBatchSize, r.cfg.Seed+int64(n))
	if err != nil {
		return nil, err
	}

	if err := r.commit(n, merged, est, sel, report); err != nil {
		return nil, err
	}

	// Informational artifacts sit outside the atomic batch.
	if err := r.snapshotConfig(n); err != nil {
		return nil, err
	}
	if err := r.store.WriteAudit(r.out.Audit(n), added); err != nil {
		return nil, err
	}

	return &Summary{
		Round:        n,
		Status:       "completed",
		AddedLabels:  len(added),
		LabeledSize:  len(merged),
		PoolSize:     len(pool) - len(sel.IDs),
		Strategy:     sel.Strategy,
		QueryIndices: sel.IDs,
		Performance:  report,
		ModelPath:    r.models.Path(n),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// loadLabeled reads the cumulative labeled set, preferring the committed
// set over the initial input files once one exists.
func (r *Runner) loadLabeled() ([]sample.Labeled, error) {
	if committed := r.out.Labeled(); fileutil.Exists(r.fs, committed) {
		return r.store.LoadLabeled(committed, committed, r.cfg.LabelSpace)
	}
	return r.store.LoadLabeled(r.in.LabeledFeatures, r.in.LabeledLabels, r.cfg.LabelSpace)
}

// reconcile merges the round's voting results, if any arrived, into the
// cumulative labeled set.
func (r *Runner) reconcile(n int, set []sample.Labeled) (merged, added []sample.Labeled, err error) {
	results, err := sample.LoadVotingResults(r.fs, r.out.VotingResults(n))
	if err != nil {
		return nil, nil, err
	}
	var incoming []sample.Labeled
	for _, v := range results {
		if l, ok := v.Sample(n); ok {
			incoming = append(incoming, l)
		}
	}
	return sample.Reconcile(set, incoming, r.cfg.LabelSpace)
}

// priorQueries collects every original index queried before round n, so
// samples still awaiting a label are not requeried.
func (r *Runner) priorQueries(n int) ([]int, error) {
	var ids []int
	for k := 1; k < n; k++ {
		path := r.out.QueryIndices(k)
		if !fileutil.Exists(r.fs, path) {
			continue
		}
		data, err := fileutil.ReadFile(r.fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %s", path)
		}
		var doc queryIndicesDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(err, "error decoding %s", path)
		}
		ids = append(ids, doc.Indices...)
	}
	return ids, nil
}

type queryIndicesDoc struct {
	Round    int                  `json:"round"`
	Strategy config.QueryStrategy `json:"query_strategy"`
	Indices  []int                `json:"indices"`
}

type querySamplesDoc struct {
	Round        int                       `json:"round"`
	Strategy     config.QueryStrategy      `json:"query_strategy"`
	FeatureNames []string                  `json:"feature_names,omitempty"`
	Samples      []sample.Unlabeled        `json:"samples"`
	Uncertainty  *query.UncertaintySummary `json:"uncertainty,omitempty"`
}

// commit stages the round's four artifacts and renames them into place only
// once every one of them staged cleanly.
func (r *Runner) commit(n int, merged []sample.Labeled, est model.Estimator, sel query.Selection, report evaluate.Report) error {
	var staged []*fileutil.Pending
	discard := func() {
		for _, p := range staged {
			p.Discard()
		}
	}
	add := func(p *fileutil.Pending, err error) error {
		if err != nil {
			discard()
			return err
		}
		staged = append(staged, p)
		return nil
	}

	if err := add(r.store.StageLabeled(r.out.Labeled(), merged)); err != nil {
		return err
	}
	if err := add(r.models.Stage(n, est, r.cfg)); err != nil {
		return err
	}
	if err := add(r.stageJSON(r.out.QueryIndices(n), queryIndicesDoc{
		Round:    n,
		Strategy: sel.Strategy,
		Indices:  sel.IDs,
	})); err != nil {
		return err
	}
	if err := add(r.stageJSON(r.out.QuerySamples(n), querySamplesDoc{
		Round:        n,
		Strategy:     sel.Strategy,
		FeatureNames: r.store.FeatureNames,
		Samples:      sel.Samples,
		Uncertainty:  sel.Uncertainty,
	})); err != nil {
		return err
	}
	if err := add(r.stageJSON(r.out.Performance(n), report)); err != nil {
		return err
	}

	for _, p := range staged {
		if err := p.Commit(); err != nil {
			return errors.Wrapf(err, "round %d commit failed at %s", n, p.Path())
		}
	}
	return nil
}

func (r *Runner) stageJSON(path string, v interface{}) (*fileutil.Pending, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "error encoding %s", path)
	}
	return fileutil.WritePending(r.fs, path, data)
}

func (r *Runner) snapshotConfig(n int) error {
	data, err := json.MarshalIndent(r.cfg, "", "  ")
	if err != nil {
		return err
	}
	w, err := fileutil.NewBufferedWriter(r.fs, r.out.ConfigSnapshot(n))
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = w.Write(data)
	return err
}

// dropLabeled removes pool members whose feature vectors already appear in
// the labeled set.
func dropLabeled(pool sample.Pool, set []sample.Labeled) sample.Pool {
	labeled := make(map[string]bool, len(set))
	for _, l := range set {
		labeled[sample.FeatureKey(l.Features)] = true
	}
	out := make(sample.Pool, 0, len(pool))
	for _, u := range pool {
		if !labeled[sample.FeatureKey(u.Features)] {
			out = append(out, u)
		}
	}
	return out
}

// matrix converts the labeled set into a feature matrix and a label-index
// vector. Labels were validated against the label space on load, so Index
// cannot miss.
func matrix(set []sample.Labeled, space config.LabelSpace) ([][]float64, []int) {
	X := make([][]float64, len(set))
	y := make([]int, len(set))
	for i, l := range set {
		X[i] = l.Features
		y[i] = space.Index(l.Label)
	}
	return X, y
}

func rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
