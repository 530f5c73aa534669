package round

import (
	"fmt"
	"path/filepath"
)

// Paths lays out every per-round artifact under one output directory.
type Paths struct {
	Dir string
}

// Labeled is the cumulative labeled set, feature columns plus a trailing
// label column. It supersedes the initial input files once the first round
// commits.
func (p Paths) Labeled() string {
	return filepath.Join(p.Dir, "labeled_samples.csv")
}

// VotingResults is the external voting layer's label file for a round.
func (p Paths) VotingResults(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("voting_results_round_%d.json", round))
}

// QueryIndices lists the original indices queried in a round.
func (p Paths) QueryIndices(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("query_indices_round_%d.json", round))
}

// QuerySamples carries the queried samples' feature data for the voting
// layer.
func (p Paths) QuerySamples(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("query_samples_round_%d.json", round))
}

// Performance is a round's evaluation report.
func (p Paths) Performance(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("performance_round_%d.json", round))
}

// ConfigSnapshot freezes the configuration a round actually ran with.
func (p Paths) ConfigSnapshot(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("iteration_%d_config.json", round))
}

// Audit is the informational reconciliation audit for a round.
func (p Paths) Audit(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("reconcile_audit_round_%d.csv", round))
}

// Result is the round summary consumed by the service and workflow callers.
func (p Paths) Result(round int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("iteration_%d_result.json", round))
}
