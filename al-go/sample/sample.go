// Package sample holds the labeled and unlabeled sample types, the file-based
// sample store, and the reconciler that merges newly voted labels into the
// cumulative labeled set.
package sample

import (
	"fmt"
	"strconv"
	"strings"
)

// Labeled is a sample with a committed label. ID is the sample's original
// dataset index and is stable across rounds, so deduplication and provenance
// tracking survive requerying.
type Labeled struct {
	ID          int       `json:"original_index"`
	Features    []float64 `json:"features"`
	Label       string    `json:"label"`
	SourceRound int       `json:"source_round"`
}

// Unlabeled is a pool member awaiting a label.
type Unlabeled struct {
	ID       int       `json:"original_index"`
	Features []float64 `json:"features"`
}

// Pool is the ordered unlabeled pool. It shrinks as queried ids get labeled.
type Pool []Unlabeled

// Remove returns a copy of the pool without the given ids.
func (p Pool) Remove(ids []int) Pool {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make(Pool, 0, len(p))
	for _, u := range p {
		if !drop[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

// FeatureKey builds the deduplication key for a feature vector. Two samples
// are duplicates iff all feature values match exactly; the label is excluded
// from the key. Negative zero normalizes to zero so the comparison matches
// numeric equality rather than bit equality.
func FeatureKey(features []float64) string {
	parts := make([]string, len(features))
	for i, f := range features {
		if f == 0 {
			f = 0
		}
		parts[i] = strconv.FormatFloat(f, 'b', -1, 64)
	}
	return strings.Join(parts, "|")
}

// DataIntegrityError indicates a sample whose label is outside the declared
// label space. It is fatal: the round aborts with no partial writes.
type DataIntegrityError struct {
	ID    int
	Label string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("sample %d has label %q outside the declared label space", e.ID, e.Label)
}
