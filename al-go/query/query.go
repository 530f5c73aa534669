// Package query selects the next batch of unlabeled samples to request
// labels for, by model uncertainty or seeded random draw.
package query

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/model"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/sample"
)

// InsufficientPoolError indicates the unlabeled pool cannot cover the
// configured batch size. Fatal: the caller must reduce the batch size or
// stop iterating.
type InsufficientPoolError struct {
	PoolSize  int
	BatchSize int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("unlabeled pool has %d samples, cannot fill a query batch of %d", e.PoolSize, e.BatchSize)
}

// UncertaintySummary describes the uncertainty scores of a selected batch.
type UncertaintySummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Selection is an ordered query batch.
type Selection struct {
	IDs      []int
	Samples  []sample.Unlabeled
	Strategy config.QueryStrategy

	// Uncertainty is set only for uncertainty-sampled batches.
	Uncertainty *UncertaintySummary
}

// Select returns the next batchSize samples to query. The uncertainty
// strategy requires a probability-capable estimator and silently degrades to
// the seeded random strategy otherwise; the resulting Selection records the
// strategy actually used.
func Select(est model.Estimator, pool sample.Pool, strategy config.QueryStrategy, batchSize int, seed int64) (Selection, error) {
	if len(pool) < batchSize {
		return Selection{}, &InsufficientPoolError{PoolSize: len(pool), BatchSize: batchSize}
	}

	if strategy == config.Uncertainty && est != nil && est.SupportsProbabilityEstimate() {
		return byUncertainty(est, pool, batchSize), nil
	}
	return random(pool, batchSize, seed), nil
}

// byUncertainty scores every pool member with 1 - max(class probability) and
// takes the batchSize most uncertain, breaking ties by original pool order
// (lowest id first) for determinism.
func byUncertainty(est model.Estimator, pool sample.Pool, batchSize int) Selection {
	type scored struct {
		idx         int
		uncertainty float64
	}

	scores := make([]scored, len(pool))
	for i, u := range pool {
		probs := est.PredictProba(u.Features)
		var max float64
		for _, p := range probs {
			if p > max {
				max = p
			}
		}
		scores[i] = scored{idx: i, uncertainty: 1 - max}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].uncertainty != scores[j].uncertainty {
			return scores[i].uncertainty > scores[j].uncertainty
		}
		return pool[scores[i].idx].ID < pool[scores[j].idx].ID
	})

	sel := Selection{Strategy: config.Uncertainty}
	values := make([]float64, 0, batchSize)
	for _, s := range scores[:batchSize] {
		sel.IDs = append(sel.IDs, pool[s.idx].ID)
		sel.Samples = append(sel.Samples, pool[s.idx])
		values = append(values, s.uncertainty)
	}
	sel.Uncertainty = summarize(values)
	return sel
}

// random draws batchSize samples without replacement using a seeded
// generator.
func random(pool sample.Pool, batchSize int, seed int64) Selection {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(pool))

	sel := Selection{Strategy: config.Random}
	for _, i := range perm[:batchSize] {
		sel.IDs = append(sel.IDs, pool[i].ID)
		sel.Samples = append(sel.Samples, pool[i])
	}
	return sel
}

func summarize(values []float64) *UncertaintySummary {
	if len(values) == 0 {
		return nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	median, err := stats.Median(values)
	if err != nil {
		return nil
	}
	max, err := stats.Max(values)
	if err != nil {
		return nil
	}
	return &UncertaintySummary{Mean: mean, Median: median, Max: max}
}
