package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/sample"
)

// stub scores each sample by its first feature: proba = [x0, 1-x0].
type stub struct {
	probabilistic bool
}

func (s stub) Family() config.ModelType           { return config.LogisticRegression }
func (s stub) Fit(X [][]float64, y []int) error   { return nil }
func (s stub) Predict(x []float64) int            { return 0 }
func (s stub) SupportsProbabilityEstimate() bool  { return s.probabilistic }
func (s stub) PredictProba(x []float64) []float64 { return []float64{x[0], 1 - x[0]} }

func poolOf(confidences ...float64) sample.Pool {
	pool := make(sample.Pool, len(confidences))
	for i, c := range confidences {
		pool[i] = sample.Unlabeled{ID: i, Features: []float64{c}}
	}
	return pool
}

func TestSelectInsufficientPool(t *testing.T) {
	_, err := Select(stub{probabilistic: true}, poolOf(0.9, 0.8), config.Uncertainty, 3, 42)
	require.Error(t, err)

	var insufficient *InsufficientPoolError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.PoolSize)
	assert.Equal(t, 3, insufficient.BatchSize)
}

func TestSelectByUncertainty(t *testing.T) {
	// uncertainty = 1 - max(proba): 0.55 is the least confident, then 0.6
	pool := poolOf(0.95, 0.6, 0.55, 0.9)

	sel, err := Select(stub{probabilistic: true}, pool, config.Uncertainty, 2, 42)
	require.NoError(t, err)

	assert.Equal(t, config.Uncertainty, sel.Strategy)
	assert.Equal(t, []int{2, 1}, sel.IDs)
	require.NotNil(t, sel.Uncertainty)
	assert.InDelta(t, 0.45, sel.Uncertainty.Max, 1e-9)
	assert.InDelta(t, 0.425, sel.Uncertainty.Mean, 1e-9)
}

func TestSelectUncertaintyTieBreaksByID(t *testing.T) {
	pool := poolOf(0.7, 0.7, 0.7, 0.7)

	sel, err := Select(stub{probabilistic: true}, pool, config.Uncertainty, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sel.IDs)
}

func TestSelectRandomDeterministicBySeed(t *testing.T) {
	pool := poolOf(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8)

	first, err := Select(nil, pool, config.Random, 3, 7)
	require.NoError(t, err)
	second, err := Select(nil, pool, config.Random, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, first.IDs, second.IDs)
	assert.Equal(t, config.Random, first.Strategy)
	assert.Nil(t, first.Uncertainty)

	// no duplicates in a batch
	seen := map[int]bool{}
	for _, id := range first.IDs {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSelectFallsBackWithoutProbabilities(t *testing.T) {
	pool := poolOf(0.95, 0.6, 0.55, 0.9)

	sel, err := Select(stub{probabilistic: false}, pool, config.Uncertainty, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, config.Random, sel.Strategy)
	assert.Nil(t, sel.Uncertainty)
}
