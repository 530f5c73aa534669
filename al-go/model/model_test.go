package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
)

// two well-separated clusters in one dimension
func separable() (X [][]float64, y []int) {
	for _, v := range []float64{-3.1, -2.8, -2.5, -3.4, -2.9, -3.0} {
		X = append(X, []float64{v})
		y = append(y, 0)
	}
	for _, v := range []float64{2.9, 3.2, 2.6, 3.3, 3.0, 2.7} {
		X = append(X, []float64{v})
		y = append(y, 1)
	}
	return X, y
}

func testConfig(mt config.ModelType) config.Config {
	return config.Config{
		ModelType:  mt,
		LabelSpace: config.LabelSpace{"neg", "pos"},
		Seed:       config.DefaultSeed,
	}
}

func TestInitializeUnsupported(t *testing.T) {
	cfg := testConfig("GradientBoosting")
	_, err := Initialize(cfg)
	require.Error(t, err)

	var unsupported *config.UnsupportedModelError
	assert.ErrorAs(t, err, &unsupported)
}

func TestLogisticLearnsSeparableData(t *testing.T) {
	est, err := Initialize(testConfig(config.LogisticRegression))
	require.NoError(t, err)
	require.True(t, est.SupportsProbabilityEstimate())

	X, y := separable()
	est, err = Train(est, X, y)
	require.NoError(t, err)

	for i, x := range X {
		assert.Equal(t, y[i], est.Predict(x), "sample %d", i)
	}

	probs := est.PredictProba([]float64{-3.0})
	require.Len(t, probs, 2)
	assert.Greater(t, probs[0], 0.5)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
}

func TestForestLearnsSeparableData(t *testing.T) {
	cfg := testConfig(config.RandomForest)
	cfg.TrainingArgs = json.RawMessage(`{"n_estimators": 25, "max_depth": 4}`)

	est, err := Initialize(cfg)
	require.NoError(t, err)
	require.True(t, est.SupportsProbabilityEstimate())

	X, y := separable()
	est, err = Train(est, X, y)
	require.NoError(t, err)

	for i, x := range X {
		assert.Equal(t, y[i], est.Predict(x), "sample %d", i)
	}

	probs := est.PredictProba([]float64{3.0})
	require.Len(t, probs, 2)
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestForestDeterministicBySeed(t *testing.T) {
	X, y := separable()

	fit := func(seed int64) Estimator {
		cfg := testConfig(config.RandomForest)
		cfg.Seed = seed
		cfg.TrainingArgs = json.RawMessage(`{"n_estimators": 10}`)
		est, err := Initialize(cfg)
		require.NoError(t, err)
		require.NoError(t, est.Fit(X, y))
		return est
	}

	a, err := json.Marshal(fit(5))
	require.NoError(t, err)
	b, err := json.Marshal(fit(5))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestLogisticDeterministic(t *testing.T) {
	X, y := separable()

	fit := func() string {
		est, err := Initialize(testConfig(config.LogisticRegression))
		require.NoError(t, err)
		require.NoError(t, est.Fit(X, y))
		data, err := json.Marshal(est)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, fit(), fit())
}

func TestUntrainedProbabilitiesUniform(t *testing.T) {
	for _, mt := range []config.ModelType{config.LogisticRegression, config.RandomForest} {
		est, err := Initialize(testConfig(mt))
		require.NoError(t, err)

		probs := est.PredictProba([]float64{1.0})
		require.Len(t, probs, 2)
		assert.InDelta(t, 0.5, probs[0], 1e-9, "%s", mt)
		assert.InDelta(t, 0.5, probs[1], 1e-9, "%s", mt)
	}
}

func TestTrainRejectsEmptySet(t *testing.T) {
	est, err := Initialize(testConfig(config.LogisticRegression))
	require.NoError(t, err)
	_, err = Train(est, nil, nil)
	assert.Error(t, err)
}

func TestProbabilitiesSpanLabelSpace(t *testing.T) {
	// three declared classes, training data covers only two
	cfg := config.Config{
		ModelType:  config.LogisticRegression,
		LabelSpace: config.LabelSpace{"a", "b", "c"},
		Seed:       config.DefaultSeed,
	}
	est, err := Initialize(cfg)
	require.NoError(t, err)

	X, y := separable()
	require.NoError(t, est.Fit(X, y))

	probs := est.PredictProba([]float64{0})
	require.Len(t, probs, 3)
	var sum float64
	for _, p := range probs {
		require.False(t, math.IsNaN(p))
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
