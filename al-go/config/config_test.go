package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"model_type": "LogisticRegression",
		"label_space": ["yes", "no"],
		"query_batch_size": 5
	}`))
	require.NoError(t, err)

	assert.Equal(t, LogisticRegression, cfg.ModelType)
	assert.Equal(t, Uncertainty, cfg.QueryStrategy)
	assert.Equal(t, 0.2, cfg.ValidationSplit)
	assert.Equal(t, int64(DefaultSeed), cfg.Seed)
	assert.Equal(t, 5, cfg.QueryBatchSize)
}

func TestParseNumericLabelSpace(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"model_type": "RandomForestClassifier",
		"label_space": [0, 1, 2],
		"query_batch_size": 3
	}`))
	require.NoError(t, err)

	assert.Equal(t, LabelSpace{"0", "1", "2"}, cfg.LabelSpace)
	assert.True(t, cfg.LabelSpace.Contains("1"))
	assert.Equal(t, 2, cfg.LabelSpace.Index("2"))
	assert.Equal(t, -1, cfg.LabelSpace.Index("3"))
}

func TestParseUnsupportedModel(t *testing.T) {
	_, err := Parse([]byte(`{
		"model_type": "SVC",
		"label_space": ["a", "b"],
		"query_batch_size": 2
	}`))
	require.Error(t, err)

	var unsupported *UnsupportedModelError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "SVC", unsupported.ModelType)
}

func TestParseRejectsMissingFields(t *testing.T) {
	_, err := Parse([]byte(`{"model_type": "LogisticRegression"}`))
	assert.Error(t, err)
}

func TestParseRejectsBadValidationSplit(t *testing.T) {
	for _, split := range []string{"0", "1", "1.5", "-0.2"} {
		_, err := Parse([]byte(`{
			"model_type": "LogisticRegression",
			"label_space": ["a", "b"],
			"query_batch_size": 2,
			"validation_split": ` + split + `
		}`))
		assert.Error(t, err, "validation_split %s should be rejected", split)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"model_type": "RandomForestClassifier",
		"label_space": ["a", "b", "c"],
		"query_strategy": "random",
		"query_batch_size": 10,
		"validation_split": 0.3,
		"max_iterations": 7,
		"seed": 99,
		"training_args": {"n_estimators": 50}
	}`))
	require.NoError(t, err)

	assert.Equal(t, Random, cfg.QueryStrategy)
	assert.Equal(t, 0.3, cfg.ValidationSplit)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.JSONEq(t, `{"n_estimators": 50}`, string(cfg.TrainingArgs))
}
