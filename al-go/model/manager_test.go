package model

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
)

func TestManagerRoundtrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := NewManager(fs, "out")
	cfg := testConfig(config.LogisticRegression)

	est, err := Initialize(cfg)
	require.NoError(t, err)
	X, y := separable()
	require.NoError(t, est.Fit(X, y))

	require.NoError(t, mgr.Persist(1, est, cfg))

	// round 2 picks up round 1's model
	loaded, ok, err := mgr.Load(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, config.LogisticRegression, loaded.Family())
	for i, x := range X {
		assert.Equal(t, est.Predict(x), loaded.Predict(x), "sample %d", i)
	}
}

func TestManagerNoPriorModel(t *testing.T) {
	mgr := NewManager(afero.NewMemMapFs(), "out")
	est, ok, err := mgr.Load(1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, est)
}

func TestManagerNeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := NewManager(fs, "out")
	cfg := testConfig(config.RandomForest)

	est, err := Initialize(cfg)
	require.NoError(t, err)
	X, y := separable()
	require.NoError(t, est.Fit(X, y))

	require.NoError(t, mgr.Persist(3, est, cfg))
	_, err = mgr.Stage(3, est, cfg)
	assert.Error(t, err)
}

func TestManagerArtifactCarriesConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := NewManager(fs, "out")
	cfg := testConfig(config.LogisticRegression)
	cfg.QueryBatchSize = 5

	est, err := Initialize(cfg)
	require.NoError(t, err)
	X, y := separable()
	require.NoError(t, est.Fit(X, y))
	require.NoError(t, mgr.Persist(1, est, cfg))

	_, art, ok, err := mgr.LoadArtifact(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, art.Round)
	assert.Equal(t, config.LogisticRegression, art.ModelType)
	assert.Equal(t, 5, art.CreatedFrom.QueryBatchSize)
}
