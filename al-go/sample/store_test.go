package sample

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
)

var irisSpace = config.LabelSpace{"setosa", "versicolor"}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestLoadLabeledCombinedLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "labeled.csv",
		"sepal_length,sepal_width,label\n"+
			"5.1,3.5,setosa\n"+
			"7.0,3.2,versicolor\n")

	store := NewStore(fs)
	set, err := store.LoadLabeled("labeled.csv", "labeled.csv", irisSpace)
	require.NoError(t, err)

	require.Len(t, set, 2)
	assert.Equal(t, []float64{5.1, 3.5}, set[0].Features)
	assert.Equal(t, "setosa", set[0].Label)
	assert.Equal(t, 1, set[1].ID)
	assert.Equal(t, []string{"sepal_length", "sepal_width"}, store.FeatureNames)
}

func TestLoadLabeledHeaderlessCombined(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "labeled.csv", "5.1,3.5,setosa\n7.0,3.2,versicolor\n")

	store := NewStore(fs)
	set, err := store.LoadLabeled("labeled.csv", "labeled.csv", irisSpace)
	require.NoError(t, err)

	// the string label column must not pass for a header row
	require.Len(t, set, 2)
	assert.Equal(t, []float64{5.1, 3.5}, set[0].Features)
	assert.Equal(t, "setosa", set[0].Label)
	assert.Equal(t, "versicolor", set[1].Label)
	assert.Empty(t, store.FeatureNames)
}

func TestLoadLabeledSeparateLabels(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "features.csv", "5.1,3.5\n7.0,3.2\n")
	writeFile(t, fs, "labels.csv", "setosa\nversicolor\n")

	set, err := NewStore(fs).LoadLabeled("features.csv", "labels.csv", irisSpace)
	require.NoError(t, err)

	require.Len(t, set, 2)
	assert.Equal(t, "setosa", set[0].Label)
	assert.Equal(t, []float64{7.0, 3.2}, set[1].Features)
	assert.Equal(t, "versicolor", set[1].Label)
}

func TestLoadLabeledSeparateLabelsWithHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "features.csv", "f0,f1\n5.1,3.5\n7.0,3.2\n")
	writeFile(t, fs, "labels.csv", "label\nsetosa\nversicolor\n")

	set, err := NewStore(fs).LoadLabeled("features.csv", "labels.csv", irisSpace)
	require.NoError(t, err)

	require.Len(t, set, 2)
	assert.Equal(t, "setosa", set[0].Label)
	assert.Equal(t, "versicolor", set[1].Label)
}

func TestLoadLabeledRejectsUnknownLabel(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "labeled.csv", "5.1,3.5,setosa\n7.0,3.2,virginica\n")

	_, err := NewStore(fs).LoadLabeled("labeled.csv", "labeled.csv", irisSpace)
	require.Error(t, err)

	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, 1, integrity.ID)
	assert.Equal(t, "virginica", integrity.Label)
}

func TestLoadPool(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "pool.csv", "f0,f1\n1,2\n3,4\n5,6\n")

	pool, err := NewStore(fs).LoadPool("pool.csv")
	require.NoError(t, err)

	require.Len(t, pool, 3)
	assert.Equal(t, 2, pool[2].ID)
	assert.Equal(t, []float64{5, 6}, pool[2].Features)
}

func TestStageLabeledRoundtrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs)
	set := []Labeled{
		{ID: 0, Features: []float64{5.1, 3.5}, Label: "setosa"},
		{ID: 1, Features: []float64{7.0, 3.2}, Label: "versicolor"},
	}

	pending, err := store.StageLabeled("out/labeled.csv", set)
	require.NoError(t, err)

	// nothing visible until commit
	exists, _ := afero.Exists(fs, "out/labeled.csv")
	assert.False(t, exists)

	require.NoError(t, pending.Commit())

	got, err := store.LoadLabeled("out/labeled.csv", "out/labeled.csv", irisSpace)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, set[0].Features, got[0].Features)
	assert.Equal(t, set[1].Label, got[1].Label)
}
