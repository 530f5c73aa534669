// Package config holds the static per-round configuration of the active
// learning engine: estimator family, training arguments, label space, and
// query policy. A Config is immutable for the lifetime of a round.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/fileutil"
)

// ModelType identifies a supported estimator family.
type ModelType string

// Supported estimator families.
const (
	RandomForest       ModelType = "RandomForestClassifier"
	LogisticRegression ModelType = "LogisticRegression"
)

// QueryStrategy identifies how the next query batch is selected.
type QueryStrategy string

// Supported query strategies.
const (
	Uncertainty QueryStrategy = "uncertainty"
	Random      QueryStrategy = "random"
)

// DefaultSeed seeds all pseudo-randomness (splitting, training, random
// sampling) when the config does not provide one.
const DefaultSeed = 42

// UnsupportedModelError indicates a model_type outside the supported
// estimator families. It is fatal at configuration load.
type UnsupportedModelError struct {
	ModelType string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model type %q", e.ModelType)
}

// Config is the immutable per-round input.
type Config struct {
	ModelType       ModelType       `json:"model_type"`
	TrainingArgs    json.RawMessage `json:"training_args,omitempty"`
	LabelSpace      LabelSpace      `json:"label_space"`
	QueryStrategy   QueryStrategy   `json:"query_strategy"`
	QueryBatchSize  int             `json:"query_batch_size"`
	ValidationSplit float64         `json:"validation_split"`
	MaxIterations   int             `json:"max_iterations,omitempty"`
	Seed            int64           `json:"seed"`
}

// LabelSpace is the ordered set of all valid class labels, declared up front.
// It is authoritative: the number of classes is always derived from it, never
// from observed data.
type LabelSpace []string

// UnmarshalJSON accepts both string and numeric labels, since upstream
// configurations declare label spaces like ["setosa","versicolor"] or [0,1].
func (ls *LabelSpace) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("label space entries must be strings or numbers, got %s", r)
		}
		out = append(out, strconv.FormatFloat(n, 'f', -1, 64))
	}
	*ls = out
	return nil
}

// Contains reports whether label is a member of the label space.
func (ls LabelSpace) Contains(label string) bool {
	for _, l := range ls {
		if l == label {
			return true
		}
	}
	return false
}

// Index returns the position of label in the label space, or -1.
func (ls LabelSpace) Index(label string) int {
	for i, l := range ls {
		if l == label {
			return i
		}
	}
	return -1
}

// Load reads a JSON configuration file, validates it against the embedded
// schema, and decodes it. Unknown model types and query strategies are
// rejected here rather than at training time.
func Load(fs afero.Fs, path string) (Config, error) {
	data, err := fileutil.ReadFile(fs, path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config %s", path)
	}
	return Parse(data)
}

// Parse validates and decodes a JSON configuration document.
func Parse(data []byte) (Config, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error validating config")
	}
	if !result.Valid() {
		var errs errors.Errors
		for _, desc := range result.Errors() {
			errs = errors.Append(errs, errors.Errorf("%s", desc))
		}
		return Config{}, errors.Wrapf(errs, "invalid config")
	}

	cfg := Config{
		QueryStrategy:   Uncertainty,
		ValidationSplit: 0.2,
		Seed:            DefaultSeed,
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "error decoding config")
	}

	switch cfg.ModelType {
	case RandomForest, LogisticRegression:
	default:
		return Config{}, &UnsupportedModelError{ModelType: string(cfg.ModelType)}
	}

	if cfg.ValidationSplit <= 0 || cfg.ValidationSplit >= 1 {
		return Config{}, errors.Errorf("validation_split must be in (0,1), got %v", cfg.ValidationSplit)
	}
	return cfg, nil
}
