// Package model provides the supported estimator families and the manager
// that loads, trains, and persists per-round model artifacts.
package model

import (
	"encoding/json"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
)

// Estimator is a trainable classifier over the declared label space. Class
// indices refer to positions in config.LabelSpace, so probability vectors
// always span the full label space regardless of which classes the training
// data happened to contain.
type Estimator interface {
	// Family identifies the estimator family for artifact tagging.
	Family() config.ModelType

	// Fit trains the estimator in place on feature rows X and label-space
	// indices y.
	Fit(X [][]float64, y []int) error

	// Predict returns the most probable class index for x.
	Predict(x []float64) int

	// PredictProba returns the per-class probability vector for x, indexed
	// by the label space. Only meaningful when
	// SupportsProbabilityEstimate reports true.
	PredictProba(x []float64) []float64

	// SupportsProbabilityEstimate reports whether PredictProba yields
	// calibrated class probabilities. It is fixed at construction; callers
	// must consult it instead of probing behavior.
	SupportsProbabilityEstimate() bool
}

// Initialize builds a fresh, untrained estimator from the configuration.
// Unknown model types fail with config.UnsupportedModelError; in practice
// config.Load already rejects them, this is the backstop for configs built
// in code.
func Initialize(cfg config.Config) (Estimator, error) {
	numClasses := len(cfg.LabelSpace)
	switch cfg.ModelType {
	case config.LogisticRegression:
		args, err := parseLogisticArgs(cfg.TrainingArgs)
		if err != nil {
			return nil, err
		}
		return newLogistic(numClasses, args), nil
	case config.RandomForest:
		args, err := parseForestArgs(cfg.TrainingArgs, cfg.Seed)
		if err != nil {
			return nil, err
		}
		return newForest(numClasses, args), nil
	default:
		return nil, &config.UnsupportedModelError{ModelType: string(cfg.ModelType)}
	}
}

// Train fits the estimator on the training partition and returns it.
func Train(est Estimator, X [][]float64, y []int) (Estimator, error) {
	if len(X) == 0 {
		return nil, errors.Errorf("cannot train on an empty training set")
	}
	if err := est.Fit(X, y); err != nil {
		return nil, err
	}
	return est, nil
}

// decodeEstimator rebuilds an estimator of the given family from its
// serialized state.
func decodeEstimator(family config.ModelType, state json.RawMessage) (Estimator, error) {
	switch family {
	case config.LogisticRegression:
		var l logistic
		if err := json.Unmarshal(state, &l); err != nil {
			return nil, errors.Wrapf(err, "error decoding logistic regression state")
		}
		return &l, nil
	case config.RandomForest:
		var f forest
		if err := json.Unmarshal(state, &f); err != nil {
			return nil, errors.Wrapf(err, "error decoding random forest state")
		}
		return &f, nil
	default:
		return nil, &config.UnsupportedModelError{ModelType: string(family)}
	}
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
