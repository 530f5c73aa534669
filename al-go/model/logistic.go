package model

import (
	"encoding/json"
	"math"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
)

// logisticArgs are the training arguments of the logistic regression family.
type logisticArgs struct {
	MaxIter      int     `json:"max_iter"`
	LearningRate float64 `json:"learning_rate"`
	L2           float64 `json:"l2"`
}

func parseLogisticArgs(raw json.RawMessage) (logisticArgs, error) {
	args := logisticArgs{
		MaxIter:      200,
		LearningRate: 0.1,
		L2:           1e-4,
	}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return logisticArgs{}, errors.Wrapf(err, "error decoding logistic regression training args")
	}
	if args.MaxIter <= 0 || args.LearningRate <= 0 {
		return logisticArgs{}, errors.Errorf("logistic regression requires positive max_iter and learning_rate")
	}
	return args, nil
}

// logistic is a multinomial logistic regression classifier trained with
// full-batch gradient descent. Weights initialize to zero, so training is
// deterministic without any seed.
type logistic struct {
	Coefs      [][]float64  `json:"coefs"` // numClasses x featureSize
	Bias       []float64    `json:"bias"`
	NumClasses int          `json:"num_classes"`
	Args       logisticArgs `json:"args"`
}

func newLogistic(numClasses int, args logisticArgs) *logistic {
	return &logistic{NumClasses: numClasses, Args: args}
}

// Family implements Estimator
func (l *logistic) Family() config.ModelType {
	return config.LogisticRegression
}

// SupportsProbabilityEstimate implements Estimator
func (l *logistic) SupportsProbabilityEstimate() bool {
	return true
}

// Fit implements Estimator
func (l *logistic) Fit(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return errors.Errorf("feature/label length mismatch: %d vs %d", len(X), len(y))
	}
	d := len(X[0])
	n := float64(len(X))

	l.Coefs = make([][]float64, l.NumClasses)
	for c := range l.Coefs {
		l.Coefs[c] = make([]float64, d)
	}
	l.Bias = make([]float64, l.NumClasses)

	gradW := make([][]float64, l.NumClasses)
	for c := range gradW {
		gradW[c] = make([]float64, d)
	}
	gradB := make([]float64, l.NumClasses)

	for iter := 0; iter < l.Args.MaxIter; iter++ {
		for c := range gradW {
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
			gradB[c] = 0
		}

		for i, x := range X {
			p := l.PredictProba(x)
			for c := 0; c < l.NumClasses; c++ {
				diff := p[c]
				if c == y[i] {
					diff -= 1
				}
				for j, xj := range x {
					gradW[c][j] += diff * xj
				}
				gradB[c] += diff
			}
		}

		for c := 0; c < l.NumClasses; c++ {
			for j := 0; j < d; j++ {
				l.Coefs[c][j] -= l.Args.LearningRate * (gradW[c][j]/n + l.Args.L2*l.Coefs[c][j])
			}
			l.Bias[c] -= l.Args.LearningRate * gradB[c] / n
		}
	}
	return nil
}

// Predict implements Estimator
func (l *logistic) Predict(x []float64) int {
	return argmax(l.PredictProba(x))
}

// PredictProba implements Estimator. Scores are shifted by their max before
// exponentiation to keep the softmax numerically stable.
func (l *logistic) PredictProba(x []float64) []float64 {
	scores := make([]float64, l.NumClasses)
	if len(l.Bias) != l.NumClasses {
		// untrained: no information, uniform scores
		for c := range scores {
			scores[c] = 1 / float64(l.NumClasses)
		}
		return scores
	}
	for c := 0; c < l.NumClasses; c++ {
		score := l.Bias[c]
		coefs := l.Coefs[c]
		for j, xj := range x {
			if j < len(coefs) {
				score += coefs[j] * xj
			}
		}
		scores[c] = score
	}

	max := scores[argmax(scores)]
	var sum float64
	for c, s := range scores {
		scores[c] = math.Exp(s - max)
		sum += scores[c]
	}
	for c := range scores {
		scores[c] /= sum
	}
	return scores
}
