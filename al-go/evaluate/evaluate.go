// Package evaluate computes class-imbalance-aware performance metrics for a
// round's held-out split.
package evaluate

import (
	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
)

// Strategy is the method for aggregating per-class precision/recall/F1 into
// a single score.
type Strategy string

// Averaging strategies.
const (
	Binary   Strategy = "binary"
	Weighted Strategy = "weighted"
)

// StrategyFor picks the averaging strategy from the declared label space:
// binary iff the label space has exactly two classes. The observed test
// labels never participate in this decision; test sets may omit classes.
func StrategyFor(space config.LabelSpace) Strategy {
	if len(space) == 2 {
		return Binary
	}
	return Weighted
}

// Metrics are the aggregate scores of one evaluation.
type Metrics struct {
	NumClasses        int
	AveragingStrategy Strategy
	Accuracy          float64
	Precision         float64
	Recall            float64
	F1                float64
}

// Report is the persisted per-round performance report.
type Report struct {
	Round             int      `json:"round"`
	NumClasses        int      `json:"num_classes"`
	AveragingStrategy Strategy `json:"averaging_strategy"`
	Accuracy          float64  `json:"accuracy"`
	Precision         float64  `json:"precision"`
	Recall            float64  `json:"recall"`
	F1                float64  `json:"f1_score"`
	TrainSize         int      `json:"train_size"`
	TestSize          int      `json:"test_size"`
	Warnings          []string `json:"warnings"`
}

// Evaluate scores predictions against true labels, both given as label-space
// indices. NumClasses always derives from the declared label space. An
// unrepresented class contributes zero to an average rather than raising a
// division error.
func Evaluate(yTrue, yPred []int, space config.LabelSpace) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, errors.Errorf("prediction length mismatch: %d true vs %d predicted", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Metrics{}, errors.Errorf("cannot evaluate an empty test set")
	}

	m := Metrics{
		NumClasses:        len(space),
		AveragingStrategy: StrategyFor(space),
	}

	var correct int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	m.Accuracy = float64(correct) / float64(len(yTrue))

	if m.AveragingStrategy == Binary {
		// the second label in the declared space is the positive class
		m.Precision, m.Recall, m.F1 = classScores(yTrue, yPred, 1)
		return m, nil
	}

	total := float64(len(yTrue))
	for c := 0; c < len(space); c++ {
		support := 0
		for _, t := range yTrue {
			if t == c {
				support++
			}
		}
		if support == 0 {
			continue
		}
		p, r, f := classScores(yTrue, yPred, c)
		weight := float64(support) / total
		m.Precision += weight * p
		m.Recall += weight * r
		m.F1 += weight * f
	}
	return m, nil
}

// classScores computes one-vs-rest precision, recall and F1 for class c,
// with zero-division contributing 0.
func classScores(yTrue, yPred []int, c int) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == c && yTrue[i] == c:
			tp++
		case yPred[i] == c && yTrue[i] != c:
			fp++
		case yPred[i] != c && yTrue[i] == c:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
