package model

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/config"
	"github.com/zephyr-dassouli/DVRE-sub007/al-golib/errors"
)

// forestArgs are the training arguments of the random forest family.
// random_state mirrors the upstream sklearn argument name and overrides the
// engine-wide seed when present.
type forestArgs struct {
	NEstimators    int    `json:"n_estimators"`
	MaxDepth       int    `json:"max_depth"`
	MinSamplesLeaf int    `json:"min_samples_leaf"`
	RandomState    *int64 `json:"random_state"`

	Seed int64 `json:"-"`
}

func parseForestArgs(raw json.RawMessage, seed int64) (forestArgs, error) {
	args := forestArgs{
		NEstimators:    100,
		MaxDepth:       10,
		MinSamplesLeaf: 1,
		Seed:           seed,
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return forestArgs{}, errors.Wrapf(err, "error decoding random forest training args")
		}
	}
	if args.NEstimators <= 0 || args.MaxDepth <= 0 || args.MinSamplesLeaf <= 0 {
		return forestArgs{}, errors.Errorf("random forest requires positive n_estimators, max_depth and min_samples_leaf")
	}
	if args.RandomState != nil {
		args.Seed = *args.RandomState
	}
	return args, nil
}

// A treeNode represents a splitting decision of the form
// "x[FeatureIndex] < Threshold ?" in a classification tree.
type treeNode struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftChild    int     `json:"left_child"`
	LeftIsLeaf   bool    `json:"left_is_leaf"`
	RightChild   int     `json:"right_child"`
	RightIsLeaf  bool    `json:"right_is_leaf"`
}

// classTree is a classification tree stored as a flat node list; leaves hold
// class distributions over the label space.
type classTree struct {
	Nodes  []treeNode  `json:"nodes"`
	Leaves [][]float64 `json:"leaves"`
}

// bin drops a feature vector down the tree and returns the index of the leaf
// it ends up in. A tree without internal nodes has a single leaf.
func (t *classTree) bin(x []float64) int {
	if len(t.Nodes) == 0 {
		return 0
	}
	cur := t.Nodes[0]
	for {
		if x[cur.FeatureIndex] < cur.Threshold {
			if cur.LeftIsLeaf {
				return cur.LeftChild
			}
			cur = t.Nodes[cur.LeftChild]
		} else {
			if cur.RightIsLeaf {
				return cur.RightChild
			}
			cur = t.Nodes[cur.RightChild]
		}
	}
}

// forest is a bagged ensemble of classification trees. Probability output is
// the mean of the leaf class distributions across trees.
type forest struct {
	Trees      []classTree `json:"trees"`
	NumClasses int         `json:"num_classes"`
	Args       forestArgs  `json:"args"`
}

func newForest(numClasses int, args forestArgs) *forest {
	return &forest{NumClasses: numClasses, Args: args}
}

// Family implements Estimator
func (f *forest) Family() config.ModelType {
	return config.RandomForest
}

// SupportsProbabilityEstimate implements Estimator
func (f *forest) SupportsProbabilityEstimate() bool {
	return true
}

// Fit implements Estimator
func (f *forest) Fit(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return errors.Errorf("feature/label length mismatch: %d vs %d", len(X), len(y))
	}

	rng := rand.New(rand.NewSource(f.Args.Seed))
	f.Trees = make([]classTree, f.Args.NEstimators)
	for i := range f.Trees {
		sampled := make([]int, len(X))
		for j := range sampled {
			sampled[j] = rng.Intn(len(X))
		}
		f.Trees[i] = growTree(X, y, sampled, f.NumClasses, f.Args, rng)
	}
	return nil
}

// Predict implements Estimator
func (f *forest) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

// PredictProba implements Estimator
func (f *forest) PredictProba(x []float64) []float64 {
	probs := make([]float64, f.NumClasses)
	if len(f.Trees) == 0 {
		for c := range probs {
			probs[c] = 1 / float64(f.NumClasses)
		}
		return probs
	}
	for ti := range f.Trees {
		t := &f.Trees[ti]
		leaf := t.Leaves[t.bin(x)]
		for c, p := range leaf {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs
}

type treeBuilder struct {
	X          [][]float64
	y          []int
	numClasses int
	args       forestArgs
	rng        *rand.Rand

	nodes  []treeNode
	leaves [][]float64
}

// growTree builds one CART tree on a bootstrap sample, using Gini impurity
// and sqrt(d) feature subsampling per node.
func growTree(X [][]float64, y []int, members []int, numClasses int, args forestArgs, rng *rand.Rand) classTree {
	b := &treeBuilder{X: X, y: y, numClasses: numClasses, args: args, rng: rng}
	b.build(members, 0)
	return classTree{Nodes: b.nodes, Leaves: b.leaves}
}

// build grows a subtree over the given sample members and returns its index
// plus whether it is a leaf.
func (b *treeBuilder) build(members []int, depth int) (int, bool) {
	if depth >= b.args.MaxDepth || len(members) <= b.args.MinSamplesLeaf || pure(b.y, members) {
		return b.addLeaf(members), true
	}

	feature, threshold, ok := b.bestSplit(members)
	if !ok {
		return b.addLeaf(members), true
	}

	var left, right []int
	for _, m := range members {
		if b.X[m][feature] < threshold {
			left = append(left, m)
		} else {
			right = append(right, m)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.addLeaf(members), true
	}

	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{FeatureIndex: feature, Threshold: threshold})

	leftIdx, leftLeaf := b.build(left, depth+1)
	rightIdx, rightLeaf := b.build(right, depth+1)

	b.nodes[nodeIdx].LeftChild = leftIdx
	b.nodes[nodeIdx].LeftIsLeaf = leftLeaf
	b.nodes[nodeIdx].RightChild = rightIdx
	b.nodes[nodeIdx].RightIsLeaf = rightLeaf
	return nodeIdx, false
}

func (b *treeBuilder) addLeaf(members []int) int {
	dist := make([]float64, b.numClasses)
	for _, m := range members {
		dist[b.y[m]]++
	}
	if len(members) > 0 {
		for c := range dist {
			dist[c] /= float64(len(members))
		}
	}
	b.leaves = append(b.leaves, dist)
	return len(b.leaves) - 1
}

// bestSplit searches a random sqrt(d) feature subset for the split
// maximizing Gini gain, with thresholds at midpoints of consecutive distinct
// values.
func (b *treeBuilder) bestSplit(members []int) (feature int, threshold float64, ok bool) {
	d := len(b.X[members[0]])
	nFeatures := int(math.Ceil(math.Sqrt(float64(d))))

	candidates := b.rng.Perm(d)[:nFeatures]
	sort.Ints(candidates)

	parent := gini(b.y, members, b.numClasses)
	bestGain := 0.0

	values := make([]float64, 0, len(members))
	for _, fi := range candidates {
		values = values[:0]
		for _, m := range members {
			values = append(values, b.X[m][fi])
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			mid := (values[i] + values[i-1]) / 2

			var left, right []int
			for _, m := range members {
				if b.X[m][fi] < mid {
					left = append(left, m)
				} else {
					right = append(right, m)
				}
			}
			if len(left) < b.args.MinSamplesLeaf || len(right) < b.args.MinSamplesLeaf {
				continue
			}

			n := float64(len(members))
			gain := parent -
				float64(len(left))/n*gini(b.y, left, b.numClasses) -
				float64(len(right))/n*gini(b.y, right, b.numClasses)
			if gain > bestGain {
				bestGain = gain
				feature = fi
				threshold = mid
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func pure(y []int, members []int) bool {
	for _, m := range members[1:] {
		if y[m] != y[members[0]] {
			return false
		}
	}
	return true
}

func gini(y []int, members []int, numClasses int) float64 {
	counts := make([]float64, numClasses)
	for _, m := range members {
		counts[y[m]]++
	}
	n := float64(len(members))
	impurity := 1.0
	for _, c := range counts {
		p := c / n
		impurity -= p * p
	}
	return impurity
}
