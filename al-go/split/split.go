// Package split computes train/test partitions of the cumulative labeled set
// with adaptive sizing and a stratification fallback for small or imbalanced
// data.
package split

import (
	"math"
	"math/rand"
	"sort"

	"github.com/zephyr-dassouli/DVRE-sub007/al-go/sample"
)

// Warning strings recorded in the round's performance report.
const (
	// WarnStratificationFallback is emitted when at least one class is too
	// small to stratify on and the split proceeds unstratified.
	WarnStratificationFallback = "stratification failed, using unstratified split"

	// WarnSmallDataset is emitted when the labeled set is too small to hold
	// out any data, so the train and test sets are the same samples.
	WarnSmallDataset = "labeled set too small for a held-out split: train and test overlap, metrics will be optimistic"
)

// Result holds disjoint train/test index sets into the labeled set that
// produced them. The index sets overlap only in the tiny-dataset case, which
// is flagged by WarnSmallDataset.
type Result struct {
	TrainIdx []int
	TestIdx  []int
	Warnings []string
}

// Split partitions n labeled samples into train and test sets.
//
// n > 10: test fraction = validationSplit, stratified by label when every
// class has at least two members, unstratified otherwise.
// 6 <= n <= 10: test size = max(2, floor(n*0.3)), same fallback policy.
// n < 6: train = test = everything; metrics will be optimistic.
//
// The same set and seed always produce the same partition.
func Split(set []sample.Labeled, validationSplit float64, seed int64) Result {
	n := len(set)

	if n < 6 {
		all := ordered(n)
		return Result{
			TrainIdx: all,
			TestIdx:  ordered(n),
			Warnings: []string{WarnSmallDataset},
		}
	}

	var testSize int
	if n <= 10 {
		testSize = 2
		if s := int(math.Floor(float64(n) * 0.3)); s > testSize {
			testSize = s
		}
	} else {
		testSize = int(math.Ceil(float64(n) * validationSplit))
		if testSize < 1 {
			testSize = 1
		}
		if testSize >= n {
			testSize = n - 1
		}
	}

	rng := rand.New(rand.NewSource(seed))
	if train, test, ok := stratified(set, testSize, rng); ok {
		return Result{TrainIdx: train, TestIdx: test}
	}

	// The rng is re-seeded so the fallback partition does not depend on how
	// far the stratified attempt advanced the stream.
	rng = rand.New(rand.NewSource(seed))
	train, test := unstratified(n, testSize, rng)
	return Result{
		TrainIdx: train,
		TestIdx:  test,
		Warnings: []string{WarnStratificationFallback},
	}
}

func ordered(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// stratified allocates the test set proportionally per class. It reports
// false when any class has fewer than two members or the test set cannot
// cover every class.
func stratified(set []sample.Labeled, testSize int, rng *rand.Rand) (train, test []int, ok bool) {
	// group indices by label in first-seen order for determinism
	groupOf := make(map[string]int)
	var groups [][]int
	for i, l := range set {
		g, seen := groupOf[l.Label]
		if !seen {
			g = len(groups)
			groupOf[l.Label] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	if testSize < len(groups) {
		return nil, nil, false
	}
	for _, g := range groups {
		if len(g) < 2 {
			return nil, nil, false
		}
	}

	quotas := apportion(groups, testSize, len(set))
	for gi, g := range groups {
		members := append([]int(nil), g...)
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		test = append(test, members[:quotas[gi]]...)
		train = append(train, members[quotas[gi]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, true
}

// apportion distributes testSize across class groups by largest remainder,
// keeping at least one test sample and one train sample per class.
func apportion(groups [][]int, testSize, n int) []int {
	type share struct {
		group     int
		remainder float64
	}

	quotas := make([]int, len(groups))
	var shares []share
	allocated := 0
	for gi, g := range groups {
		exact := float64(testSize) * float64(len(g)) / float64(n)
		quotas[gi] = int(math.Floor(exact))
		if quotas[gi] < 1 {
			quotas[gi] = 1
		}
		if max := len(g) - 1; quotas[gi] > max {
			quotas[gi] = max
		}
		allocated += quotas[gi]
		shares = append(shares, share{group: gi, remainder: exact - math.Floor(exact)})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})

	for i := 0; allocated < testSize && i < len(shares)*2; i++ {
		gi := shares[i%len(shares)].group
		if quotas[gi] < len(groups[gi])-1 {
			quotas[gi]++
			allocated++
		}
	}
	for i := 0; allocated > testSize && i < len(shares)*2; i++ {
		gi := shares[len(shares)-1-i%len(shares)].group
		if quotas[gi] > 1 {
			quotas[gi]--
			allocated--
		}
	}
	return quotas
}

func unstratified(n, testSize int, rng *rand.Rand) (train, test []int) {
	perm := rng.Perm(n)
	test = append(test, perm[:testSize]...)
	train = append(train, perm[testSize:]...)
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}
