package classify

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit assigns roughly fraction of every class to the test set
// so both splits keep the class proportions. A class with a single member
// stays in the training split. Indices are returned in ascending order.
func StratifiedSplit(labels []int, fraction float64, seed int64) (train, test []int) {
	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		members := byClass[c]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		n := 0
		if len(members) > 1 {
			n = int(math.Round(fraction * float64(len(members))))
			if n < 1 && fraction > 0 {
				n = 1
			}
			if n >= len(members) {
				n = len(members) - 1
			}
		}
		test = append(test, members[:n]...)
		train = append(train, members[n:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test
}
