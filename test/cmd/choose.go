package main

import (
	"cmp"
	"maps"
	"math/rand"
	"slices"
)

// ChooseWeighted picks a key with probability proportional to its weight.
// Keys are walked in order so a seeded source repeats its choices.
func ChooseWeighted[Key cmp.Ordered](r *rand.Rand, weights map[Key]int) Key {
	var sum int
	for _, v := range weights {
		sum += v
	}
	if sum <= 0 {
		return *new(Key)
	}
	i := r.Intn(sum)
	var s int
	for _, k := range slices.Sorted(maps.Keys(weights)) {
		s += weights[k]
		if s > i {
			return k
		}
	}
	panic("shouldn't get here")
}
