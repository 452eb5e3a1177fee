package jobspace

import (
	"slimsweep/internal/errs"
)

// Count returns the size of the job space.
func Count(seeds []Seed, combos []Combination) int {
	return len(seeds) * len(combos)
}

// Enumerate builds every (seed, combination) pairing in the order set by
// nesting. Job indices are dense from 0; seeds keep generation order and
// combinations keep table row order in either nesting.
func Enumerate(seeds []Seed, combos []Combination, inv Invocation, nesting Nesting) ([]JobSpec, error) {
	if len(seeds) == 0 {
		return nil, errs.Configf("seed set is empty")
	}
	if len(combos) == 0 {
		return nil, errs.Configf("combination set is empty")
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	jobs := make([]JobSpec, 0, Count(seeds, combos))
	add := func(si, ci int) {
		jobs = append(jobs, JobSpec{
			Index:       len(jobs),
			SeedIndex:   si,
			Seed:        seeds[si],
			Combination: combos[ci],
			Args:        BuildArgs(inv, seeds[si], combos[ci]),
		})
	}

	switch nesting {
	case CombosOuter:
		for ci := range combos {
			for si := range seeds {
				add(si, ci)
			}
		}
	default:
		for si := range seeds {
			for ci := range combos {
				add(si, ci)
			}
		}
	}
	return jobs, nil
}

// Locate maps a flat job index back to its seed and combination positions
// for the given nesting. It is the inverse of the enumeration order and is
// what a job-array index resolves through.
func Locate(index, nSeeds, nCombos int, nesting Nesting) (seedIndex, comboIndex int, ok bool) {
	if index < 0 || nSeeds <= 0 || nCombos <= 0 || index >= nSeeds*nCombos {
		return 0, 0, false
	}
	if nesting == CombosOuter {
		return index % nSeeds, index / nSeeds, true
	}
	return index / nCombos, index % nCombos, true
}
