package optimizer

import (
	"math/rand/v2"
	"sort"
)

// ParamRanges maps a parameter name to its finite list of candidate
// values. A nil or empty ParamRanges contributes exactly one (empty)
// combination to the product, letting the caller sweep only the
// strategy params, only the backtest params, or both.
type ParamRanges map[string][]any

// Combination is one fully-specified point in the grid: a strategy
// parameter map and a backtest parameter map, both passed straight
// through to strategy.New and applyBacktestParams. Either map may be
// empty if the corresponding ParamRanges was empty.
type Combination struct {
	StrategyParams map[string]any
	BacktestParams map[string]any
}

// cartesian expands a ParamRanges into every combination of its values,
// one map per combination. An empty ranges yields a single empty map so
// callers can cross it with another dimension unconditionally.
func cartesian(ranges ParamRanges) []map[string]any {
	if len(ranges) == 0 {
		return []map[string]any{{}}
	}

	keys := make([]string, 0, len(ranges))
	for k := range ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]any{{}}
	for _, key := range keys {
		values := ranges[key]
		next := make([]map[string]any, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				m := make(map[string]any, len(base)+1)
				for bk, bv := range base {
					m[bk] = bv
				}
				m[key] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

// buildGrid forms the Cartesian product of strategyRanges x
// backtestRanges, applies filter (if non-nil) to drop infeasible shapes,
// and — if the surviving set exceeds maxCombinations — draws a uniform
// sample without replacement using a PCG source seeded deterministically
// from seed, so repeated runs with the same seed reproduce the same
// subset. Returns the selected combinations and the count dropped by
// the filter; combinations dropped by sampling are not counted.
func buildGrid(strategyRanges, backtestRanges ParamRanges, maxCombinations int, seed uint64, filter func(Combination) bool) (selected []Combination, filteredOut int) {
	strategyCombos := cartesian(strategyRanges)
	backtestCombos := cartesian(backtestRanges)

	all := make([]Combination, 0, len(strategyCombos)*len(backtestCombos))
	for _, sc := range strategyCombos {
		for _, bc := range backtestCombos {
			all = append(all, Combination{StrategyParams: sc, BacktestParams: bc})
		}
	}

	if filter != nil {
		kept := all[:0:0]
		for _, c := range all {
			if filter(c) {
				kept = append(kept, c)
			}
		}
		filteredOut = len(all) - len(kept)
		all = kept
	}

	if maxCombinations <= 0 || len(all) <= maxCombinations {
		return all, filteredOut
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:maxCombinations], filteredOut
}
