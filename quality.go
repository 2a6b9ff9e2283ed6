package optifuse

// Defaults of the adaptive quality search.
const (
	// DefaultQuality is the seed quality of the search.
	DefaultQuality = 85
	// DefaultTargetRatio is the fraction of the fallback size the lossy
	// output has to stay under to be preferred.
	DefaultTargetRatio = 0.95

	// The quality domain of the lossy encoder.
	minQuality = 1
	maxQuality = 100

	// climbStep is the coarse increment used when the seed already
	// satisfies the budget and quality headroom is left.
	climbStep = 5

	// maxEncodeCalls caps the number of encoder invocations per image,
	// independent of image content.
	maxEncodeCalls = 8
)

// EncodeFunc produces the lossy encoding of a fixed source image at the
// given quality.
type EncodeFunc func(quality int) ([]byte, error)

// SearchResult is the winning attempt of a quality search.
type SearchResult struct {
	Quality     int
	Data        []byte
	Size        int
	BudgetMet   bool
	EncodeCalls int
}

// searchQuality finds a quality level whose output stays within budget
// bytes, preferring the highest satisfying quality and spending at most
// maxEncodeCalls encoder invocations.
//
// The seed is probed first. If it fits the budget the search climbs in
// coarse steps until one step no longer fits, keeping the last satisfying
// attempt. If the seed is over budget the search bisects downward; when not
// even the floor quality fits, the floor attempt is returned with
// BudgetMet unset so the caller can report it.
func searchQuality(encode EncodeFunc, seed, budget int) (*SearchResult, error) {
	if seed < minQuality {
		seed = minQuality
	} else if seed > maxQuality {
		seed = maxQuality
	}

	calls := 0
	attempt := func(q int) (*SearchResult, error) {
		data, err := encode(q)
		if err != nil {
			return nil, err
		}
		calls++
		return &SearchResult{Quality: q, Data: data, Size: len(data)}, nil
	}

	cur, err := attempt(seed)
	if err != nil {
		return nil, err
	}

	if cur.Size <= budget {
		// The seed fits; use the remaining call budget to reclaim easy
		// quality headroom.
		best := cur
		for q := seed + climbStep; q <= maxQuality && calls < maxEncodeCalls; q += climbStep {
			next, err := attempt(q)
			if err != nil {
				return nil, err
			}
			if next.Size > budget {
				break
			}
			best = next
		}
		best.BudgetMet = true
		best.EncodeCalls = calls
		return best, nil
	}

	// Over budget: bisect toward the floor, keeping the highest satisfying
	// attempt and the lowest probed one.
	var best *SearchResult
	floor := cur
	lo, hi := minQuality, seed-1
	for lo <= hi && calls < maxEncodeCalls {
		mid := (lo + hi) / 2
		next, err := attempt(mid)
		if err != nil {
			return nil, err
		}
		if next.Quality < floor.Quality {
			floor = next
		}
		if next.Size <= budget {
			best = next
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if best != nil {
		best.BudgetMet = true
		best.EncodeCalls = calls
		return best, nil
	}

	// Nothing fits: probe the floor once if it was not reached yet and
	// return the attempt as a best effort.
	if floor.Quality != minQuality && calls < maxEncodeCalls {
		next, err := attempt(minQuality)
		if err != nil {
			return nil, err
		}
		floor = next
	}
	floor.BudgetMet = floor.Size <= budget
	floor.EncodeCalls = calls
	return floor, nil
}
