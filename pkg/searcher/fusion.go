package searcher

import (
	"math"
	"sort"
)

// Fuse combines a lexical candidate list and a dense candidate list into one
// ranked result list using a weighted-sum of converted similarities (not
// Reciprocal Rank Fusion): dense distance is converted to a similarity and
// weighted by (1-HybridWeight); lexical rank is converted to a similarity
// and weighted by HybridWeight. Contributions for the same chunk row sum.
// The result is sorted descending by score (ascending by Distance).
func Fuse(lexical []LexicalCandidate, dense []DenseCandidate, cfg FusionConfig) []Result {
	scores := make(map[string]*Result)

	n := len(lexical)
	for _, c := range lexical {
		contribution := (1 - float64(c.Rank)/float64(n)) * cfg.HybridWeight
		r, ok := scores[c.ID]
		if !ok {
			r = &Result{ID: c.ID}
			scores[c.ID] = r
		}
		r.Score += contribution
		r.MatchedTerms = c.MatchedTerms
	}

	for _, c := range dense {
		similarity := math.Max(0, 1-float64(c.Distance)/2)
		contribution := similarity * (1 - cfg.HybridWeight)
		r, ok := scores[c.ID]
		if !ok {
			r = &Result{ID: c.ID}
			scores[c.ID] = r
		}
		r.Score += contribution
	}

	results := make([]Result, 0, len(scores))
	for _, r := range scores {
		r.Distance = 1 - r.Score
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results
}

// Group applies the statistical gap-threshold trimming filter to results
// already sorted ascending by Distance (Fuse's
// output order). It must not re-sort the list.
//
// Consecutive gaps between distances are computed; a boundary is any index
// where the gap exceeds mean(gaps) + 1.5*population-stddev(gaps). "similar"
// truncates at the first boundary; "related" truncates at the second
// boundary, or keeps everything if fewer than two boundaries exist. With
// <=1 results, or no gap exceeding the threshold, results are unchanged.
func Group(results []Result, mode GroupingMode) []Result {
	if mode == GroupingNone || len(results) <= 1 {
		return results
	}

	n := len(results)
	gaps := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		gaps[i] = results[i+1].Distance - results[i].Distance
	}

	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	variance := 0.0
	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	variance /= float64(len(gaps))
	stddev := math.Sqrt(variance)

	threshold := mean + 1.5*stddev

	var boundaries []int
	for i, g := range gaps {
		if g > threshold {
			boundaries = append(boundaries, i+1)
		}
	}

	if len(boundaries) == 0 {
		return results
	}

	switch mode {
	case GroupingSimilar:
		return results[:boundaries[0]]
	case GroupingRelated:
		if len(boundaries) < 2 {
			return results
		}
		return results[:boundaries[1]]
	default:
		return results
	}
}

// FilterByDistance drops results whose Distance exceeds threshold. A
// threshold <= 0 is treated as "no filter" (spec's maxDistance is optional).
func FilterByDistance(results []Result, threshold float64) []Result {
	if threshold <= 0 {
		return results
	}
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Distance <= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// Truncate returns at most limit results.
func Truncate(results []Result, limit int) []Result {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}
