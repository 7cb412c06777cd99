// Package searcher fuses lexical and dense retrieval candidates and applies
// the unsupervised "grouping" trim that cuts noisy tails from a ranked
// result list.
//
// # Usage
//
//	fused := searcher.Fuse(lexicalCandidates, denseCandidates, searcher.FusionConfig{HybridWeight: 0.6})
//	fused = searcher.FilterByDistance(fused, maxDistance)
//	fused = searcher.Group(fused, searcher.GroupingSimilar)
//	fused = searcher.Truncate(fused, limit)
//
// Fuse sorts its output descending by score (ascending by Distance); Group
// relies on that order and must not re-sort.
package searcher
