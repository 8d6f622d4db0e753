// Package testutil provides testing utilities for globdex.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible text corpora and glob patterns, and answers
// glob queries by brute force as ground truth.
//
// # Corpus Generation
//
//	rng := testutil.NewRNG(seed)
//	corpus := rng.Corpus(1000, 4) // key -> value, four words each
//
// # Ground Truth
//
//	want := testutil.BruteForce(corpus, match)
package testutil
