// Package engine evaluates configured analyses: it resolves every search to
// a sensitivity, folds the searches into one posterior and extracts the
// credible limits at each requested confidence level.
//
// Independent analyses are computed in parallel, bounded by the configured
// worker count. Results of unchanged analyses are served from an LRU cache
// keyed by a fingerprint of the analysis definition, so a config reload only
// recomputes what changed.
package engine
