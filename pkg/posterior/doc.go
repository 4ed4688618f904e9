// Package posterior builds the posterior density of an unknown event rate μ
// from the sensitivity of one or more independent searches.
//
// Each search contributes the zero-detection likelihood
//
//	L(μ) = (1 + μVλ) · exp(−μV)
//
// where V is the sensitive volume and λ the expected background. When the
// volume carries an uncertainty σ, V is marginalized over a Gamma
// distribution with mean V and standard deviation σ, which gives
//
//	L(μ) = (1 + μθ)^(−k) · [1 + μλV / (1 + μθ)],  k = V²/σ², θ = σ²/V.
//
// Compute multiplies a prior by one likelihood; Combine folds Compute over
// a slice of searches, threading each output back in as the next prior.
// For λ = 0 and σ = 0 the fold over V1, V2 equals a single call with
// V1 + V2. A search with zero volume is the identity.
//
// With σ > 0 the posterior tail falls like μ^(−k), so under a flat prior it
// is proper only for k > 1. The default grids cover the tail down to a
// mass of 1e-6 and report ErrDegenerateDistribution when that is impossible.
package posterior
