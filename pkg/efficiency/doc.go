// Package efficiency turns a detection-efficiency curve sampled in distance
// bins into a sensitive volume with a statistical uncertainty.
//
// Integrate(curve) sums efficiency times the spherical-shell volume element
// of each bin: 4π r² Δr at the bin midpoint for linear bins, or 4π r³ Δln r
// at the geometric midpoint for logarithmic bins. The uncertainty is the
// per-bin efficiency error propagated through the same weighted sum.
//
// FromInjections bins found and missed injection distances into a binomial
// efficiency estimate; SensitiveVolume and VolumesByParam chain the two.
package efficiency
