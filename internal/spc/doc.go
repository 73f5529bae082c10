// Package spc computes X-bar/R control charts and process capability.
//
// Compute is pure: it takes the raw values of one slice and returns the
// subgroup series, control lines and capability. Engine fetches the slice
// from the measurement store, applies the distinct (serial, value) rule
// and the minimum sample size, then calls Compute.
//
// Control limits are mean ± 3σ where σ is the sample standard deviation
// of the raw values, not the R-bar/d2 estimate.
package spc
