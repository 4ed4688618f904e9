// Package store holds the latest engine result of every analysis in memory
// for the HTTP API.
//
// Results are keyed by analysis name. A config reload replaces the whole
// set with Replace, which also drops analyses that were removed from the
// config.
package store
