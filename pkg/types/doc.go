// Package types defines the value types shared by the efficiency, posterior
// and limit packages, plus the error kinds they return.
//
// All types are plain slices and structs. Producers always allocate fresh
// slices, so a value handed to the next stage is never mutated behind the
// caller's back.
package types
