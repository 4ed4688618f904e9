// Package config loads and watches the ulcalc configuration file.
//
// Top-level types:
//   - Config{Logging, Engine, Server, Grid, Analyses}: full tree parsed from YAML
//   - Analysis: name, confidence levels, optional grid override, searches []
//   - Search: exactly one of volume (+volume_error), efficiency curve or
//     injections; plus background and livetime
//   - EfficiencySource / InjectionSource: inline bin edges and samples
//
// Load(path) reads the YAML file, applies defaults (info/json logging,
// 4 workers, cache of 128 results, port 8080, confidence 0.90), then
// validates required fields and enums. Parse does the same for raw bytes.
//
// Watch(ctx, path, delay, onChange) uses fsnotify on the parent directory to
// detect writes, creates and atomic renames of the file and calls onChange
// with the newly parsed Config after the events settle.
package config
