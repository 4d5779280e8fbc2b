// Package cfg implements the experiment configuration document: a nested,
// string-keyed tree of hyperparameters addressed by dotted keys (for example
// "SOLVER.BASE_LR"). Documents start from the harness defaults, merge a YAML
// file on top, then merge command-line overrides, and are frozen before a run.
//
// The merge rules are deliberately strict: a key that does not exist in the
// defaults is an error, and a value may not change its type. This catches
// typos in experiment files before any GPU time is spent.
package cfg
