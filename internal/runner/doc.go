// Package runner turns a plan experiment into the concrete trainer
// invocations it implies and executes them one at a time. Expansion is pure
// and deterministic: the same experiment always yields the same ordered
// command lines, so a plan can be inspected with --dry-run and trusted to
// run exactly as printed.
package runner
