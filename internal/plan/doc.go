// Package plan loads run plans: declarative HCL files describing which
// experiment configurations to run, with how many repetitions or
// cross-validation folds, under which dotted-key overrides and accelerator
// devices. A plan is the harness-native replacement for the shell driver
// scripts that used to loop over the external trainer by hand.
package plan
