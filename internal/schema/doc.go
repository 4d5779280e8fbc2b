// Package schema validates experiment configuration documents before any
// trainer process is launched. It checks two layers: the raw YAML document
// must explicitly state the experiment's core choices (task, model, dataset,
// epoch budget), and the merged document must satisfy per-field semantic
// rules (positive counts, recognized augmentation names, increasing LR
// milestones). All findings are aggregated into one report instead of
// failing on the first.
package schema
